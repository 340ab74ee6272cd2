// Package graph derives the keyword co-occurrence graph from stored notes.
package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/felixgeelhaar/recall/internal/metrics"
	"github.com/felixgeelhaar/recall/internal/observe"
	"github.com/felixgeelhaar/recall/internal/store"
)

// ErrGraphUnavailable is returned when the underlying rows cannot be read.
var ErrGraphUnavailable = errors.New("graph unavailable")

const (
	NodeTypeNote    = "note"
	NodeTypeKeyword = "keyword"

	untitledLabel = "untitled"
)

// Lister is the slice of the store the builder reads from.
type Lister interface {
	ListAll(ctx context.Context) ([]store.GraphRow, error)
}

// Node is a note or keyword vertex.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// Edge links a note to one of its keywords.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph holds nodes and edges in construction order.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// Element is one transport item: {"data": node-or-edge}.
type Element struct {
	Data any `json:"data"`
}

// Elements flattens the graph into nodes followed by edges.
func (g *Graph) Elements() []Element {
	out := make([]Element, 0, len(g.Nodes)+len(g.Edges))
	for _, n := range g.Nodes {
		out = append(out, Element{Data: n})
	}
	for _, e := range g.Edges {
		out = append(out, Element{Data: e})
	}
	return out
}

// Builder builds graphs from a Lister.
type Builder struct {
	lister  Lister
	observe *observe.Observer
}

func NewBuilder(l Lister, o *observe.Observer) *Builder {
	return &Builder{
		lister:  l,
		observe: o,
	}
}

// Build reads every stored note and returns the full graph. Note nodes are
// deduplicated by ID, keyword nodes by lowercase keyword. Every (note,
// keyword) pair yields an edge, repeats included.
func (b *Builder) Build(ctx context.Context) (*Graph, error) {
	ctx, span := b.observe.StartSpan(ctx, "graph.Build")
	defer span.End()

	rows, err := b.lister.ListAll(ctx)
	if err != nil {
		metrics.GraphBuilds.WithLabelValues(metrics.ResultError).Inc()
		b.observe.Log().Error().Err(err).Msg("failed to list notes for graph")
		return nil, fmt.Errorf("%w: %w", ErrGraphUnavailable, err)
	}
	b.observe.Log().Debug().Int("rows", len(rows)).Msg("building keyword graph")

	// A Caser keeps state between calls, so each build gets its own.
	caser := cases.Title(language.Und)
	g := &Graph{Nodes: []Node{}, Edges: []Edge{}}
	notes := make(map[string]bool)
	keywords := make(map[string]bool)

	for _, row := range rows {
		label := strings.TrimSpace(row.Title)
		if label == "" {
			label = untitledLabel
		}
		noteID := "note_" + b.sanitize(label)
		if !notes[noteID] {
			notes[noteID] = true
			g.Nodes = append(g.Nodes, Node{ID: noteID, Label: label, Type: NodeTypeNote})
		}

		for _, raw := range row.Keywords {
			kw := strings.ToLower(strings.TrimSpace(raw))
			if kw == "" {
				continue
			}
			kwID := "keyword_" + b.sanitize(kw)
			if !keywords[kw] {
				keywords[kw] = true
				g.Nodes = append(g.Nodes, Node{ID: kwID, Label: caser.String(kw), Type: NodeTypeKeyword})
			}
			g.Edges = append(g.Edges, Edge{
				ID:     "edge_" + noteID + "_" + kwID,
				Source: noteID,
				Target: kwID,
			})
		}
	}

	metrics.GraphBuilds.WithLabelValues(metrics.ResultOK).Inc()
	b.observe.Log().Info().Int("nodes", len(g.Nodes)).Int("edges", len(g.Edges)).Msg("keyword graph built")
	return g, nil
}

func (b *Builder) sanitize(label string) string {
	id, fallback := sanitize(label)
	if fallback {
		b.observe.Log().Debug().Str("label", label).Str("id", id).Msg("label sanitized to random id")
	}
	return id
}

// Build is a convenience wrapper for one-off builds.
func Build(ctx context.Context, l Lister, o *observe.Observer) (*Graph, error) {
	return NewBuilder(l, o).Build(ctx)
}
