// Package mcp serves the memory engine as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/felixgeelhaar/recall/internal/graph"
	"github.com/felixgeelhaar/recall/internal/guard"
	"github.com/felixgeelhaar/recall/internal/memory"
	"github.com/felixgeelhaar/recall/internal/observe"
	"github.com/felixgeelhaar/recall/internal/store"
)

// KeywordLister lists the keywords in use.
type KeywordLister interface {
	ListAllKeywords(ctx context.Context) ([]string, error)
}

// GraphBuilder produces the keyword graph.
type GraphBuilder interface {
	Build(ctx context.Context) (*graph.Graph, error)
}

// Tools holds the collaborators behind each tool.
type Tools struct {
	memory   memory.Memory
	keywords KeywordLister
	graphs   GraphBuilder
	guard    *guard.Guard
	observe  *observe.Observer
}

func NewTools(m memory.Memory, kl KeywordLister, g GraphBuilder, gd *guard.Guard, o *observe.Observer) *Tools {
	return &Tools{
		memory:   m,
		keywords: kl,
		graphs:   g,
		guard:    gd,
		observe:  o,
	}
}

// NewServer registers the remember, recall, keywords and keyword_graph tools.
func NewServer(t *Tools, version string) *server.MCPServer {
	s := server.NewMCPServer("recall", version, server.WithToolCapabilities(false))

	s.AddTool(mcpgo.NewTool("remember",
		mcpgo.WithDescription("Store a short factual note in long-term memory"),
		mcpgo.WithString("content", mcpgo.Required(), mcpgo.Description("The fact to remember, one concise statement")),
		mcpgo.WithString("title", mcpgo.Description("Unique slug for the note")),
		mcpgo.WithArray("keywords",
			mcpgo.Description("Lowercase tags for the note"),
			mcpgo.Items(map[string]any{"type": "string"}),
		),
	), t.Remember)

	s.AddTool(mcpgo.NewTool("recall",
		mcpgo.WithDescription("Find the stored notes most similar to a query"),
		mcpgo.WithString("query", mcpgo.Required(), mcpgo.Description("What to look for")),
		mcpgo.WithNumber("k", mcpgo.Description("Maximum number of notes to return (default 5)")),
	), t.Recall)

	s.AddTool(mcpgo.NewTool("keywords",
		mcpgo.WithDescription("List every keyword used by stored notes"),
	), t.Keywords)

	s.AddTool(mcpgo.NewTool("keyword_graph",
		mcpgo.WithDescription("Return the note/keyword graph as a flat list of nodes and edges"),
	), t.KeywordGraph)

	return s
}

// ServeStdio runs the server over the given streams until ctx is done.
func ServeStdio(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s).Listen(ctx, in, out)
}

type noteView struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Keywords []string `json:"keywords"`
}

func (t *Tools) Remember(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	title := req.GetString("title", "")
	keywords := req.GetStringSlice("keywords", nil)

	if v := t.guard.CheckEntry(title, content); v != nil {
		return mcpgo.NewToolResultError(v.Message), nil
	}
	keywords = t.guard.FilterKeywords(keywords)

	entry, err := t.memory.Ingest(ctx, title, content, keywords)
	if err != nil {
		t.observe.Log().Warn().Str("tool", "remember").Err(err).Msg("tool call failed")
		if errors.Is(err, store.ErrDuplicateTitle) {
			return mcpgo.NewToolResultError(fmt.Sprintf("a note titled %q already exists", title)), nil
		}
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	return mcpgo.NewToolResultText(fmt.Sprintf("Remembered %q at position %d", entry.Title, entry.VectorPosition)), nil
}

func (t *Tools) Recall(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	k := req.GetInt("k", memory.DefaultTopK)

	entries, err := t.memory.Retrieve(ctx, query, k)
	if err != nil {
		t.observe.Log().Warn().Str("tool", "recall").Err(err).Msg("tool call failed")
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	notes := make([]noteView, 0, len(entries))
	for _, e := range entries {
		kw := e.Keywords
		if kw == nil {
			kw = []string{}
		}
		notes = append(notes, noteView{Title: e.Title, Content: e.Content, Keywords: kw})
	}
	return jsonResult(notes)
}

func (t *Tools) Keywords(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	keywords, err := t.keywords.ListAllKeywords(ctx)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	if keywords == nil {
		keywords = []string{}
	}
	return jsonResult(keywords)
}

func (t *Tools) KeywordGraph(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	g, err := t.graphs.Build(ctx)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	return jsonResult(g.Elements())
}

func jsonResult(v any) (*mcpgo.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcpgo.NewToolResultText(string(data)), nil
}
