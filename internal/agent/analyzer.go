package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/felixgeelhaar/recall/internal/provider"
)

// ErrUnparseableAnalysis is returned when the model reply holds no JSON object.
var ErrUnparseableAnalysis = errors.New("unparseable analysis")

// Analysis is the structured result of analyzing one turn. A nil Content
// means there is nothing to learn.
type Analysis struct {
	Thoughts string   `json:"_thoughts"`
	Keywords []string `json:"keywords"`
	Content  *string  `json:"content"`
	Title    *string  `json:"title"`
}

// HasContent reports whether the analysis carries a fact to store.
func (a *Analysis) HasContent() bool {
	return a != nil && a.Content != nil && strings.TrimSpace(*a.Content) != ""
}

// TitleOrEmpty returns the title, or "" when absent.
func (a *Analysis) TitleOrEmpty() string {
	if a == nil || a.Title == nil {
		return ""
	}
	return strings.TrimSpace(*a.Title)
}

// Analyzer extracts a memory candidate from a user turn.
type Analyzer interface {
	Analyze(ctx context.Context, turn string, known []string) (*Analysis, error)
}

// LLMAnalyzer asks a chat model to analyze the turn.
type LLMAnalyzer struct {
	provider provider.Provider
}

func NewLLMAnalyzer(p provider.Provider) *LLMAnalyzer {
	return &LLMAnalyzer{provider: p}
}

func (a *LLMAnalyzer) Analyze(ctx context.Context, turn string, known []string) (*Analysis, error) {
	resp, err := a.provider.Chat(ctx, []provider.Message{
		{Role: "system", Content: buildAnalyzerPrompt(known)},
		{Role: "user", Content: turn},
	})
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	return ParseAnalysis(resp.Content)
}

// ParseAnalysis decodes a model reply. It accepts a bare object, an object
// inside a markdown code fence, an object surrounded by prose, and an object
// encoded as a JSON string.
func ParseAnalysis(raw string) (*Analysis, error) {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(text), &inner); err == nil {
			text = strings.TrimSpace(inner)
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in %q", ErrUnparseableAnalysis, truncate(raw, 80))
	}

	var a Analysis
	if err := json.Unmarshal([]byte(text[start:end+1]), &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableAnalysis, err)
	}

	keywords := a.Keywords[:0]
	for _, kw := range a.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	a.Keywords = keywords
	return &a, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
