package agent

import (
	"errors"
	"testing"
)

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		content  string
		title    string
		keywords []string
	}{
		{
			name:     "bare object",
			raw:      `{"_thoughts": "t", "keywords": ["krakow", "poland"], "content": "Lives in Krakow", "title": "place-of-living"}`,
			content:  "Lives in Krakow",
			title:    "place-of-living",
			keywords: []string{"krakow", "poland"},
		},
		{
			name:     "code fence",
			raw:      "```json\n{\"keywords\": [\"Tesla\", \" \"], \"content\": \"Owns a Tesla\", \"title\": \"tesla\"}\n```",
			content:  "Owns a Tesla",
			title:    "tesla",
			keywords: []string{"tesla"},
		},
		{
			name:    "surrounding prose",
			raw:     `Here you go: {"keywords": [], "content": "Likes tea", "title": null} hope that helps`,
			content: "Likes tea",
		},
		{
			name:     "quoted json",
			raw:      `"{\"keywords\": [\"python\"], \"content\": \"Codes in Python\", \"title\": \"lang\"}"`,
			content:  "Codes in Python",
			title:    "lang",
			keywords: []string{"python"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAnalysis(tt.raw)
			if err != nil {
				t.Fatalf("ParseAnalysis failed: %v", err)
			}
			if !a.HasContent() || *a.Content != tt.content {
				t.Errorf("Expected content %q, got %v", tt.content, a.Content)
			}
			if a.TitleOrEmpty() != tt.title {
				t.Errorf("Expected title %q, got %q", tt.title, a.TitleOrEmpty())
			}
			if len(a.Keywords) != len(tt.keywords) {
				t.Fatalf("Expected keywords %v, got %v", tt.keywords, a.Keywords)
			}
			for i := range tt.keywords {
				if a.Keywords[i] != tt.keywords[i] {
					t.Errorf("Expected keywords %v, got %v", tt.keywords, a.Keywords)
				}
			}
		})
	}
}

func TestParseAnalysis_NothingToLearn(t *testing.T) {
	a, err := ParseAnalysis(`{"_thoughts": "greeting", "keywords": [], "content": null, "title": null}`)
	if err != nil {
		t.Fatalf("ParseAnalysis failed: %v", err)
	}
	if a.HasContent() {
		t.Error("Expected no content")
	}

	var nilAnalysis *Analysis
	if nilAnalysis.HasContent() || nilAnalysis.TitleOrEmpty() != "" {
		t.Error("Expected nil analysis to be empty")
	}
}

func TestParseAnalysis_Errors(t *testing.T) {
	for _, raw := range []string{"", "no json here", "{broken", `{"content": 5}`} {
		if _, err := ParseAnalysis(raw); !errors.Is(err, ErrUnparseableAnalysis) {
			t.Errorf("ParseAnalysis(%q): expected ErrUnparseableAnalysis, got %v", raw, err)
		}
	}
}

func TestBuildPrompts(t *testing.T) {
	if got := buildAnalyzerPrompt(nil); got[len(got)-len("<keywords>[]</keywords>"):] != "<keywords>[]</keywords>" {
		t.Errorf("Unexpected analyzer prompt suffix: %q", got[len(got)-40:])
	}
	if got := buildAssistantPrompt(nil); got != assistantPrompt {
		t.Errorf("Expected bare assistant prompt, got %q", got)
	}
	if got := buildAssistantPrompt([]string{"a.", "b."}); got != assistantPrompt+"<context>a. b.</context>" {
		t.Errorf("Unexpected assistant prompt %q", got)
	}
}
