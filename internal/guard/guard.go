package guard

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Policy defines the limits applied to memories before they are stored.
type Policy struct {
	MaxContentLength    int      `json:"max_content_length" yaml:"max_content_length"`
	MaxTitleLength      int      `json:"max_title_length" yaml:"max_title_length"`
	MaxKeywords         int      `json:"max_keywords" yaml:"max_keywords"`
	BlockedKeywordGlobs []string `json:"blocked_keyword_globs" yaml:"blocked_keyword_globs"`
}

// DefaultPolicy provides safe defaults.
var DefaultPolicy = Policy{
	MaxContentLength: 2000,
	MaxTitleLength:   120,
	MaxKeywords:      7,
}

// Violation represents a specific breach of policy.
type Violation struct {
	Rule    string
	Message string
}

func (v *Violation) Error() string {
	return v.Rule + ": " + v.Message
}

// Guard enforces the policy.
type Guard struct {
	policy Policy
}

func New(p Policy) *Guard {
	return &Guard{policy: p}
}

// Policy returns the guard's current policy configuration.
func (g *Guard) Policy() Policy {
	return g.policy
}

// CheckEntry verifies a memory is within the size limits. Zero limits are
// unlimited.
func (g *Guard) CheckEntry(title, content string) *Violation {
	if strings.TrimSpace(content) == "" {
		return &Violation{Rule: "content", Message: "Content is empty"}
	}
	if max := g.policy.MaxContentLength; max > 0 && len([]rune(content)) > max {
		return &Violation{
			Rule:    "max_content_length",
			Message: fmt.Sprintf("Content is %d characters, limit is %d", len([]rune(content)), max),
		}
	}
	if max := g.policy.MaxTitleLength; max > 0 && len([]rune(title)) > max {
		return &Violation{
			Rule:    "max_title_length",
			Message: fmt.Sprintf("Title is %d characters, limit is %d", len([]rune(title)), max),
		}
	}
	return nil
}

// FilterKeywords lowercases and trims keywords, drops empty ones and those
// matching a blocked glob, then truncates the result to MaxKeywords.
func (g *Guard) FilterKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || g.blocked(kw) {
			continue
		}
		out = append(out, kw)
		if max := g.policy.MaxKeywords; max > 0 && len(out) == max {
			break
		}
	}
	return out
}

func (g *Guard) blocked(kw string) bool {
	for _, pattern := range g.policy.BlockedKeywordGlobs {
		match, err := doublestar.Match(strings.ToLower(pattern), kw)
		if err == nil && match {
			return true
		}
	}
	return false
}

// ValidatePatterns reports the first malformed blocked glob.
func (g *Guard) ValidatePatterns() error {
	for _, pattern := range g.policy.BlockedKeywordGlobs {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid blocked keyword glob %q", pattern)
		}
	}
	return nil
}
