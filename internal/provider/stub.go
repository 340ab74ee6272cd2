package provider

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"
)

// DefaultStubDimension is the embedding size produced by StubProvider.
const DefaultStubDimension = 256

// StubProvider is an offline provider for tests and demos. Chat pops scripted
// responses and falls back to Reply; Embed hashes words into a normalized
// bag-of-words vector so texts sharing words land close together.
type StubProvider struct {
	mu        sync.Mutex
	Responses []Response
	// Reply produces the answer once Responses is exhausted.
	Reply     func(messages []Message) string
	Dimension int
	calls     [][]Message
}

func NewStubProvider() *StubProvider {
	return &StubProvider{Dimension: DefaultStubDimension}
}

func (m *StubProvider) Chat(ctx context.Context, messages []Message) (*Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, append([]Message(nil), messages...))

	if len(m.Responses) > 0 {
		resp := m.Responses[0]
		m.Responses = m.Responses[1:]
		return &resp, nil
	}

	var content string
	if m.Reply != nil {
		content = m.Reply(messages)
	} else {
		content = defaultStubReply(messages)
	}
	n := len(strings.Fields(content))
	return &Response{Content: content, Usage: Usage{CompletionTokens: n, TotalTokens: n}}, nil
}

// Calls returns the message lists received by Chat, in order.
func (m *StubProvider) Calls() [][]Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]Message(nil), m.calls...)
}

func defaultStubReply(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return "You said: " + messages[i].Content
		}
	}
	return "Nothing to say."
}

func (m *StubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dim := m.Dimension
	if dim <= 0 {
		dim = DefaultStubDimension
	}
	vec := make([]float32, dim)

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%uint32(dim)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func (m *StubProvider) Name() string {
	return "stub"
}
