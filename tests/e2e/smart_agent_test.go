package e2e

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/recall/internal/agent"
	"github.com/felixgeelhaar/recall/internal/graph"
	"github.com/felixgeelhaar/recall/internal/guard"
	"github.com/felixgeelhaar/recall/internal/index"
	"github.com/felixgeelhaar/recall/internal/memory"
	"github.com/felixgeelhaar/recall/internal/observe"
	"github.com/felixgeelhaar/recall/internal/provider"
	"github.com/felixgeelhaar/recall/internal/server"
	"github.com/felixgeelhaar/recall/internal/store"
)

// scriptedModel answers analyzer calls from a table keyed by prompt and echoes
// the assistant's context back so tests can see what was retrieved.
func scriptedModel(analyses map[string]string) *provider.StubProvider {
	p := provider.NewStubProvider()
	p.Reply = func(messages []provider.Message) string {
		system := messages[0].Content
		user := messages[len(messages)-1].Content
		if strings.Contains(system, "<keywords>") {
			if a, ok := analyses[user]; ok {
				return a
			}
			return `{"_thoughts": "small talk", "keywords": [], "content": null, "title": null}`
		}
		if i := strings.Index(system, "<context>"); i >= 0 {
			return "context: " + system[i:]
		}
		return "no context"
	}
	return p
}

func TestSmartAgent_ChatOverHTTP(t *testing.T) {
	ctx := context.Background()
	o := observe.Discard()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "memories.db"))
	require.NoError(t, err)
	defer s.Close()

	model := scriptedModel(map[string]string{
		"I live in Krakow": "```json\n" + `{"_thoughts": "residence", "keywords": ["Krakow", "Poland"], "content": "The user lives in Krakow", "title": "place-of-living"}` + "\n```",
		"I drive a Tesla":  `{"_thoughts": "car", "keywords": ["tesla", "car"], "content": "The user drives a Tesla", "title": "car-ownership"}`,
	})

	engine := memory.NewEngine(s, index.NewFlat(0), model, o)
	_, err = engine.Rebuild(ctx, nil)
	require.NoError(t, err)

	a := agent.New(engine, s, guard.New(guard.DefaultPolicy), agent.NewLLMAnalyzer(model), model, o)
	a.SetTopK(1)
	srv := httptest.NewServer(server.New(a, graph.NewBuilder(s, o), s, engine, o).Handler())
	defer srv.Close()

	chat := func(prompt string) (string, bool) {
		t.Helper()
		body, _ := json.Marshal(map[string]string{"prompt": prompt})
		resp, err := http.Post(srv.URL+"/chat", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out struct {
			Response     string `json:"response"`
			GraphUpdated bool   `json:"graph_updated"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out.Response, out.GraphUpdated
	}

	_, updated := chat("I live in Krakow")
	assert.True(t, updated)
	_, updated = chat("I drive a Tesla")
	assert.True(t, updated)

	reply, updated := chat("Which city do I live in, Krakow?")
	assert.False(t, updated)
	assert.Contains(t, reply, "The user lives in Krakow")
	assert.NotContains(t, reply, "Tesla")

	resp, err := http.Get(srv.URL + "/graph-data")
	require.NoError(t, err)
	defer resp.Body.Close()
	var elements []map[string]map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&elements))
	// 2 notes, 4 keywords, 4 edges
	assert.Len(t, elements, 10)

	ids := map[string]bool{}
	for _, el := range elements {
		ids[el["data"]["id"]] = true
	}
	for _, id := range []string{"note_place_of_living", "note_car_ownership", "keyword_krakow", "keyword_poland", "keyword_tesla", "keyword_car"} {
		assert.True(t, ids[id], "missing node %s", id)
	}
}
