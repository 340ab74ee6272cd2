// Package agent runs one conversation turn: analyze the prompt, remember what
// is worth keeping, recall related memories and answer.
package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/recall/internal/guard"
	"github.com/felixgeelhaar/recall/internal/memory"
	"github.com/felixgeelhaar/recall/internal/observe"
	"github.com/felixgeelhaar/recall/internal/provider"
	"github.com/felixgeelhaar/recall/internal/store"
	"github.com/felixgeelhaar/recall/internal/ui"
)

// KeywordLister supplies the keywords already in use.
type KeywordLister interface {
	ListAllKeywords(ctx context.Context) ([]string, error)
}

// Turn is the outcome of one processed prompt.
type Turn struct {
	ID          string
	Prompt      string
	Reply       string
	MemoryAdded bool
	Memory      *store.MemoryEntry
	Retrieved   []*store.MemoryEntry
	Usage       provider.Usage
}

// Agent orchestrates a conversation turn.
type Agent struct {
	memory   memory.Memory
	keywords KeywordLister
	guard    *guard.Guard
	analyzer Analyzer
	provider provider.Provider
	observe  *observe.Observer
	bus      *EventBus
	stats    *statsTracker
	ui       ui.UI
	topK     int
}

func New(m memory.Memory, kl KeywordLister, g *guard.Guard, a Analyzer, p provider.Provider, o *observe.Observer) *Agent {
	ag := &Agent{
		memory:   m,
		keywords: kl,
		guard:    g,
		analyzer: a,
		provider: p,
		observe:  o,
		bus:      NewEventBus(),
		stats:    newStatsTracker(),
		ui:       ui.SilentUI{},
		topK:     memory.DefaultTopK,
	}
	ag.bus.SubscribeAll(ag.stats.handle)
	ag.bus.Subscribe(EventMemoryStored, ag.reportMemory)
	ag.bus.Subscribe(EventMemorySkipped, ag.reportMemory)
	return ag
}

// reportMemory tells the UI what happened to the turn's memory.
func (a *Agent) reportMemory(ev Event) {
	switch ev.Type {
	case EventMemoryStored:
		a.ui.Log(fmt.Sprintf("Remembered: %v", ev.Data["content"]))
	case EventMemorySkipped:
		a.ui.Log(fmt.Sprintf("Not remembered: %v", ev.Data["reason"]))
	}
}

func (a *Agent) SetUI(u ui.UI) {
	if u != nil {
		a.ui = u
	}
}

// SetTopK sets how many memories are recalled per turn.
func (a *Agent) SetTopK(k int) {
	if k > 0 {
		a.topK = k
	}
}

// Events returns the bus turn events are published on.
func (a *Agent) Events() *EventBus {
	return a.bus
}

// Stats returns a snapshot of the turns handled so far.
func (a *Agent) Stats() Stats {
	return a.stats.snapshot()
}

// Process handles one user prompt. Memory failures are logged and the turn
// still answers; only a failed reply is returned as an error.
func (a *Agent) Process(ctx context.Context, prompt string) (*Turn, error) {
	ctx, span := a.observe.StartSpan(ctx, "agent.Process")
	defer span.End()

	turn := &Turn{ID: uuid.NewString(), Prompt: prompt}
	log := a.observe.Log().With().Str("turn", turn.ID).Logger()
	a.bus.PublishSimple(EventTurnStart, turn.ID)

	// 1. Analyze
	a.ui.UpdateStatus("Analyzing")
	known, err := a.keywords.ListAllKeywords(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to list known keywords")
		known = nil
	}

	analysis, err := a.analyzer.Analyze(ctx, prompt, known)
	if err != nil {
		log.Warn().Err(err).Msg("analysis failed, nothing to learn")
		analysis = nil
	}
	a.bus.PublishWithData(EventAnalysisComplete, turn.ID, map[string]interface{}{
		"has_content": analysis.HasContent(),
	})

	// 2. Remember
	if analysis.HasContent() {
		turn.Memory = a.remember(ctx, turn.ID, analysis)
		turn.MemoryAdded = turn.Memory != nil
	}

	// 3. Recall
	a.ui.UpdateStatus("Recalling")
	entries, err := a.memory.Retrieve(ctx, prompt, a.topK)
	if err != nil {
		log.Warn().Err(err).Msg("retrieval failed, answering without context")
		entries = nil
	}
	turn.Retrieved = entries
	contents := make([]string, 0, len(entries))
	for _, e := range entries {
		contents = append(contents, e.Content)
	}
	a.bus.PublishWithData(EventMemoriesRetrieved, turn.ID, map[string]interface{}{
		"count": len(entries),
	})
	log.Info().Int("count", len(entries)).Msg("found similar entries")

	// 4. Reply
	a.ui.UpdateStatus("Answering")
	resp, err := a.provider.Chat(ctx, []provider.Message{
		{Role: "system", Content: buildAssistantPrompt(contents)},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		log.Error().Err(err).Msg("provider call failed")
		a.bus.PublishWithData(EventTurnError, turn.ID, map[string]interface{}{"error": err.Error()})
		a.ui.UpdateStatus("Error")
		return nil, fmt.Errorf("reply failed: %w", err)
	}

	turn.Reply = resp.Content
	turn.Usage = resp.Usage
	a.bus.PublishWithData(EventReply, turn.ID, map[string]interface{}{
		"tokens":            resp.Usage.TotalTokens,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"memory_added":      turn.MemoryAdded,
	})
	a.ui.UpdateStatus("Ready")
	return turn, nil
}

func (a *Agent) remember(ctx context.Context, turnID string, analysis *Analysis) *store.MemoryEntry {
	title := analysis.TitleOrEmpty()
	content := *analysis.Content

	skip := func(reason string) *store.MemoryEntry {
		a.bus.PublishWithData(EventMemorySkipped, turnID, map[string]interface{}{
			"title":  title,
			"reason": reason,
		})
		return nil
	}

	if v := a.guard.CheckEntry(title, content); v != nil {
		a.observe.Log().Warn().Str("turn", turnID).Str("rule", v.Rule).Msg("memory rejected by policy")
		return skip(v.Message)
	}
	keywords := a.guard.FilterKeywords(analysis.Keywords)

	entry, err := a.memory.Ingest(ctx, title, content, keywords)
	if err != nil {
		return skip(err.Error())
	}

	a.bus.PublishWithData(EventMemoryStored, turnID, map[string]interface{}{
		"title":    entry.Title,
		"position": entry.VectorPosition,
		"keywords": entry.Keywords,
		"content":  entry.Content,
	})
	return entry
}
