package agent

import (
	"sync"
	"time"
)

// Stats summarizes the turns an Agent has handled since it was created.
type Stats struct {
	Turns             int
	FailedTurns       int
	MemoriesStored    int
	MemoriesSkipped   int
	RetrievedEntries  int
	TotalPromptTokens int
	TotalOutputTokens int
	StartedAt         time.Time
	LastTurnAt        time.Time
}

// statsTracker accumulates Stats from the agent's turn events.
type statsTracker struct {
	mu    sync.RWMutex
	stats Stats
}

func newStatsTracker() *statsTracker {
	return &statsTracker{stats: Stats{StartedAt: time.Now()}}
}

// handle is subscribed to every event on the agent's bus.
func (st *statsTracker) handle(ev Event) {
	st.mu.Lock()
	defer st.mu.Unlock()

	switch ev.Type {
	case EventTurnStart:
		st.stats.Turns++
		st.stats.LastTurnAt = ev.Timestamp
	case EventMemoryStored:
		st.stats.MemoriesStored++
	case EventMemorySkipped:
		st.stats.MemoriesSkipped++
	case EventMemoriesRetrieved:
		st.stats.RetrievedEntries += intData(ev, "count")
	case EventReply:
		st.stats.TotalPromptTokens += intData(ev, "prompt_tokens")
		st.stats.TotalOutputTokens += intData(ev, "completion_tokens")
	case EventTurnError:
		st.stats.FailedTurns++
	}
}

func intData(ev Event, key string) int {
	n, _ := ev.Data[key].(int)
	return n
}

func (st *statsTracker) snapshot() Stats {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.stats
}
