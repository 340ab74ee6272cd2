package ui

// UI receives progress from long-running work such as index rebuilds and
// conversation turns.
type UI interface {
	UpdateStatus(status string)
	UpdateProgress(done, total int)
	Log(msg string)
}

type SilentUI struct{}

func (s SilentUI) UpdateStatus(status string)     {}
func (s SilentUI) UpdateProgress(done, total int) {}
func (s SilentUI) Log(msg string)                 {}
