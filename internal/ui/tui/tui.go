package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUI forwards UI updates into a running bubbletea program.
type TUI struct {
	program *tea.Program
}

func NewTUI(p *tea.Program) *TUI {
	return &TUI{program: p}
}

func (t *TUI) UpdateStatus(status string) {
	t.program.Send(StatusMsg(status))
}

func (t *TUI) UpdateProgress(done, total int) {
	t.program.Send(ProgressMsg{Done: done, Total: total})
}

func (t *TUI) Log(msg string) {
	t.program.Send(LogMsg(msg))
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	noteStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#888888"))
)

// Reply is what a Responder produces for one prompt.
type Reply struct {
	Text       string
	Remembered bool
}

// Responder answers a prompt. It runs off the UI goroutine.
type Responder func(prompt string) (Reply, error)

type LogMsg string
type StatusMsg string

// ProgressMsg reports index rebuild progress.
type ProgressMsg struct {
	Done  int
	Total int
}

// ReplyMsg carries a finished answer back to the model.
type ReplyMsg Reply

// ErrMsg carries a failed answer back to the model.
type ErrMsg struct{ Err error }

type Model struct {
	Title      string
	Status     string
	Transcript []string
	Input      textinput.Model
	Progress   progress.Model
	Viewport   viewport.Model
	Done       int
	Total      int
	Busy       bool
	Quitting   bool
	Ready      bool
	Width      int
	Height     int

	respond Responder
}

func NewModel(title string, respond Responder) Model {
	in := textinput.New()
	in.Placeholder = "Say something..."
	in.Focus()
	in.CharLimit = 2000

	return Model{
		Title:    title,
		Status:   "Initializing...",
		Input:    in,
		Progress: progress.New(progress.WithDefaultGradient()),
		respond:  respond,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) ask(prompt string) tea.Cmd {
	respond := m.respond
	return func() tea.Msg {
		reply, err := respond(prompt)
		if err != nil {
			return ErrMsg{Err: err}
		}
		return ReplyMsg(reply)
	}
}

func (m *Model) appendLine(line string) {
	m.Transcript = append(m.Transcript, line)
	m.Viewport.SetContent(strings.Join(m.Transcript, "\n"))
	m.Viewport.GotoBottom()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.Quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			prompt := strings.TrimSpace(m.Input.Value())
			if prompt == "" || m.Busy || m.respond == nil {
				return m, nil
			}
			m.Input.Reset()
			m.Busy = true
			m.Status = "Thinking..."
			m.appendLine(userStyle.Render("you: ") + prompt)
			return m, m.ask(prompt)
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		if !m.Ready {
			m.Viewport = viewport.New(msg.Width, msg.Height-8)
			m.Viewport.SetContent(strings.Join(m.Transcript, "\n"))
			m.Ready = true
		} else {
			m.Viewport.Width = msg.Width
			m.Viewport.Height = msg.Height - 8
		}
		m.Progress.Width = msg.Width - 4

	case ReplyMsg:
		m.Busy = false
		m.Status = "Ready"
		m.appendLine(msg.Text)
		if msg.Remembered {
			m.appendLine(noteStyle.Render("(memory updated)"))
		}

	case ErrMsg:
		m.Busy = false
		m.Status = "Error"
		m.appendLine(errorStyle.Render("error: " + msg.Err.Error()))

	case LogMsg:
		m.appendLine(noteStyle.Render(string(msg)))

	case StatusMsg:
		m.Status = string(msg)

	case ProgressMsg:
		m.Done = msg.Done
		m.Total = msg.Total
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// Fraction is the rebuild completion ratio; an empty rebuild counts as done.
func (m Model) Fraction() float64 {
	if m.Total <= 0 {
		return 1
	}
	return float64(m.Done) / float64(m.Total)
}

func (m Model) View() string {
	if !m.Ready {
		return "\n  Initializing..."
	}

	header := titleStyle.Render(" " + m.Title + " ")
	status := infoStyle.Render(fmt.Sprintf(" Status: %s ", m.Status))

	var prog string
	if m.Done < m.Total {
		prog = fmt.Sprintf("Rebuilding index %d/%d\n%s\n", m.Done, m.Total, m.Progress.ViewAs(m.Fraction()))
	}

	view := fmt.Sprintf("%s%s\n\n%s\n\n%s%s",
		header, status,
		m.Viewport.View(),
		prog,
		m.Input.View())

	if m.Quitting {
		return view + "\n  Quitting...\n"
	}

	return view
}
