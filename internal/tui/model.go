package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxRecentErrors = 5

type projectStartedMsg struct {
	id        string
	n, total  int
	questions int
}

type questionDoneMsg struct {
	project     string
	done, total int
	err         error
}

type runDoneMsg struct{ err error }

// Model is the Bubble Tea model for the run progress view.
type Model struct {
	cancel   context.CancelFunc
	bar      progress.Model
	project  string
	n, total int
	done     int
	pending  int
	answered int
	failed   int
	errors   []string
	finished bool
	err      error
	width    int
}

// New creates a progress model. cancel is called when the user quits early.
func New(cancel context.CancelFunc) Model {
	return Model{cancel: cancel, bar: progress.New(progress.WithDefaultGradient())}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update handles service events, window size and quit keys.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(10, msg.Width-boxStyle.GetHorizontalFrameSize()-2)
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case projectStartedMsg:
		m.project = msg.id
		m.n, m.total = msg.n, msg.total
		m.done, m.pending = 0, msg.questions
	case questionDoneMsg:
		m.done, m.pending = msg.done, msg.total
		if msg.err != nil {
			m.failed++
			m.errors = append(m.errors, fmt.Sprintf("%s q%d: %v", msg.project, msg.done, msg.err))
			if len(m.errors) > maxRecentErrors {
				m.errors = m.errors[len(m.errors)-maxRecentErrors:]
			}
		} else {
			m.answered++
		}
	case runDoneMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

// View renders the header, progress bar and recent failures.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Grant alignment"))
	b.WriteString("\n")
	if m.project == "" {
		b.WriteString(dimStyle.Render("Downloading grants and projects..."))
	} else {
		fmt.Fprintf(&b, "Project %d/%d: %s\n", m.n, m.total, m.project)
		b.WriteString(boxStyle.Render(m.bar.ViewAs(m.percent())))
		fmt.Fprintf(&b, "\nQuestion %d/%d  answered %d  failed %d", m.done, m.pending, m.answered, m.failed)
	}
	if len(m.errors) > 0 {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(strings.Join(m.errors, "\n")))
	}
	if m.finished {
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render("Run failed: " + m.err.Error()))
		} else {
			b.WriteString(okStyle.Render("Run complete."))
		}
	}
	return b.String() + "\n"
}

func (m Model) percent() float64 {
	if m.pending == 0 {
		return 0
	}
	return float64(m.done) / float64(m.pending)
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
