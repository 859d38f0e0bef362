package tui

import tea "github.com/charmbracelet/bubbletea"

// Reporter forwards service events to a running program. It implements service.Observer.
type Reporter struct {
	send func(tea.Msg)
}

// NewReporter sends through p.
func NewReporter(p *tea.Program) *Reporter { return &Reporter{send: p.Send} }

func (r *Reporter) ProjectStarted(projectID string, n, total, questions int) {
	r.send(projectStartedMsg{id: projectID, n: n, total: total, questions: questions})
}

func (r *Reporter) QuestionDone(projectID string, done, total int, err error) {
	r.send(questionDoneMsg{project: projectID, done: done, total: total, err: err})
}

func (r *Reporter) RunDone(err error) { r.send(runDoneMsg{err: err}) }
