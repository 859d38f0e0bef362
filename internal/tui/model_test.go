package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func feed(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m, cmd
}

func TestModel_TracksProgress(t *testing.T) {
	var msgs []tea.Msg
	r := &Reporter{send: func(msg tea.Msg) { msgs = append(msgs, msg) }}
	r.ProjectStarted("widget", 1, 2, 16)
	r.QuestionDone("widget", 1, 16, nil)
	r.QuestionDone("widget", 2, 16, errors.New("timeout"))

	m, cmd := feed(t, New(nil), msgs...)
	assert.Nil(t, cmd)
	assert.Equal(t, 0.125, m.percent())

	view := m.View()
	assert.Contains(t, view, "Project 1/2: widget")
	assert.Contains(t, view, "Question 2/16  answered 1  failed 1")
	assert.Contains(t, view, "widget q2: timeout")
}

func TestModel_KeepsRecentErrors(t *testing.T) {
	m := New(nil)
	for i := 1; i <= 8; i++ {
		m, _ = feed(t, m, questionDoneMsg{project: "p", done: i, total: 8, err: errors.New("boom")})
	}
	assert.Len(t, m.errors, maxRecentErrors)
	assert.Equal(t, "p q8: boom", m.errors[maxRecentErrors-1])
}

func TestModel_QuitsWhenRunDone(t *testing.T) {
	m, cmd := feed(t, New(nil), runDoneMsg{err: errors.New("upload: quota exceeded")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, m.View(), "Run failed: upload: quota exceeded")
}

func TestModel_CtrlCCancelsRun(t *testing.T) {
	cancelled := false
	_, cmd := feed(t, New(func() { cancelled = true }), tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, cancelled)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_ResetsPerProject(t *testing.T) {
	m, _ := feed(t, New(nil),
		projectStartedMsg{id: "a", n: 1, total: 2, questions: 8},
		questionDoneMsg{project: "a", done: 8, total: 8},
		projectStartedMsg{id: "b", n: 2, total: 2, questions: 8},
	)
	assert.Equal(t, 0.0, m.percent())
	assert.Equal(t, 1, m.answered)
	assert.Contains(t, m.View(), "Project 2/2: b")
}
