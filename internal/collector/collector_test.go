package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grantalign/internal/domain"
)

type scriptedInferencer struct {
	prompts []string
	fail    map[int]bool // 1-based call numbers that fail
}

func (s *scriptedInferencer) Infer(_ context.Context, prompt string, maxTokens int) (string, error) {
	s.prompts = append(s.prompts, prompt)
	n := len(s.prompts)
	if s.fail[n] {
		return "", errors.New("remote closed connection")
	}
	return fmt.Sprintf("  answer %d  ", n), nil
}

type memoryAudit struct {
	events []string
	fields [][]domain.Field
	fail   bool
}

func (m *memoryAudit) Record(event string, fields ...domain.Field) error {
	if m.fail {
		return errors.New("disk full")
	}
	m.events = append(m.events, event)
	m.fields = append(m.fields, fields)
	return nil
}

func (m *memoryAudit) count(event string) int {
	n := 0
	for _, e := range m.events {
		if e == event {
			n++
		}
	}
	return n
}

func makeQuestions(n int) []domain.Question {
	qs := make([]domain.Question, n)
	for i := range qs {
		pos := i + 1
		qs[i] = domain.Question{
			Index:     pos,
			Segment:   i / domain.NumArchetypes,
			Archetype: domain.ArchetypeAt(pos),
			Text:      fmt.Sprintf("question %d", pos),
		}
	}
	return qs
}

type compactionSpy struct {
	calls  int
	inputs []string
}

func (c *compactionSpy) fn(s string) string {
	c.calls++
	c.inputs = append(c.inputs, s)
	return "compacted"
}

func TestCollect_CompactsAfterTenthAnswerOnly(t *testing.T) {
	inf := &scriptedInferencer{}
	spy := &compactionSpy{}
	c := New(inf, &memoryAudit{}, WithCompaction(10, spy.fn))

	res, err := c.Collect(context.Background(), "widget", makeQuestions(12))
	require.NoError(t, err)

	assert.Equal(t, 1, spy.calls)
	assert.True(t, strings.HasSuffix(spy.inputs[0], "answer 10"))
	assert.NotContains(t, spy.inputs[0], "answer 11")
	assert.Equal(t, "compacted answer 11 answer 12", res.Combined)
	assert.Len(t, res.Answers, 12)
}

func TestCollect_PromptsInOrderWithAnswerCue(t *testing.T) {
	inf := &scriptedInferencer{}
	_, err := New(inf, nil).Collect(context.Background(), "widget", makeQuestions(3))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"question 1\nAnswer:",
		"question 2\nAnswer:",
		"question 3\nAnswer:",
	}, inf.prompts)
}

func TestCollect_GroupsByArchetypeTag(t *testing.T) {
	inf := &scriptedInferencer{}
	res, err := New(inf, nil).Collect(context.Background(), "widget", makeQuestions(16))
	require.NoError(t, err)

	require.Len(t, res.Grouped, domain.NumArchetypes)
	assert.Equal(t, []string{"answer 1", "answer 9"}, res.Grouped[1])
	assert.Equal(t, []string{"answer 8", "answer 16"}, res.Grouped[8])
	for i, a := range res.Answers {
		assert.Equal(t, domain.ArchetypeAt(i+1), a.Archetype)
		assert.Equal(t, i+1, a.QuestionIndex)
	}
}

func TestCollect_FailureLeavesGapAndContinues(t *testing.T) {
	inf := &scriptedInferencer{fail: map[int]bool{2: true, 10: true}}
	audit := &memoryAudit{}
	res, err := New(inf, audit).Collect(context.Background(), "widget", makeQuestions(10))
	require.NoError(t, err)

	assert.Equal(t, []int{2, 10}, res.Failed)
	assert.Len(t, res.Answers, 8)
	assert.Empty(t, res.Grouped[2])
	assert.Equal(t, []string{"answer 1"}, res.Grouped[1])
	assert.Equal(t, 2, audit.count("inference_failed"))
	assert.Equal(t, 10, audit.count("question_built"))
	assert.Equal(t, 8, audit.count("answer"))

	for i, e := range audit.events {
		if e != "inference_failed" {
			continue
		}
		assert.Contains(t, audit.fields[i], domain.F("index", 2), "first failure must carry its question index")
		break
	}
}

func TestCollect_CompactionCountsAnswersNotQuestions(t *testing.T) {
	inf := &scriptedInferencer{fail: map[int]bool{1: true}}
	spy := &compactionSpy{}
	_, err := New(inf, nil, WithCompaction(10, spy.fn)).Collect(context.Background(), "widget", makeQuestions(10))
	require.NoError(t, err)
	assert.Equal(t, 0, spy.calls)
}

func TestCollect_AuditLossDoesNotAbort(t *testing.T) {
	inf := &scriptedInferencer{}
	res, err := New(inf, &memoryAudit{fail: true}).Collect(context.Background(), "widget", makeQuestions(8))
	require.NoError(t, err)
	assert.Len(t, res.Answers, 8)
}

func TestCollect_AuditsAnswerBeforeBucketing(t *testing.T) {
	audit := &memoryAudit{}
	_, err := New(&scriptedInferencer{}, audit).Collect(context.Background(), "widget", makeQuestions(1))
	require.NoError(t, err)
	require.Equal(t, []string{"question_built", "answer"}, audit.events)
	assert.Contains(t, audit.fields[1], domain.F("answer", "answer 1"))
	assert.Contains(t, audit.fields[1], domain.F("prompt_tokens", 3))
}

func TestCollect_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inf := &scriptedInferencer{}
	_, err := New(inf, nil).Collect(ctx, "widget", makeQuestions(4))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, inf.prompts)
}

type progress struct {
	done   []int
	errors int
}

func (p *progress) QuestionDone(_ string, done, total int, err error) {
	p.done = append(p.done, done)
	if err != nil {
		p.errors++
	}
}

type metricsSpy struct {
	outcomes    []string
	compactions int
}

func (m *metricsSpy) ObserveInference(outcome string, _ time.Duration) {
	m.outcomes = append(m.outcomes, outcome)
}

func (m *metricsSpy) ObserveCompaction() { m.compactions++ }

func TestCollect_ReportsProgressAndMetrics(t *testing.T) {
	inf := &scriptedInferencer{fail: map[int]bool{3: true}}
	p := &progress{}
	m := &metricsSpy{}
	_, err := New(inf, nil, WithObserver(p), WithMetrics(m), WithCompaction(2, nil)).
		Collect(context.Background(), "widget", makeQuestions(4))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4}, p.done)
	assert.Equal(t, 1, p.errors)
	assert.Equal(t, []string{"ok", "ok", "error", "ok"}, m.outcomes)
	assert.Equal(t, 1, m.compactions)
}

func TestCollect_RejectsUntaggedQuestion(t *testing.T) {
	inf := &scriptedInferencer{}
	qs := makeQuestions(2)
	qs[1].Archetype = 0
	_, err := New(inf, nil).Collect(context.Background(), "widget", qs)
	assert.ErrorIs(t, err, domain.ErrUnknownArchetype)
	assert.Len(t, inf.prompts, 1)
}
