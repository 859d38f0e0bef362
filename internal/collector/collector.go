// Package collector asks every question of a project in order and buckets the answers
// by archetype.
package collector

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"grantalign/internal/domain"
	"grantalign/internal/questions"
	"grantalign/internal/summarizer"
)

const (
	// DefaultCompactEvery is how many answers accumulate between running-summary compactions.
	DefaultCompactEvery = 10
	// DefaultMaxOutputTokens is the per-answer generation budget.
	DefaultMaxOutputTokens = 250

	answerCue = "\nAnswer:"
)

// Observer is notified after every question, answered or not.
type Observer interface {
	QuestionDone(projectID string, done, total int, err error)
}

// Metrics receives per-question outcomes.
type Metrics interface {
	ObserveInference(outcome string, elapsed time.Duration)
	ObserveCompaction()
}

// Result is everything Collect produced for one project.
type Result struct {
	Answers  []domain.Answer
	Grouped  domain.GroupedAnswers
	Combined string
	Failed   []int // question indexes with no answer
}

// Collector owns the running answer buffer for one project at a time.
type Collector struct {
	inf          domain.Inferencer
	audit        domain.AuditRecorder
	logger       *zap.Logger
	observer     Observer
	metrics      Metrics
	compact      func(string) string
	compactEvery int
	maxTokens    int
	now          func() time.Time
}

type Option func(*Collector)

func WithLogger(l *zap.Logger) Option { return func(c *Collector) { c.logger = l } }

func WithObserver(o Observer) Option { return func(c *Collector) { c.observer = o } }

func WithMetrics(m Metrics) Option { return func(c *Collector) { c.metrics = m } }

// WithCompaction replaces the running-summary step and how often it runs.
func WithCompaction(every int, fn func(string) string) Option {
	return func(c *Collector) {
		if every > 0 {
			c.compactEvery = every
		}
		if fn != nil {
			c.compact = fn
		}
	}
}

func WithMaxOutputTokens(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

func New(inf domain.Inferencer, audit domain.AuditRecorder, opts ...Option) *Collector {
	c := &Collector{
		inf:          inf,
		audit:        audit,
		logger:       zap.NewNop(),
		compactEvery: DefaultCompactEvery,
		maxTokens:    DefaultMaxOutputTokens,
		now:          time.Now,
		compact: func(s string) string {
			return summarizer.Summarize(s, summarizer.DefaultMaxSentences)
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Collect asks questions strictly in order. A failed inference is audited and leaves a
// gap in its archetype bucket; only context cancellation stops the loop early.
func (c *Collector) Collect(ctx context.Context, projectID string, qs []domain.Question) (Result, error) {
	res := Result{Grouped: make(domain.GroupedAnswers, domain.NumArchetypes)}
	var combined strings.Builder

	for n, q := range qs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		tpl, err := questions.Lookup(q.Archetype)
		if err != nil {
			return res, err
		}
		c.record("question_built",
			domain.F("project", projectID),
			domain.F("index", q.Index),
			domain.F("archetype", int(q.Archetype)),
			domain.F("template", tpl.Name),
			domain.F("segment", q.Segment),
			domain.F("question", q.Text))

		prompt := q.Text + answerCue
		start := c.now()
		text, err := c.inf.Infer(ctx, prompt, c.maxTokens)
		elapsed := c.now().Sub(start)
		if err != nil {
			res.Failed = append(res.Failed, q.Index)
			c.observe("error", elapsed)
			c.record("inference_failed",
				domain.F("project", projectID),
				domain.F("index", q.Index),
				domain.F("archetype", int(q.Archetype)),
				domain.F("error", err.Error()))
			c.logger.Warn("inference failed",
				zap.String("project", projectID), zap.Int("question", q.Index), zap.Error(err))
			c.notify(projectID, n+1, len(qs), err)
			continue
		}
		text = strings.TrimSpace(text)
		c.observe("ok", elapsed)

		promptTokens := len(strings.Fields(prompt))
		answerTokens := len(strings.Fields(text))
		c.record("answer",
			domain.F("project", projectID),
			domain.F("index", q.Index),
			domain.F("archetype", int(q.Archetype)),
			domain.F("prompt_tokens", promptTokens),
			domain.F("response_tokens", answerTokens),
			domain.F("total_tokens", promptTokens+answerTokens),
			domain.F("elapsed", elapsed),
			domain.F("answer", text))

		res.Answers = append(res.Answers, domain.Answer{QuestionIndex: q.Index, Archetype: q.Archetype, Text: text})
		res.Grouped.Add(q.Archetype, text)
		combined.WriteString(" ")
		combined.WriteString(text)

		if len(res.Answers)%c.compactEvery == 0 {
			compacted := c.compact(combined.String())
			combined.Reset()
			combined.WriteString(compacted)
			if c.metrics != nil {
				c.metrics.ObserveCompaction()
			}
			c.record("compacted",
				domain.F("project", projectID),
				domain.F("answers", len(res.Answers)),
				domain.F("chars", len(compacted)))
		}
		c.notify(projectID, n+1, len(qs), nil)
	}
	res.Combined = combined.String()
	return res, nil
}

// record never fails the caller: a lost audit line is logged and collection goes on.
func (c *Collector) record(event string, fields ...domain.Field) {
	if c.audit == nil {
		return
	}
	if err := c.audit.Record(event, fields...); err != nil {
		c.logger.Error("audit record lost", zap.String("event", event), zap.Error(err))
	}
}

func (c *Collector) observe(outcome string, elapsed time.Duration) {
	if c.metrics != nil {
		c.metrics.ObserveInference(outcome, elapsed)
	}
}

func (c *Collector) notify(projectID string, done, total int, err error) {
	if c.observer != nil {
		c.observer.QuestionDone(projectID, done, total, err)
	}
}
