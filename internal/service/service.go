// Package service wires storage, extraction, question synthesis, answer collection and
// report codecs into the two batch commands: a per-project alignment run and a merge of
// earlier results.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"grantalign/internal/collector"
	"grantalign/internal/config"
	"grantalign/internal/domain"
)

// Folders locates remote inputs and local working copies.
type Folders struct {
	RemoteRoot     string
	RemoteProjects string
	WorkDir        string
	ProjectsDir    string
	SummaryDir     string
}

// FoldersFromConfig copies the folder section of the application config.
func FoldersFromConfig(f config.FoldersConfig) Folders {
	return Folders{
		RemoteRoot:     f.RemoteRoot,
		RemoteProjects: f.RemoteProjects,
		WorkDir:        f.WorkDir,
		ProjectsDir:    f.ProjectsDir,
		SummaryDir:     f.SummaryDir,
	}
}

// Metrics receives run-level counters in addition to per-question ones.
type Metrics interface {
	collector.Metrics
	ObserveProject(outcome string)
	ObserveSkip(stage string)
	ObserveMerged(n int)
}

// Observer follows a run as it happens.
type Observer interface {
	collector.Observer
	ProjectStarted(projectID string, n, total, questions int)
	RunDone(err error)
}

type common struct {
	logger   *zap.Logger
	metrics  Metrics
	observer Observer
	now      func() time.Time
	newID    func() string
}

func defaults() common {
	return common{
		logger:   zap.NewNop(),
		metrics:  nopMetrics{},
		observer: nopObserver{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Option customizes either service.
type Option func(*common)

func WithLogger(l *zap.Logger) Option {
	return func(c *common) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(c *common) {
		if m != nil {
			c.metrics = m
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *common) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithClock replaces time.Now for file names and timestamps.
func WithClock(now func() time.Time) Option { return func(c *common) { c.now = now } }

// WithRunID replaces the uuid run id generator.
func WithRunID(fn func() string) Option { return func(c *common) { c.newID = fn } }

// auditor records events and logs the ones that could not be written.
type auditor struct {
	log    domain.AuditRecorder
	logger *zap.Logger
}

func (a auditor) record(event string, fields ...domain.Field) {
	if err := a.log.Record(event, fields...); err != nil {
		a.logger.Error("audit record lost", zap.String("event", event), zap.Error(err))
	}
}

// fetchTo downloads f into dir and returns the local path.
func fetchTo(ctx context.Context, store domain.Storage, f domain.RemoteFile, dir string) (string, error) {
	data, err := store.Fetch(ctx, f.Path)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", f.Path, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	local := filepath.Join(dir, filepath.Base(f.Name))
	if err := os.WriteFile(local, data, 0o644); err != nil {
		return "", fmt.Errorf("save %s: %w", f.Name, err)
	}
	return local, nil
}

// listFolder lists folder; on failure the files gathered so far are used and no further
// files are expected.
func listFolder(ctx context.Context, store domain.Storage, a auditor, folder string) []domain.RemoteFile {
	files, err := store.List(ctx, folder)
	if err != nil {
		a.record("list_failed", domain.F("folder", folder), domain.F("listed", len(files)), domain.F("error", err.Error()))
		a.logger.Warn("listing incomplete", zap.String("folder", folder), zap.Int("listed", len(files)), zap.Error(err))
	}
	return files
}

// documentID is the file's base name without extension.
func documentID(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type nopMetrics struct{}

func (nopMetrics) ObserveInference(string, time.Duration) {}
func (nopMetrics) ObserveCompaction() {}
func (nopMetrics) ObserveProject(string) {}
func (nopMetrics) ObserveSkip(string) {}
func (nopMetrics) ObserveMerged(int) {}

type nopObserver struct{}

func (nopObserver) QuestionDone(string, int, int, error) {}
func (nopObserver) ProjectStarted(string, int, int, int) {}
func (nopObserver) RunDone(error) {}
