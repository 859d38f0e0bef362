// Package audit writes the append-only, one-line-per-event log of a pipeline run.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"grantalign/internal/domain"
)

// Log is a run's audit log. It is opened once per run and closed on every exit path.
type Log struct {
	name   string
	path   string
	file   *os.File
	sink   *sink
	logger *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open creates <dir>/<prefix>_<timestamp>.txt and tags every event with runID.
func Open(dir, prefix string, now time.Time, runID string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s.txt", prefix, now.Format(domain.TimestampLayout))
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	s := &sink{file: f}
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "ts",
		MessageKey:       "event",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	})
	logger := zap.New(zapcore.NewCore(enc, s, zapcore.InfoLevel)).With(zap.String("run", runID))
	return &Log{name: name, path: path, file: f, sink: s, logger: logger}, nil
}

// Name is the file name without directory, as quoted in report headers.
func (l *Log) Name() string { return l.name }

// Path is the full local path of the log file.
func (l *Log) Path() string { return l.path }

// Record appends one event line. A non-nil error means the line was lost; the log
// stays usable for later events.
func (l *Log) Record(event string, fields ...domain.Field) error {
	zf := make([]zap.Field, len(fields))
	for i, f := range fields {
		zf[i] = zap.Any(f.Key, f.Value)
	}
	l.logger.Info(event, zf...)
	return l.sink.takeErr()
}

// Sync flushes written events to disk.
func (l *Log) Sync() error { return l.logger.Sync() }

// Close flushes and closes the file. Calls after the first are no-ops.
func (l *Log) Close() error {
	l.closeOnce.Do(func() {
		_ = l.logger.Sync()
		l.closeErr = l.file.Close()
	})
	return l.closeErr
}

// sink remembers the last write error so Record can report it to the caller.
type sink struct {
	mu   sync.Mutex
	file *os.File
	err  error
}

func (s *sink) Write(p []byte) (int, error) {
	n, err := s.file.Write(p)
	if err != nil {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}
	return n, err
}

func (s *sink) Sync() error { return s.file.Sync() }

func (s *sink) takeErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	s.err = nil
	return err
}
