package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"grantalign/internal/audit"
	"grantalign/internal/domain"
	"grantalign/internal/report"
	"grantalign/internal/summarizer"
)

// MergeConfig holds the tunables of a merge run.
type MergeConfig struct {
	Folders      Folders
	Strategy     report.Strategy
	Label        string
	MaxSentences int
}

// MergeSummary describes what a merge run produced.
type MergeSummary struct {
	RunID   string
	LogFile string
	Parsed  []string
	Output  string
}

// MergeService folds every per-project report found in the remote root into one summary.
type MergeService struct {
	common
	cfg   MergeConfig
	store domain.Storage
}

func NewMergeService(cfg MergeConfig, store domain.Storage, opts ...Option) *MergeService {
	if cfg.MaxSentences <= 0 {
		cfg.MaxSentences = summarizer.DefaultMaxSentences
	}
	if cfg.Strategy == "" {
		cfg.Strategy = report.LineGrouping
	}
	s := &MergeService{common: defaults(), cfg: cfg, store: store}
	for _, o := range opts {
		o(&s.common)
	}
	return s
}

// Run downloads the result files, merges the ones that parse and publishes the merged file.
// The header count is the number of files actually folded in.
func (s *MergeService) Run(ctx context.Context) (sum MergeSummary, err error) {
	sum.RunID = s.newID()
	dir := s.cfg.Folders.SummaryDir
	log, err := audit.Open(dir, "log_summary", s.now(), sum.RunID)
	if err != nil {
		return sum, err
	}
	sum.LogFile = log.Path()
	defer func() {
		if cerr := log.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close audit log: %w", cerr)
		}
	}()
	a := auditor{log: log, logger: s.logger}
	root := s.cfg.Folders.RemoteRoot
	a.record("merge_started",
		domain.F("remote_root", root),
		domain.F("strategy", string(s.cfg.Strategy)),
		domain.F("storage", domain.NameOf(s.store)))

	merger := report.NewMerger(s.cfg.MaxSentences)
	for _, f := range listFolder(ctx, s.store, a, root) {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if !report.IsResultFile(f.Name) {
			continue
		}
		local, err := fetchTo(ctx, s.store, f, dir)
		if err != nil {
			s.skip(a, "download", f.Name, err)
			continue
		}
		sections, err := decodeFile(local, s.cfg.Strategy)
		if err != nil {
			s.skip(a, "parse", f.Name, err)
			continue
		}
		merger.Add(sections)
		sum.Parsed = append(sum.Parsed, f.Name)
		a.record("report_parsed", domain.F("file", f.Name), domain.F("archetypes", len(sections)))
	}

	if merger.Reports() == 0 {
		a.record("merge_aborted", domain.F("reason", "no result files"))
		return sum, fmt.Errorf("result files in %s: %w", root, domain.ErrNoDocuments)
	}
	merged := merger.Result()
	s.metrics.ObserveMerged(merged.Reports)

	out := filepath.Join(dir, report.MergedFileName(s.cfg.Label, merged.Reports))
	if err := writeMerged(out, merged); err != nil {
		a.record("merge_failed", domain.F("error", err.Error()))
		return sum, err
	}
	sum.Output = out
	a.record("merged_written", domain.F("file", filepath.Base(out)), domain.F("reports", merged.Reports))
	s.logger.Info("merged reports", zap.Int("reports", merged.Reports), zap.String("file", out))

	if err := s.store.Put(ctx, out, root); err != nil {
		s.metrics.ObserveSkip("upload")
		a.record("upload_failed", domain.F("file", filepath.Base(out)), domain.F("error", err.Error()))
		return sum, fmt.Errorf("upload: %w", err)
	}
	a.record("uploaded", domain.F("file", filepath.Base(out)), domain.F("folder", root))
	return sum, nil
}

func (s *MergeService) skip(a auditor, stage, name string, err error) {
	s.metrics.ObserveSkip(stage)
	a.record(stage+"_failed", domain.F("file", name), domain.F("error", err.Error()))
	s.logger.Warn("skipping result file", zap.String("stage", stage), zap.String("file", name), zap.Error(err))
}

func decodeFile(path string, strategy report.Strategy) (domain.ReportSections, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return report.Decode(f, strategy)
}

func writeMerged(path string, m domain.MergedSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.EncodeMerged(f, m); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
