package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"grantalign/internal/audit"
	"grantalign/internal/chunker"
	"grantalign/internal/collector"
	"grantalign/internal/config"
	"grantalign/internal/domain"
	"grantalign/internal/extract"
	"grantalign/internal/questions"
	"grantalign/internal/report"
	"grantalign/internal/summarizer"
)

// AlignmentConfig holds the tunables of an alignment run.
type AlignmentConfig struct {
	Folders       Folders
	GrantFilter   config.NameList
	ProjectFilter config.NameList
	// IgnoreNames are remote file names never treated as inputs, such as the filter lists.
	IgnoreNames []string

	SegmentChars       int
	MaxOutputTokens    int
	MaxSentences       int
	CompactEvery       int
	CorpusPresummarize bool
	PresummarizeChars  int
}

// RunSummary describes what a run produced.
type RunSummary struct {
	RunID           string
	LogFile         string
	Grants          int
	Projects        int
	Reports         []string
	FailedQuestions int
}

// AlignmentService downloads the grant corpus and project descriptions, asks every
// question of every project and publishes one report per project plus the run's audit log.
type AlignmentService struct {
	common
	cfg     AlignmentConfig
	store   domain.Storage
	extract domain.Extractor
	inf     domain.Inferencer
	builder *questions.Builder
}

func NewAlignmentService(cfg AlignmentConfig, store domain.Storage, ext domain.Extractor, inf domain.Inferencer, opts ...Option) *AlignmentService {
	if cfg.MaxSentences <= 0 {
		cfg.MaxSentences = summarizer.DefaultMaxSentences
	}
	s := &AlignmentService{
		common:  defaults(),
		cfg:     cfg,
		store:   store,
		extract: ext,
		inf:     inf,
		builder: questions.NewBuilder(chunker.NewSentenceChunker(cfg.SegmentChars)),
	}
	for _, o := range opts {
		o(&s.common)
	}
	return s
}

// Run processes every project against the grant corpus, sequentially. Per-question and
// per-file failures are audited and skipped; upload failures are returned once every
// project has been processed.
func (s *AlignmentService) Run(ctx context.Context) (sum RunSummary, err error) {
	defer func() { s.observer.RunDone(err) }()
	sum.RunID = s.newID()
	log, err := audit.Open(s.cfg.Folders.WorkDir, "log", s.now(), sum.RunID)
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
	projectsFolder := path.Join(root, s.cfg.Folders.RemoteProjects)

	a.record("run_started",
		domain.F("remote_root", root),
		domain.F("projects_folder", projectsFolder),
		domain.F("work_dir", s.cfg.Folders.WorkDir),
		domain.F("storage", domain.NameOf(s.store)),
		domain.F("inference", domain.NameOf(s.inf)))
	s.logger.Info("alignment run started", zap.String("run", sum.RunID), zap.String("log", log.Name()))

	grants := s.download(ctx, a, root, s.cfg.Folders.WorkDir, s.cfg.GrantFilter, domain.RoleGrantCorpus)
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	sum.Grants = len(grants)
	if len(grants) == 0 {
		a.record("run_aborted", domain.F("reason", "no grant documents"))
		return sum, fmt.Errorf("grant corpus in %s: %w", root, domain.ErrNoDocuments)
	}
	corpus := s.corpus(ctx, a, grants)

	projects := s.download(ctx, a, projectsFolder, s.cfg.Folders.ProjectsDir, s.cfg.ProjectFilter, domain.RoleProject)
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	if len(projects) == 0 {
		a.record("run_aborted", domain.F("reason", "no project documents"))
		return sum, fmt.Errorf("projects in %s: %w", projectsFolder, domain.ErrNoDocuments)
	}

	col := collector.New(s.inf, log,
		collector.WithLogger(s.logger),
		collector.WithObserver(s.observer),
		collector.WithMetrics(s.metrics),
		collector.WithMaxOutputTokens(s.cfg.MaxOutputTokens),
		collector.WithCompaction(s.cfg.CompactEvery, func(text string) string {
			return summarizer.Summarize(text, s.cfg.MaxSentences)
		}))

	var uploadErrs []error
	for i, project := range projects {
		qs, err := s.builder.Build(project, corpus)
		if err != nil {
			return sum, err
		}
		s.observer.ProjectStarted(project.ID, i+1, len(projects), len(qs))
		a.record("project_started",
			domain.F("project", project.ID),
			domain.F("questions", len(qs)),
			domain.F("chars", utf8.RuneCountInString(project.Content)))
		s.logger.Info("processing project", zap.String("project", project.ID), zap.Int("questions", len(qs)))

		res, err := col.Collect(ctx, project.ID, qs)
		if err != nil {
			a.record("run_aborted", domain.F("project", project.ID), domain.F("error", err.Error()))
			return sum, err
		}
		sum.Projects++
		sum.FailedQuestions += len(res.Failed)

		summary := summarizer.Summarize(strings.TrimSpace(res.Combined), s.cfg.MaxSentences)
		local, err := s.writeReport(report.Build(project.ID, log.Name(), summary, res.Grouped, s.cfg.MaxSentences))
		if err != nil {
			s.metrics.ObserveProject("error")
			a.record("report_failed", domain.F("project", project.ID), domain.F("error", err.Error()))
			return sum, err
		}
		sum.Reports = append(sum.Reports, local)
		a.record("report_written",
			domain.F("project", project.ID),
			domain.F("file", filepath.Base(local)),
			domain.F("answers", len(res.Answers)),
			domain.F("failed", len(res.Failed)))

		switch {
		case len(qs) == 0:
			s.metrics.ObserveProject("empty")
		case len(res.Failed) > 0:
			s.metrics.ObserveProject("partial")
		default:
			s.metrics.ObserveProject("ok")
		}

		perr := s.store.Put(ctx, local, root)
		s.upload(a, local, perr)
		if perr != nil {
			uploadErrs = append(uploadErrs, perr)
		}
	}

	a.record("run_finished",
		domain.F("projects", sum.Projects),
		domain.F("reports", len(sum.Reports)),
		domain.F("failed_questions", sum.FailedQuestions))
	if err := log.Sync(); err != nil {
		s.logger.Warn("sync audit log", zap.Error(err))
	}
	if perr := s.store.Put(ctx, log.Path(), root); perr != nil {
		uploadErrs = append(uploadErrs, perr)
		s.upload(a, log.Path(), perr)
	}
	s.logger.Info("alignment run finished",
		zap.Int("projects", sum.Projects), zap.Int("failed_questions", sum.FailedQuestions))
	if len(uploadErrs) > 0 {
		return sum, fmt.Errorf("upload: %w", errors.Join(uploadErrs...))
	}
	return sum, nil
}

func (s *AlignmentService) upload(a auditor, local string, err error) {
	if err == nil {
		a.record("uploaded", domain.F("file", filepath.Base(local)), domain.F("folder", s.cfg.Folders.RemoteRoot))
		return
	}
	s.metrics.ObserveSkip("upload")
	a.record("upload_failed", domain.F("file", filepath.Base(local)), domain.F("error", err.Error()))
	s.logger.Error("upload failed", zap.String("file", local), zap.Error(err))
}

// corpus joins every grant text, each followed by one space, and optionally condenses it.
func (s *AlignmentService) corpus(ctx context.Context, a auditor, grants []domain.Document) domain.Document {
	var b strings.Builder
	for _, g := range grants {
		b.WriteString(g.Content)
		b.WriteString(" ")
	}
	text := b.String()
	a.record("corpus_ready",
		domain.F("documents", len(grants)),
		domain.F("chars", utf8.RuneCountInString(text)),
		domain.F("tokens", len(strings.Fields(text))))

	if s.cfg.CorpusPresummarize {
		condensed, err := summarizer.NewLLM(s.inf, s.cfg.PresummarizeChars, s.cfg.MaxOutputTokens).Summarize(ctx, text)
		switch {
		case err != nil:
			a.record("presummarize_failed", domain.F("error", err.Error()))
			s.logger.Warn("corpus pre-summarization failed, using full corpus", zap.Error(err))
		case strings.TrimSpace(condensed) == "":
			a.record("presummarize_failed", domain.F("error", "empty summary"))
		default:
			a.record("corpus_presummarized", domain.F("chars", utf8.RuneCountInString(condensed)))
			text = condensed
		}
	}
	return domain.Document{ID: "grant-corpus", Role: domain.RoleGrantCorpus, Content: text}
}

// download fetches and extracts every eligible file of folder. Failed files are audited
// and skipped.
func (s *AlignmentService) download(ctx context.Context, a auditor, folder, localDir string, filter config.NameList, role domain.Role) []domain.Document {
	var docs []domain.Document
	seen := map[string]int{}
	for _, f := range listFolder(ctx, s.store, a, folder) {
		if ctx.Err() != nil {
			return docs
		}
		if !s.eligible(f.Name) {
			continue
		}
		if !filter.Allows(f.Name) {
			s.logger.Debug("filtered out", zap.String("file", f.Name))
			continue
		}
		local, err := fetchTo(ctx, s.store, f, localDir)
		if err != nil {
			s.skip(a, "download", f.Name, err)
			continue
		}
		text, err := s.extract.ExtractText(local)
		if err != nil {
			s.skip(a, "extract", f.Name, err)
			continue
		}
		id := documentID(f.Name)
		if n := seen[id]; n > 0 {
			seen[id] = n + 1
			id = fmt.Sprintf("%s-%d", id, n+1)
		} else {
			seen[id] = 1
		}
		a.record("downloaded",
			domain.F("role", string(role)),
			domain.F("file", f.Name),
			domain.F("chars", utf8.RuneCountInString(text)))
		docs = append(docs, domain.Document{ID: id, Path: local, Role: role, Content: text})
	}
	return docs
}

func (s *AlignmentService) eligible(name string) bool {
	if report.IsGeneratedFile(name) || !extract.Supported(name) {
		return false
	}
	for _, ignored := range s.cfg.IgnoreNames {
		if strings.EqualFold(name, ignored) {
			return false
		}
	}
	return true
}

func (s *AlignmentService) skip(a auditor, stage, name string, err error) {
	s.metrics.ObserveSkip(stage)
	a.record(stage+"_failed", domain.F("file", name), domain.F("error", err.Error()))
	s.logger.Warn("skipping file", zap.String("stage", stage), zap.String("file", name), zap.Error(err))
}

func (s *AlignmentService) writeReport(r domain.ProjectReport) (string, error) {
	dir := s.cfg.Folders.WorkDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	local := filepath.Join(dir, report.ResultFileName(r.ProjectID, s.now()))
	f, err := os.Create(local)
	if err != nil {
		return "", err
	}
	if err := report.Encode(f, r); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write report %s: %w", local, err)
	}
	return local, f.Close()
}
