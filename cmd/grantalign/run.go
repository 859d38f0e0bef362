package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"grantalign/internal/config"
	"grantalign/internal/domain"
	"grantalign/internal/extract"
	"grantalign/internal/metrics"
	"grantalign/internal/service"
	"grantalign/internal/tui"
)

var showProgress bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Align every project with the grant corpus and publish one report per project",
	Args:  cobra.NoArgs,
	RunE:  runAlignment,
}

func runAlignment(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStorage(ctx, cfg)
	if err != nil {
		return err
	}
	inf, err := newInferencer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	grantFilter, err := config.ReadNameList(cfg.Filters.GrantListFile)
	if err != nil {
		return fmt.Errorf("read grant list: %w", err)
	}
	projectFilter, err := config.ReadNameList(cfg.Filters.ProjectListFile)
	if err != nil {
		return fmt.Errorf("read project list: %w", err)
	}

	acfg := service.AlignmentConfig{
		Folders:            service.FoldersFromConfig(cfg.Folders),
		GrantFilter:        grantFilter,
		ProjectFilter:      projectFilter,
		IgnoreNames:        []string{cfg.Filters.GrantListFile, cfg.Filters.ProjectListFile},
		SegmentChars:       cfg.Segmenter.MaxChars,
		MaxOutputTokens:    cfg.Inference.MaxOutputTokens,
		MaxSentences:       cfg.Summarizer.MaxSentences,
		CompactEvery:       cfg.Summarizer.CompactEvery,
		CorpusPresummarize: cfg.Summarizer.CorpusPresummarize,
		PresummarizeChars:  cfg.Summarizer.ChunkChars,
	}
	rec := metrics.New()
	opts := []service.Option{service.WithLogger(logger), service.WithMetrics(rec)}

	var sum service.RunSummary
	var runErr error
	if showProgress {
		sum, runErr = runWithProgress(ctx, acfg, store, inf, opts)
	} else {
		svc := service.NewAlignmentService(acfg, store, extract.New(), inf, opts...)
		sum, runErr = svc.Run(ctx)
	}

	writeMetrics(rec)
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d projects processed, %d questions unanswered, audit log %s\n",
		len(sum.Reports), sum.Projects, sum.FailedQuestions, sum.LogFile)
	return runErr
}

func runWithProgress(ctx context.Context, acfg service.AlignmentConfig, store domain.Storage, inf domain.Inferencer, opts []service.Option) (service.RunSummary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(tui.New(cancel), tea.WithContext(ctx))
	svc := service.NewAlignmentService(acfg, store, extract.New(), inf, append(opts, service.WithObserver(tui.NewReporter(p)))...)

	type result struct {
		sum service.RunSummary
		err error
	}
	done := make(chan result, 1)
	go func() {
		sum, err := svc.Run(ctx)
		done <- result{sum, err}
	}()

	if _, err := p.Run(); err != nil {
		logger.Debug("progress view stopped", zap.Error(err))
		cancel()
	}
	r := <-done
	return r.sum, r.err
}

func writeMetrics(rec *metrics.Recorder) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	if err := rec.WriteTextfile(cfg.Metrics.Textfile, time.Now()); err != nil {
		logger.Warn("write metrics textfile", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
	}
}
