package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"grantalign/internal/config"
	"grantalign/internal/metrics"
	"grantalign/internal/report"
	"grantalign/internal/service"
)

var (
	mergeStrategy string
	mergeLabel    string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Fold every published project report into one grant alignment summary",
	Args:  cobra.NoArgs,
	RunE:  runMerge,
}

func runMerge(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStorage(ctx, cfg)
	if err != nil {
		return err
	}
	raw := cfg.Merge.Strategy
	if mergeStrategy != "" {
		raw = mergeStrategy
	}
	strategy, err := report.ParseStrategy(raw)
	if err != nil {
		return err
	}
	label := mergeLabel
	if label == "" {
		label = cfg.Merge.Label
	}
	if label == "" {
		if label, err = config.ReadLabel(cfg.Filters.ProjectListFile); err != nil {
			return fmt.Errorf("read project list: %w", err)
		}
	}

	rec := metrics.New()
	svc := service.NewMergeService(service.MergeConfig{
		Folders:      service.FoldersFromConfig(cfg.Folders),
		Strategy:     strategy,
		Label:        label,
		MaxSentences: cfg.Summarizer.MaxSentences,
	}, store, service.WithLogger(logger), service.WithMetrics(rec))

	sum, err := svc.Run(ctx)
	writeMetrics(rec)
	if sum.Output != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "merged %d result files into %s\n", len(sum.Parsed), sum.Output)
	}
	return err
}
