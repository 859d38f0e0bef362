package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"grantalign/internal/config"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	cfg    *config.AppConfig
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "grantalign",
	Short: "Check project descriptions against grant requirements with a language model",
	Long: `grantalign downloads grant documents and project descriptions, asks a fixed
battery of eight questions per grant segment and project, and publishes one
report per project. The merge command folds published reports into one summary.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		path := cfgPath
		if path == "" {
			cfg, path, err = config.LoadDefault()
		} else {
			cfg, err = config.Load(path)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err = buildLogger(cfg.Logging, logFile(cmd))
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.Debug("loaded config", zap.String("path", path))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// logFile keeps process logs off the terminal while the progress view owns it.
func logFile(cmd *cobra.Command) string {
	if cmd == runCmd && showProgress {
		return filepath.Join(cfg.Folders.WorkDir, "grantalign.log")
	}
	return ""
}

func buildLogger(lc config.LoggingConfig, file string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = level
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return nil, err
		}
		zc.OutputPaths = []string{file}
		zc.ErrorOutputPaths = []string{file}
	}
	return zc.Build()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file (default ./grantalign.yaml or ~/.config/grantalign/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	runCmd.Flags().BoolVar(&showProgress, "progress", false, "Show an interactive progress view")
	mergeCmd.Flags().StringVar(&mergeStrategy, "strategy", "", "Report parsing strategy: line or single (default from config)")
	mergeCmd.Flags().StringVar(&mergeLabel, "label", "", "Prefix of the merged file name (default from config or the project list file)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(mergeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
