package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/celltutor/internal/config"
	"github.com/abhisek/celltutor/internal/store"
)

// cfg is loaded once per invocation by the root command's pre-run hook.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "celltutor",
	Short: "Explain notebook code cells and quiz learners on them",
	Long: `celltutor turns a notebook code cell into a tutor: an explanation, a
diagram of its structure, and a quiz bank that adapts to each learner's
results.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if v, _ := cmd.Flags().GetString("log-level"); v != "" {
			loaded.Log.Level = v
		}
		if v, _ := cmd.Flags().GetString("log-format"); v != "" {
			loaded.Log.Format = v
		}
		cfg = loaded
		slog.SetDefault(newLogger(os.Stderr, cfg.Log))
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides CELLTUTOR_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (overrides CELLTUTOR_CONFIG env var)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(tutorCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the configured path (file or CELLTUTOR_DB), then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

// newLogger builds the slog handler for lc writing to w. Commands log to
// stderr so output on stdout stays clean.
func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
