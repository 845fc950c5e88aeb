package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/abhisek/stairwise/internal/config"
	"github.com/abhisek/stairwise/internal/logging"
	"github.com/abhisek/stairwise/internal/store"
)

// logCloser closes the --log-file handle once the command is done.
var logCloser io.Closer

var rootCmd = &cobra.Command{
	Use:   "stairwise",
	Short: "Adaptive staircase threshold testing",
	Long: "Stairwise runs transformed up-down staircase procedures from the terminal: " +
		"an operator console for live sessions, a simulated observer for dry runs, " +
		"and a local event store with every trial.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		file, _ := cmd.Flags().GetString("log-file")
		logger, closer, err := logging.New(logging.Options{Level: level, File: file})
		if err != nil {
			return err
		}
		logCloser = closer
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser == nil {
			return nil
		}
		return logCloser.Close()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

// Execute runs the root command. Cancelling ctx stops a running session.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides STAIRWISE_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (overrides "+config.EnvVar+" env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-file", "", "Write logs to this file instead of stderr")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then STAIRWISE_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

// openStore resolves the database path and opens the store.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	slog.Debug("store opened", "path", dbPath)
	return st, nil
}

// loadConfig resolves the configuration file from --config or the
// environment.
func loadConfig(cmd *cobra.Command) (config.File, error) {
	flagPath, _ := cmd.Flags().GetString("config")
	f, used, err := config.Resolve(flagPath)
	if err != nil {
		return config.File{}, err
	}
	if used != "" {
		slog.Debug("config loaded", "path", used)
	}
	return f, nil
}

// tuiLogger returns the logger to use while the TUI owns the terminal:
// the default logger when logging to a file, otherwise a discarding one.
func tuiLogger(cmd *cobra.Command) *slog.Logger {
	if file, _ := cmd.Flags().GetString("log-file"); file != "" {
		return slog.Default()
	}
	return logging.Discard()
}
