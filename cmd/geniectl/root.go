package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"genie-adapter/internal/app"
	"genie-adapter/internal/config"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "geniectl",
	Short:         "Ask a Databricks Genie space questions from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests to Genie on stderr")
	rootCmd.AddCommand(askCmd, clearSessionCmd, serveCmd)
}

// cliEnv is os.Getenv with CLI defaults applied.
func cliEnv(key string) string {
	v := os.Getenv(key)
	if v == "" && key == "SESSION_BACKEND" {
		return string(config.BackendSQLite)
	}
	return v
}

// closeApp releases the session store. Commands defer it, so a failure is
// logged rather than returned.
func closeApp(a io.Closer) {
	if err := a.Close(); err != nil {
		slog.Warn("failed to close session store", "err", err)
	}
}

func buildApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(cliEnv)
	if err != nil {
		return nil, err
	}
	return app.Build(ctx, cfg)
}
