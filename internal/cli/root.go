// Package cli implements the textindex command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nonibytes/textindex/internal/config"
	"github.com/nonibytes/textindex/internal/logging"
)

const rootLong = `textindex keeps a full-text index of typed documents in an embedded
or server key-value store (bbolt, SQLite or PostgreSQL).

Queries are whitespace-separated terms that must all match. Use
"field:term" to scope a term to one field and "a or b" for alternatives.

Configuration is read from --config (YAML) and TEXTINDEX_* environment
variables.`

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	debug      bool

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd builds the textindex command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "textindex",
		Short:         "Embedded full-text index over an ordered key-value store",
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", os.Getenv("TEXTINDEX_CONFIG"), "Path to the YAML config file")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newAddCmd(a))
	cmd.AddCommand(newRemoveCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newCountCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newOptimizeCmd(a))

	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.debug {
		cfg.Logging.Level = "debug"
	}
	a.cfg = cfg
	a.logger = logging.Setup(cfg.Logging, cmd.ErrOrStderr())
	return nil
}

// open opens the configured store and index for one command.
func (a *app) open(ctx context.Context) (*session, error) {
	s, err := openSession(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", a.cfg.Index.Name, err)
	}
	return s, nil
}

// Execute runs the CLI and returns an exit code.
func Execute(ctx context.Context, argv []string) int {
	cmd := NewRootCmd()
	cmd.SetArgs(argv)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return exitCode(err)
	}
	return 0
}
