package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X".
var Version = "dev"

// RootConfig holds the persistent flags every subcommand sees.
type RootConfig struct {
	ConfigPath string
	DBPath     string
	LogLevel   string

	Log *slog.Logger
}

func NewRootCmd() *cobra.Command {
	rc := &RootConfig{Log: slog.Default()}

	cmd := &cobra.Command{
		Use:   "barsim",
		Short: "barsim: bar-driven backtesting with risk-gated position management",
		Long: `barsim replays OHLC candles through a position engine that applies
stops, targets, partial exits and breakeven moves bar by bar, gates every
entry on risk, and halts trading for the day after a daily loss limit.

Trades and equity can be journaled to SQLite or CSV and queried later.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&rc.DBPath, "db", "./barsim.db", "SQLite journal database")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		log, err := newLogger(cmd.ErrOrStderr(), rc.LogLevel)
		if err != nil {
			return err
		}
		rc.Log = log
		return nil
	}

	cmd.AddCommand(
		newBacktestCmd(rc),
		newConfigCmd(rc),
		newJournalCmd(rc),
		newInstrumentsCmd(),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "barsim %s\n", Version)
		},
	})

	return cmd
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("bad --log-level %q: want debug, info, warn or error", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func Execute(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
