package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/barsim/journal"
	"github.com/rustyeddy/barsim/report"
)

func newJournalCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Query trade journal data",
		Long: `Query and display journal records from the SQLite database.

Subcommands:
  trade  - Details of a specific trade by ID
  day    - Trades closed on a specific day (UTC)
  runs   - Recorded backtest runs, newest first
  run    - One backtest run and its trades

Examples:
  barsim journal trade <trade-id>
  barsim journal day 2024-01-15
  barsim journal runs
  barsim journal run <run-id> --org`,
	}

	open := func() (*journal.SQLite, error) {
		j, err := journal.NewSQLite(rc.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		return j, nil
	}

	tradeCmd := &cobra.Command{
		Use:   "trade <trade-id>",
		Short: "Get details of a specific trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open()
			if err != nil {
				return err
			}
			defer j.Close()

			rec, err := j.GetTrade(args[0])
			if err != nil {
				return fmt.Errorf("get trade: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
			return nil
		},
	}

	dayCmd := &cobra.Command{
		Use:   "day <YYYY-MM-DD>",
		Short: "List trades closed on a specific day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := dayBounds(time.UTC, args[0])
			if err != nil {
				return fmt.Errorf("date: %w", err)
			}

			j, err := open()
			if err != nil {
				return err
			}
			defer j.Close()

			recs, err := j.ListTradesClosedBetween(start, end)
			if err != nil {
				return fmt.Errorf("query trades: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
			return nil
		},
	}

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded backtest runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open()
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.ListBacktestRuns()
			if err != nil {
				return fmt.Errorf("query runs: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tCREATED\tSTRATEGY\tINSTRUMENT\tTRADES\tNET P/L\tRETURN %")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					r.RunID,
					r.Created.Format("2006-01-02 15:04"),
					r.Strategy,
					r.Instrument,
					r.Trades,
					report.Fixed(r.NetPL, 2),
					report.Fixed(r.ReturnPct, 2),
				)
			}
			return tw.Flush()
		},
	}

	var asOrg bool
	runCmd := &cobra.Command{
		Use:   "run <run-id>",
		Short: "Show one backtest run and its trades",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open()
			if err != nil {
				return err
			}
			defer j.Close()

			run, err := j.GetBacktestRun(args[0])
			if err != nil {
				return err
			}
			trades, err := j.ListTradesByRun(run.RunID)
			if err != nil {
				return fmt.Errorf("query trades: %w", err)
			}

			out := cmd.OutOrStdout()
			if asOrg {
				doc, err := run.Org()
				if err != nil {
					return fmt.Errorf("render org: %w", err)
				}
				fmt.Fprint(out, doc)
			} else {
				report.PrintBacktestRun(out, run)
			}
			if len(trades) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, journal.FormatTradesOrg(trades))
			}
			return nil
		},
	}
	runCmd.Flags().BoolVar(&asOrg, "org", false, "render the run as an Org-mode document")

	cmd.AddCommand(tradeCmd, dayCmd, runsCmd, runCmd)
	return cmd
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1), nil
}
