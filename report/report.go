// Package report renders backtest results for people.
package report

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/barsim/journal"
	"github.com/rustyeddy/barsim/market"
	"github.com/rustyeddy/barsim/sim"
	"github.com/rustyeddy/barsim/stats"
)

const rule = "--------------------------------------------------"

// Fixed renders x with places decimals, rounding half away from zero.
// Infinities and NaN are spelled out.
func Fixed(x float64, places int32) string {
	switch {
	case math.IsInf(x, 1):
		return "inf"
	case math.IsInf(x, -1):
		return "-inf"
	case math.IsNaN(x):
		return "nan"
	}
	return decimal.NewFromFloat(x).StringFixed(places)
}

func money(x float64) string { return Fixed(x, 2) }

func PrintSummary(w io.Writer, s stats.Summary) {
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, rule)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Trades:\t%d\n", s.Trades)
	fmt.Fprintf(tw, "Wins:\t%d\n", s.Wins)
	fmt.Fprintf(tw, "Losses:\t%d\n", s.Losses)
	fmt.Fprintf(tw, "Win Rate:\t%s%%\n", Fixed(s.WinRate, 2))
	fmt.Fprintf(tw, "Total P/L:\t%s\n", money(s.TotalPL))
	fmt.Fprintf(tw, "Avg P/L:\t%s\n", money(s.AvgPL))
	fmt.Fprintf(tw, "Avg Win R:\t%s\n", Fixed(s.AvgWinR, 2))
	fmt.Fprintf(tw, "Avg Loss R:\t%s\n", Fixed(s.AvgLossR, 2))
	fmt.Fprintf(tw, "Expectancy R:\t%s\n", Fixed(s.ExpectancyR, 2))
	fmt.Fprintf(tw, "Best Trade:\t%s\n", money(s.BestTrade))
	fmt.Fprintf(tw, "Worst Trade:\t%s\n", money(s.WorstTrade))
	fmt.Fprintf(tw, "Profit Factor:\t%s\n", Fixed(s.ProfitFactor, 2))
	fmt.Fprintf(tw, "Max Drawdown:\t%s%%\n", Fixed(s.MaxDrawdownPct, 2))
	fmt.Fprintf(tw, "Max Equity DD:\t%s%%\n", Fixed(s.MaxEquityDrawdownPct, 2))
	fmt.Fprintf(tw, "Trades/Month:\t%s\n", Fixed(s.TradesPerMonth, 1))
	_ = tw.Flush()
}

// PrintTrades writes one row per closed trade, prices at the instrument's
// display precision.
func PrintTrades(w io.Writer, trades []sim.TradeResult, prof market.Profile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tOpen\tClose\tSide\tEntry\tStop\tTarget\tExit\tOutcome\tP/L\tR\t")
	for i, t := range trades {
		target := "-"
		if t.Target != 0 {
			target = prof.FormatPrice(t.Target)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			i+1,
			t.OpenTime.Format("2006-01-02 15:04"),
			t.CloseTime.Format("2006-01-02 15:04"),
			t.Side,
			prof.FormatPrice(t.Entry),
			prof.FormatPrice(t.OriginalStop),
			target,
			prof.FormatPrice(t.ClosePrice),
			t.Outcome,
			money(t.PL),
			Fixed(t.R, 2),
		)
	}
	_ = tw.Flush()
}

func PrintBacktestRun(w io.Writer, r journal.BacktestRun) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Created:       %s\n", r.Created.Format(time.RFC3339))
	fmt.Fprintf(w, "Strategy:      %s\n", r.Strategy)
	fmt.Fprintf(w, "Instrument:    %s\n", r.Instrument)
	if r.Dataset != "" {
		fmt.Fprintf(w, "Dataset:       %s\n", r.Dataset)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Trades:        %d (%d won, %d lost)\n", r.Trades, r.Wins, r.Losses)
	fmt.Fprintf(w, "Win Rate:      %s%%\n", Fixed(r.WinRate, 2))
	fmt.Fprintf(w, "Start Balance: %s\n", money(r.StartBalance))
	fmt.Fprintf(w, "End Balance:   %s\n", money(r.EndBalance))
	fmt.Fprintf(w, "Net P/L:       %s\n", money(r.NetPL))
	fmt.Fprintf(w, "Return:        %s%%\n", Fixed(r.ReturnPct, 2))

	if r.ProfitFactor > 0 {
		fmt.Fprintf(w, "Profit Factor: %s\n", Fixed(r.ProfitFactor, 2))
	}
	if r.MaxDDPct > 0 {
		fmt.Fprintf(w, "Max Drawdown:  %s%%\n", Fixed(r.MaxDDPct, 2))
	}

	if r.OrgPath != "" {
		fmt.Fprintf(w, "Org Report:    %s\n", r.OrgPath)
	}

	if len(r.Notes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Observations")
		fmt.Fprintln(w, rule)
		for _, note := range r.Notes {
			fmt.Fprintf(w, "- %s\n", note)
		}
	}

	fmt.Fprintln(w)
}
