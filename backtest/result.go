package backtest

import (
	"math"
	"time"

	"github.com/rustyeddy/barsim/journal"
	"github.com/rustyeddy/barsim/sim"
	"github.com/rustyeddy/barsim/stats"
)

// Result is the outcome of one Runner.Run.
type Result struct {
	Summary stats.Summary
	Trades  []sim.TradeResult
	Equity  []sim.EquitySample

	Start time.Time
	End   time.Time
	Bars  int

	StartBalance float64
	Balance      float64
	Open         int // positions still open at the end
}

// RunInfo names a run for the journal.
type RunInfo struct {
	RunID      string
	Dataset    string
	Instrument string
	Strategy   string
	Config     []byte
	OrgPath    string
}

// Run converts the result into a journal row.
func (res Result) Run(info RunInfo) journal.BacktestRun {
	s := res.Summary
	run := journal.BacktestRun{
		RunID:        info.RunID,
		Created:      time.Now().UTC(),
		Dataset:      info.Dataset,
		Instrument:   info.Instrument,
		Strategy:     info.Strategy,
		Config:       info.Config,
		Start:        res.Start,
		End:          res.End,
		Trades:       s.Trades,
		Wins:         s.Wins,
		Losses:       s.Losses,
		StartBalance: res.StartBalance,
		EndBalance:   res.Balance,
		NetPL:        res.Balance - res.StartBalance,
		WinRate:      s.WinRate,
		ProfitFactor: s.ProfitFactor,
		MaxDDPct:     s.MaxDrawdownPct,
		OrgPath:      info.OrgPath,
	}
	if res.StartBalance > 0 {
		run.ReturnPct = run.NetPL / res.StartBalance * 100
	}
	run.Notes = res.notes()
	return run
}

func (res Result) notes() []string {
	var out []string
	s := res.Summary
	switch {
	case res.Bars == 0:
		out = append(out, "no bars in the selected range")
	case s.Trades == 0:
		out = append(out, "no trades were taken")
	case math.IsInf(s.ProfitFactor, 1):
		out = append(out, "no losing trades")
	case s.ProfitFactor < 1:
		out = append(out, "profit factor below 1")
	}
	if res.Open > 0 {
		out = append(out, "positions were still open at the end of data")
	}
	return out
}
