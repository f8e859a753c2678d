package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/barsim/backtest"
	"github.com/rustyeddy/barsim/config"
	"github.com/rustyeddy/barsim/internal/id"
	"github.com/rustyeddy/barsim/journal"
	"github.com/rustyeddy/barsim/market"
	"github.com/rustyeddy/barsim/report"
	"github.com/rustyeddy/barsim/sim"
	"github.com/rustyeddy/barsim/strategies"
)

func newBacktestCmd(rc *RootConfig) *cobra.Command {
	var (
		candles      string
		fromStr      string
		toStr        string
		instrument   string
		strategy     string
		balance      float64
		journalType  string
		closeEnd     bool
		sessionClose string
		orgPath      string
		showTrades   bool

		side       string
		stopDist   float64
		targetDist float64
		fast       int
		slow       int
		minADX     float64
		stopATR    float64
		rr         float64

		maxRisk    float64
		dailyLimit float64
		partialR   float64
		partialPct float64
		breakevenR float64
	)

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run a strategy over historical candles",
		Long: `Backtest replays a candle CSV (time,open,high,low,close[,volume])
through the position engine and a strategy, then prints statistics.

Settings come from --config when given, otherwise from defaults. Flags
override either.

Supported strategies:
  - noop:           does nothing (baseline)
  - open-once:      opens one position on the first bar
  - ema-cross:      EMA crossover with ATR stops, optional ADX filter
  - band-reversion: Bollinger band fade confirmed by RSI

Example:
  barsim backtest --candles data/EUR_USD_H1.csv --strategy ema-cross --fast 20 --slow 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if rc.ConfigPath != "" {
				loaded, err := config.LoadFromFile(rc.ConfigPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			f := cmd.Flags()
			setS := func(name string, dst *string, v string) {
				if f.Changed(name) {
					*dst = v
				}
			}
			setF := func(name string, dst *float64, v float64) {
				if f.Changed(name) {
					*dst = v
				}
			}
			setI := func(name string, dst *int, v int) {
				if f.Changed(name) {
					*dst = v
				}
			}

			setS("candles", &cfg.Backtest.CandlesFile, candles)
			setS("from", &cfg.Backtest.From, fromStr)
			setS("to", &cfg.Backtest.To, toStr)
			setS("session-close", &cfg.Backtest.SessionClose, sessionClose)
			if f.Changed("close-end") {
				cfg.Backtest.CloseEnd = closeEnd
			}
			setS("instrument", &cfg.Instrument, instrument)
			setF("balance", &cfg.Account.Balance, balance)

			setS("strategy", &cfg.Strategy.Name, strategy)
			setS("side", &cfg.Strategy.Side, side)
			setF("stop-dist", &cfg.Strategy.StopDist, stopDist)
			setF("target-dist", &cfg.Strategy.TargetDist, targetDist)
			setI("fast", &cfg.Strategy.Fast, fast)
			setI("slow", &cfg.Strategy.Slow, slow)
			setF("min-adx", &cfg.Strategy.MinADX, minADX)
			setF("stop-atr", &cfg.Strategy.StopATR, stopATR)
			setF("rr", &cfg.Strategy.RR, rr)

			setF("risk", &cfg.Engine.MaxRiskPct, maxRisk)
			setF("daily-limit", &cfg.Engine.DailyLossLimitPct, dailyLimit)
			setF("partial-r", &cfg.Engine.PartialExitR, partialR)
			setF("partial-pct", &cfg.Engine.PartialExitPct, partialPct)
			setF("breakeven-r", &cfg.Engine.BreakevenR, breakevenR)

			setS("journal", &cfg.Journal.Type, journalType)
			if f.Changed("db") || cfg.Journal.DBPath == "" {
				cfg.Journal.DBPath = rc.DBPath
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.Backtest.CandlesFile == "" {
				return fmt.Errorf("--candles is required")
			}

			return runBacktest(cmd, rc, cfg, orgPath, showTrades)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&candles, "candles", "c", "", "candle CSV (time,open,high,low,close[,volume])")
	fl.StringVar(&fromStr, "from", "", "start time, RFC3339 or YYYY-MM-DD (inclusive)")
	fl.StringVar(&toStr, "to", "", "end time, RFC3339 or YYYY-MM-DD (exclusive)")
	fl.StringVarP(&instrument, "instrument", "i", "EUR_USD", "instrument symbol")
	fl.StringVarP(&strategy, "strategy", "s", "ema-cross", "strategy name (noop, open-once, ema-cross, band-reversion)")
	fl.Float64VarP(&balance, "balance", "b", 100_000, "starting balance")
	fl.StringVar(&journalType, "journal", "sqlite", "journal type: none, csv or sqlite")
	fl.BoolVar(&closeEnd, "close-end", true, "close open positions at the last bar")
	fl.StringVar(&sessionClose, "session-close", "", "flatten positions daily at HH:MM in the engine timezone")
	fl.StringVar(&orgPath, "org", "", "write an Org-mode report of the run to this path")
	fl.BoolVar(&showTrades, "trades", false, "print every closed trade")

	fl.StringVar(&side, "side", "long", "open-once: long or short")
	fl.Float64Var(&stopDist, "stop-dist", 0, "open-once: stop distance in price units")
	fl.Float64Var(&targetDist, "target-dist", 0, "open-once: target distance in price units (0 = none)")
	fl.IntVar(&fast, "fast", 10, "ema-cross: fast EMA period")
	fl.IntVar(&slow, "slow", 30, "ema-cross: slow EMA period")
	fl.Float64Var(&minADX, "min-adx", 0, "ema-cross: minimum ADX to enter (0 = off)")
	fl.Float64Var(&stopATR, "stop-atr", 1.5, "stop distance as a multiple of ATR")
	fl.Float64Var(&rr, "rr", 2, "ema-cross: target as an R multiple")

	fl.Float64Var(&maxRisk, "risk", 0.02, "max risk per trade as a fraction of balance")
	fl.Float64Var(&dailyLimit, "daily-limit", 0.05, "daily realized loss limit as a fraction of balance (0 = off)")
	fl.Float64Var(&partialR, "partial-r", 0, "take a partial exit at this R (0 = off)")
	fl.Float64Var(&partialPct, "partial-pct", 0.5, "fraction of the live size closed at --partial-r")
	fl.Float64Var(&breakevenR, "breakeven-r", 0, "move the stop to entry at this R (0 = off)")

	return cmd
}

func runBacktest(cmd *cobra.Command, rc *RootConfig, cfg *config.Config, orgPath string, showTrades bool) error {
	prof, err := cfg.Profile()
	if err != nil {
		return err
	}
	ec, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	ec.RunID = id.New()

	params, err := cfg.Strategy.Params()
	if err != nil {
		return err
	}
	strat, err := strategies.ByName(cfg.Strategy.Name, params)
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	from, to, err := cfg.Backtest.Range()
	if err != nil {
		return err
	}
	feed, err := market.NewCSVCandleFeed(cfg.Backtest.CandlesFile, from, to)
	if err != nil {
		return fmt.Errorf("open candles: %w", err)
	}

	j, err := cfg.OpenJournal()
	if err != nil {
		feed.Close()
		return err
	}
	defer j.Close()

	engine, err := sim.NewEngine(prof, ec, j)
	if err != nil {
		feed.Close()
		return err
	}
	engine.SetLogger(rc.Log)

	rc.Log.Info("backtest starting",
		"run", ec.RunID,
		"strategy", strat.Name(),
		"instrument", prof.Symbol,
		"candles", cfg.Backtest.CandlesFile)

	runner := &backtest.Runner{
		Engine:   engine,
		Feed:     feed,
		Strategy: strat,
		Options: backtest.RunnerOptions{
			CloseEnd:     cfg.Backtest.CloseEnd,
			SessionClose: cfg.Backtest.SessionClose,
		},
		Log: rc.Log,
	}
	res, err := runner.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	yml, err := cfg.YAML()
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	run := res.Run(backtest.RunInfo{
		RunID:      ec.RunID,
		Dataset:    filepath.Base(cfg.Backtest.CandlesFile),
		Instrument: prof.Symbol,
		Strategy:   strat.Name(),
		Config:     yml,
		OrgPath:    orgPath,
	})

	if db, ok := j.(*journal.SQLite); ok {
		if err := db.RecordBacktest(run); err != nil {
			return fmt.Errorf("record backtest: %w", err)
		}
	}
	if orgPath != "" {
		if err := run.WriteOrg(); err != nil {
			return fmt.Errorf("write org report: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	report.PrintBacktestRun(out, run)
	report.PrintSummary(out, res.Summary)
	if showTrades && len(res.Trades) > 0 {
		fmt.Fprintln(out)
		report.PrintTrades(out, res.Trades, prof)
	}
	return nil
}
