package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/barsim/market"
	"github.com/rustyeddy/barsim/sim"
	"github.com/rustyeddy/barsim/stats"
	"github.com/rustyeddy/barsim/strategies"
)

// RunnerOptions controls how the backtest runner behaves.
type RunnerOptions struct {
	// If true, close all open positions at the last bar's close, tagged
	// forced_close.
	CloseEnd bool

	// SessionClose is a wall-clock "HH:MM" in the engine's location. The
	// first bar at or after it each day closes every open position at that
	// bar's close, tagged session_close, and the strategy sits out the rest
	// of the day. Empty disables.
	SessionClose string
}

// Runner drives an engine forward using a feed and strategy.
type Runner struct {
	Engine   *sim.Engine
	Feed     market.CandleFeed
	Strategy strategies.Strategy
	Options  RunnerOptions
	Log      *slog.Logger
}

// Run executes the backtest loop:
//  1. read next bar
//  2. engine.ProcessBar(bar)
//  3. session close, if due
//  4. strategy.OnBar(ctx, bar, engine)
//
// The feed is closed when Run returns.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.Engine == nil {
		return Result{}, errors.New("backtest: Engine is required")
	}
	if r.Feed == nil {
		return Result{}, errors.New("backtest: Feed is required")
	}
	if r.Strategy == nil {
		return Result{}, errors.New("backtest: Strategy is required")
	}
	defer r.Feed.Close()

	log := r.Log
	if log == nil {
		log = slog.Default()
	}

	session, hasSession, err := parseClock(r.Options.SessionClose)
	if err != nil {
		return Result{}, err
	}
	loc := r.Engine.Config().Location

	res := Result{StartBalance: r.Engine.Balance()}

	var (
		lastBar    market.Candle
		sessionDay time.Time
	)

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		c, ok, err := r.Feed.Next()
		if err != nil {
			return Result{}, fmt.Errorf("backtest: feed: %w", err)
		}
		if !ok {
			break
		}

		if res.Start.IsZero() {
			res.Start = c.Time
		}
		res.End = c.Time
		res.Bars++
		lastBar = c

		if err := r.Engine.ProcessBar(c); err != nil {
			return Result{}, fmt.Errorf("backtest: bar %s: %w", c.Time.Format(time.RFC3339), err)
		}

		if hasSession {
			local := c.Time.In(loc)
			day := midnight(local)
			if day.Equal(sessionDay) {
				continue
			}
			if minuteOfDay(local) >= session {
				sessionDay = day
				if n := len(r.Engine.OpenPositions()); n > 0 {
					log.Debug("session close", "time", c.Time, "positions", n)
				}
				if err := r.Engine.CloseAll(c.Time, c.Close, sim.SessionClose); err != nil {
					return Result{}, fmt.Errorf("backtest: session close: %w", err)
				}
				continue
			}
		}

		if err := r.Strategy.OnBar(ctx, c, r.Engine); err != nil {
			return Result{}, fmt.Errorf("backtest: %s: %w", r.Strategy.Name(), err)
		}
	}

	if r.Options.CloseEnd && res.Bars > 0 {
		if err := r.Engine.CloseAll(lastBar.Time, lastBar.Close, sim.ForcedClose); err != nil {
			return Result{}, fmt.Errorf("backtest: close at end: %w", err)
		}
	}

	res.Trades = r.Engine.Trades()
	res.Equity = r.Engine.Equity()
	res.Balance = r.Engine.Balance()
	res.Open = len(r.Engine.OpenPositions())
	res.Summary = stats.Summarize(res.Trades, res.Equity)
	// A close after the last equity sample is only seen by the engine's ledger.
	res.Summary.MaxDrawdownPct = max(res.Summary.MaxDrawdownPct, r.Engine.MaxDrawdownPct())

	log.Info("backtest finished",
		"strategy", r.Strategy.Name(),
		"bars", res.Bars,
		"trades", res.Summary.Trades,
		"balance", res.Balance,
		"open", res.Open)

	return res, nil
}

// parseClock turns "HH:MM" into minutes after midnight.
func parseClock(s string) (int, bool, error) {
	if s == "" {
		return 0, false, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false, fmt.Errorf("backtest: session close %q: want HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), true, nil
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
