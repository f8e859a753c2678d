package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/barsim/internal/id"
	"github.com/rustyeddy/barsim/journal"
	"github.com/rustyeddy/barsim/market"
	"github.com/rustyeddy/barsim/risk"
)

// Engine owns the open positions and the balance ledger of one backtest run.
//
// It is driven by a single caller: ProcessBar for bar N must be called
// before any OpenPosition meant to take effect from bar N+1. The engine is
// not safe for concurrent use.
type Engine struct {
	prof    market.Profile
	cfg     Config
	policy  risk.Policy
	journal journal.Journal
	log     *slog.Logger

	balance float64
	peak    float64
	maxDD   float64 // percent

	open   []*Position
	trades []TradeResult
	equity []EquitySample
	daily  risk.DailyBreaker
}

// NewEngine validates prof and cfg and returns an engine holding
// cfg.StartingBalance. A nil journal discards records.
func NewEngine(prof market.Profile, cfg Config, j journal.Journal) (*Engine, error) {
	if err := prof.Validate(); err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if j == nil {
		j = journal.Discard
	}

	return &Engine{
		prof: prof,
		cfg:  cfg,
		policy: risk.Policy{
			MaxRiskPct:        cfg.MaxRiskPct,
			DailyLossLimitPct: cfg.DailyLossLimitPct,
			MaxOpenPositions:  cfg.MaxOpenPositions,
		},
		journal: j,
		log:     slog.Default(),
		balance: cfg.StartingBalance,
		peak:    cfg.StartingBalance,
		daily:   risk.DailyBreaker{LimitPct: cfg.DailyLossLimitPct},
	}, nil
}

// SetLogger replaces the engine's logger. A nil logger is ignored.
func (e *Engine) SetLogger(l *slog.Logger) {
	if l != nil {
		e.log = l
	}
}

func (e *Engine) Profile() market.Profile { return e.prof }
func (e *Engine) Config() Config          { return e.cfg }
func (e *Engine) Balance() float64        { return e.balance }
func (e *Engine) PeakBalance() float64    { return e.peak }

// MaxDrawdownPct is the largest (peak-balance)/peak seen so far, in percent.
func (e *Engine) MaxDrawdownPct() float64 { return e.maxDD }

// DailyHalted reports whether the daily loss breaker is set.
func (e *Engine) DailyHalted() bool { return e.daily.Halted() }

// OpenPositions returns the open positions in the order they were opened.
func (e *Engine) OpenPositions() []*Position {
	out := make([]*Position, len(e.open))
	copy(out, e.open)
	return out
}

// Trades returns the closed trade log.
func (e *Engine) Trades() []TradeResult {
	out := make([]TradeResult, len(e.trades))
	copy(out, e.trades)
	return out
}

// Equity returns the equity curve, one sample per processed bar.
func (e *Engine) Equity() []EquitySample {
	out := make([]EquitySample, len(e.equity))
	copy(out, e.equity)
	return out
}

// Evaluate runs the risk gate for a request at the configured size.
func (e *Engine) Evaluate(entry, stop float64) risk.Decision {
	return risk.Evaluate(e.policy,
		risk.TradeIntent{
			Entry:      entry,
			Stop:       stop,
			Size:       e.cfg.PositionSize,
			PointValue: e.prof.PointValue(),
		},
		risk.AccountSnapshot{
			Balance:       e.balance,
			OpenPositions: len(e.open),
			DailyHalted:   e.daily.Halted(),
		})
}

// CanOpen reports whether a position from entry with stop would be admitted.
func (e *Engine) CanOpen(entry, stop float64) bool {
	return e.Evaluate(entry, stop).Allowed
}

// OpenPosition admits a new position at the configured size. It returns nil
// when the risk gate rejects the request; rejection is not an error.
func (e *Engine) OpenPosition(t time.Time, side Side, entry, stop, target float64) *Position {
	if side != Long && side != Short {
		e.log.Warn("open rejected: invalid side", "side", int(side))
		return nil
	}

	d := e.Evaluate(entry, stop)
	if !d.Allowed {
		e.log.Debug("open rejected",
			"time", t, "side", side.String(), "entry", entry, "stop", stop,
			"violations", d.Codes())
		return nil
	}

	p := &Position{
		ID:           id.At(t),
		OpenTime:     t,
		Side:         side,
		Entry:        entry,
		Stop:         stop,
		Target:       target,
		Size:         e.cfg.PositionSize,
		InitialSize:  e.cfg.PositionSize,
		originalStop: stop,
		open:         true,
	}
	e.open = append(e.open, p)

	e.log.Debug("position opened",
		"id", p.ID, "time", t, "side", side.String(),
		"entry", entry, "stop", stop, "target", target, "size", p.Size,
		"risk", d.PlannedRisk)
	return p
}

// UpdateTarget moves the target of an open position. Stop and size are untouched.
func (e *Engine) UpdateTarget(p *Position, target float64) {
	if p == nil || !p.open {
		return
	}
	p.Target = target
}

// ClosePosition closes fraction (0 < fraction <= 1) of p's live size at price.
//
// A partial close banks its P&L on the position and leaves it open. A full
// close emits a TradeResult, removes p from the open set and credits the
// position's total P&L to balance.
func (e *Engine) ClosePosition(p *Position, t time.Time, price float64, outcome Outcome, fraction float64) error {
	if p == nil {
		return errors.New("close position: nil position")
	}
	if !p.open {
		return fmt.Errorf("close position: %s is not open", p.ID)
	}
	if e.indexOf(p) < 0 {
		return fmt.Errorf("close position: %s is not owned by this engine", p.ID)
	}
	if fraction <= 0 || fraction > 1 {
		return fmt.Errorf("close position: fraction %v outside (0, 1]", fraction)
	}

	if fraction < 1 {
		qty := p.Size * fraction
		got := pl(p.Side, p.Entry, price, qty, e.prof)
		p.Size -= qty
		p.RealizedPL += got
		p.Partials++

		e.log.Debug("partial close",
			"id", p.ID, "time", t, "price", price, "outcome", string(outcome),
			"closed", qty, "remaining", p.Size, "pl", got)
		return nil
	}

	p.RealizedPL += pl(p.Side, p.Entry, price, p.Size, e.prof)
	p.Size = 0
	p.open = false
	p.CloseTime = t
	p.ClosePrice = price
	p.Outcome = outcome

	tr := TradeResult{
		ID:           p.ID,
		OpenTime:     p.OpenTime,
		CloseTime:    t,
		Side:         p.Side,
		Entry:        p.Entry,
		OriginalStop: p.originalStop,
		Target:       p.Target,
		ClosePrice:   price,
		Outcome:      outcome,
		PL:           p.RealizedPL,
		R:            p.R(price),
		Size:         p.InitialSize,
		Partials:     p.Partials,
	}
	e.trades = append(e.trades, tr)
	e.remove(p)

	e.balance += tr.PL
	e.daily.Add(tr.PL)
	e.trackDrawdown()

	e.log.Debug("position closed",
		"id", p.ID, "time", t, "price", price, "outcome", string(outcome),
		"pl", tr.PL, "r", tr.R, "balance", e.balance)

	if err := e.journal.RecordTrade(tr.Record(e.cfg.RunID, e.prof.Symbol)); err != nil {
		return fmt.Errorf("journal trade %s: %w", tr.ID, err)
	}
	return nil
}

// CloseAll fully closes every open position at price. With nothing open it
// does nothing.
func (e *Engine) CloseAll(t time.Time, price float64, outcome Outcome) error {
	var errs []error
	for _, p := range e.OpenPositions() {
		if err := e.ClosePosition(p, t, price, outcome, 1); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ProcessBar advances every open position through one bar and appends an
// equity sample marked at the bar's close.
//
// Per position, in order: stop-loss, take-profit, partial take-profit,
// breakeven move. A stop or target hit ends processing for that position.
// When both could have been touched inside the bar the stop wins.
func (e *Engine) ProcessBar(c market.Candle) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("process bar: %w", err)
	}

	wasHalted := e.daily.Halted()
	if e.daily.Roll(c.Time.In(e.cfg.Location)) && wasHalted {
		e.log.Info("daily loss breaker reset", "day", e.daily.Day().Format("2006-01-02"))
	}

	for _, p := range e.OpenPositions() {
		if err := e.manage(p, c); err != nil {
			return err
		}
	}

	if !wasHalted && e.daily.Check(e.balance) {
		e.log.Warn("daily loss breaker tripped",
			"time", c.Time, "day_pl", e.daily.Realized(), "balance", e.balance)
	}

	return e.sample(c)
}

func (e *Engine) manage(p *Position, c market.Candle) error {
	switch {
	case p.hitStop(c):
		return e.ClosePosition(p, c.Time, p.Stop, StopLoss, 1)
	case p.hitTarget(c):
		return e.ClosePosition(p, c.Time, p.Target, TakeProfit, 1)
	}

	if p.RiskDistance() == 0 {
		return nil
	}

	if e.cfg.PartialExitR > 0 && !p.PartialDone {
		trigger := risk.TriggerPrice(int(p.Side), p.Entry, p.originalStop, e.cfg.PartialExitR)
		if p.reached(c, trigger) {
			if err := e.ClosePosition(p, c.Time, trigger, Partial, e.cfg.PartialExitPct); err != nil {
				return err
			}
			p.PartialDone = true
		}
	}

	if e.cfg.BreakevenR > 0 && !p.BreakevenDone {
		trigger := risk.TriggerPrice(int(p.Side), p.Entry, p.originalStop, e.cfg.BreakevenR)
		if p.reached(c, trigger) {
			// Only ever tighten: a stop already at or past entry stays put.
			if (p.Entry-p.Stop)*p.Side.sign() > 0 {
				p.Stop = p.Entry
			}
			p.BreakevenDone = true
			e.log.Debug("stop moved to breakeven", "id", p.ID, "time", c.Time, "stop", p.Stop)
		}
	}
	return nil
}

func (e *Engine) sample(c market.Candle) error {
	eq := e.balance
	for _, p := range e.open {
		eq += p.OpenPL(c.Close, e.prof)
	}

	s := EquitySample{
		Time:          c.Time,
		Balance:       e.balance,
		Equity:        eq,
		OpenPositions: len(e.open),
	}
	e.equity = append(e.equity, s)

	if err := e.journal.RecordEquity(s.Snapshot(e.cfg.RunID)); err != nil {
		return fmt.Errorf("journal equity: %w", err)
	}
	return nil
}

func (e *Engine) trackDrawdown() {
	if e.balance > e.peak {
		e.peak = e.balance
	}
	if e.peak <= 0 {
		return
	}
	if dd := (e.peak - e.balance) / e.peak * 100; dd > e.maxDD {
		e.maxDD = dd
	}
}

func (e *Engine) indexOf(p *Position) int {
	for i, q := range e.open {
		if q == p {
			return i
		}
	}
	return -1
}

func (e *Engine) remove(p *Position) {
	if i := e.indexOf(p); i >= 0 {
		e.open = append(e.open[:i], e.open[i+1:]...)
	}
}
