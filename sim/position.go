package sim

import (
	"time"

	"github.com/rustyeddy/barsim/market"
	"github.com/rustyeddy/barsim/risk"
)

type Side int8

const (
	Long  Side = +1
	Short Side = -1
)

func (s Side) String() string {
	switch s {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "invalid"
	}
}

func (s Side) sign() float64 { return float64(s) }

// Outcome tags why (part of) a position was closed.
type Outcome string

const (
	StopLoss     Outcome = "stop_loss"
	TakeProfit   Outcome = "take_profit"
	Partial      Outcome = "partial"
	SessionClose Outcome = "session_close"
	ForcedClose  Outcome = "forced_close"
)

// Position is one open, possibly partially closed, trade. It is owned by
// the Engine while open; callers should treat it as read-only and go
// through Engine methods to change it.
type Position struct {
	ID       string
	OpenTime time.Time
	Side     Side

	Entry  float64
	Stop   float64 // current stop, 0 = none
	Target float64 // current target, 0 = none

	Size        float64 // live size in lots
	InitialSize float64

	RealizedPL float64 // banked from partial closes
	Partials   int

	PartialDone   bool
	BreakevenDone bool

	CloseTime  time.Time
	ClosePrice float64
	Outcome    Outcome

	originalStop float64
	open         bool
}

func (p *Position) OriginalStop() float64 { return p.originalStop }
func (p *Position) IsOpen() bool          { return p.open }

// RiskDistance is |entry - original stop|.
func (p *Position) RiskDistance() float64 {
	d := p.Entry - p.originalStop
	if d < 0 {
		return -d
	}
	return d
}

// UnrealizedPL marks the live size at price.
func (p *Position) UnrealizedPL(price float64, prof market.Profile) float64 {
	return pl(p.Side, p.Entry, price, p.Size, prof)
}

// OpenPL is the banked partial P&L plus the live size marked at price.
func (p *Position) OpenPL(price float64, prof market.Profile) float64 {
	return p.RealizedPL + p.UnrealizedPL(price, prof)
}

// R is the price move from entry to price in multiples of initial risk.
func (p *Position) R(price float64) float64 {
	return risk.RMultiple(int(p.Side), p.Entry, p.originalStop, price)
}

// hitStop reports whether the bar's adverse extreme reached the stop.
func (p *Position) hitStop(c market.Candle) bool {
	if p.Stop == 0 {
		return false
	}
	if p.Side == Long {
		return c.Low <= p.Stop
	}
	return c.High >= p.Stop
}

// hitTarget reports whether the bar's favourable extreme reached the target.
func (p *Position) hitTarget(c market.Candle) bool {
	if p.Target == 0 {
		return false
	}
	return p.reached(c, p.Target)
}

func (p *Position) reached(c market.Candle, price float64) bool {
	if p.Side == Long {
		return c.High >= price
	}
	return c.Low <= price
}

func pl(side Side, entry, exit, size float64, prof market.Profile) float64 {
	return (exit - entry) * side.sign() * prof.PointValue() * size
}
