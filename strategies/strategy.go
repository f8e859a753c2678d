package strategies

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/barsim/market"
	"github.com/rustyeddy/barsim/sim"
)

// Broker is the part of the engine a strategy may drive. *sim.Engine
// satisfies it.
type Broker interface {
	Profile() market.Profile
	OpenPosition(t time.Time, side sim.Side, entry, stop, target float64) *sim.Position
	ClosePosition(p *sim.Position, t time.Time, price float64, outcome sim.Outcome, fraction float64) error
	UpdateTarget(p *sim.Position, target float64)
	OpenPositions() []*sim.Position
}

// Strategy turns bars into position requests. OnBar is called once per bar,
// after the engine has processed that bar.
type Strategy interface {
	Name() string
	Reset()
	OnBar(ctx context.Context, c market.Candle, b Broker) error
}

// Params carries the tunables of every built-in strategy. Each strategy
// reads the fields it knows about.
type Params struct {
	// open-once
	Side       sim.Side
	StopDist   float64
	TargetDist float64

	// ema-cross
	Fast      int
	Slow      int
	ADXPeriod int
	MinADX    float64

	// band-reversion
	BandPeriod    int
	BandStdDev    float64
	RSIPeriod     int
	RSIOversold   float64
	RSIOverbought float64

	// shared stop/target sizing
	ATRPeriod int
	StopATR   float64
	RR        float64
}

func DefaultParams() Params {
	return Params{
		Side:          sim.Long,
		StopDist:      0,
		TargetDist:    0,
		Fast:          10,
		Slow:          30,
		BandPeriod:    20,
		BandStdDev:    2,
		RSIPeriod:     14,
		RSIOversold:   30,
		RSIOverbought: 70,
		ATRPeriod:     14,
		StopATR:       1.5,
		RR:            2,
	}
}

// Names lists the strategies ByName understands.
func Names() []string {
	return []string{"noop", "open-once", "ema-cross", "band-reversion"}
}

// ByName builds a strategy from its name.
func ByName(name string, p Params) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "noop", "none":
		return Noop{}, nil

	case "open-once":
		return NewOpenOnce(p)

	case "ema-cross", "emacross":
		return NewEMACross(p)

	case "band-reversion", "bands", "bollinger":
		return NewBandReversion(p)

	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
}

// maxBars bounds the price history a strategy keeps.
const maxBars = 1024

// series is a rolling OHLC history in the column layout talib wants.
type series struct {
	highs  []float64
	lows   []float64
	closes []float64
}

func (s *series) push(c market.Candle) {
	s.highs = append(s.highs, c.High)
	s.lows = append(s.lows, c.Low)
	s.closes = append(s.closes, c.Close)

	if n := len(s.closes); n > maxBars {
		drop := n - maxBars
		s.highs = s.highs[drop:]
		s.lows = s.lows[drop:]
		s.closes = s.closes[drop:]
	}
}

func (s *series) len() int { return len(s.closes) }

func (s *series) reset() {
	s.highs, s.lows, s.closes = nil, nil, nil
}

func last(xs []float64) float64 { return xs[len(xs)-1] }

// crossedAbove reports whether a moved from at-or-below b to above b on the
// last sample.
func crossedAbove(a, b []float64) bool {
	n := len(a)
	if n < 2 || len(b) < n {
		return false
	}
	return a[n-1] > b[n-1] && a[n-2] <= b[n-2]
}

func crossedBelow(a, b []float64) bool {
	return crossedAbove(b, a)
}
