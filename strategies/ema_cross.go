package strategies

import (
	"context"
	"fmt"

	"github.com/markcheno/go-talib"

	"github.com/rustyeddy/barsim/market"
	"github.com/rustyeddy/barsim/sim"
)

// EMACross trades a fast/slow EMA crossover.
//   - Enters only on a cross, at the bar close
//   - Stop is StopATR x ATR from entry, target RR times the stop distance
//   - An opposite cross closes the open position and reverses
//   - With MinADX > 0, entries need ADX(ADXPeriod) >= MinADX
type EMACross struct {
	Fast      int
	Slow      int
	ATRPeriod int
	StopATR   float64
	RR        float64
	ADXPeriod int
	MinADX    float64

	bars series
	pos  *sim.Position
}

func NewEMACross(p Params) (*EMACross, error) {
	if p.Fast <= 0 || p.Slow <= 0 {
		return nil, fmt.Errorf("ema-cross: periods must be positive, got fast=%d slow=%d", p.Fast, p.Slow)
	}
	if p.Fast >= p.Slow {
		return nil, fmt.Errorf("ema-cross: fast period %d must be below slow period %d", p.Fast, p.Slow)
	}
	if p.ATRPeriod < 2 {
		return nil, fmt.Errorf("ema-cross: atr period must be at least 2, got %d", p.ATRPeriod)
	}
	if p.StopATR <= 0 {
		return nil, fmt.Errorf("ema-cross: stop atr multiple must be positive, got %v", p.StopATR)
	}
	if p.RR <= 0 {
		p.RR = 2
	}
	if p.MinADX > 0 && p.ADXPeriod < 2 {
		return nil, fmt.Errorf("ema-cross: adx period must be at least 2 when min adx is set, got %d", p.ADXPeriod)
	}

	return &EMACross{
		Fast:      p.Fast,
		Slow:      p.Slow,
		ATRPeriod: p.ATRPeriod,
		StopATR:   p.StopATR,
		RR:        p.RR,
		ADXPeriod: p.ADXPeriod,
		MinADX:    p.MinADX,
	}, nil
}

func (s *EMACross) Name() string { return "ema-cross" }

func (s *EMACross) Reset() {
	s.bars.reset()
	s.pos = nil
}

// warmup is the history needed before indicators are trusted.
func (s *EMACross) warmup() int {
	n := max(s.Slow, s.ATRPeriod)
	if s.MinADX > 0 {
		n = max(n, 2*s.ADXPeriod)
	}
	return n + 2
}

func (s *EMACross) OnBar(ctx context.Context, c market.Candle, b Broker) error {
	s.bars.push(c)
	if s.bars.len() < s.warmup() {
		return nil
	}

	fast := talib.Ema(s.bars.closes, s.Fast)
	slow := talib.Ema(s.bars.closes, s.Slow)

	var side sim.Side
	switch {
	case crossedAbove(fast, slow):
		side = sim.Long
	case crossedBelow(fast, slow):
		side = sim.Short
	default:
		return nil
	}

	// The engine may already have stopped us out.
	if s.pos != nil && !s.pos.IsOpen() {
		s.pos = nil
	}

	if s.pos != nil {
		if s.pos.Side == side {
			return nil
		}
		if err := b.ClosePosition(s.pos, c.Time, c.Close, sim.ForcedClose, 1); err != nil {
			return fmt.Errorf("ema-cross: reverse: %w", err)
		}
		s.pos = nil
	}

	if s.MinADX > 0 {
		adx := talib.Adx(s.bars.highs, s.bars.lows, s.bars.closes, s.ADXPeriod)
		if !(last(adx) >= s.MinADX) {
			return nil
		}
	}

	atr := last(talib.Atr(s.bars.highs, s.bars.lows, s.bars.closes, s.ATRPeriod))
	if atr <= 0 {
		return nil
	}

	prof := b.Profile()
	sign := float64(side)
	entry := c.Close
	dist := s.StopATR * atr
	stop := prof.RoundPrice(entry - sign*dist)
	target := prof.RoundPrice(entry + sign*s.RR*dist)

	s.pos = b.OpenPosition(c.Time, side, entry, stop, target)
	return nil
}
