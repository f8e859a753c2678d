package strategies

import (
	"context"
	"fmt"

	"github.com/markcheno/go-talib"

	"github.com/rustyeddy/barsim/market"
	"github.com/rustyeddy/barsim/sim"
)

// BandReversion fades closes outside the Bollinger bands when RSI agrees:
// long below the lower band with RSI under RSIOversold, short above the
// upper band with RSI over RSIOverbought. The target is the middle band and
// follows it every bar while it stays on the profitable side of entry.
type BandReversion struct {
	BandPeriod    int
	BandStdDev    float64
	RSIPeriod     int
	RSIOversold   float64
	RSIOverbought float64
	ATRPeriod     int
	StopATR       float64

	bars series
	pos  *sim.Position
}

func NewBandReversion(p Params) (*BandReversion, error) {
	if p.BandPeriod < 2 {
		return nil, fmt.Errorf("band-reversion: band period must be at least 2, got %d", p.BandPeriod)
	}
	if p.BandStdDev <= 0 {
		return nil, fmt.Errorf("band-reversion: band stddev must be positive, got %v", p.BandStdDev)
	}
	if p.RSIPeriod < 2 {
		return nil, fmt.Errorf("band-reversion: rsi period must be at least 2, got %d", p.RSIPeriod)
	}
	if p.RSIOversold <= 0 || p.RSIOverbought >= 100 || p.RSIOversold >= p.RSIOverbought {
		return nil, fmt.Errorf("band-reversion: need 0 < oversold < overbought < 100, got %v/%v",
			p.RSIOversold, p.RSIOverbought)
	}
	if p.ATRPeriod < 2 {
		return nil, fmt.Errorf("band-reversion: atr period must be at least 2, got %d", p.ATRPeriod)
	}
	if p.StopATR <= 0 {
		return nil, fmt.Errorf("band-reversion: stop atr multiple must be positive, got %v", p.StopATR)
	}

	return &BandReversion{
		BandPeriod:    p.BandPeriod,
		BandStdDev:    p.BandStdDev,
		RSIPeriod:     p.RSIPeriod,
		RSIOversold:   p.RSIOversold,
		RSIOverbought: p.RSIOverbought,
		ATRPeriod:     p.ATRPeriod,
		StopATR:       p.StopATR,
	}, nil
}

func (s *BandReversion) Name() string { return "band-reversion" }

func (s *BandReversion) Reset() {
	s.bars.reset()
	s.pos = nil
}

func (s *BandReversion) warmup() int {
	return max(s.BandPeriod, s.RSIPeriod, s.ATRPeriod) + 2
}

func (s *BandReversion) OnBar(ctx context.Context, c market.Candle, b Broker) error {
	s.bars.push(c)
	if s.bars.len() < s.warmup() {
		return nil
	}

	upper, middle, lower := talib.BBands(s.bars.closes, s.BandPeriod, s.BandStdDev, s.BandStdDev, talib.SMA)
	mid := b.Profile().RoundPrice(last(middle))

	if s.pos != nil && !s.pos.IsOpen() {
		s.pos = nil
	}

	if s.pos != nil {
		if (mid-s.pos.Entry)*float64(s.pos.Side) > 0 {
			b.UpdateTarget(s.pos, mid)
		}
		return nil
	}

	rsi := last(talib.Rsi(s.bars.closes, s.RSIPeriod))

	var side sim.Side
	switch {
	case c.Close < last(lower) && rsi < s.RSIOversold:
		side = sim.Long
	case c.Close > last(upper) && rsi > s.RSIOverbought:
		side = sim.Short
	default:
		return nil
	}

	atr := last(talib.Atr(s.bars.highs, s.bars.lows, s.bars.closes, s.ATRPeriod))
	if atr <= 0 {
		return nil
	}

	entry := c.Close
	stop := b.Profile().RoundPrice(entry - float64(side)*s.StopATR*atr)

	s.pos = b.OpenPosition(c.Time, side, entry, stop, mid)
	return nil
}
