package strategies

import (
	"context"
	"errors"
	"fmt"

	"github.com/rustyeddy/barsim/market"
	"github.com/rustyeddy/barsim/sim"
)

// OpenOnce opens a single position at the first bar's close the risk gate
// admits, with fixed stop and target distances, and then does nothing.
type OpenOnce struct {
	Side       sim.Side
	StopDist   float64
	TargetDist float64 // 0 leaves the target unset

	pos *sim.Position
}

func NewOpenOnce(p Params) (*OpenOnce, error) {
	if p.Side != sim.Long && p.Side != sim.Short {
		return nil, errors.New("open-once: side must be long or short")
	}
	if p.StopDist <= 0 {
		return nil, fmt.Errorf("open-once: stop distance must be positive, got %v", p.StopDist)
	}
	if p.TargetDist < 0 {
		return nil, fmt.Errorf("open-once: target distance must not be negative, got %v", p.TargetDist)
	}
	return &OpenOnce{Side: p.Side, StopDist: p.StopDist, TargetDist: p.TargetDist}, nil
}

func (s *OpenOnce) Name() string { return "open-once" }
func (s *OpenOnce) Reset()       { s.pos = nil }

// Position returns the position opened, or nil.
func (s *OpenOnce) Position() *sim.Position { return s.pos }

func (s *OpenOnce) OnBar(ctx context.Context, c market.Candle, b Broker) error {
	if s.pos != nil {
		return nil
	}

	sign := float64(s.Side)
	prof := b.Profile()
	entry := c.Close
	stop := prof.RoundPrice(entry - sign*s.StopDist)

	target := 0.0
	if s.TargetDist > 0 {
		target = prof.RoundPrice(entry + sign*s.TargetDist)
	}

	// A rejected request is retried on the next bar.
	s.pos = b.OpenPosition(c.Time, s.Side, entry, stop, target)
	return nil
}
