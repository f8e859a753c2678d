package strategies

import (
	"context"

	"github.com/rustyeddy/barsim/market"
)

// Noop does nothing. Useful for replaying data through the engine.
type Noop struct{}

func (Noop) Name() string { return "noop" }
func (Noop) Reset()       {}

func (Noop) OnBar(ctx context.Context, c market.Candle, b Broker) error {
	_ = ctx
	_ = c
	_ = b
	return nil
}
