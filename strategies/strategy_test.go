package strategies

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/barsim/market"
	"github.com/rustyeddy/barsim/sim"
)

var unit = market.Profile{Symbol: "TEST", PipSize: 1, PipValue: 1, Precision: 2}

var t0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) *sim.Engine {
	t.Helper()

	e, err := sim.NewEngine(unit, sim.DefaultConfig(), nil)
	require.NoError(t, err)
	return e
}

// closes builds one bar per close, each one point tall, an hour apart.
func closes(start int, xs ...float64) []market.Candle {
	out := make([]market.Candle, len(xs))
	for i, x := range xs {
		out[i] = market.Candle{
			Time:  t0.Add(time.Duration(start+i) * time.Hour),
			Open:  x,
			High:  x + 0.5,
			Low:   x - 0.5,
			Close: x,
		}
	}
	return out
}

func flat(n int, x float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = x
	}
	return out
}

func alternating(n int, a, b float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = a
		} else {
			out[i] = b
		}
	}
	return out
}

func drive(t *testing.T, e *sim.Engine, s Strategy, bars []market.Candle) {
	t.Helper()

	ctx := context.Background()
	for _, c := range bars {
		require.NoError(t, e.ProcessBar(c))
		require.NoError(t, s.OnBar(ctx, c, e))
	}
}

func TestByName(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.StopDist = 1

	for _, name := range Names() {
		s, err := ByName(name, p)
		require.NoError(t, err, name)
		assert.Equal(t, name, s.Name())
	}

	s, err := ByName("  EMACross ", p)
	require.NoError(t, err)
	assert.IsType(t, &EMACross{}, s)

	_, err = ByName("martingale", p)
	assert.ErrorContains(t, err, "unknown strategy")
}

func TestParamValidation(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	_, err := NewOpenOnce(p)
	assert.Error(t, err, "stop distance required")

	p = DefaultParams()
	p.Fast, p.Slow = 30, 10
	_, err = NewEMACross(p)
	assert.Error(t, err)

	p = DefaultParams()
	p.MinADX = 20
	_, err = NewEMACross(p)
	assert.Error(t, err, "adx period required with min adx")

	p = DefaultParams()
	p.RSIOversold, p.RSIOverbought = 80, 20
	_, err = NewBandReversion(p)
	assert.Error(t, err)
}

func TestCrossed(t *testing.T) {
	t.Parallel()

	assert.True(t, crossedAbove([]float64{1, 3}, []float64{2, 2}))
	assert.True(t, crossedAbove([]float64{2, 3}, []float64{2, 2}))
	assert.False(t, crossedAbove([]float64{3, 4}, []float64{2, 2}))
	assert.False(t, crossedAbove([]float64{3}, []float64{2}))
	assert.True(t, crossedBelow([]float64{3, 1}, []float64{2, 2}))
	assert.False(t, crossedBelow([]float64{2, 2}, []float64{2, 2}))
}

func TestSeriesIsBounded(t *testing.T) {
	t.Parallel()

	var s series
	for i := 0; i < maxBars+10; i++ {
		s.push(market.Candle{High: float64(i), Low: float64(i), Close: float64(i)})
	}
	assert.Equal(t, maxBars, s.len())
	assert.Equal(t, float64(10), s.closes[0])
	assert.Len(t, s.highs, maxBars)
	assert.Len(t, s.lows, maxBars)
}

func TestNoop(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	drive(t, e, Noop{}, closes(0, 100, 101, 102))
	assert.Empty(t, e.OpenPositions())
	assert.Len(t, e.Equity(), 3)
}

func TestOpenOnce(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	s, err := NewOpenOnce(Params{Side: sim.Short, StopDist: 2, TargetDist: 4})
	require.NoError(t, err)

	drive(t, e, s, closes(0, 100, 101))

	open := e.OpenPositions()
	require.Len(t, open, 1)
	p := open[0]
	assert.Same(t, p, s.Position())
	assert.Equal(t, sim.Short, p.Side)
	assert.Equal(t, 100.0, p.Entry)
	assert.Equal(t, 102.0, p.Stop)
	assert.Equal(t, 96.0, p.Target)
	assert.Equal(t, t0, p.OpenTime)

	s.Reset()
	assert.Nil(t, s.Position())
}

func TestOpenOnceRetriesAfterRejection(t *testing.T) {
	t.Parallel()

	cfg := sim.DefaultConfig()
	cfg.StartingBalance = 100
	e, err := sim.NewEngine(unit, cfg, nil)
	require.NoError(t, err)

	// 5 points on 100 is over the 2% gate.
	s, err := NewOpenOnce(Params{Side: sim.Long, StopDist: 5})
	require.NoError(t, err)

	drive(t, e, s, closes(0, 100, 100))
	assert.Nil(t, s.Position())
	assert.Empty(t, e.OpenPositions())

	s.StopDist = 1
	drive(t, e, s, closes(2, 100))
	require.NotNil(t, s.Position())
	assert.Zero(t, s.Position().Target)
}

func emaParams() Params {
	p := DefaultParams()
	p.Fast = 3
	p.Slow = 5
	p.ATRPeriod = 3
	p.StopATR = 1.5
	p.RR = 2
	return p
}

func TestEMACrossEntersOnCross(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	s, err := NewEMACross(emaParams())
	require.NoError(t, err)

	drive(t, e, s, closes(0, flat(10, 100)...))
	assert.Empty(t, e.OpenPositions(), "no cross on a flat series")

	drive(t, e, s, closes(10, 110))
	open := e.OpenPositions()
	require.Len(t, open, 1)
	p := open[0]
	assert.Equal(t, sim.Long, p.Side)
	assert.Equal(t, 110.0, p.Entry)

	// ATR(3) = (1 + 1 + 10.5) / 3 after the jump.
	assert.InDelta(t, 103.75, p.Stop, 1e-9)
	assert.InDelta(t, 122.5, p.Target, 1e-9)

	// The drop stops the long out first, then the bear cross goes short.
	drive(t, e, s, closes(11, 90))
	trades := e.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, sim.StopLoss, trades[0].Outcome)

	open = e.OpenPositions()
	require.Len(t, open, 1)
	assert.Equal(t, sim.Short, open[0].Side)
	assert.Equal(t, 90.0, open[0].Entry)
	assert.InDelta(t, 104.42, open[0].Stop, 0.006)
}

func TestEMACrossReversesOnOppositeCross(t *testing.T) {
	t.Parallel()

	p := emaParams()
	p.StopATR = 5

	e := newEngine(t)
	s, err := NewEMACross(p)
	require.NoError(t, err)

	drive(t, e, s, closes(0, append(flat(10, 100), 110, 90)...))

	trades := e.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, sim.ForcedClose, trades[0].Outcome)
	assert.Equal(t, 90.0, trades[0].ClosePrice)
	assert.InDelta(t, -20.0, trades[0].PL, 1e-9)

	open := e.OpenPositions()
	require.Len(t, open, 1)
	assert.Equal(t, sim.Short, open[0].Side)

	s.Reset()
	assert.Zero(t, s.bars.len())
	assert.Nil(t, s.pos)
}

func TestEMACrossADXFilter(t *testing.T) {
	t.Parallel()

	p := emaParams()
	p.ADXPeriod = 3
	p.MinADX = 101 // unreachable

	e := newEngine(t)
	s, err := NewEMACross(p)
	require.NoError(t, err)

	drive(t, e, s, closes(0, append(flat(10, 100), 110)...))
	assert.Empty(t, e.OpenPositions())
}

func bandParams() Params {
	p := DefaultParams()
	p.BandPeriod = 10
	p.BandStdDev = 2
	p.RSIPeriod = 5
	p.ATRPeriod = 5
	p.StopATR = 1.5
	return p
}

func TestBandReversionLongTrailsMiddle(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	s, err := NewBandReversion(bandParams())
	require.NoError(t, err)

	drive(t, e, s, closes(0, alternating(20, 100, 101)...))
	assert.Empty(t, e.OpenPositions())

	drive(t, e, s, closes(20, 90))
	open := e.OpenPositions()
	require.Len(t, open, 1)
	p := open[0]
	assert.Equal(t, sim.Long, p.Side)
	assert.Equal(t, 90.0, p.Entry)
	assert.InDelta(t, 99.5, p.Target, 1e-9, "middle band")
	assert.InDelta(t, 84.75, p.Stop, 1e-9)

	drive(t, e, s, closes(21, 92))
	assert.True(t, p.IsOpen())
	assert.InDelta(t, 98.6, p.Target, 1e-9, "target follows the middle band")
	assert.Equal(t, 84.75, p.Stop, "stop is untouched")
}

func TestBandReversionShort(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	s, err := NewBandReversion(bandParams())
	require.NoError(t, err)

	drive(t, e, s, closes(0, append(alternating(20, 100, 101), 112)...))

	open := e.OpenPositions()
	require.Len(t, open, 1)
	assert.Equal(t, sim.Short, open[0].Side)
	assert.InDelta(t, 101.7, open[0].Target, 1e-9)
	assert.Greater(t, open[0].Stop, 112.0)
}
