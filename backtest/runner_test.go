package backtest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/barsim/journal"
	"github.com/rustyeddy/barsim/market"
	"github.com/rustyeddy/barsim/sim"
	"github.com/rustyeddy/barsim/strategies"
)

var unit = market.Profile{Symbol: "TEST", PipSize: 1, PipValue: 1, Precision: 2}

var day1 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// trackingFeed is an in-memory feed that remembers being closed.
type trackingFeed struct {
	market.SliceFeed
	closed bool
}

func newFeed(cs ...market.Candle) *trackingFeed {
	return &trackingFeed{SliceFeed: market.SliceFeed{Candles: cs}}
}

func (f *trackingFeed) Close() error {
	f.closed = true
	return nil
}

type errorFeed struct{}

func (errorFeed) Next() (market.Candle, bool, error) {
	return market.Candle{}, false, errors.New("mock error")
}
func (errorFeed) Close() error { return nil }

// recordingStrategy remembers the bars it saw.
type recordingStrategy struct {
	seen []time.Time
	err  error
}

func (s *recordingStrategy) Name() string { return "recording" }
func (s *recordingStrategy) Reset()       { s.seen = nil }
func (s *recordingStrategy) OnBar(ctx context.Context, c market.Candle, b strategies.Broker) error {
	s.seen = append(s.seen, c.Time)
	return s.err
}

func candle(t time.Time, o, h, l, c float64) market.Candle {
	return market.Candle{Time: t, Open: o, High: h, Low: l, Close: c}
}

func newEngine(t *testing.T, balance float64, j journal.Journal) *sim.Engine {
	t.Helper()

	cfg := sim.DefaultConfig()
	cfg.StartingBalance = balance
	cfg.RunID = "RUN1"
	e, err := sim.NewEngine(unit, cfg, j)
	require.NoError(t, err)
	return e
}

func openOnce(t *testing.T, stop, target float64) *strategies.OpenOnce {
	t.Helper()

	s, err := strategies.NewOpenOnce(strategies.Params{Side: sim.Long, StopDist: stop, TargetDist: target})
	require.NoError(t, err)
	return s
}

func TestRunnerValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := newEngine(t, 10_000, nil)

	_, err := (&Runner{Feed: newFeed(), Strategy: strategies.Noop{}}).Run(ctx)
	assert.EqualError(t, err, "backtest: Engine is required")

	_, err = (&Runner{Engine: e, Strategy: strategies.Noop{}}).Run(ctx)
	assert.EqualError(t, err, "backtest: Feed is required")

	_, err = (&Runner{Engine: e, Feed: newFeed()}).Run(ctx)
	assert.EqualError(t, err, "backtest: Strategy is required")

	_, err = (&Runner{
		Engine:   e,
		Feed:     newFeed(),
		Strategy: strategies.Noop{},
		Options:  RunnerOptions{SessionClose: "25:99"},
	}).Run(ctx)
	assert.ErrorContains(t, err, "want HH:MM")
}

func TestRunnerSuccess(t *testing.T) {
	t.Parallel()

	bars := []market.Candle{
		candle(day1.Add(9*time.Hour), 100, 101, 99, 100),
		candle(day1.Add(10*time.Hour), 100, 102, 99, 101),
		candle(day1.Add(11*time.Hour), 101, 103, 100, 102),
	}
	feed := newFeed(bars...)
	strat := &recordingStrategy{}

	r := &Runner{Engine: newEngine(t, 10_000, nil), Feed: feed, Strategy: strat}
	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, feed.closed, "expected feed to be closed")
	assert.Len(t, strat.seen, len(bars))
	assert.Equal(t, 3, res.Bars)
	assert.Equal(t, bars[0].Time, res.Start)
	assert.Equal(t, bars[2].Time, res.End)
	assert.Len(t, res.Equity, 3)
	assert.Empty(t, res.Trades)
	assert.Equal(t, 10_000.0, res.StartBalance)
	assert.Equal(t, 10_000.0, res.Balance)
}

func TestRunnerErrors(t *testing.T) {
	t.Parallel()

	_, err := (&Runner{
		Engine:   newEngine(t, 10_000, nil),
		Feed:     errorFeed{},
		Strategy: strategies.Noop{},
	}).Run(context.Background())
	assert.ErrorContains(t, err, "mock error")

	strat := &recordingStrategy{err: errors.New("strategy error")}
	_, err = (&Runner{
		Engine:   newEngine(t, 10_000, nil),
		Feed:     newFeed(candle(day1, 1, 1, 1, 1)),
		Strategy: strat,
	}).Run(context.Background())
	assert.ErrorContains(t, err, "strategy error")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = (&Runner{
		Engine:   newEngine(t, 10_000, nil),
		Feed:     newFeed(candle(day1, 1, 1, 1, 1)),
		Strategy: strategies.Noop{},
	}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunnerStopLossFromCSV(t *testing.T) {
	t.Parallel()

	csv := "time,open,high,low,close\n" +
		"2024-01-02T09:00:00Z,100,100,100,100\n" +
		"2024-01-02T10:00:00Z,100,101,96,97\n" +
		"2024-01-02T11:00:00Z,97,97,94,95\n"
	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	feed, err := market.NewCSVCandleFeed(path, time.Time{}, time.Time{})
	require.NoError(t, err)

	e := newEngine(t, 500, nil)
	r := &Runner{Engine: e, Feed: feed, Strategy: openOnce(t, 5, 15)}

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	assert.Equal(t, sim.StopLoss, tr.Outcome)
	assert.Equal(t, 95.0, tr.ClosePrice)
	assert.InDelta(t, -5.0, tr.PL, 1e-9)
	assert.InDelta(t, -1.0, tr.R, 1e-9)
	assert.InDelta(t, 495.0, res.Balance, 1e-9)
	assert.Equal(t, 1, res.Summary.Losses)
	assert.Zero(t, res.Open)
}

func TestRunnerCloseEnd(t *testing.T) {
	t.Parallel()

	bars := []market.Candle{
		candle(day1.Add(9*time.Hour), 100, 100, 100, 100),
		candle(day1.Add(10*time.Hour), 100, 103, 100, 102),
	}

	res, err := (&Runner{
		Engine:   newEngine(t, 10_000, nil),
		Feed:     newFeed(bars...),
		Strategy: openOnce(t, 5, 0),
		Options:  RunnerOptions{CloseEnd: true},
	}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, sim.ForcedClose, res.Trades[0].Outcome)
	assert.Equal(t, bars[1].Time, res.Trades[0].CloseTime)
	assert.InDelta(t, 2.0, res.Trades[0].PL, 1e-9)
	assert.Zero(t, res.Open)

	// Without CloseEnd the position stays open.
	res, err = (&Runner{
		Engine:   newEngine(t, 10_000, nil),
		Feed:     newFeed(bars...),
		Strategy: openOnce(t, 5, 0),
	}).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Equal(t, 1, res.Open)
	assert.Contains(t, res.Run(RunInfo{RunID: "X"}).Notes, "positions were still open at the end of data")
}

func TestRunnerCloseEndDrawdown(t *testing.T) {
	t.Parallel()

	cfg := sim.DefaultConfig()
	cfg.StartingBalance = 500
	cfg.MaxRiskPct = 0.05
	cfg.RunID = "RUN1"
	engine, err := sim.NewEngine(unit, cfg, nil)
	require.NoError(t, err)

	// Long at 100 with the stop at 80, still open when the data ends at 85.
	bars := []market.Candle{
		candle(day1.Add(9*time.Hour), 100, 100, 100, 100),
		candle(day1.Add(10*time.Hour), 100, 100, 85, 85),
	}

	res, err := (&Runner{
		Engine:   engine,
		Feed:     newFeed(bars...),
		Strategy: openOnce(t, 20, 0),
		Options:  RunnerOptions{CloseEnd: true},
	}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, sim.ForcedClose, res.Trades[0].Outcome)
	assert.InDelta(t, -15.0, res.Trades[0].PL, 1e-9)
	assert.InDelta(t, 485.0, res.Balance, 1e-9)

	// Every equity sample was taken at balance 500.
	for _, s := range res.Equity {
		assert.Equal(t, 500.0, s.Balance)
	}
	assert.InDelta(t, 3.0, engine.MaxDrawdownPct(), 1e-9)
	assert.InDelta(t, 3.0, res.Summary.MaxDrawdownPct, 1e-9)
	assert.InDelta(t, 3.0, res.Run(RunInfo{RunID: "X"}).MaxDDPct, 1e-9)
}

func TestRunnerSessionClose(t *testing.T) {
	t.Parallel()

	bars := []market.Candle{
		candle(day1.Add(15*time.Hour), 100, 100, 100, 100),
		candle(day1.Add(16*time.Hour), 100, 102, 99, 101),
		candle(day1.Add(17*time.Hour), 101, 102, 100, 101),
		candle(day1.Add(33*time.Hour), 101, 102, 100, 101),
	}
	strat := &recordingStrategy{}

	e := newEngine(t, 10_000, nil)
	require.NotNil(t, e.OpenPosition(day1, sim.Long, 100, 95, 0))

	res, err := (&Runner{
		Engine:   e,
		Feed:     newFeed(bars...),
		Strategy: strat,
		Options:  RunnerOptions{SessionClose: "16:00"},
	}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, sim.SessionClose, res.Trades[0].Outcome)
	assert.Equal(t, 101.0, res.Trades[0].ClosePrice)
	assert.Equal(t, bars[1].Time, res.Trades[0].CloseTime)

	// The strategy sits out from the session close to the next day.
	assert.Equal(t, []time.Time{bars[0].Time, bars[3].Time}, strat.seen)
}

func TestRunnerJournalsToSQLite(t *testing.T) {
	t.Parallel()

	j, err := journal.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	bars := []market.Candle{
		candle(day1.Add(9*time.Hour), 100, 100, 100, 100),
		candle(day1.Add(10*time.Hour), 100, 111, 100, 110),
	}

	res, err := (&Runner{
		Engine:   newEngine(t, 10_000, j),
		Feed:     newFeed(bars...),
		Strategy: openOnce(t, 5, 10),
	}).Run(context.Background())
	require.NoError(t, err)

	trades, err := j.ListTradesByRun("RUN1")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "take_profit", trades[0].Reason)
	assert.InDelta(t, 10.0, trades[0].RealizedPL, 1e-9)

	eq, err := j.ListEquityByRun("RUN1")
	require.NoError(t, err)
	assert.Len(t, eq, 2)

	run := res.Run(RunInfo{RunID: "RUN1", Dataset: "bars.csv", Instrument: "TEST", Strategy: "open-once"})
	assert.InDelta(t, 10.0, run.NetPL, 1e-9)
	assert.InDelta(t, 0.1, run.ReturnPct, 1e-9)
	assert.Equal(t, 1, run.Wins)
	assert.Contains(t, run.Notes, "no losing trades")
	require.NoError(t, j.RecordBacktest(run))

	got, err := j.GetBacktestRun("RUN1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Trades)
	assert.Equal(t, "open-once", got.Strategy)
}

func TestResultRunEmpty(t *testing.T) {
	t.Parallel()

	run := Result{}.Run(RunInfo{RunID: "EMPTY"})
	assert.Equal(t, "EMPTY", run.RunID)
	assert.Zero(t, run.ReturnPct)
	assert.Equal(t, []string{"no bars in the selected range"}, run.Notes)
}
