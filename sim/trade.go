package sim

import (
	"time"

	"github.com/rustyeddy/barsim/journal"
)

// TradeResult is the immutable record of a fully closed position.
type TradeResult struct {
	ID           string
	OpenTime     time.Time
	CloseTime    time.Time
	Side         Side
	Entry        float64
	OriginalStop float64
	Target       float64
	ClosePrice   float64
	Outcome      Outcome
	PL           float64 // partial + final contributions
	R            float64
	Size         float64 // size at open
	Partials     int
}

// Record converts the result to its journal form.
func (t TradeResult) Record(runID, instrument string) journal.TradeRecord {
	return journal.TradeRecord{
		RunID:      runID,
		TradeID:    t.ID,
		Instrument: instrument,
		Side:       t.Side.String(),
		Size:       t.Size,
		EntryPrice: t.Entry,
		StopPrice:  t.OriginalStop,
		TakePrice:  t.Target,
		ExitPrice:  t.ClosePrice,
		OpenTime:   t.OpenTime,
		CloseTime:  t.CloseTime,
		RealizedPL: t.PL,
		RMultiple:  t.R,
		Partials:   t.Partials,
		Reason:     string(t.Outcome),
	}
}

// EquitySample is one point of the equity curve.
type EquitySample struct {
	Time          time.Time
	Balance       float64
	Equity        float64
	OpenPositions int
}

func (s EquitySample) Snapshot(runID string) journal.EquitySnapshot {
	return journal.EquitySnapshot{
		RunID:         runID,
		Time:          s.Time,
		Balance:       s.Balance,
		Equity:        s.Equity,
		OpenPositions: s.OpenPositions,
	}
}
