// journal/journal.go
package journal

import "time"

// TradeRecord is the persisted form of one fully closed position.
type TradeRecord struct {
	RunID      string
	TradeID    string
	Instrument string
	Side       string // "long" or "short"
	Size       float64
	EntryPrice float64
	StopPrice  float64 // original stop
	TakePrice  float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time
	RealizedPL float64
	RMultiple  float64
	Partials   int
	Reason     string
}

// EquitySnapshot is one equity curve sample.
type EquitySnapshot struct {
	RunID         string
	Time          time.Time
	Balance       float64
	Equity        float64
	OpenPositions int
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Discard is a Journal that drops everything.
var Discard Journal = discard{}

type discard struct{}

func (discard) RecordTrade(TradeRecord) error     { return nil }
func (discard) RecordEquity(EquitySnapshot) error { return nil }
func (discard) Close() error                      { return nil }
