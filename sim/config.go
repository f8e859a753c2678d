package sim

import (
	"fmt"
	"time"
)

// Config is the constructor-time configuration of an Engine. Percentages
// are fractions (0.02 == 2%); R values are multiples of initial risk.
type Config struct {
	StartingBalance float64
	PositionSize    float64 // lots per request

	MaxRiskPct        float64 // max money at risk per trade, fraction of balance
	DailyLossLimitPct float64 // daily realized loss that halts new entries; <= 0 disables
	MaxOpenPositions  int

	PartialExitR   float64 // 0 disables partial take-profit
	PartialExitPct float64 // fraction of live size closed at PartialExitR
	BreakevenR     float64 // 0 disables the breakeven move

	// Location decides where calendar days start for the daily breaker.
	Location *time.Location

	// RunID is stamped on journal rows.
	RunID string
}

// DefaultConfig returns a 10,000 balance, one-lot, 2% risk configuration.
func DefaultConfig() Config {
	return Config{
		StartingBalance:   10_000,
		PositionSize:      1,
		MaxRiskPct:        0.02,
		DailyLossLimitPct: 0.05,
		MaxOpenPositions:  1,
		PartialExitR:      0,
		PartialExitPct:    0.5,
		BreakevenR:        0,
		Location:          time.UTC,
	}
}

// Validate reports the first setting outside its allowed range.
func (c Config) Validate() error {
	if c.StartingBalance <= 0 {
		return fmt.Errorf("starting balance must be positive, got %v", c.StartingBalance)
	}
	if c.PositionSize <= 0 {
		return fmt.Errorf("position size must be positive, got %v", c.PositionSize)
	}
	if c.MaxRiskPct <= 0 {
		return fmt.Errorf("max risk pct must be positive, got %v", c.MaxRiskPct)
	}
	if c.DailyLossLimitPct < 0 {
		return fmt.Errorf("daily loss limit pct must not be negative, got %v", c.DailyLossLimitPct)
	}
	if c.MaxOpenPositions < 1 {
		return fmt.Errorf("max open positions must be at least 1, got %d", c.MaxOpenPositions)
	}
	if c.PartialExitR < 0 {
		return fmt.Errorf("partial exit R must not be negative, got %v", c.PartialExitR)
	}
	if c.PartialExitR > 0 && (c.PartialExitPct <= 0 || c.PartialExitPct >= 1) {
		return fmt.Errorf("partial exit pct must be in (0, 1), got %v", c.PartialExitPct)
	}
	if c.BreakevenR < 0 {
		return fmt.Errorf("breakeven R must not be negative, got %v", c.BreakevenR)
	}
	return nil
}
