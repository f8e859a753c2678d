// Package stats reduces a run's closed trades and equity curve to summary numbers.
package stats

import (
	"math"
	"time"

	"github.com/rustyeddy/barsim/sim"
)

// Summary is the performance report of one backtest run.
type Summary struct {
	Trades  int
	Wins    int
	Losses  int
	WinRate float64 // percent

	TotalPL float64
	AvgPL   float64

	AvgWinR     float64
	AvgLossR    float64
	ExpectancyR float64

	BestTrade  float64
	WorstTrade float64

	GrossProfit  float64
	GrossLoss    float64 // positive magnitude
	ProfitFactor float64

	MaxDrawdownPct       float64 // peak-to-trough of sample balances
	MaxEquityDrawdownPct float64 // same, over marked equity

	TradesPerMonth float64
}

// Summarize computes a Summary. It never divides by zero: with no trades
// every trade field is zero.
func Summarize(trades []sim.TradeResult, equity []sim.EquitySample) Summary {
	var s Summary

	s.MaxDrawdownPct = maxDrawdown(equity, func(e sim.EquitySample) float64 { return e.Balance })
	s.MaxEquityDrawdownPct = maxDrawdown(equity, func(e sim.EquitySample) float64 { return e.Equity })

	if len(trades) == 0 {
		return s
	}

	var (
		winR, lossR, sumR float64
		first, last       time.Time
	)

	s.Trades = len(trades)
	s.BestTrade = math.Inf(-1)
	s.WorstTrade = math.Inf(1)

	for _, t := range trades {
		s.TotalPL += t.PL
		sumR += t.R

		switch {
		case t.PL > 0:
			s.Wins++
			s.GrossProfit += t.PL
			winR += t.R
		case t.PL < 0:
			s.Losses++
			s.GrossLoss -= t.PL
			lossR += t.R
		}

		s.BestTrade = math.Max(s.BestTrade, t.PL)
		s.WorstTrade = math.Min(s.WorstTrade, t.PL)

		if first.IsZero() || t.OpenTime.Before(first) {
			first = t.OpenTime
		}
		if t.CloseTime.After(last) {
			last = t.CloseTime
		}
	}

	n := float64(s.Trades)
	s.WinRate = float64(s.Wins) / n * 100
	s.AvgPL = s.TotalPL / n
	s.ExpectancyR = sumR / n
	if s.Wins > 0 {
		s.AvgWinR = winR / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLossR = lossR / float64(s.Losses)
	}

	switch {
	case s.GrossLoss > 0:
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	case s.GrossProfit > 0:
		s.ProfitFactor = math.Inf(1)
	}

	s.TradesPerMonth = n
	if days := last.Sub(first).Hours() / 24; days > 0 {
		s.TradesPerMonth = n / (days / 30)
	}

	return s
}

func maxDrawdown(equity []sim.EquitySample, value func(sim.EquitySample) float64) float64 {
	var peak, dd float64
	for i, e := range equity {
		v := value(e)
		if i == 0 || v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if d := (peak - v) / peak * 100; d > dd {
			dd = d
		}
	}
	return dd
}

// Map flattens the summary into the key/value form reporting code consumes.
func (s Summary) Map() map[string]float64 {
	return map[string]float64{
		"trades":                  float64(s.Trades),
		"wins":                    float64(s.Wins),
		"losses":                  float64(s.Losses),
		"win_rate_pct":            s.WinRate,
		"total_pl":                s.TotalPL,
		"avg_pl":                  s.AvgPL,
		"avg_win_r":               s.AvgWinR,
		"avg_loss_r":              s.AvgLossR,
		"expectancy_r":            s.ExpectancyR,
		"best_trade":              s.BestTrade,
		"worst_trade":             s.WorstTrade,
		"gross_profit":            s.GrossProfit,
		"gross_loss":              s.GrossLoss,
		"profit_factor":           s.ProfitFactor,
		"max_drawdown_pct":        s.MaxDrawdownPct,
		"max_equity_drawdown_pct": s.MaxEquityDrawdownPct,
		"trades_per_month":        s.TradesPerMonth,
	}
}
