package report

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/barsim/journal"
	"github.com/rustyeddy/barsim/market"
	"github.com/rustyeddy/barsim/sim"
	"github.com/rustyeddy/barsim/stats"
)

func TestFixed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		x      float64
		places int32
		want   string
	}{
		{1.005, 2, "1.01"},
		{-2.5, 0, "-3"},
		{12, 2, "12.00"},
		{math.Inf(1), 2, "inf"},
		{math.Inf(-1), 2, "-inf"},
		{math.NaN(), 2, "nan"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fixed(tt.x, tt.places), "%v", tt.x)
	}
}

func TestPrintSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	PrintSummary(&buf, stats.Summary{Trades: 3, Wins: 2, Losses: 1, WinRate: 200.0 / 3, ProfitFactor: math.Inf(1)})

	out := buf.String()
	assert.Contains(t, out, "Trade Statistics")
	assert.Contains(t, out, "66.67%")
	assert.Regexp(t, `Profit Factor:\s+inf`, out)
	assert.Regexp(t, `Trades:\s+3`, out)
}

func TestPrintTrades(t *testing.T) {
	t.Parallel()

	prof, err := market.Lookup("EUR_USD")
	assert.NoError(t, err)

	open := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	trades := []sim.TradeResult{
		{
			OpenTime: open, CloseTime: open.Add(time.Hour), Side: sim.Long,
			Entry: 1.085, OriginalStop: 1.083, Target: 1.089, ClosePrice: 1.089,
			Outcome: sim.TakeProfit, PL: 40, R: 2,
		},
		{
			OpenTime: open, CloseTime: open.Add(2 * time.Hour), Side: sim.Short,
			Entry: 1.085, OriginalStop: 1.087, ClosePrice: 1.0861,
			Outcome: sim.ForcedClose, PL: -11, R: -0.55,
		},
	}

	var buf bytes.Buffer
	PrintTrades(&buf, trades, prof)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[1], "1.08500")
	assert.Contains(t, lines[1], "take_profit")
	assert.Contains(t, lines[1], "40.00")
	assert.Contains(t, lines[2], "short")
	assert.Contains(t, lines[2], " - ")
	assert.Contains(t, lines[2], "-0.55")
}

func TestPrintBacktestRun(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	PrintBacktestRun(&buf, journal.BacktestRun{
		RunID:        "RUN1",
		Strategy:     "ema-cross",
		Instrument:   "EUR_USD",
		StartBalance: 10_000,
		EndBalance:   10_250.5,
		NetPL:        250.5,
		ReturnPct:    2.505,
		ProfitFactor: 1.8,
		Notes:        []string{"profit factor below 1"},
	})

	out := buf.String()
	assert.Contains(t, out, "Run ID:        RUN1")
	assert.Contains(t, out, "Net P/L:       250.50")
	assert.Contains(t, out, "Return:        2.51%")
	assert.Contains(t, out, "Profit Factor: 1.80")
	assert.NotContains(t, out, "Max Drawdown")
	assert.Contains(t, out, "- profit factor below 1")
}
