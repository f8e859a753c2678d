// market/instruments.go
package market

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownInstrument is returned by Lookup for symbols that are not in the table.
var ErrUnknownInstrument = errors.New("unknown instrument")

// Profile holds the static per-symbol constants the engine needs for money math.
//
// PipValue is the account-currency value of a one pip move for one lot.
// Precision is the number of decimals prices are displayed with.
type Profile struct {
	Symbol    string
	PipSize   float64
	PipValue  float64
	Precision int
}

// PointValue is the money made or lost per 1.0 price move per lot.
func (p Profile) PointValue() float64 {
	return p.PipValue / p.PipSize
}

// Pips converts a price distance into pips.
func (p Profile) Pips(distance float64) float64 {
	return distance / p.PipSize
}

func (p Profile) Validate() error {
	if p.PipSize <= 0 {
		return fmt.Errorf("instrument %q: pip size must be positive", p.Symbol)
	}
	if p.PipValue <= 0 {
		return fmt.Errorf("instrument %q: pip value must be positive", p.Symbol)
	}
	if p.Precision < 0 {
		return fmt.Errorf("instrument %q: precision must not be negative", p.Symbol)
	}
	return nil
}

var instruments = map[string]Profile{
	"EUR_USD": {Symbol: "EUR_USD", PipSize: 0.0001, PipValue: 10, Precision: 5},
	"GBP_USD": {Symbol: "GBP_USD", PipSize: 0.0001, PipValue: 10, Precision: 5},
	"AUD_USD": {Symbol: "AUD_USD", PipSize: 0.0001, PipValue: 10, Precision: 5},
	"USD_JPY": {Symbol: "USD_JPY", PipSize: 0.01, PipValue: 6.5, Precision: 3},
	"XAU_USD": {Symbol: "XAU_USD", PipSize: 0.01, PipValue: 1, Precision: 2},
	"US30":    {Symbol: "US30", PipSize: 1, PipValue: 1, Precision: 1},
	"BTC_USD": {Symbol: "BTC_USD", PipSize: 1, PipValue: 1, Precision: 2},
}

// Lookup returns the profile for symbol. "EUR/USD" and "eurusd"-style
// spellings of a known pair are accepted.
func Lookup(symbol string) (Profile, error) {
	key := normalizeSymbol(symbol)
	p, ok := instruments[key]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownInstrument, symbol)
	}
	return p, nil
}

// Symbols lists the known instruments in sorted order.
func Symbols() []string {
	out := make([]string, 0, len(instruments))
	for k := range instruments {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "/", "_")
	if _, ok := instruments[s]; ok {
		return s
	}
	// EURUSD -> EUR_USD
	if len(s) == 6 && !strings.Contains(s, "_") {
		return s[:3] + "_" + s[3:]
	}
	return s
}
