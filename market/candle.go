package market

import (
	"fmt"
	"math"
	"time"
)

// Candle represents OHLC (Open, High, Low, Close) candlestick data
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Validate rejects bars with non-finite prices or whose extremes do not
// contain open and close.
func (c Candle) Validate() error {
	for _, x := range [...]float64{c.Open, c.High, c.Low, c.Close} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("candle %s: non-finite price %v", c.Time.Format(time.RFC3339), x)
		}
	}
	if c.High < c.Low {
		return fmt.Errorf("candle %s: high %v below low %v", c.Time.Format(time.RFC3339), c.High, c.Low)
	}
	if c.Open > c.High || c.Open < c.Low || c.Close > c.High || c.Close < c.Low {
		return fmt.Errorf("candle %s: open/close outside high/low", c.Time.Format(time.RFC3339))
	}
	return nil
}
