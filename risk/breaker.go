package risk

import "time"

// DailyBreaker accumulates realized P&L for the current calendar day and
// trips once the day's loss exceeds a fraction of balance. It stays tripped
// until the day rolls over.
type DailyBreaker struct {
	LimitPct float64 // <= 0 disables

	day      time.Time
	realized float64
	halted   bool
}

// Roll starts a new day when t falls on a different calendar day (in t's
// location) than the previous call. It reports whether a reset happened.
func (b *DailyBreaker) Roll(t time.Time) bool {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	if day.Equal(b.day) {
		return false
	}
	b.day = day
	b.realized = 0
	b.halted = false
	return true
}

func (b *DailyBreaker) Add(pl float64) { b.realized += pl }

// Check trips the breaker when today's loss is larger than LimitPct of balance.
func (b *DailyBreaker) Check(balance float64) bool {
	if b.LimitPct <= 0 || b.halted {
		return b.halted
	}
	if b.realized < 0 && -b.realized > b.LimitPct*balance {
		b.halted = true
	}
	return b.halted
}

func (b *DailyBreaker) Halted() bool      { return b.halted }
func (b *DailyBreaker) Realized() float64 { return b.realized }
func (b *DailyBreaker) Day() time.Time    { return b.day }
