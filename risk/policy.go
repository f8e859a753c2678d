package risk

// Policy holds the admission limits for new positions. Percentages are
// fractions of current balance (0.02 == 2%).
type Policy struct {
	// Risk limits
	MaxRiskPct float64 // 0.02

	// Circuit breakers
	DailyLossLimitPct float64 // 0.05, <= 0 disables

	// Exposure limits
	MaxOpenPositions int // 1
}

// TradeIntent describes a requested position.
type TradeIntent struct {
	Entry      float64
	Stop       float64
	Size       float64 // lots
	PointValue float64 // money per 1.0 price move per lot
}

// AccountSnapshot is the engine state the gate evaluates against.
type AccountSnapshot struct {
	Balance       float64
	OpenPositions int
	DailyHalted   bool
}
