package risk

import "math"

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// PlannedRisk computes the absolute money lost if the stop is hit.
func PlannedRisk(size, entry, stop, pointValue float64) float64 {
	return abs(entry-stop) * pointValue * size
}

// RR is reward over risk for a planned trade; 0 when there is no risk distance.
func RR(entry, stop, takeProfit float64) float64 {
	risk := abs(entry - stop)
	reward := abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

// RMultiple expresses a price move from entry in units of the initial risk.
// Zero risk distance yields 0.
func RMultiple(side int, entry, originalStop, price float64) float64 {
	risk := abs(entry - originalStop)
	if risk == 0 {
		return 0
	}
	return (price - entry) * float64(side) / risk
}

// TriggerPrice is the price r multiples of initial risk away from entry in the
// favourable direction.
func TriggerPrice(side int, entry, originalStop, r float64) float64 {
	return entry + float64(side)*r*abs(entry-originalStop)
}

func RiskPct(plannedRisk, balance float64) float64 {
	if balance <= 0 {
		return math.Inf(1)
	}
	return plannedRisk / balance
}
