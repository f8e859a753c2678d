package risk

import (
	"fmt"
	"math"
)

const (
	CodeTooManyOpen = "TOO_MANY_OPEN_POSITIONS"
	CodeDailyLoss   = "DAILY_LOSS_LIMIT"
	CodeRiskTooHigh = "RISK_TOO_HIGH"
	CodeBadPrice    = "INVALID_PRICE"
)

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	PlannedRisk    float64
	PlannedRiskPct float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Codes returns the violation codes in evaluation order.
func (d Decision) Codes() []string {
	out := make([]string, 0, len(d.Violations))
	for _, v := range d.Violations {
		out = append(out, v.Code)
	}
	return out
}

// Evaluate decides whether intent may be opened. It has no side effects.
func Evaluate(p Policy, intent TradeIntent, acct AccountSnapshot) Decision {
	d := Decision{Allowed: true}

	d.PlannedRisk = PlannedRisk(intent.Size, intent.Entry, intent.Stop, intent.PointValue)
	d.PlannedRiskPct = RiskPct(d.PlannedRisk, acct.Balance)

	// Exposure constraints
	if p.MaxOpenPositions > 0 && acct.OpenPositions >= p.MaxOpenPositions {
		d.add(CodeTooManyOpen,
			fmt.Sprintf("open positions %d >= max %d", acct.OpenPositions, p.MaxOpenPositions))
	}

	// Circuit breaker
	if acct.DailyHalted {
		d.add(CodeDailyLoss, "daily loss limit reached")
	}

	if !finite(intent.Entry) || !finite(intent.Stop) {
		d.add(CodeBadPrice, fmt.Sprintf("entry %v / stop %v must be finite", intent.Entry, intent.Stop))
	}

	// Negated so that a NaN risk is rejected.
	if !(d.PlannedRiskPct <= p.MaxRiskPct) {
		d.add(CodeRiskTooHigh,
			fmt.Sprintf("planned risk %.2f%% exceeds max %.2f%%",
				100*d.PlannedRiskPct, 100*p.MaxRiskPct))
	}

	return d
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
