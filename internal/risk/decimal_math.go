package risk

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	decOne      = decimal.NewFromInt(1)
	decimalEps  = decimal.NewFromFloat(1e-8)
	decimalZero = decimal.Zero
)

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimalZero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}

func decimalLTE(a, b float64) bool { return decFromFloat(a).Cmp(decFromFloat(b)) <= 0 }
func decimalGTE(a, b float64) bool { return decFromFloat(a).Cmp(decFromFloat(b)) >= 0 }
func decimalGT(a, b float64) bool  { return decFromFloat(a).Cmp(decFromFloat(b)) > 0 }

// stopBelow prices a stop pct below the anchor.
func stopBelow(anchor, pct float64) float64 {
	if anchor <= 0 || pct <= 0 {
		return 0
	}
	return decToFloat(decFromFloat(anchor).Mul(decOne.Sub(decFromFloat(pct))))
}

// targetAbove prices a target pct above the anchor.
func targetAbove(anchor, pct float64) float64 {
	if anchor <= 0 || pct <= 0 {
		return 0
	}
	return decToFloat(decFromFloat(anchor).Mul(decOne.Add(decFromFloat(pct))))
}

// shouldRaiseStop allows a stop update only when the candidate is
// strictly above the current stop. Stops never move down.
func shouldRaiseStop(candidate, current float64) bool {
	if candidate <= 0 {
		return false
	}
	if current <= 0 {
		return true
	}
	return decFromFloat(candidate).Cmp(decFromFloat(current).Add(decimalEps)) > 0
}

func priceBreachedStop(price, stop float64) bool {
	if stop <= 0 || price <= 0 {
		return false
	}
	return decimalLTE(price, stop)
}

func priceHitTarget(price, target float64) bool {
	if target <= 0 || price <= 0 {
		return false
	}
	return decimalGTE(price, target)
}
