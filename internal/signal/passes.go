package signal

import (
	"fmt"

	"stockpilot/internal/market"
)

// Indicator thresholds shared by the two scan passes.
const (
	rsiOversold       = 40
	rsiOverbought     = 70
	liquidityFloor    = 1_000_000
	strongMovePct     = 2.0
	volatilitySpike   = 0.04
	strongMoveWeight  = 2.0
	defaultSignWeight = 1.0
)

// passResult is the partial verdict of one scan pass.
type passResult struct {
	score       float64
	notes       []string
	unavailable []string
}

// opportunityPass scans for positive signals and sums their weights.
// Signals that cannot be computed contribute zero and are recorded.
func opportunityPass(snap market.Snapshot, ind market.Indicators) passResult {
	var r passResult

	switch {
	case snap.ChangePct > strongMovePct:
		r.score += strongMoveWeight
		r.notes = append(r.notes, fmt.Sprintf("price up %.2f%% on the session", snap.ChangePct))
	case snap.ChangePct > 0:
		r.score += defaultSignWeight
		r.notes = append(r.notes, fmt.Sprintf("price up %.2f%% on the session", snap.ChangePct))
	}

	if ind.HasRSI {
		if ind.RSI < rsiOversold {
			r.score += defaultSignWeight
			r.notes = append(r.notes, fmt.Sprintf("RSI %.1f in oversold territory", ind.RSI))
		}
	} else {
		r.unavailable = append(r.unavailable, "rsi")
	}

	if ind.HasMACD {
		if ind.MACDHist > 0 {
			r.score += defaultSignWeight
			r.notes = append(r.notes, "MACD histogram positive")
		}
	} else {
		r.unavailable = append(r.unavailable, "macd")
	}

	if ind.HasMomentum {
		if ind.Momentum > 0 {
			r.score += defaultSignWeight
			r.notes = append(r.notes, "positive price momentum")
		}
	} else {
		r.unavailable = append(r.unavailable, "momentum")
	}

	if snap.Volume > liquidityFloor {
		r.score += defaultSignWeight
		r.notes = append(r.notes, "healthy session liquidity")
	}

	return r
}

// riskPass scans for negative signals, independently of opportunityPass.
func riskPass(snap market.Snapshot, ind market.Indicators) passResult {
	var r passResult

	switch {
	case snap.ChangePct < -strongMovePct:
		r.score += strongMoveWeight
		r.notes = append(r.notes, fmt.Sprintf("price down %.2f%% on the session", -snap.ChangePct))
	case snap.ChangePct < 0:
		r.score += defaultSignWeight
		r.notes = append(r.notes, fmt.Sprintf("price down %.2f%% on the session", -snap.ChangePct))
	}

	if ind.HasRSI {
		if ind.RSI > rsiOverbought {
			r.score += defaultSignWeight
			r.notes = append(r.notes, fmt.Sprintf("RSI %.1f in overbought territory", ind.RSI))
		}
	} else {
		r.unavailable = append(r.unavailable, "rsi")
	}

	if ind.HasMACD {
		if ind.MACDHist < 0 {
			r.score += defaultSignWeight
			r.notes = append(r.notes, "MACD histogram negative")
		}
	} else {
		r.unavailable = append(r.unavailable, "macd")
	}

	if ind.HasMomentum {
		if ind.Momentum < 0 {
			r.score += defaultSignWeight
			r.notes = append(r.notes, "negative price momentum")
		}
	} else {
		r.unavailable = append(r.unavailable, "momentum")
	}

	if snap.Price > 0 && snap.High > snap.Low {
		if (snap.High-snap.Low)/snap.Price > volatilitySpike {
			r.score += defaultSignWeight
			r.notes = append(r.notes, fmt.Sprintf("intraday range %.1f%% of price", (snap.High-snap.Low)/snap.Price*100))
		}
	}

	return r
}
