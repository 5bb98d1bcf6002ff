package signal

import (
	"time"

	"stockpilot/internal/market"
)

const (
	confidenceMidpoint = 50.0
	confidenceStep     = 8.0
)

// Evaluator 将单只股票的行情快照转化为带置信度的交易决策。
// It is pure: evaluation never touches portfolio or risk state.
type Evaluator struct {
	buyThreshold  float64
	sellThreshold float64
	stopPct       float64
	targetPct     float64
}

func NewEvaluator(buyThreshold, sellThreshold, stopPct, targetPct float64) *Evaluator {
	return &Evaluator{
		buyThreshold:  buyThreshold,
		sellThreshold: sellThreshold,
		stopPct:       stopPct,
		targetPct:     targetPct,
	}
}

// Evaluate runs the opportunity, risk and arbitration passes over the
// snapshot and its history. History is most-recent-first and holds prior
// snapshots only; it may be empty.
func (e *Evaluator) Evaluate(snap market.Snapshot, history []market.Snapshot) Decision {
	series := make([]market.Snapshot, 0, len(history)+1)
	series = append(series, snap)
	series = append(series, history...)
	ind := market.ComputeIndicators(series)

	opp := opportunityPass(snap, ind)
	risk := riskPass(snap, ind)

	confidence := Arbitrate(opp.score, risk.score)

	action := ActionHold
	switch {
	case confidence >= e.buyThreshold:
		action = ActionBuy
	case confidence <= e.sellThreshold:
		action = ActionSell
	}

	return Decision{
		Symbol:      snap.Symbol,
		Action:      action,
		Confidence:  confidence,
		Supporting:  opp.notes,
		Opposing:    risk.notes,
		Unavailable: dedupe(append(opp.unavailable, risk.unavailable...)),
		EntryPrice:  snap.Price,
		StopPrice:   snap.Price * (1 - e.stopPct),
		TargetPrice: snap.Price * (1 + e.targetPct),
		At:          time.Now(),
	}
}

// Arbitrate combines the two pass scores into a confidence in [0,100].
// The rule is monotonic: confidence rises with the opportunity score and
// falls with the risk score.
func Arbitrate(opportunity, risk float64) float64 {
	c := confidenceMidpoint + confidenceStep*(opportunity-risk)
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
