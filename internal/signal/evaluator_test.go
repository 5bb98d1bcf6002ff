package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stockpilot/internal/market"
)

func testEvaluator() *Evaluator {
	return NewEvaluator(60, 40, 0.08, 0.15)
}

func snap(change float64, volume float64) market.Snapshot {
	return market.Snapshot{
		Symbol:    "FPT",
		Price:     100000,
		ChangePct: change,
		Volume:    volume,
		High:      101000,
		Low:       99500,
		At:        time.Now(),
	}
}

func TestArbitrateBounds(t *testing.T) {
	for opp := 0.0; opp <= 6; opp++ {
		for risk := 0.0; risk <= 6; risk++ {
			c := Arbitrate(opp, risk)
			assert.GreaterOrEqual(t, c, 0.0)
			assert.LessOrEqual(t, c, 100.0)
		}
	}
	assert.Equal(t, 50.0, Arbitrate(0, 0))
	assert.Equal(t, 100.0, Arbitrate(10, 0))
	assert.Equal(t, 0.0, Arbitrate(0, 10))
}

func TestArbitrateMonotonic(t *testing.T) {
	prev := Arbitrate(0, 2)
	for opp := 1.0; opp <= 8; opp++ {
		c := Arbitrate(opp, 2)
		assert.GreaterOrEqual(t, c, prev, "confidence must not fall as opportunity rises")
		prev = c
	}

	prev = Arbitrate(3, 0)
	for risk := 1.0; risk <= 8; risk++ {
		c := Arbitrate(3, risk)
		assert.LessOrEqual(t, c, prev, "confidence must not rise as risk rises")
		prev = c
	}
}

func TestEvaluatePositiveSessionLeansBuy(t *testing.T) {
	e := testEvaluator()
	d := e.Evaluate(snap(2.5, 2_000_000), nil)

	assert.Equal(t, "FPT", d.Symbol)
	assert.Equal(t, ActionBuy, d.Action)
	assert.GreaterOrEqual(t, d.Confidence, 60.0)
	assert.NotEmpty(t, d.Supporting)
	assert.InDelta(t, 92000, d.StopPrice, 0.01)
	assert.InDelta(t, 115000, d.TargetPrice, 0.01)
}

func TestEvaluateNegativeSessionLeansSell(t *testing.T) {
	e := testEvaluator()
	s := snap(-3.2, 200_000)
	s.High = 106000
	s.Low = 99000
	d := e.Evaluate(s, nil)

	assert.Equal(t, ActionSell, d.Action)
	assert.LessOrEqual(t, d.Confidence, 40.0)
	assert.NotEmpty(t, d.Opposing)
}

func TestEvaluateQuietSessionHolds(t *testing.T) {
	e := testEvaluator()
	s := snap(0, 200_000)
	s.High = 100000
	s.Low = 100000
	d := e.Evaluate(s, nil)

	assert.Equal(t, ActionHold, d.Action)
	assert.Equal(t, 50.0, d.Confidence)
}

func TestEvaluateRecordsUnavailableIndicators(t *testing.T) {
	e := testEvaluator()
	d := e.Evaluate(snap(0.5, 500_000), nil)

	// With no history there is not enough data for any indicator.
	assert.Contains(t, d.Unavailable, "rsi")
	assert.Contains(t, d.Unavailable, "macd")
	assert.Contains(t, d.Unavailable, "momentum")
}

func TestEvaluateUsesHistoryForIndicators(t *testing.T) {
	e := testEvaluator()

	history := make([]market.Snapshot, 0, 40)
	price := 100000.0
	for i := 0; i < 40; i++ {
		price *= 0.995
		history = append(history, market.Snapshot{
			Symbol: "FPT",
			Price:  price,
			Volume: 1_500_000,
			High:   price * 1.01,
			Low:    price * 0.99,
			At:     time.Now().Add(-time.Duration(i+1) * 5 * time.Minute),
		})
	}

	d := e.Evaluate(snap(0.5, 1_500_000), history)
	assert.NotContains(t, d.Unavailable, "rsi")
	assert.NotContains(t, d.Unavailable, "macd")
	assert.NotContains(t, d.Unavailable, "momentum")
}
