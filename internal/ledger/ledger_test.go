package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"stockpilot/internal/signal"
)

type mockReporter struct {
	mock.Mock
}

func (m *mockReporter) RecordTradeOutcome(pnl float64) {
	m.Called(pnl)
}

func newTestLedger(capital float64) *Ledger {
	return New(capital, NewSimulatedExecution(), nil)
}

func TestApplyBuyOpensPosition(t *testing.T) {
	l := newTestLedger(10_000_000)

	fill, err := l.Apply(Order{
		Symbol: "FPT",
		Side:   signal.ActionBuy,
		Price:  100,
		Amount: 2_000_000,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(20000), fill.Quantity)
	assert.Equal(t, 8_000_000.0, l.Portfolio().Cash)

	pos, ok := l.Position("FPT")
	assert.True(t, ok)
	assert.Equal(t, int64(20000), pos.Quantity)
	assert.Equal(t, 100.0, pos.AvgEntry)
	assert.Equal(t, 100.0, pos.HighestPrice)
}

func TestApplyBuyAveragesEntry(t *testing.T) {
	l := newTestLedger(10_000_000)

	_, err := l.Apply(Order{Symbol: "HPG", Side: signal.ActionBuy, Price: 100, Amount: 1_000_000})
	assert.NoError(t, err)
	_, err = l.Apply(Order{Symbol: "HPG", Side: signal.ActionBuy, Price: 200, Amount: 2_000_000})
	assert.NoError(t, err)

	pos, ok := l.Position("HPG")
	assert.True(t, ok)
	assert.Equal(t, int64(20000), pos.Quantity)
	// 10000 @ 100 plus 10000 @ 200.
	assert.InDelta(t, 150.0, pos.AvgEntry, 1e-9)
}

func TestApplyBuyFloorsWholeShares(t *testing.T) {
	l := newTestLedger(10_000_000)

	fill, err := l.Apply(Order{Symbol: "FPT", Side: signal.ActionBuy, Price: 121100, Amount: 1_000_000})
	assert.NoError(t, err)
	assert.Equal(t, int64(8), fill.Quantity)
	assert.Equal(t, 10_000_000.0-8*121100, l.Portfolio().Cash)
}

func TestApplyBuyBeyondCashFailsLoudly(t *testing.T) {
	l := newTestLedger(1_000_000)

	_, err := l.Apply(Order{Symbol: "FPT", Side: signal.ActionBuy, Price: 100, Amount: 2_000_000})
	assert.ErrorIs(t, err, ErrContractViolation)
	assert.Equal(t, 1_000_000.0, l.Portfolio().Cash)
}

func TestApplySellRealizesPnL(t *testing.T) {
	rep := &mockReporter{}
	rep.On("RecordTradeOutcome", mock.Anything).Return()
	l := New(10_000_000, NewSimulatedExecution(), rep)

	_, err := l.Apply(Order{Symbol: "FPT", Side: signal.ActionBuy, Price: 100, Amount: 2_000_000})
	assert.NoError(t, err)

	fill, err := l.Apply(Order{Symbol: "FPT", Side: signal.ActionSell, Price: 110, Fraction: 1})
	assert.NoError(t, err)
	assert.Equal(t, int64(20000), fill.Quantity)
	assert.InDelta(t, 200_000.0, fill.PnL, 1e-9)
	assert.InDelta(t, 10_200_000.0, l.Portfolio().Cash, 1e-9)
	assert.InDelta(t, 200_000.0, l.Portfolio().RealizedPnL, 1e-9)

	_, open := l.Position("FPT")
	assert.False(t, open, "fully sold position must be removed")
	rep.AssertCalled(t, "RecordTradeOutcome", 200_000.0)
}

func TestApplyPartialSellKeepsRemainder(t *testing.T) {
	l := newTestLedger(10_000_000)

	_, err := l.Apply(Order{Symbol: "KBC", Side: signal.ActionBuy, Price: 100, Amount: 2_000_000})
	assert.NoError(t, err)

	fill, err := l.Apply(Order{Symbol: "KBC", Side: signal.ActionSell, Price: 120, Fraction: 0.5})
	assert.NoError(t, err)
	assert.Equal(t, int64(10000), fill.Quantity)

	pos, ok := l.Position("KBC")
	assert.True(t, ok)
	assert.Equal(t, int64(10000), pos.Quantity)
	assert.Equal(t, 100.0, pos.AvgEntry, "partial sell must not touch the entry price")
}

func TestApplySellWithoutPositionFailsLoudly(t *testing.T) {
	l := newTestLedger(10_000_000)

	_, err := l.Apply(Order{Symbol: "VNM", Side: signal.ActionSell, Price: 100, Fraction: 1})
	assert.ErrorIs(t, err, ErrContractViolation)
}

func TestApplySellBadFractionFailsLoudly(t *testing.T) {
	l := newTestLedger(10_000_000)
	_, err := l.Apply(Order{Symbol: "FPT", Side: signal.ActionBuy, Price: 100, Amount: 1_000_000})
	assert.NoError(t, err)

	for _, fraction := range []float64{0, -0.5, 1.2} {
		_, err := l.Apply(Order{Symbol: "FPT", Side: signal.ActionSell, Price: 100, Fraction: fraction})
		assert.ErrorIs(t, err, ErrContractViolation)
	}
}

func TestNoLeverageInvariant(t *testing.T) {
	l := newTestLedger(10_000_000)

	prices := map[string]float64{"FPT": 100, "HPG": 50}
	orders := []Order{
		{Symbol: "FPT", Side: signal.ActionBuy, Price: 100, Amount: 3_000_000},
		{Symbol: "HPG", Side: signal.ActionBuy, Price: 50, Amount: 2_000_000},
		{Symbol: "FPT", Side: signal.ActionSell, Price: 100, Fraction: 0.5},
		{Symbol: "HPG", Side: signal.ActionSell, Price: 50, Fraction: 1},
		{Symbol: "FPT", Side: signal.ActionBuy, Price: 100, Amount: 1_500_000},
	}
	for _, o := range orders {
		_, err := l.Apply(o)
		assert.NoError(t, err)

		v := l.Portfolio().MarkToMarket(prices)
		limit := l.Portfolio().InitialCapital + l.Portfolio().RealizedPnL
		assert.LessOrEqual(t, v.Equity, limit+1e-6, "cash plus market value must never exceed capital plus realized P&L")
	}
}

func TestMarkToMarketDoesNotMutate(t *testing.T) {
	l := newTestLedger(10_000_000)
	_, err := l.Apply(Order{Symbol: "FPT", Side: signal.ActionBuy, Price: 100, Amount: 2_000_000})
	assert.NoError(t, err)

	cashBefore := l.Portfolio().Cash
	v := l.Portfolio().MarkToMarket(map[string]float64{"FPT": 130})
	assert.InDelta(t, 600_000.0, v.Unrealized, 1e-9)
	assert.Equal(t, cashBefore, l.Portfolio().Cash)
	assert.Equal(t, 100.0, l.Portfolio().Positions["FPT"].AvgEntry)
}

func TestMarkToMarketFallsBackToEntryPrice(t *testing.T) {
	l := newTestLedger(10_000_000)
	_, err := l.Apply(Order{Symbol: "FPT", Side: signal.ActionBuy, Price: 100, Amount: 2_000_000})
	assert.NoError(t, err)

	v := l.Portfolio().MarkToMarket(nil)
	assert.InDelta(t, 0.0, v.Unrealized, 1e-9)
	assert.InDelta(t, 10_000_000.0, v.Equity, 1e-9)
}

func TestDayRolloverResetsAccumulators(t *testing.T) {
	l := newTestLedger(10_000_000)
	_, err := l.Apply(Order{Symbol: "FPT", Side: signal.ActionBuy, Price: 100, Amount: 2_000_000})
	assert.NoError(t, err)
	_, err = l.Apply(Order{Symbol: "FPT", Side: signal.ActionSell, Price: 90, Fraction: 1})
	assert.NoError(t, err)
	assert.InDelta(t, -200_000.0, l.Portfolio().DailyRealized, 1e-9)

	l.DayRollover("2026-08-26", 9_800_000)
	assert.Equal(t, 0.0, l.Portfolio().DailyRealized)
	assert.Equal(t, 9_800_000.0, l.Portfolio().DayStartEquity)
	assert.Equal(t, "2026-08-26", l.Portfolio().TradingDay)
}
