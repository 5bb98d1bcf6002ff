package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"stockpilot/internal/config"
	"stockpilot/internal/ledger"
	"stockpilot/internal/market"
	"stockpilot/internal/notifier"
	"stockpilot/internal/pkg/circuit"
	"stockpilot/internal/risk"
	"stockpilot/internal/signal"
	"stockpilot/internal/store"
	"stockpilot/internal/watchlist"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Fetch(ctx context.Context, symbol string) (market.Snapshot, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(market.Snapshot), args.Error(1)
}

func (m *mockSource) Name() string { return "mock" }

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SaveCycle(ctx context.Context, cs store.CycleState) error {
	args := m.Called(ctx, cs)
	return args.Error(0)
}

type capturePoster struct {
	mu   sync.Mutex
	msgs []notifier.StructuredMessage
}

func (c *capturePoster) Post(msg notifier.StructuredMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *capturePoster) titles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.msgs))
	for _, m := range c.msgs {
		out = append(out, m.Title)
	}
	return out
}

func testConfig() config.Config {
	return config.Config{
		Market: config.MarketConfig{Source: "sim", TimeoutSeconds: 5, HistoryDepth: 60},
		Trading: config.TradingConfig{
			PollIntervalSeconds: 300,
			InitialCapital:      10_000_000,
			BuyThreshold:        60,
			SellThreshold:       40,
			ReportEveryCycles:   0,
		},
		Risk: config.RiskConfig{
			MaxOpenPositions:     4,
			MaxPositionPct:       0.25,
			MinPositionPct:       0.05,
			StopLossPct:          0.08,
			TakeProfitPct:        0.15,
			TakeProfitSellPct:    0.50,
			TrailingStopPct:      0.05,
			MaxDailyLossPct:      0.05,
			MaxDrawdownPct:       0.15,
			MaxConsecutiveLosses: 3,
		},
	}
}

type harness struct {
	engine   *Engine
	source   *mockSource
	store    *mockStore
	poster   *capturePoster
	governor *risk.Governor
	book     *ledger.Ledger
}

func newHarness(t *testing.T, symbols ...string) *harness {
	t.Helper()
	cfg := testConfig()
	source := &mockSource{}
	st := &mockStore{}
	poster := &capturePoster{}

	governor := risk.NewGovernor(cfg.Risk)
	book := ledger.New(cfg.Trading.InitialCapital, ledger.NewSimulatedExecution(), governor)
	evaluator := signal.NewEvaluator(cfg.Trading.BuyThreshold, cfg.Trading.SellThreshold,
		cfg.Risk.StopLossPct, cfg.Risk.TakeProfitPct)

	e, err := NewEngine(cfg, Deps{
		Source:    source,
		Breaker:   circuit.NewBreaker("feed", 3, time.Minute),
		History:   market.NewHistory(cfg.Market.HistoryDepth),
		Evaluator: evaluator,
		Book:      book,
		Governor:  governor,
		Store:     st,
		Notify:    poster,
		Watch:     watchlist.NewStatic(symbols),
	})
	assert.NoError(t, err)
	return &harness{engine: e, source: source, store: st, poster: poster, governor: governor, book: book}
}

func bullishSnap(symbol string, price float64) market.Snapshot {
	return market.Snapshot{
		Symbol:    symbol,
		Price:     price,
		ChangePct: 2.5,
		Volume:    2_000_000,
		High:      price * 1.01,
		Low:       price * 0.995,
		At:        time.Now(),
	}
}

func quietSnap(symbol string, price float64) market.Snapshot {
	return market.Snapshot{
		Symbol: symbol,
		Price:  price,
		Volume: 100_000,
		High:   price,
		Low:    price,
		At:     time.Now(),
	}
}

func TestCycleExecutesBuyOnStrongSignal(t *testing.T) {
	h := newHarness(t, "FPT")
	h.source.On("Fetch", mock.Anything, "FPT").Return(bullishSnap("FPT", 100000), nil)
	h.store.On("SaveCycle", mock.Anything, mock.Anything).Return(nil)

	h.engine.runCycle(context.Background())

	pos, ok := h.book.Position("FPT")
	assert.True(t, ok)
	assert.Greater(t, pos.Quantity, int64(0))
	assert.Less(t, h.book.Portfolio().Cash, 10_000_000.0)

	h.store.AssertNumberOfCalls(t, "SaveCycle", 1)
	assert.Contains(t, h.poster.titles(), "BUY FPT")
}

func TestCycleSkipsSymbolWhenDataUnavailable(t *testing.T) {
	h := newHarness(t, "FPT", "HPG")
	h.source.On("Fetch", mock.Anything, "FPT").Return(market.Snapshot{}, market.ErrUnavailable)
	h.source.On("Fetch", mock.Anything, "HPG").Return(bullishSnap("HPG", 50000), nil)
	h.store.On("SaveCycle", mock.Anything, mock.Anything).Return(nil)

	h.engine.runCycle(context.Background())

	_, fptOpen := h.book.Position("FPT")
	assert.False(t, fptOpen)
	_, hpgOpen := h.book.Position("HPG")
	assert.True(t, hpgOpen, "a failed fetch must not block other symbols")
	assert.Equal(t, 1, h.engine.Status().Cycles)
}

func TestCycleForcesStopLossSell(t *testing.T) {
	h := newHarness(t, "FPT")
	h.store.On("SaveCycle", mock.Anything, mock.Anything).Return(nil)

	h.source.On("Fetch", mock.Anything, "FPT").Return(bullishSnap("FPT", 100000), nil).Once()
	h.engine.runCycle(context.Background())
	pos, ok := h.book.Position("FPT")
	assert.True(t, ok)
	assert.InDelta(t, 92000, pos.StopPrice, 1e-6)

	// Next tick gaps below the stop; the governor forces a full exit.
	h.source.On("Fetch", mock.Anything, "FPT").Return(quietSnap("FPT", 91000), nil).Once()
	h.engine.runCycle(context.Background())

	_, open := h.book.Position("FPT")
	assert.False(t, open)
	assert.Less(t, h.book.Portfolio().RealizedPnL, 0.0)
	assert.Equal(t, 1, h.governor.State().ConsecutiveLosses)
}

func TestCycleVetoesBuyWhileTripped(t *testing.T) {
	h := newHarness(t, "FPT")
	h.governor.Restore(risk.State{Breaker: risk.StateTripped, TripReason: "drawdown"})
	h.source.On("Fetch", mock.Anything, "FPT").Return(bullishSnap("FPT", 100000), nil)
	h.store.On("SaveCycle", mock.Anything, mock.Anything).Return(nil)

	h.engine.runCycle(context.Background())

	_, open := h.book.Position("FPT")
	assert.False(t, open)
}

func TestCycleSkipsOutsideMarketHours(t *testing.T) {
	cfg := testConfig()
	cfg.Trading.MarketHours = config.MarketHoursConfig{
		Enabled:        true,
		MorningOpen:    "09:00",
		MorningClose:   "11:30",
		AfternoonOpen:  "13:00",
		AfternoonClose: "14:30",
	}
	source := &mockSource{}
	st := &mockStore{}
	governor := risk.NewGovernor(cfg.Risk)
	book := ledger.New(cfg.Trading.InitialCapital, ledger.NewSimulatedExecution(), governor)

	e, err := NewEngine(cfg, Deps{
		Source:    source,
		History:   market.NewHistory(60),
		Evaluator: signal.NewEvaluator(60, 40, 0.08, 0.15),
		Book:      book,
		Governor:  governor,
		Store:     st,
		Watch:     watchlist.NewStatic([]string{"FPT"}),
	})
	assert.NoError(t, err)

	// Sunday noon.
	e.nowFn = func() time.Time { return time.Date(2025, 3, 9, 12, 0, 0, 0, time.Local) }
	e.runCycle(context.Background())

	assert.Equal(t, 0, e.Status().Cycles)
	source.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "SaveCycle", mock.Anything, mock.Anything)
}

func TestCycleRollsOverOnNewDay(t *testing.T) {
	h := newHarness(t, "FPT")
	h.store.On("SaveCycle", mock.Anything, mock.Anything).Return(nil)
	h.source.On("Fetch", mock.Anything, "FPT").Return(quietSnap("FPT", 100000), nil)

	day1 := time.Date(2025, 3, 10, 9, 30, 0, 0, time.Local)
	h.engine.nowFn = func() time.Time { return day1 }
	h.engine.runCycle(context.Background())

	h.book.Portfolio().DailyRealized = -123456

	h.engine.nowFn = func() time.Time { return day1.AddDate(0, 0, 1) }
	h.engine.runCycle(context.Background())

	assert.Equal(t, 0.0, h.book.Portfolio().DailyRealized)
}

func TestCycleAdoptsSameDayBaselineAfterRestart(t *testing.T) {
	h := newHarness(t, "FPT")
	h.store.On("SaveCycle", mock.Anything, mock.Anything).Return(nil)
	h.source.On("Fetch", mock.Anything, "FPT").Return(quietSnap("FPT", 100000), nil)

	pf := ledger.NewPortfolio(10_000_000)
	pf.TradingDay = "2025-03-10"
	pf.DailyRealized = -400_000
	h.book.Restore(pf)

	h.engine.nowFn = func() time.Time { return time.Date(2025, 3, 10, 10, 0, 0, 0, time.Local) }
	h.engine.runCycle(context.Background())

	assert.Equal(t, -400_000.0, h.book.Portfolio().DailyRealized,
		"a same-day restart keeps the accumulated daily loss")
	assert.Equal(t, 10_000_000.0, h.book.Portfolio().DayStartEquity)
}

func TestCycleReanchorsBaselineFromEarlierDay(t *testing.T) {
	h := newHarness(t, "FPT")
	h.store.On("SaveCycle", mock.Anything, mock.Anything).Return(nil)
	h.source.On("Fetch", mock.Anything, "FPT").Return(quietSnap("FPT", 100000), nil)

	pf := ledger.NewPortfolio(10_000_000)
	pf.Cash = 9_600_000
	pf.TradingDay = "2025-03-10"
	pf.DailyRealized = -400_000
	h.book.Restore(pf)

	h.engine.nowFn = func() time.Time { return time.Date(2025, 3, 11, 9, 30, 0, 0, time.Local) }
	h.engine.runCycle(context.Background())

	restored := h.book.Portfolio()
	assert.Equal(t, 0.0, restored.DailyRealized,
		"yesterday's realized loss must not count against today's limit")
	assert.Equal(t, 9_600_000.0, restored.DayStartEquity)
	assert.Equal(t, "2025-03-11", restored.TradingDay)
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, "FPT")
	h.source.On("Fetch", mock.Anything, "FPT").Return(quietSnap("FPT", 100000), nil)
	h.store.On("SaveCycle", mock.Anything, mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.engine.Run(ctx) }()

	assert.Eventually(t, func() bool { return h.engine.Status().Cycles >= 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, StateStopped, h.engine.Status().State)
}
