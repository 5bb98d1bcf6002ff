package engine

import (
	"context"
	"sync"
	"time"

	"stockpilot/internal/config"
	"stockpilot/internal/ledger"
	"stockpilot/internal/logger"
	"stockpilot/internal/market"
	"stockpilot/internal/notifier"
	"stockpilot/internal/pkg/circuit"
	"stockpilot/internal/risk"
	"stockpilot/internal/scheduler"
	"stockpilot/internal/signal"
	"stockpilot/internal/store"
)

// Loop lifecycle states.
const (
	StateIdle    = "IDLE"
	StateRunning = "RUNNING"
	StateStopped = "STOPPED"
)

// Persister saves the end-of-cycle state.
type Persister interface {
	SaveCycle(ctx context.Context, cs store.CycleState) error
}

// Poster 异步投递通知,不得阻塞。
type Poster interface {
	Post(msg notifier.StructuredMessage)
}

// SymbolProvider supplies the current watch-list.
type SymbolProvider interface {
	Symbols() []string
}

// Deps wires the loop's collaborators.
type Deps struct {
	Source    market.Source
	Breaker   *circuit.Breaker
	History   *market.History
	Evaluator *signal.Evaluator
	Book      *ledger.Ledger
	Governor  *risk.Governor
	Store     Persister
	Notify    Poster
	Watch     SymbolProvider
}

// Status is the loop's public state for the HTTP surface.
type Status struct {
	State       string     `json:"state"`
	Cycles      int        `json:"cycles"`
	LastCycleAt time.Time  `json:"last_cycle_at"`
	LastError   string     `json:"last_error,omitempty"`
	Source      string     `json:"source"`
	Breaker     risk.State `json:"breaker"`
	MarketOpen  bool       `json:"market_open"`
}

// Engine 交易主循环:行情、评估、风控、记账与上报的编排者。
// One cycle at a time; all trading state is owned by this loop.
type Engine struct {
	cfg   config.Config
	deps  Deps
	hours marketHours
	nowFn func() time.Time

	mu         sync.RWMutex
	state      string
	cycles     int
	lastCycle  time.Time
	lastPrices map[string]float64
	currentDay string
	fatalErr   error

	cancel context.CancelFunc
}

func NewEngine(cfg config.Config, deps Deps) (*Engine, error) {
	hours, err := newMarketHours(cfg.Trading.MarketHours)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:        cfg,
		deps:       deps,
		hours:      hours,
		nowFn:      time.Now,
		state:      StateIdle,
		lastPrices: make(map[string]float64),
	}
	// Seed last-known prices from restored history so monitoring works
	// before the first fetch succeeds.
	if deps.History != nil {
		for _, sym := range deps.History.Symbols() {
			if price, ok := deps.History.LastPrice(sym); ok {
				e.lastPrices[sym] = price
			}
		}
	}
	return e, nil
}

// Run drives cycles at the configured poll interval until ctx is
// cancelled or an internal invariant is violated. It blocks.
func (e *Engine) Run(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	e.state = StateRunning
	e.cancel = cancel
	e.mu.Unlock()

	s := scheduler.NewIntervalScheduler(loopCtx, time.Duration(e.cfg.Trading.PollIntervalSeconds)*time.Second)
	s.Name = "trading-loop"
	s.RunImmediately = true
	s.Start(func() { e.runCycle(loopCtx) })

	e.mu.Lock()
	e.state = StateStopped
	err := e.fatalErr
	e.mu.Unlock()

	logger.Infof("trading loop stopped")
	return err
}

// Status returns a consistent snapshot for the HTTP surface.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st := Status{
		State:       e.state,
		Cycles:      e.cycles,
		LastCycleAt: e.lastCycle,
		Breaker:     e.deps.Governor.State(),
		MarketOpen:  e.hours.isOpen(e.nowFn()),
	}
	if e.deps.Source != nil {
		st.Source = e.deps.Source.Name()
	}
	if e.fatalErr != nil {
		st.LastError = e.fatalErr.Error()
	}
	return st
}

// Valuation marks the book to the last known prices.
func (e *Engine) Valuation() ledger.Valuation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.deps.Book.Portfolio().MarkToMarket(e.lastPrices)
}

// Portfolio returns the underlying book state. Callers must treat it as
// read-only.
func (e *Engine) Portfolio() *ledger.Portfolio {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.deps.Book.Portfolio()
}

// ResetBreaker clears the risk circuit breaker. Operator action only.
func (e *Engine) ResetBreaker() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deps.Governor.Reset()
}

func (e *Engine) fatal(err error) {
	logger.Errorf("trading loop halting: %v", err)
	e.fatalErr = err
	if e.cancel != nil {
		e.cancel()
	}
}
