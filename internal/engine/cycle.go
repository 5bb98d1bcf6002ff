package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stockpilot/internal/ledger"
	"stockpilot/internal/logger"
	"stockpilot/internal/market"
	"stockpilot/internal/metrics"
	"stockpilot/internal/notifier"
	"stockpilot/internal/signal"
	"stockpilot/internal/store"
)

// runCycle performs one full evaluation pass over the watch-list. It
// owns all trading state for its duration; HTTP readers block on the
// same lock and always observe a consistent book.
func (e *Engine) runCycle(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.fatalErr != nil {
		return
	}
	now := e.nowFn()
	if !e.hours.isOpen(now) {
		logger.Debugf("market closed, skipping cycle")
		return
	}
	started := time.Now()

	e.rolloverIfNewDay(now)

	var fills []ledger.Fill
	for _, sym := range e.deps.Watch.Symbols() {
		snap, ok := e.fetch(ctx, sym)
		if !ok {
			continue
		}
		e.lastPrices[sym] = snap.Price

		dec := e.deps.Evaluator.Evaluate(snap, e.deps.History.Recent(sym))
		e.deps.History.Push(snap)
		logger.Debugf("%s: %s confidence %.0f", sym, dec.Action, dec.Confidence)

		fill, executed := e.act(dec)
		if e.fatalErr != nil {
			return
		}
		if executed {
			fills = append(fills, fill)
		}
	}

	fills = append(fills, e.monitorPositions()...)
	if e.fatalErr != nil {
		return
	}

	pf := e.deps.Book.Portfolio()
	v := pf.MarkToMarket(e.lastPrices)
	e.deps.Book.UpdateEquityHigh(v.Equity)
	e.deps.Governor.CheckLimits(pf, v)

	e.cycles++
	e.lastCycle = now
	e.publishMetrics(v, fills, time.Since(started))
	e.persist(ctx, v, fills, now)
	e.notifyFills(fills, pf.Cash)

	if every := e.cfg.Trading.ReportEveryCycles; every > 0 && e.cycles%every == 0 {
		e.report(v)
	}
}

// fetch pulls one snapshot with a bounded timeout, behind the data-feed
// breaker. Unavailability degrades the cycle, never fails it.
func (e *Engine) fetch(ctx context.Context, symbol string) (market.Snapshot, bool) {
	if e.deps.Breaker != nil && !e.deps.Breaker.Allow() {
		logger.Debugf("%s: data feed breaker open, skipping fetch", symbol)
		return market.Snapshot{}, false
	}
	timeout := time.Duration(e.cfg.Market.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	snap, err := e.deps.Source.Fetch(fetchCtx, symbol)
	if err != nil {
		if e.deps.Breaker != nil {
			e.deps.Breaker.RecordFailure()
		}
		metrics.FetchFailures.WithLabelValues(symbol).Inc()
		logger.Warnf("%s: market data unavailable: %v", symbol, err)
		return market.Snapshot{}, false
	}
	if e.deps.Breaker != nil {
		e.deps.Breaker.RecordSuccess()
	}
	return snap, true
}

// act turns a Decision into a booked trade, honoring the governor's
// veto. A contract violation from the book halts the loop.
func (e *Engine) act(dec signal.Decision) (ledger.Fill, bool) {
	pf := e.deps.Book.Portfolio()

	switch dec.Action {
	case signal.ActionBuy:
		v := pf.MarkToMarket(e.lastPrices)
		verdict := e.deps.Governor.PreTradeCheck(dec, pf, v)
		if !verdict.Allowed {
			logger.Infof("%s: BUY vetoed: %s", dec.Symbol, verdict.Reason)
			return ledger.Fill{}, false
		}
		fill, err := e.deps.Book.Apply(ledger.Order{
			Symbol: dec.Symbol,
			Side:   signal.ActionBuy,
			Price:  dec.EntryPrice,
			Amount: verdict.Amount,
			Reason: fmt.Sprintf("signal confidence %.0f", dec.Confidence),
		})
		if err != nil {
			e.tradeError(err, dec.Symbol)
			return ledger.Fill{}, false
		}
		return fill, true

	case signal.ActionSell:
		if _, held := pf.Positions[dec.Symbol]; !held {
			return ledger.Fill{}, false
		}
		fill, err := e.deps.Book.Apply(ledger.Order{
			Symbol:   dec.Symbol,
			Side:     signal.ActionSell,
			Price:    dec.EntryPrice,
			Fraction: 1,
			Reason:   fmt.Sprintf("exit signal confidence %.0f", dec.Confidence),
		})
		if err != nil {
			e.tradeError(err, dec.Symbol)
			return ledger.Fill{}, false
		}
		return fill, true
	}
	return ledger.Fill{}, false
}

// monitorPositions runs the governor over every open position using the
// last known price. Symbols whose fetch failed this cycle are still
// protected by their previous price.
func (e *Engine) monitorPositions() []ledger.Fill {
	pf := e.deps.Book.Portfolio()
	var fills []ledger.Fill

	symbols := make([]string, 0, len(pf.Positions))
	for sym := range pf.Positions {
		symbols = append(symbols, sym)
	}
	for _, sym := range symbols {
		pos := pf.Positions[sym]
		price, ok := e.lastPrices[sym]
		if !ok || price <= 0 {
			logger.Warnf("%s: no known price, skipping position monitor", sym)
			continue
		}
		act := e.deps.Governor.Monitor(pos, price)
		if act.Kind == "" {
			continue
		}
		fill, err := e.deps.Book.Apply(ledger.Order{
			Symbol:   sym,
			Side:     signal.ActionSell,
			Price:    price,
			Fraction: act.Fraction,
			Reason:   act.Reason,
		})
		if err != nil {
			e.tradeError(err, sym)
			return fills
		}
		fills = append(fills, fill)
	}
	return fills
}

func (e *Engine) tradeError(err error, symbol string) {
	if errors.Is(err, ledger.ErrContractViolation) {
		e.fatal(err)
		return
	}
	logger.Warnf("%s: trade not executed: %v", symbol, err)
}

// rolloverIfNewDay resets the daily baselines exactly once per calendar
// day, valued at the last known prices. On the first cycle after a start
// the persisted baseline is adopted only when it belongs to today;
// a baseline from an earlier day is re-anchored so yesterday's realized
// losses never count against today's limit.
func (e *Engine) rolloverIfNewDay(now time.Time) {
	day := now.Format("2006-01-02")
	if day == e.currentDay {
		return
	}
	pf := e.deps.Book.Portfolio()
	sameDayBaseline := e.currentDay == "" && pf.TradingDay == day && pf.DayStartEquity > 0
	if !sameDayBaseline {
		e.deps.Book.DayRollover(day, pf.MarkToMarket(e.lastPrices).Equity)
	}
	e.currentDay = day
}

func (e *Engine) publishMetrics(v ledger.Valuation, fills []ledger.Fill, elapsed time.Duration) {
	metrics.CyclesTotal.Inc()
	metrics.CycleDuration.Observe(elapsed.Seconds())
	metrics.Equity.Set(v.Equity)
	metrics.OpenPositions.Set(float64(len(v.Positions)))
	if e.deps.Governor.Tripped() {
		metrics.BreakerTripped.Set(1)
	} else {
		metrics.BreakerTripped.Set(0)
	}
	for _, fill := range fills {
		metrics.TradesTotal.WithLabelValues(fill.Side).Inc()
	}
}

// persist saves the cycle atomically. A failed save degrades operation;
// the next cycle retries with fresher state. The save runs on a detached
// context so a shutdown mid-cycle still lands the final state.
func (e *Engine) persist(_ context.Context, v ledger.Valuation, fills []ledger.Fill, now time.Time) {
	if e.deps.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cs := store.CycleState{
		Portfolio: e.deps.Book.Portfolio(),
		Risk:      e.deps.Governor.State(),
		History:   e.deps.History.Dump(),
		Fills:     fills,
		Equity:    v.Equity,
		At:        now,
	}
	if err := e.deps.Store.SaveCycle(ctx, cs); err != nil {
		logger.Errorf("cycle state not persisted: %v", err)
	}
}

func (e *Engine) notifyFills(fills []ledger.Fill, cash float64) {
	if e.deps.Notify == nil {
		return
	}
	for _, fill := range fills {
		e.deps.Notify.Post(notifier.TradeMessage(fill, cash))
	}
}
