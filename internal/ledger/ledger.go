package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"

	"stockpilot/internal/logger"
	"stockpilot/internal/signal"
)

// ErrContractViolation marks programming errors in order flow, such as
// selling a position that does not exist. Callers must treat it as fatal
// rather than retry.
var ErrContractViolation = errors.New("ledger contract violation")

// OutcomeReporter receives the realized P&L of every closed quantity.
type OutcomeReporter interface {
	RecordTradeOutcome(pnl float64)
}

// Ledger 独占管理 Portfolio,所有成交都经由它记账。
// It is not safe for concurrent use; the trading loop owns it.
type Ledger struct {
	pf       *Portfolio
	exec     Execution
	reporter OutcomeReporter
}

func New(initialCapital float64, exec Execution, reporter OutcomeReporter) *Ledger {
	return &Ledger{
		pf:       NewPortfolio(initialCapital),
		exec:     exec,
		reporter: reporter,
	}
}

// Restore replaces the managed portfolio, used for crash recovery.
func (l *Ledger) Restore(pf *Portfolio) {
	if pf == nil {
		return
	}
	if pf.Positions == nil {
		pf.Positions = make(map[string]*Position)
	}
	l.pf = pf
}

// Portfolio exposes the managed aggregate for read access.
func (l *Ledger) Portfolio() *Portfolio { return l.pf }

// Position returns the open position for symbol, if any.
func (l *Ledger) Position(symbol string) (*Position, bool) {
	pos, ok := l.pf.Positions[symbol]
	return pos, ok
}

// Apply executes an order through the adapter and books the fill.
// BUY spends order.Amount at order.Price, floored to whole shares; SELL
// liquidates order.Fraction of the position and realizes P&L against the
// average entry.
func (l *Ledger) Apply(order Order) (Fill, error) {
	switch order.Side {
	case signal.ActionBuy:
		return l.applyBuy(order)
	case signal.ActionSell:
		return l.applySell(order)
	default:
		return Fill{}, fmt.Errorf("%w: unsupported side %q", ErrContractViolation, order.Side)
	}
}

func (l *Ledger) applyBuy(order Order) (Fill, error) {
	if order.Price <= 0 {
		return Fill{}, fmt.Errorf("%w: buy %s at non-positive price %.2f", ErrContractViolation, order.Symbol, order.Price)
	}
	if order.Amount > l.pf.Cash {
		return Fill{}, fmt.Errorf("%w: buy %s for %.0f exceeds cash %.0f", ErrContractViolation, order.Symbol, order.Amount, l.pf.Cash)
	}
	quantity := int64(math.Floor(order.Amount / order.Price))
	if quantity <= 0 {
		return Fill{}, fmt.Errorf("%w: amount %.0f buys zero shares of %s at %.0f", ErrContractViolation, order.Amount, order.Symbol, order.Price)
	}

	fill, err := l.exec.Execute(order, quantity)
	if err != nil {
		return Fill{}, fmt.Errorf("execute buy %s: %w", order.Symbol, err)
	}

	cost := float64(fill.Quantity) * fill.Price
	l.pf.Cash -= cost

	if pos, ok := l.pf.Positions[order.Symbol]; ok {
		newQty := pos.Quantity + fill.Quantity
		pos.AvgEntry = (float64(pos.Quantity)*pos.AvgEntry + cost) / float64(newQty)
		pos.Quantity = newQty
		if fill.Price > pos.HighestPrice {
			pos.HighestPrice = fill.Price
		}
	} else {
		l.pf.Positions[order.Symbol] = &Position{
			Symbol:       order.Symbol,
			Quantity:     fill.Quantity,
			AvgEntry:     fill.Price,
			OpenedAt:     time.Now(),
			HighestPrice: fill.Price,
		}
	}

	logger.Infof("BUY %d %s @ %.0f = %.0f, cash left %.0f (%s)",
		fill.Quantity, order.Symbol, fill.Price, cost, l.pf.Cash, order.Reason)
	return fill, nil
}

func (l *Ledger) applySell(order Order) (Fill, error) {
	pos, ok := l.pf.Positions[order.Symbol]
	if !ok || pos.Quantity <= 0 {
		return Fill{}, fmt.Errorf("%w: sell %s with no open position", ErrContractViolation, order.Symbol)
	}
	if order.Price <= 0 {
		return Fill{}, fmt.Errorf("%w: sell %s at non-positive price %.2f", ErrContractViolation, order.Symbol, order.Price)
	}
	fraction := order.Fraction
	if fraction <= 0 || fraction > 1 {
		return Fill{}, fmt.Errorf("%w: sell fraction %.3f out of range", ErrContractViolation, fraction)
	}

	quantity := int64(math.Floor(float64(pos.Quantity) * fraction))
	if fraction == 1 {
		quantity = pos.Quantity
	}
	if quantity <= 0 {
		return Fill{}, fmt.Errorf("%w: fraction %.3f sells zero shares of %s", ErrContractViolation, fraction, order.Symbol)
	}
	if quantity > pos.Quantity {
		return Fill{}, fmt.Errorf("%w: sell %d exceeds held %d of %s", ErrContractViolation, quantity, pos.Quantity, order.Symbol)
	}

	fill, err := l.exec.Execute(order, quantity)
	if err != nil {
		return Fill{}, fmt.Errorf("execute sell %s: %w", order.Symbol, err)
	}

	proceeds := float64(fill.Quantity) * fill.Price
	pnl := (fill.Price - pos.AvgEntry) * float64(fill.Quantity)
	fill.PnL = pnl

	l.pf.Cash += proceeds
	l.pf.RealizedPnL += pnl
	l.pf.DailyRealized += pnl
	pos.Quantity -= fill.Quantity
	if pos.Quantity == 0 {
		delete(l.pf.Positions, order.Symbol)
	}

	logger.Infof("SELL %d %s @ %.0f = %.0f, P&L %+.0f, cash %.0f (%s)",
		fill.Quantity, order.Symbol, fill.Price, proceeds, pnl, l.pf.Cash, order.Reason)

	if l.reporter != nil {
		l.reporter.RecordTradeOutcome(pnl)
	}
	return fill, nil
}

// DayRollover resets the daily accumulators at the start of a trading
// day and records the day the baseline belongs to, so a restart can tell
// a same-day crash from a stale baseline. The trading loop invokes it
// exactly once per day.
func (l *Ledger) DayRollover(day string, currentEquity float64) {
	l.pf.TradingDay = day
	l.pf.DayStartEquity = currentEquity
	l.pf.DailyRealized = 0
	logger.Infof("day rollover %s, baseline equity %.0f", day, currentEquity)
}

// UpdateEquityHigh ratchets the high-water-mark, never lowering it.
func (l *Ledger) UpdateEquityHigh(equity float64) {
	if equity > l.pf.EquityHigh {
		l.pf.EquityHigh = equity
	}
}
