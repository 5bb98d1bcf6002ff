package risk

import (
	"fmt"
	"time"

	"stockpilot/internal/config"
	"stockpilot/internal/ledger"
	"stockpilot/internal/logger"
	"stockpilot/internal/signal"
)

// BreakerState 熔断器状态,一旦 TRIPPED 只能人工复位。
type BreakerState string

const (
	StateClear   BreakerState = "CLEAR"
	StateTripped BreakerState = "TRIPPED"
)

// State is the governor's durable state, persisted across restarts.
type State struct {
	Breaker           BreakerState `json:"breaker"`
	TripReason        string       `json:"trip_reason,omitempty"`
	TrippedAt         time.Time    `json:"tripped_at,omitempty"`
	ConsecutiveLosses int          `json:"consecutive_losses"`
}

// Verdict is the outcome of a pre-trade check. Amount carries the sized
// cash allocation for an allowed BUY.
type Verdict struct {
	Allowed bool
	Reason  string
	Amount  float64
}

// Monitor action kinds.
const (
	MonitorNone       = ""
	MonitorStopLoss   = "stop_loss"
	MonitorTakeProfit = "take_profit"
)

// MonitorAction is a forced exit requested by the governor.
type MonitorAction struct {
	Kind     string
	Fraction float64
	Reason   string
}

// Governor 风控闸门:交易前审查、持仓巡检与熔断管理。
// Not safe for concurrent use; the trading loop owns it.
type Governor struct {
	cfg    config.RiskConfig
	state  State
	onTrip func(reason string)
}

func NewGovernor(cfg config.RiskConfig) *Governor {
	return &Governor{
		cfg:   cfg,
		state: State{Breaker: StateClear},
	}
}

// SetOnTrip registers a hook fired once per CLEAR to TRIPPED transition.
func (g *Governor) SetOnTrip(fn func(reason string)) { g.onTrip = fn }

func (g *Governor) State() State  { return g.state }
func (g *Governor) Tripped() bool { return g.state.Breaker == StateTripped }

// Restore replaces the governor state, used for crash recovery.
func (g *Governor) Restore(s State) {
	if s.Breaker != StateTripped {
		s.Breaker = StateClear
	}
	g.state = s
}

// Reset clears the breaker. It is only ever invoked by an explicit
// operator action, never by the trading loop.
func (g *Governor) Reset() {
	logger.Warnf("circuit breaker reset by operator (was %s: %s)", g.state.Breaker, g.state.TripReason)
	g.state = State{Breaker: StateClear}
}

func (g *Governor) trip(reason string) {
	if g.state.Breaker == StateTripped {
		return
	}
	g.state.Breaker = StateTripped
	g.state.TripReason = reason
	g.state.TrippedAt = time.Now()
	logger.Errorf("circuit breaker TRIPPED: %s", reason)
	if g.onTrip != nil {
		g.onTrip(reason)
	}
}

// PreTradeCheck vets a BUY proposal against the breaker, position count,
// exposure and dust limits. SELL and HOLD always pass: closing risk is
// allowed even while tripped.
func (g *Governor) PreTradeCheck(dec signal.Decision, pf *ledger.Portfolio, v ledger.Valuation) Verdict {
	if dec.Action != signal.ActionBuy {
		return Verdict{Allowed: true}
	}
	if g.Tripped() {
		return Verdict{Reason: fmt.Sprintf("circuit breaker tripped: %s", g.state.TripReason)}
	}

	_, holding := pf.Positions[dec.Symbol]
	if !holding && len(pf.Positions) >= g.cfg.MaxOpenPositions {
		return Verdict{Reason: fmt.Sprintf("max open positions reached (%d)", g.cfg.MaxOpenPositions)}
	}

	amount := g.PositionSize(dec.Confidence, pf.Cash, v.Equity)
	if amount < g.cfg.MinPositionPct*v.Equity {
		return Verdict{Reason: fmt.Sprintf("allocation %.0f below minimum position size", amount)}
	}

	exposure := amount
	if held, ok := v.Positions[dec.Symbol]; ok {
		exposure += held.MarketValue
	}
	if v.Equity > 0 && decimalGT(exposure, g.cfg.MaxPositionPct*v.Equity) {
		return Verdict{Reason: fmt.Sprintf("exposure %.0f would exceed %.0f%% of equity", exposure, g.cfg.MaxPositionPct*100)}
	}

	return Verdict{Allowed: true, Amount: amount}
}

// PositionSize scales the allocation with confidence: a fraction of
// available cash, bounded to [min,max] fractions of total equity and
// never more than the cash on hand.
func (g *Governor) PositionSize(confidence, cash, equity float64) float64 {
	if cash <= 0 || equity <= 0 {
		return 0
	}
	factor := confidence / 100
	if factor < 0 {
		factor = 0
	}
	if factor > 1 {
		factor = 1
	}
	amount := cash * g.cfg.MaxPositionPct * factor

	if floor := g.cfg.MinPositionPct * equity; amount < floor {
		amount = floor
	}
	if ceil := g.cfg.MaxPositionPct * equity; amount > ceil {
		amount = ceil
	}
	if amount > cash {
		amount = cash
	}
	return amount
}

// Monitor inspects one open position against the current price. It seeds
// missing stop and target levels from the entry price, ratchets the
// trailing stop upward, and returns a forced exit when a level is hit.
func (g *Governor) Monitor(pos *ledger.Position, price float64) MonitorAction {
	if pos == nil || pos.Quantity <= 0 || price <= 0 {
		return MonitorAction{Kind: MonitorNone}
	}

	if pos.StopPrice <= 0 {
		pos.StopPrice = stopBelow(pos.AvgEntry, g.cfg.StopLossPct)
	}
	if pos.TargetPrice <= 0 {
		pos.TargetPrice = targetAbove(pos.AvgEntry, g.cfg.TakeProfitPct)
	}

	if price > pos.HighestPrice {
		pos.HighestPrice = price
	}
	// The trail engages once the position has moved into profit.
	if decimalGT(pos.HighestPrice, pos.AvgEntry) {
		if trail := stopBelow(pos.HighestPrice, g.cfg.TrailingStopPct); shouldRaiseStop(trail, pos.StopPrice) {
			logger.Debugf("%s trailing stop raised to %.0f (high %.0f)", pos.Symbol, trail, pos.HighestPrice)
			pos.StopPrice = trail
		}
	}

	if priceBreachedStop(price, pos.StopPrice) {
		return MonitorAction{
			Kind:     MonitorStopLoss,
			Fraction: 1,
			Reason:   fmt.Sprintf("price %.0f breached stop %.0f", price, pos.StopPrice),
		}
	}
	if priceHitTarget(price, pos.TargetPrice) {
		reason := fmt.Sprintf("price %.0f reached target %.0f", price, pos.TargetPrice)
		// Move the target up so a lingering price does not refire every tick.
		pos.TargetPrice = targetAbove(price, g.cfg.TakeProfitPct)
		return MonitorAction{
			Kind:     MonitorTakeProfit,
			Fraction: g.cfg.TakeProfitSellPct,
			Reason:   reason,
		}
	}
	return MonitorAction{Kind: MonitorNone}
}

// RecordTradeOutcome tracks consecutive losing closes. Any winning close
// resets the streak; reaching the configured limit trips the breaker.
func (g *Governor) RecordTradeOutcome(pnl float64) {
	switch {
	case pnl < 0:
		g.state.ConsecutiveLosses++
		logger.Warnf("losing trade %.0f, consecutive losses now %d", pnl, g.state.ConsecutiveLosses)
		if g.cfg.MaxConsecutiveLosses > 0 && g.state.ConsecutiveLosses >= g.cfg.MaxConsecutiveLosses {
			g.trip(fmt.Sprintf("%d consecutive losing trades", g.state.ConsecutiveLosses))
		}
	case pnl > 0:
		g.state.ConsecutiveLosses = 0
	}
}

// CheckLimits evaluates the daily-loss and drawdown conditions against a
// fresh valuation. Either breach trips the breaker.
func (g *Governor) CheckLimits(pf *ledger.Portfolio, v ledger.Valuation) {
	if pf.DayStartEquity > 0 {
		dayLoss := pf.DayStartEquity - v.Equity
		if limit := g.cfg.MaxDailyLossPct * pf.DayStartEquity; decimalGT(dayLoss, limit) {
			g.trip(fmt.Sprintf("daily loss %.0f exceeds limit %.0f", dayLoss, limit))
			return
		}
	}
	if pf.EquityHigh > 0 {
		drawdown := (pf.EquityHigh - v.Equity) / pf.EquityHigh
		if decimalGT(drawdown, g.cfg.MaxDrawdownPct) {
			g.trip(fmt.Sprintf("drawdown %.1f%% exceeds limit %.1f%%", drawdown*100, g.cfg.MaxDrawdownPct*100))
		}
	}
}
