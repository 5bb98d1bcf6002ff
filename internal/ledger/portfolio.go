package ledger

import "time"

// Position is one open holding. Quantity stays positive while the
// position exists; the ledger removes the entry once it reaches zero.
type Position struct {
	Symbol       string    `json:"symbol"`
	Quantity     int64     `json:"quantity"`
	AvgEntry     float64   `json:"avg_entry"`
	OpenedAt     time.Time `json:"opened_at"`
	StopPrice    float64   `json:"stop_price"`
	TargetPrice  float64   `json:"target_price"`
	HighestPrice float64   `json:"highest_price"`
}

// Portfolio 持仓账本:现金、持仓与盈亏累计,由 Ledger 独占持有。
type Portfolio struct {
	InitialCapital float64              `json:"initial_capital"`
	Cash           float64              `json:"cash"`
	Positions      map[string]*Position `json:"positions"`
	RealizedPnL    float64              `json:"realized_pnl"`
	DailyRealized  float64              `json:"daily_realized"`
	EquityHigh     float64              `json:"equity_high"`
	DayStartEquity float64              `json:"day_start_equity"`
	TradingDay     string               `json:"trading_day"`
}

func NewPortfolio(initialCapital float64) *Portfolio {
	return &Portfolio{
		InitialCapital: initialCapital,
		Cash:           initialCapital,
		Positions:      make(map[string]*Position),
		EquityHigh:     initialCapital,
		DayStartEquity: initialCapital,
	}
}

// PositionValue is the mark-to-market view of one position.
type PositionValue struct {
	Symbol       string  `json:"symbol"`
	Quantity     int64   `json:"quantity"`
	AvgEntry     float64 `json:"avg_entry"`
	Price        float64 `json:"price"`
	MarketValue  float64 `json:"market_value"`
	Unrealized   float64 `json:"unrealized"`
	UnrealizedPc float64 `json:"unrealized_pct"`
}

// Valuation is a point-in-time snapshot of portfolio worth.
type Valuation struct {
	Cash        float64                  `json:"cash"`
	MarketValue float64                  `json:"market_value"`
	Equity      float64                  `json:"equity"`
	Unrealized  float64                  `json:"unrealized"`
	Positions   map[string]PositionValue `json:"positions"`
}

// MarkToMarket values every position at the given prices. Positions with
// no fresh price fall back to their average entry so a stale feed never
// fabricates a gain or loss. The portfolio itself is not mutated.
func (p *Portfolio) MarkToMarket(prices map[string]float64) Valuation {
	v := Valuation{
		Cash:      p.Cash,
		Positions: make(map[string]PositionValue, len(p.Positions)),
	}
	for symbol, pos := range p.Positions {
		price, ok := prices[symbol]
		if !ok || price <= 0 {
			price = pos.AvgEntry
		}
		mv := float64(pos.Quantity) * price
		unreal := (price - pos.AvgEntry) * float64(pos.Quantity)
		pv := PositionValue{
			Symbol:      symbol,
			Quantity:    pos.Quantity,
			AvgEntry:    pos.AvgEntry,
			Price:       price,
			MarketValue: mv,
			Unrealized:  unreal,
		}
		if pos.AvgEntry > 0 {
			pv.UnrealizedPc = (price/pos.AvgEntry - 1) * 100
		}
		v.Positions[symbol] = pv
		v.MarketValue += mv
		v.Unrealized += unreal
	}
	v.Equity = v.Cash + v.MarketValue
	return v
}
