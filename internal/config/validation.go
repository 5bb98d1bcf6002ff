package config

import (
	"fmt"
	"strings"
	"time"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Watchlist.validate(); err != nil {
		return err
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (w *WatchlistConfig) validate() error {
	if strings.TrimSpace(w.Path) == "" && len(w.Symbols) == 0 {
		return fmt.Errorf("watchlist requires either path or inline symbols")
	}
	for _, sym := range w.Symbols {
		if strings.TrimSpace(sym) == "" {
			return fmt.Errorf("watchlist.symbols contains empty symbol")
		}
	}
	return nil
}

func (m *MarketConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(m.Source)) {
	case "baomoi":
		if strings.TrimSpace(m.RESTBaseURL) == "" {
			return fmt.Errorf("market source baomoi missing rest_base_url")
		}
	case "sim":
	default:
		return fmt.Errorf("unknown market.source: %s", m.Source)
	}
	if m.HistoryDepth < 10 || m.HistoryDepth > 1000 {
		return fmt.Errorf("market.history_depth must be in [10,1000]")
	}
	return nil
}

func (t *TradingConfig) validate() error {
	if t.PollIntervalSeconds < 5 {
		return fmt.Errorf("trading.poll_interval_seconds must be >= 5")
	}
	if t.InitialCapital <= 0 {
		return fmt.Errorf("trading.initial_capital must be > 0")
	}
	if t.BuyThreshold <= 0 || t.BuyThreshold > 100 {
		return fmt.Errorf("trading.buy_threshold must be in (0,100]")
	}
	if t.SellThreshold < 0 || t.SellThreshold >= 100 {
		return fmt.Errorf("trading.sell_threshold must be in [0,100)")
	}
	if t.SellThreshold >= t.BuyThreshold {
		return fmt.Errorf("trading.sell_threshold must be below buy_threshold")
	}
	if t.MarketHours.Enabled {
		for _, raw := range []string{
			t.MarketHours.MorningOpen, t.MarketHours.MorningClose,
			t.MarketHours.AfternoonOpen, t.MarketHours.AfternoonClose,
		} {
			if _, err := time.Parse("15:04", strings.TrimSpace(raw)); err != nil {
				return fmt.Errorf("trading.market_hours contains invalid time %q", raw)
			}
		}
	}
	return nil
}

func (r *RiskConfig) validate() error {
	type bound struct {
		name string
		val  float64
		max  float64
	}
	for _, b := range []bound{
		{"risk.max_position_pct", r.MaxPositionPct, 0.5},
		{"risk.min_position_pct", r.MinPositionPct, 0.5},
		{"risk.stop_loss_pct", r.StopLossPct, 0.2},
		{"risk.take_profit_pct", r.TakeProfitPct, 1},
		{"risk.take_profit_sell_pct", r.TakeProfitSellPct, 1},
		{"risk.trailing_stop_pct", r.TrailingStopPct, 0.2},
		{"risk.max_daily_loss_pct", r.MaxDailyLossPct, 0.5},
		{"risk.max_drawdown_pct", r.MaxDrawdownPct, 0.9},
	} {
		if b.val <= 0 || b.val > b.max {
			return fmt.Errorf("%s must be in (0,%g]", b.name, b.max)
		}
	}
	if r.MinPositionPct > r.MaxPositionPct {
		return fmt.Errorf("risk.min_position_pct cannot exceed max_position_pct")
	}
	if r.MaxDailyLossPct > r.MaxDrawdownPct {
		return fmt.Errorf("risk.max_daily_loss_pct cannot exceed max_drawdown_pct")
	}
	if r.MaxOpenPositions <= 0 {
		return fmt.Errorf("risk.max_open_positions must be > 0")
	}
	if r.MaxConsecutiveLosses <= 0 {
		return fmt.Errorf("risk.max_consecutive_losses must be > 0")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if n.Telegram.Enabled {
		if n.Telegram.BotToken == "" || n.Telegram.ChatID == "" {
			return fmt.Errorf("telegram notification enabled but missing bot_token or chat_id")
		}
	}
	return nil
}
