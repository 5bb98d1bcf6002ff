package config

import "strings"

// 默认值常量
const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppHTTPAddr = ":9980"
	defaultAppLogPath  = "data/logs/stockpilot.log"
	defaultAppStateDB  = "data/db/stockpilot.db"

	defaultMarketSource  = "sim"
	defaultMarketREST    = "https://w-api.baomoi.com"
	defaultMarketTimeout = 10
	defaultHistoryDepth  = 60

	defaultPollInterval   = 300
	defaultInitialCapital = 10_000_000
	defaultBuyThreshold   = 60
	defaultSellThreshold  = 40
	defaultReportEvery    = 12

	defaultMorningOpen    = "09:00"
	defaultMorningClose   = "11:30"
	defaultAfternoonOpen  = "13:00"
	defaultAfternoonClose = "14:30"

	defaultMaxOpenPositions = 4
	defaultMaxPositionPct   = 0.25
	defaultMinPositionPct   = 0.05
	defaultStopLossPct      = 0.08
	defaultTakeProfitPct    = 0.15
	defaultTPSellPct        = 0.50
	defaultTrailingStopPct  = 0.05
	defaultMaxDailyLossPct  = 0.05
	defaultMaxDrawdownPct   = 0.15
	defaultMaxConsecLosses  = 3
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
	c.Risk.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.state_db_path", &a.StateDB, defaultAppStateDB),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("market.source", &m.Source, defaultMarketSource),
		stringFieldDefault("market.rest_base_url", &m.RESTBaseURL, defaultMarketREST),
		fieldDefault{
			key:   "market.timeout_seconds",
			need:  func() bool { return m.TimeoutSeconds <= 0 },
			apply: func() { m.TimeoutSeconds = defaultMarketTimeout },
		},
		fieldDefault{
			key:   "market.history_depth",
			need:  func() bool { return m.HistoryDepth <= 0 },
			apply: func() { m.HistoryDepth = defaultHistoryDepth },
		},
	)
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "trading.poll_interval_seconds",
			need:  func() bool { return t.PollIntervalSeconds <= 0 },
			apply: func() { t.PollIntervalSeconds = defaultPollInterval },
		},
		fieldDefault{
			key:   "trading.initial_capital",
			need:  func() bool { return t.InitialCapital <= 0 },
			apply: func() { t.InitialCapital = defaultInitialCapital },
		},
		fieldDefault{
			key:   "trading.buy_threshold",
			need:  func() bool { return t.BuyThreshold <= 0 },
			apply: func() { t.BuyThreshold = defaultBuyThreshold },
		},
		fieldDefault{
			key:   "trading.sell_threshold",
			need:  func() bool { return t.SellThreshold <= 0 },
			apply: func() { t.SellThreshold = defaultSellThreshold },
		},
		fieldDefault{
			key:   "trading.report_every_cycles",
			need:  func() bool { return t.ReportEveryCycles <= 0 },
			apply: func() { t.ReportEveryCycles = defaultReportEvery },
		},
		stringFieldDefault("trading.market_hours.morning_open", &t.MarketHours.MorningOpen, defaultMorningOpen),
		stringFieldDefault("trading.market_hours.morning_close", &t.MarketHours.MorningClose, defaultMorningClose),
		stringFieldDefault("trading.market_hours.afternoon_open", &t.MarketHours.AfternoonOpen, defaultAfternoonOpen),
		stringFieldDefault("trading.market_hours.afternoon_close", &t.MarketHours.AfternoonClose, defaultAfternoonClose),
	)
}

func (r *RiskConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "risk.max_open_positions",
			need:  func() bool { return r.MaxOpenPositions <= 0 },
			apply: func() { r.MaxOpenPositions = defaultMaxOpenPositions },
		},
		floatFieldDefault("risk.max_position_pct", &r.MaxPositionPct, defaultMaxPositionPct),
		floatFieldDefault("risk.min_position_pct", &r.MinPositionPct, defaultMinPositionPct),
		floatFieldDefault("risk.stop_loss_pct", &r.StopLossPct, defaultStopLossPct),
		floatFieldDefault("risk.take_profit_pct", &r.TakeProfitPct, defaultTakeProfitPct),
		floatFieldDefault("risk.take_profit_sell_pct", &r.TakeProfitSellPct, defaultTPSellPct),
		floatFieldDefault("risk.trailing_stop_pct", &r.TrailingStopPct, defaultTrailingStopPct),
		floatFieldDefault("risk.max_daily_loss_pct", &r.MaxDailyLossPct, defaultMaxDailyLossPct),
		floatFieldDefault("risk.max_drawdown_pct", &r.MaxDrawdownPct, defaultMaxDrawdownPct),
		fieldDefault{
			key:   "risk.max_consecutive_losses",
			need:  func() bool { return r.MaxConsecutiveLosses <= 0 },
			apply: func() { r.MaxConsecutiveLosses = defaultMaxConsecLosses },
		},
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
