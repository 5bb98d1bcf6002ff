package config

import "strings"

// Config 是 stockpilot 的主配置载体。
type Config struct {
	App       AppConfig       `toml:"app"`
	Watchlist WatchlistConfig `toml:"watchlist"`
	Market    MarketConfig    `toml:"market"`
	Trading   TradingConfig   `toml:"trading"`
	Risk      RiskConfig      `toml:"risk"`
	Notify    NotifyConfig    `toml:"notify"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
	StateDB  string `toml:"state_db_path"`
}

// WatchlistConfig 描述监控股票清单的来源。
// Path 指向可热更新的 YAML 文件；Symbols 为内联回退清单。
type WatchlistConfig struct {
	Path      string   `toml:"path"`
	Symbols   []string `toml:"symbols"`
	HotReload bool     `toml:"hot_reload"`
}

type MarketConfig struct {
	Source         string `toml:"source"` // "baomoi" | "sim"
	RESTBaseURL    string `toml:"rest_base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	HistoryDepth   int    `toml:"history_depth"`
}

// TradingConfig 控制轮询节奏、资金与信号阈值。
type TradingConfig struct {
	PollIntervalSeconds int               `toml:"poll_interval_seconds"`
	InitialCapital      float64           `toml:"initial_capital"`
	BuyThreshold        float64           `toml:"buy_threshold"`
	SellThreshold       float64           `toml:"sell_threshold"`
	ReportEveryCycles   int               `toml:"report_every_cycles"`
	MarketHours         MarketHoursConfig `toml:"market_hours"`
}

// MarketHoursConfig gates trading to exchange sessions. Times are "HH:MM"
// in the local zone; disabled means the loop trades around the clock.
type MarketHoursConfig struct {
	Enabled        bool   `toml:"enabled"`
	MorningOpen    string `toml:"morning_open"`
	MorningClose   string `toml:"morning_close"`
	AfternoonOpen  string `toml:"afternoon_open"`
	AfternoonClose string `toml:"afternoon_close"`
}

// RiskConfig 汇总风控阈值，比例均为 0~1 的小数。
type RiskConfig struct {
	MaxOpenPositions     int     `toml:"max_open_positions"`
	MaxPositionPct       float64 `toml:"max_position_pct"`
	MinPositionPct       float64 `toml:"min_position_pct"`
	StopLossPct          float64 `toml:"stop_loss_pct"`
	TakeProfitPct        float64 `toml:"take_profit_pct"`
	TakeProfitSellPct    float64 `toml:"take_profit_sell_pct"`
	TrailingStopPct      float64 `toml:"trailing_stop_pct"`
	MaxDailyLossPct      float64 `toml:"max_daily_loss_pct"`
	MaxDrawdownPct       float64 `toml:"max_drawdown_pct"`
	MaxConsecutiveLosses int     `toml:"max_consecutive_losses"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
