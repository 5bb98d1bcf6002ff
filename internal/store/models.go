package store

import (
	"time"

	"gorm.io/datatypes"
)

// StateModel holds one keyed JSON blob (portfolio, risk state, price
// history). The trading loop overwrites these every cycle so a restart
// can resume mid-day.
type StateModel struct {
	ID        uint           `gorm:"primaryKey"`
	Key       string         `gorm:"uniqueIndex;size:64"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

func (StateModel) TableName() string { return "app_state" }

// TradeModel 成交流水,构成交易日志。
type TradeModel struct {
	ID       uint    `gorm:"primaryKey"`
	FillID   string  `gorm:"uniqueIndex;size:64"`
	Symbol   string  `gorm:"index;size:16"`
	Side     string  `gorm:"size:8"`
	Quantity int64   `gorm:"not null"`
	Price    float64 `gorm:"not null"`
	Value    float64 `gorm:"not null"`
	PnL      float64
	Reason   string `gorm:"size:256"`
	At       time.Time
}

func (TradeModel) TableName() string { return "trades" }

// EquityPointModel is one point of the equity curve.
type EquityPointModel struct {
	ID     uint `gorm:"primaryKey"`
	At     time.Time
	Equity float64
	Cash   float64
}

func (EquityPointModel) TableName() string { return "equity_points" }

const (
	stateKeyPortfolio = "portfolio"
	stateKeyRisk      = "risk_state"
	stateKeyHistory   = "history"
)
