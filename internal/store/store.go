package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"stockpilot/internal/ledger"
	"stockpilot/internal/market"
	"stockpilot/internal/risk"
)

// Store persists trading state in sqlite. One writer (the loop) and a
// few HTTP readers share it.
type Store struct {
	db *gorm.DB
}

// CycleState is everything the loop saves after each cycle.
type CycleState struct {
	Portfolio *ledger.Portfolio
	Risk      risk.State
	History   map[string][]market.Snapshot
	Fills     []ledger.Fill
	Equity    float64
	At        time.Time
}

// RestoredState is what Load recovers after a restart.
type RestoredState struct {
	Portfolio *ledger.Portfolio
	Risk      risk.State
	History   map[string][]market.Snapshot
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return newStore(db)
}

func NewStoreFromDB(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db 不能为空")
	}
	return newStore(db)
}

func newStore(db *gorm.DB) (*Store, error) {
	models := []interface{}{
		&StateModel{},
		&TradeModel{},
		&EquityPointModel{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &Store{db: db}, nil
}

// SaveCycle writes the cycle state atomically. Either the whole cycle
// lands or none of it does.
func (s *Store) SaveCycle(ctx context.Context, cs CycleState) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cs.Portfolio != nil {
			if err := upsertState(tx, stateKeyPortfolio, cs.Portfolio); err != nil {
				return err
			}
		}
		if err := upsertState(tx, stateKeyRisk, cs.Risk); err != nil {
			return err
		}
		if cs.History != nil {
			if err := upsertState(tx, stateKeyHistory, cs.History); err != nil {
				return err
			}
		}
		for _, fill := range cs.Fills {
			row := TradeModel{
				FillID:   fill.ID,
				Symbol:   fill.Symbol,
				Side:     fill.Side,
				Quantity: fill.Quantity,
				Price:    fill.Price,
				Value:    fill.Value,
				PnL:      fill.PnL,
				Reason:   fill.Reason,
				At:       fill.At,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return err
			}
		}
		at := cs.At
		if at.IsZero() {
			at = time.Now()
		}
		point := EquityPointModel{At: at, Equity: cs.Equity}
		if cs.Portfolio != nil {
			point.Cash = cs.Portfolio.Cash
		}
		return tx.Create(&point).Error
	})
}

func upsertState(tx *gorm.DB, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	row := StateModel{Key: key, Value: raw}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}

// Load recovers the persisted state. A missing database is not an
// error: the zero RestoredState starts a fresh book.
func (s *Store) Load(ctx context.Context) (RestoredState, error) {
	var out RestoredState

	pf := &ledger.Portfolio{}
	found, err := s.loadState(ctx, stateKeyPortfolio, pf)
	if err != nil {
		return out, err
	}
	if found {
		out.Portfolio = pf
	}

	if _, err := s.loadState(ctx, stateKeyRisk, &out.Risk); err != nil {
		return out, err
	}

	history := make(map[string][]market.Snapshot)
	if found, err := s.loadState(ctx, stateKeyHistory, &history); err != nil {
		return out, err
	} else if found {
		out.History = history
	}
	return out, nil
}

func (s *Store) loadState(ctx context.Context, key string, dest any) (bool, error) {
	var row StateModel
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(row.Value, dest); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// Trades returns the most recent journal entries, newest first.
func (s *Store) Trades(ctx context.Context, limit int) ([]TradeModel, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []TradeModel
	err := s.db.WithContext(ctx).Order("at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// EquityCurve returns equity points in chronological order.
func (s *Store) EquityCurve(ctx context.Context, limit int) ([]EquityPointModel, error) {
	if limit <= 0 {
		limit = 1000
	}
	var rows []EquityPointModel
	err := s.db.WithContext(ctx).Order("at DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
