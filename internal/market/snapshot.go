package market

import (
	"context"
	"errors"
	"time"
)

// Snapshot is one quote for one instrument. It is immutable once produced
// by a Source and consumed exactly once per cycle.
type Snapshot struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	ChangePct float64   `json:"change_pct"`
	Volume    float64   `json:"volume"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	At        time.Time `json:"at"`
}

// ErrUnavailable marks a transient upstream failure. Callers skip the
// symbol for the current cycle instead of treating this as a fault.
var ErrUnavailable = errors.New("market data unavailable")

// Source provides quotes for watch-list symbols. Implementations report
// transient failures by wrapping ErrUnavailable, never by panicking.
type Source interface {
	Fetch(ctx context.Context, symbol string) (Snapshot, error)
	Name() string
}
