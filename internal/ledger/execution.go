package ledger

import (
	"time"

	"github.com/google/uuid"

	"stockpilot/internal/signal"
)

// Order is a trade proposal handed to an execution adapter.
// Amount is the cash to spend for a BUY; Fraction is the share of the
// position to liquidate for a SELL, in (0,1].
type Order struct {
	Symbol   string
	Side     signal.Action
	Price    float64
	Amount   float64
	Fraction float64
	Reason   string
}

// Fill is the executed result of an Order.
type Fill struct {
	ID       string    `json:"id"`
	Symbol   string    `json:"symbol"`
	Side     string    `json:"side"`
	Quantity int64     `json:"quantity"`
	Price    float64   `json:"price"`
	Value    float64   `json:"value"`
	PnL      float64   `json:"pnl"`
	Reason   string    `json:"reason"`
	At       time.Time `json:"at"`
}

// Execution fills orders. The paper adapter ships with the ledger; a
// brokerage adapter would satisfy the same interface.
type Execution interface {
	Execute(order Order, quantity int64) (Fill, error)
	Name() string
}

// SimulatedExecution fills every order instantly at the proposed price.
type SimulatedExecution struct{}

func NewSimulatedExecution() *SimulatedExecution { return &SimulatedExecution{} }

func (SimulatedExecution) Name() string { return "paper" }

func (SimulatedExecution) Execute(order Order, quantity int64) (Fill, error) {
	return Fill{
		ID:       uuid.NewString(),
		Symbol:   order.Symbol,
		Side:     string(order.Side),
		Quantity: quantity,
		Price:    order.Price,
		Value:    float64(quantity) * order.Price,
		Reason:   order.Reason,
		At:       time.Now(),
	}, nil
}
