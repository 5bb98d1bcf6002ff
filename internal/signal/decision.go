package signal

import "time"

// Action is the direction a Decision recommends.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Decision is the immutable output of one evaluation of one instrument.
// Supporting and Opposing carry the rationale from the two scan passes,
// Unavailable names the signals that could not be computed this cycle.
type Decision struct {
	Symbol      string    `json:"symbol"`
	Action      Action    `json:"action"`
	Confidence  float64   `json:"confidence"`
	Supporting  []string  `json:"supporting,omitempty"`
	Opposing    []string  `json:"opposing,omitempty"`
	Unavailable []string  `json:"unavailable,omitempty"`
	EntryPrice  float64   `json:"entry_price"`
	StopPrice   float64   `json:"stop_price"`
	TargetPrice float64   `json:"target_price"`
	At          time.Time `json:"at"`
}

// IsActionable reports whether the decision asks for a trade.
func (d Decision) IsActionable() bool {
	return d.Action == ActionBuy || d.Action == ActionSell
}
