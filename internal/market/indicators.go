package market

import "github.com/markcheno/go-talib"

const (
	rsiPeriod      = 14
	momentumPeriod = 10
	macdFast       = 12
	macdSlow       = 26
	macdSignal     = 9
)

// Indicators carries the optional technical context derived from a
// symbol's history. A false Has* flag means the buffer was too short to
// compute that value; consumers treat it as neutral, never as zero.
type Indicators struct {
	RSI         float64
	HasRSI      bool
	MACDHist    float64
	HasMACD     bool
	Momentum    float64
	HasMomentum bool
}

// ComputeIndicators derives RSI, MACD histogram and price momentum from a
// most-recent-first history buffer. Short buffers simply leave the
// corresponding flag unset.
func ComputeIndicators(history []Snapshot) Indicators {
	var ind Indicators
	if len(history) < 2 {
		return ind
	}
	closes := make([]float64, len(history))
	// talib expects chronological order
	for i, snap := range history {
		closes[len(history)-1-i] = snap.Price
	}
	if len(closes) > rsiPeriod {
		series := talib.Rsi(closes, rsiPeriod)
		if val := series[len(series)-1]; val > 0 {
			ind.RSI = val
			ind.HasRSI = true
		}
	}
	if len(closes) >= macdSlow+macdSignal {
		_, _, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
		ind.MACDHist = hist[len(hist)-1]
		ind.HasMACD = true
	}
	if len(closes) > momentumPeriod {
		series := talib.Mom(closes, momentumPeriod)
		ind.Momentum = series[len(series)-1]
		ind.HasMomentum = true
	}
	return ind
}
