package simfeed

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"stockpilot/internal/market"
)

// basePrices 演示模式的初始价格 (VND)。
var basePrices = map[string]float64{
	"FPT": 121100,
	"KBC": 34400,
	"HPG": 28400,
}

const defaultBasePrice = 50000

type symbolState struct {
	rng   *rand.Rand
	price float64
	open  float64
	high  float64
	low   float64
}

// Source produces a deterministic random walk per symbol so demo runs
// are reproducible without touching a real exchange.
type Source struct {
	mu     sync.Mutex
	states map[string]*symbolState
}

func NewSource() *Source {
	return &Source{states: make(map[string]*symbolState)}
}

func (s *Source) Name() string { return "sim" }

func (s *Source) Fetch(_ context.Context, symbol string) (market.Snapshot, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[symbol]
	if !ok {
		base, found := basePrices[symbol]
		if !found {
			base = defaultBasePrice
		}
		h := fnv.New64a()
		h.Write([]byte(symbol))
		st = &symbolState{
			rng:   rand.New(rand.NewSource(int64(h.Sum64()))),
			price: base,
			open:  base,
			high:  base,
			low:   base,
		}
		s.states[symbol] = st
	}

	// Bounded walk: +/-1.5% per tick with a slight drift back to the open.
	step := (st.rng.Float64()*2 - 1) * 0.015
	drift := (st.open - st.price) / st.open * 0.05
	st.price = st.price * (1 + step + drift)
	st.price = math.Max(st.price, st.open*0.5)
	st.high = math.Max(st.high, st.price)
	st.low = math.Min(st.low, st.price)

	return market.Snapshot{
		Symbol:    symbol,
		Price:     math.Round(st.price),
		ChangePct: (st.price - st.open) / st.open * 100,
		Volume:    float64(500000 + st.rng.Intn(2_000_000)),
		High:      math.Round(st.high),
		Low:       math.Round(st.low),
		At:        time.Now(),
	}, nil
}
