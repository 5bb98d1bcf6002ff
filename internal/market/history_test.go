package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func snapAt(symbol string, price float64, age time.Duration) Snapshot {
	return Snapshot{Symbol: symbol, Price: price, At: time.Now().Add(-age)}
}

func TestHistoryPushKeepsMostRecentFirst(t *testing.T) {
	h := NewHistory(10)
	h.Push(snapAt("FPT", 100, 2*time.Minute))
	h.Push(snapAt("FPT", 105, time.Minute))
	h.Push(snapAt("fpt", 110, 0))

	recent := h.Recent("FPT")
	assert.Len(t, recent, 3)
	assert.Equal(t, 110.0, recent[0].Price)
	assert.Equal(t, 100.0, recent[2].Price)

	price, ok := h.LastPrice("fpt")
	assert.True(t, ok)
	assert.Equal(t, 110.0, price)
}

func TestHistoryBoundsBuffer(t *testing.T) {
	h := NewHistory(5)
	for i := 0; i < 20; i++ {
		h.Push(snapAt("HPG", float64(i), 0))
	}
	recent := h.Recent("HPG")
	assert.Len(t, recent, 5)
	assert.Equal(t, 19.0, recent[0].Price)
	assert.Equal(t, 15.0, recent[4].Price)
}

func TestHistoryRecentReturnsCopy(t *testing.T) {
	h := NewHistory(10)
	h.Push(snapAt("FPT", 100, 0))

	recent := h.Recent("FPT")
	recent[0].Price = 1

	fresh := h.Recent("FPT")
	assert.Equal(t, 100.0, fresh[0].Price)
}

func TestHistoryRestoreAndDump(t *testing.T) {
	h := NewHistory(10)
	h.Restore("kbc", []Snapshot{
		snapAt("KBC", 34400, 0),
		snapAt("KBC", 34000, time.Minute),
	})

	price, ok := h.LastPrice("KBC")
	assert.True(t, ok)
	assert.Equal(t, 34400.0, price)

	dump := h.Dump()
	assert.Len(t, dump["KBC"], 2)
	assert.ElementsMatch(t, []string{"KBC"}, h.Symbols())
}

func TestComputeIndicatorsNeedsEnoughData(t *testing.T) {
	h := NewHistory(60)
	for i := 0; i < 5; i++ {
		h.Push(snapAt("FPT", 100+float64(i), time.Duration(5-i)*time.Minute))
	}
	ind := ComputeIndicators(h.Recent("FPT"))
	assert.False(t, ind.HasRSI)
	assert.False(t, ind.HasMACD)
	assert.False(t, ind.HasMomentum)
}

func TestComputeIndicatorsOnRisingSeries(t *testing.T) {
	h := NewHistory(60)
	price := 100.0
	for i := 0; i < 40; i++ {
		price *= 1.005
		h.Push(Snapshot{Symbol: "FPT", Price: price, At: time.Now()})
	}
	ind := ComputeIndicators(h.Recent("FPT"))
	assert.True(t, ind.HasRSI)
	assert.True(t, ind.HasMACD)
	assert.True(t, ind.HasMomentum)
	assert.Greater(t, ind.RSI, 50.0)
	assert.Greater(t, ind.Momentum, 0.0)
}
