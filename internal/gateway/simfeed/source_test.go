package simfeed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchProducesBoundedWalk(t *testing.T) {
	src := NewSource()

	for i := 0; i < 50; i++ {
		snap, err := src.Fetch(context.Background(), "FPT")
		assert.NoError(t, err)
		assert.Equal(t, "FPT", snap.Symbol)
		assert.GreaterOrEqual(t, snap.Price, basePrices["FPT"]*0.5)
		assert.GreaterOrEqual(t, snap.High, snap.Price)
		assert.LessOrEqual(t, snap.Low, snap.Price)
		assert.GreaterOrEqual(t, snap.Volume, 500000.0)
		assert.Less(t, snap.Volume, 2_500_000.0)
	}
}

func TestFetchIsDeterministicPerSymbol(t *testing.T) {
	a := NewSource()
	b := NewSource()

	for i := 0; i < 10; i++ {
		sa, _ := a.Fetch(context.Background(), "hpg")
		sb, _ := b.Fetch(context.Background(), "HPG")
		assert.Equal(t, sb.Price, sa.Price)
		assert.Equal(t, sb.Volume, sa.Volume)
	}
}

func TestFetchUnknownSymbolUsesDefaultBase(t *testing.T) {
	src := NewSource()
	snap, err := src.Fetch(context.Background(), "XYZ")
	assert.NoError(t, err)
	assert.InDelta(t, defaultBasePrice, snap.Price, defaultBasePrice*0.02)
}
