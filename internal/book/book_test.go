package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool_AcquireReleaseReuse(t *testing.T) {
	pool := NewPoolWithBlockSize(2)

	a := pool.Acquire()
	a.ID = 1
	b := pool.Acquire()
	b.ID = 2

	pool.Release(a)
	c := pool.Acquire()
	assert.Same(t, a, c, "released storage should be reused before growing")
	assert.Equal(t, uint64(0), c.ID, "released order should come back zeroed")
}

func TestPool_GrowsOnExhaustion(t *testing.T) {
	pool := NewPoolWithBlockSize(2)
	_ = pool.Acquire()
	_ = pool.Acquire()

	// Free list is now empty; a third Acquire must grow rather than panic.
	assert.NotPanics(t, func() {
		o := pool.Acquire()
		assert.NotNil(t, o)
	})
}

func TestPriceLevel_FIFOAndTotalQuantity(t *testing.T) {
	level := NewPriceLevel(100)
	pool := NewPool()

	o1 := pool.Acquire()
	*o1 = Order{ID: 1, Quantity: 10}
	o2 := pool.Acquire()
	*o2 = Order{ID: 2, Quantity: 20}

	h1 := level.Append(o1)
	_ = level.Append(o2)

	assert.Equal(t, uint64(30), level.TotalQuantity)
	assert.Equal(t, uint64(1), level.HeadOrder().ID)

	level.Remove(h1)
	assert.Equal(t, uint64(20), level.TotalQuantity)
	assert.Equal(t, uint64(2), level.HeadOrder().ID)
	assert.False(t, level.Empty())
}

func TestSideIndex_BidsDescendingAsksAscending(t *testing.T) {
	bids := NewBidIndex()
	bids.FindOrCreate(99)
	bids.FindOrCreate(101)
	bids.FindOrCreate(100)

	got := bids.Levels(0)
	assert.Len(t, got, 3)
	assert.Equal(t, Ticks(101), got[0].Price)
	assert.Equal(t, Ticks(100), got[1].Price)
	assert.Equal(t, Ticks(99), got[2].Price)

	asks := NewAskIndex()
	asks.FindOrCreate(105)
	asks.FindOrCreate(102)
	asks.FindOrCreate(103)

	got = asks.Levels(0)
	assert.Len(t, got, 3)
	assert.Equal(t, Ticks(102), got[0].Price)
	assert.Equal(t, Ticks(103), got[1].Price)
	assert.Equal(t, Ticks(105), got[2].Price)
}

func TestSideIndex_EraseRemovesEmptyLevel(t *testing.T) {
	idx := NewBidIndex()
	idx.FindOrCreate(100)
	assert.Equal(t, 1, idx.Len())

	idx.Erase(100)
	assert.True(t, idx.Empty())
	_, ok := idx.Best()
	assert.False(t, ok)
}

func TestLocator_PutGetDelete(t *testing.T) {
	loc := NewLocator()
	assert.False(t, loc.Has(1))

	loc.Put(1, Location{Side: Bid, Price: 100})
	got, ok := loc.Get(1)
	assert.True(t, ok)
	assert.Equal(t, Ticks(100), got.Price)

	loc.Delete(1)
	assert.False(t, loc.Has(1))
	assert.Equal(t, 0, loc.Len())
}
