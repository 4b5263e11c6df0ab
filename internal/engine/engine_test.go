package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Prices below are expressed in ticks at a scale of 10 per whole unit, so
// 100.0 -> 1000, 99.5 -> 995, and so on, matching spec.md's literal
// scenarios while keying the book on integers per spec.md §9.

func TestAddAndCancel_S1(t *testing.T) {
	eng := New(nil)

	require.NoError(t, eng.AddOrder(1, Bid, 1000, 50, 1))
	require.NoError(t, eng.AddOrder(2, Bid, 995, 100, 2))
	require.NoError(t, eng.AddOrder(3, Bid, 990, 75, 3))
	require.NoError(t, eng.AddOrder(4, Ask, 1010, 60, 4))
	require.NoError(t, eng.AddOrder(5, Ask, 1015, 80, 5))
	require.NoError(t, eng.AddOrder(6, Ask, 1020, 90, 6))

	bids, asks := eng.Snapshot(5)
	assert.Equal(t, []LevelView{{1000, 50}, {995, 100}, {990, 75}}, bids)
	assert.Equal(t, []LevelView{{1010, 60}, {1015, 80}, {1020, 90}}, asks)

	assert.True(t, eng.CancelOrder(2))
	bids, _ = eng.Snapshot(5)
	assert.Equal(t, []LevelView{{1000, 50}, {990, 75}}, bids)

	assert.False(t, eng.CancelOrder(2))
}

func TestAggressiveBuySweep_S2(t *testing.T) {
	eng := New(nil)
	require.NoError(t, eng.AddOrder(1, Bid, 1000, 50, 1))
	require.NoError(t, eng.AddOrder(3, Bid, 990, 75, 3))
	require.NoError(t, eng.AddOrder(4, Ask, 1010, 60, 4))
	require.NoError(t, eng.AddOrder(5, Ask, 1015, 80, 5))
	require.NoError(t, eng.AddOrder(6, Ask, 1020, 90, 6))

	var trades []TradeEvent
	eng.sink = func(ev TradeEvent) { trades = append(trades, ev) }

	require.NoError(t, eng.AddOrder(105, Bid, 1020, 200, 7))

	require.Len(t, trades, 3)
	assert.Equal(t, TradeEvent{BuyOrderID: 105, SellOrderID: 4, Quantity: 60, Price: 1010}, trades[0])
	assert.Equal(t, TradeEvent{BuyOrderID: 105, SellOrderID: 5, Quantity: 80, Price: 1015}, trades[1])
	assert.Equal(t, TradeEvent{BuyOrderID: 105, SellOrderID: 6, Quantity: 60, Price: 1020}, trades[2])

	// Order 105 fully consumed its 200 shares (60+80+60) and rests nowhere.
	assert.False(t, eng.loc.Has(105))

	bids, asks := eng.Snapshot(5)
	assert.Equal(t, []LevelView{{1000, 50}, {990, 75}}, bids)
	// Ask 6 only gave up 60 of its 90: the remainder still rests.
	assert.Equal(t, []LevelView{{1020, 30}}, asks)
	assert.Equal(t, uint64(3), eng.Stats().TotalOrdersMatched)
}

func TestFIFOWithinLevel_S3(t *testing.T) {
	eng := New(nil)
	require.NoError(t, eng.AddOrder(201, Bid, 1000, 50, 1))
	require.NoError(t, eng.AddOrder(202, Bid, 1000, 75, 2))
	require.NoError(t, eng.AddOrder(203, Bid, 1000, 100, 3))

	var trades []TradeEvent
	eng.sink = func(ev TradeEvent) { trades = append(trades, ev) }

	require.NoError(t, eng.AddOrder(204, Ask, 1000, 100, 4))

	require.Len(t, trades, 2)
	assert.Equal(t, TradeEvent{BuyOrderID: 201, SellOrderID: 204, Quantity: 50, Price: 1000}, trades[0])
	assert.Equal(t, TradeEvent{BuyOrderID: 202, SellOrderID: 204, Quantity: 50, Price: 1000}, trades[1])

	assert.False(t, eng.loc.Has(201))
	assert.False(t, eng.loc.Has(204))

	loc202, ok := eng.loc.Get(202)
	require.True(t, ok)
	assert.Equal(t, uint64(25), loc202.Order.Quantity)

	bestBid, ok := eng.BestBid()
	require.True(t, ok)
	assert.Equal(t, uint64(125), bestBid.Quantity) // 25 (202) + 100 (203)
	assert.Equal(t, 0, eng.AskLevels())

	// 203 must still be queued behind 202.
	level, ok := eng.bids.Get(1000)
	require.True(t, ok)
	orders := level.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, uint64(202), orders[0].ID)
	assert.Equal(t, uint64(203), orders[1].ID)
}

func TestQuantityAmendPreservesPriority_S4(t *testing.T) {
	eng := New(nil)
	require.NoError(t, eng.AddOrder(301, Bid, 1000, 10, 1))
	require.NoError(t, eng.AddOrder(302, Bid, 1000, 10, 2))

	assert.True(t, eng.AmendOrder(301, 1000, 1000))

	var trades []TradeEvent
	eng.sink = func(ev TradeEvent) { trades = append(trades, ev) }
	require.NoError(t, eng.AddOrder(303, Ask, 1000, 10, 3))

	require.Len(t, trades, 1)
	assert.Equal(t, TradeEvent{BuyOrderID: 301, SellOrderID: 303, Quantity: 10, Price: 1000}, trades[0])

	level, ok := eng.bids.Get(1000)
	require.True(t, ok)
	orders := level.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, uint64(301), orders[0].ID, "301 keeps head priority across the amend")
	assert.Equal(t, uint64(990), orders[0].Quantity)
	assert.Equal(t, uint64(302), orders[1].ID)
}

func TestPriceAmendLosesPriority_S5(t *testing.T) {
	eng := New(nil)
	require.NoError(t, eng.AddOrder(401, Bid, 1000, 10, 1))
	require.NoError(t, eng.AddOrder(402, Bid, 1000, 10, 2))

	assert.True(t, eng.AmendOrder(401, 995, 10))

	level1000, ok := eng.bids.Get(1000)
	require.True(t, ok)
	orders := level1000.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, uint64(402), orders[0].ID)

	level995, ok := eng.bids.Get(995)
	require.True(t, ok)
	orders = level995.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, uint64(401), orders[0].ID)
}

func TestAmendUnknownID(t *testing.T) {
	eng := New(nil)
	assert.False(t, eng.AmendOrder(999, 1000, 10))
}

func TestAddOrder_RejectsZeroQuantity(t *testing.T) {
	eng := New(nil)
	assert.ErrorIs(t, eng.AddOrder(1, Bid, 1000, 0, 1), ErrNonPositiveQuantity)
}

func TestAddOrder_RejectsDuplicateID(t *testing.T) {
	eng := New(nil)
	require.NoError(t, eng.AddOrder(1, Bid, 1000, 10, 1))
	assert.ErrorIs(t, eng.AddOrder(1, Bid, 999, 10, 2), ErrDuplicateOrderID)
}

func TestAggressorLargerThanLiquidity_Rests(t *testing.T) {
	eng := New(nil)
	require.NoError(t, eng.AddOrder(1, Ask, 1000, 50, 1))
	require.NoError(t, eng.AddOrder(2, Bid, 1000, 200, 2))

	bestBid, ok := eng.BestBid()
	require.True(t, ok)
	assert.Equal(t, uint64(150), bestBid.Quantity)
	assert.Equal(t, 0, eng.AskLevels())
}

func TestClearResetsEverything(t *testing.T) {
	eng := New(nil)
	require.NoError(t, eng.AddOrder(1, Bid, 1000, 50, 1))
	require.NoError(t, eng.AddOrder(2, Ask, 1010, 50, 2))
	eng.Clear()

	assert.Equal(t, 0, eng.BidLevels())
	assert.Equal(t, 0, eng.AskLevels())
	assert.Equal(t, Stats{}, eng.Stats())
	// The id is free to reuse post-clear.
	assert.NoError(t, eng.AddOrder(1, Bid, 1000, 10, 10))
}

// TestTotalQuantityInvariant_S6 runs a deterministic pseudo-random sequence
// of adds and cancels over a small price grid and checks, after every
// operation, that each level's TotalQuantity equals the sum of its queued
// orders' quantities, and that the sum across a side's levels equals the
// sum of quantities the Locator holds live on that side.
func TestTotalQuantityInvariant_S6(t *testing.T) {
	eng := New(nil)
	rng := rand.New(rand.NewSource(42))
	grid := []Ticks{990, 995, 1000, 1005, 1010}

	live := make(map[uint64]bool)
	var nextID uint64 = 1

	for i := 0; i < 2000; i++ {
		if len(live) > 0 && rng.Intn(2) == 0 {
			var id uint64
			for existing := range live {
				id = existing
				break
			}
			eng.CancelOrder(id)
			delete(live, id)
			continue
		}

		id := nextID
		nextID++
		side := Bid
		if rng.Intn(2) == 0 {
			side = Ask
		}
		price := grid[rng.Intn(len(grid))]
		qty := uint64(rng.Intn(100) + 1)

		if err := eng.AddOrder(id, side, price, qty, uint64(i)); err == nil {
			if eng.loc.Has(id) {
				live[id] = true
			}
		}

		assertLevelInvariant(t, eng, live)
	}
}

func assertLevelInvariant(t *testing.T, eng *Engine, live map[uint64]bool) {
	t.Helper()
	bids, asks := eng.Snapshot(0)
	checkOne(t, eng, bids, Bid)
	checkOne(t, eng, asks, Ask)

	// Every Locator entry is in live (ids that rested at add and were not
	// cancelled), so summing live ids the Locator still holds covers it.
	var levelSum, locSum [2]uint64
	for _, v := range bids {
		levelSum[Bid] += v.Quantity
	}
	for _, v := range asks {
		levelSum[Ask] += v.Quantity
	}
	for id := range live {
		if loc, ok := eng.loc.Get(id); ok {
			locSum[loc.Side] += loc.Order.Quantity
		}
	}
	assert.Equal(t, levelSum, locSum)
}

func checkOne(t *testing.T, eng *Engine, views []LevelView, side Side) {
	t.Helper()
	idx := eng.sideIndex(side)
	for _, v := range views {
		level, ok := idx.Get(v.Price)
		require.True(t, ok)
		var sum uint64
		for _, o := range level.Orders() {
			sum += o.Quantity
		}
		assert.Equal(t, sum, level.TotalQuantity)
		assert.Equal(t, v.Quantity, level.TotalQuantity)
	}
}
