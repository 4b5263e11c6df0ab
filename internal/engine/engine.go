// Package engine implements the continuous limit order book's matching
// engine: the single-threaded, non-suspending core that owns the Side
// Index, Price Levels, Order Locator and Order Pool, and performs
// immediate price-time-priority matching on every add or quantity-increase
// amend.
//
// The engine never yields, blocks, or spawns goroutines. Callers that need
// concurrent access must serialize commands onto a single goroutine
// themselves (see internal/driver for the pattern this repository uses).
package engine

import "matchbook/internal/book"

// LevelView is a read-only (price, aggregate quantity) pair returned by
// Snapshot, BestBid and BestAsk. It is a copy: mutating it has no effect on
// the book.
type LevelView struct {
	Price    Ticks
	Quantity uint64
}

// Engine is a single-instrument continuous limit order book.
type Engine struct {
	bids *book.SideIndex
	asks *book.SideIndex
	pool *book.Pool
	loc  *book.Locator
	sink TradeSink

	stats Stats
}

// New creates an empty book. sink may be nil, in which case trades are
// matched but silently discarded - useful for tests that only assert on
// book state.
func New(sink TradeSink) *Engine {
	return &Engine{
		bids: book.NewBidIndex(),
		asks: book.NewAskIndex(),
		pool: book.NewPool(),
		loc:  book.NewLocator(),
		sink: sink,
	}
}

// SetSink replaces the trade sink. Useful when the sink itself needs a
// reference to the engine (e.g. a driver wiring itself in after
// construction); nil disables trade reporting without disabling matching.
func (e *Engine) SetSink(sink TradeSink) {
	e.sink = sink
}

func (e *Engine) sideIndex(side Side) *book.SideIndex {
	if side == Bid {
		return e.bids
	}
	return e.asks
}

// AddOrder inserts a new resting order and runs the crossing loop.
// Preconditions enforced: quantity must be strictly positive and id must
// not already be live. Both violations are rejected with a distinct error
// rather than left undefined, per spec.md §7's validation requirement.
func (e *Engine) AddOrder(id uint64, side Side, price Ticks, quantity uint64, timestamp uint64) error {
	if quantity == 0 {
		return ErrNonPositiveQuantity
	}
	if e.loc.Has(id) {
		return ErrDuplicateOrderID
	}

	order := e.pool.Acquire()
	*order = book.Order{
		ID:        id,
		Side:      side,
		Price:     price,
		Quantity:  quantity,
		Timestamp: timestamp,
	}

	level := e.sideIndex(side).FindOrCreate(price)
	handle := level.Append(order)
	e.loc.Put(id, book.Location{
		Order:  order,
		Side:   side,
		Price:  price,
		Handle: handle,
	})

	e.stats.TotalOrdersAdded++

	e.match(side)
	return nil
}

// CancelOrder removes a live order without triggering a cross. Returns
// false if id is not currently live.
func (e *Engine) CancelOrder(id uint64) bool {
	loc, ok := e.loc.Get(id)
	if !ok {
		return false
	}

	idx := e.sideIndex(loc.Side)
	level, ok := idx.Get(loc.Price)
	if !ok {
		// Invariant 1/2 violation if this is ever reached; defensive only.
		return false
	}

	level.Remove(loc.Handle)
	if level.Empty() {
		idx.Erase(loc.Price)
	}
	e.pool.Release(loc.Order)
	e.loc.Delete(id)
	e.stats.TotalOrdersCancelled++
	return true
}

// AmendOrder changes a live order's price and/or quantity. Returns false if
// id is not currently live.
//
// A same-price amend updates quantity in place and preserves queue
// priority regardless of whether quantity grew or shrank; the crossing
// loop only runs if quantity increased, since a decrease cannot create a
// new cross. A price change is implemented as cancel-then-add under the
// same id: priority is lost, and the crossing loop runs as part of the
// add. Amending quantity down to zero is undefined by spec.md §9 and is
// not specially handled here: a same-price amend to zero leaves a
// zero-quantity resting order (caller error), and a price-change amend to
// zero causes the subsequent AddOrder to reject with
// ErrNonPositiveQuantity, silently dropping the order from the book.
func (e *Engine) AmendOrder(id uint64, newPrice Ticks, newQuantity uint64) bool {
	loc, ok := e.loc.Get(id)
	if !ok {
		return false
	}

	if newPrice == loc.Price {
		idx := e.sideIndex(loc.Side)
		level, ok := idx.Get(loc.Price)
		if !ok {
			return false
		}
		oldQuantity := loc.Order.Quantity
		delta := int64(newQuantity) - int64(oldQuantity)
		level.TotalQuantity = uint64(int64(level.TotalQuantity) + delta)
		loc.Order.Quantity = newQuantity

		if newQuantity > oldQuantity {
			e.match(loc.Side)
		}
		return true
	}

	timestamp := loc.Order.Timestamp
	side := loc.Side
	e.CancelOrder(id)
	// The id was just freed by CancelOrder, so a duplicate-id rejection
	// cannot occur here; a zero-quantity rejection is the caller's problem
	// per spec.md §9.
	_ = e.AddOrder(id, side, newPrice, newQuantity, timestamp)
	return true
}

// match runs the crossing loop until the book is uncrossed. aggressorSide
// names the side whose order triggered this call: the resting (passive)
// counterparty is always on the opposite side, and its price is what gets
// reported on the emitted trade. This is the fix for spec.md §9's
// aggressor-priced-trade bug, which the reference implementation reports
// unconditionally as the sell side's price.
func (e *Engine) match(aggressorSide Side) {
	for {
		bestBid, bidOk := e.bids.Best()
		bestAsk, askOk := e.asks.Best()
		if !bidOk || !askOk || bestBid.Price < bestAsk.Price {
			return
		}

		buy := bestBid.HeadOrder()
		sell := bestAsk.HeadOrder()

		quantity := buy.Quantity
		if sell.Quantity < quantity {
			quantity = sell.Quantity
		}

		price := sell.Price
		if aggressorSide == Ask {
			price = buy.Price
		}

		e.emit(TradeEvent{
			BuyOrderID:  buy.ID,
			SellOrderID: sell.ID,
			Quantity:    quantity,
			Price:       price,
		})

		buy.Quantity -= quantity
		sell.Quantity -= quantity
		bestBid.TotalQuantity -= quantity
		bestAsk.TotalQuantity -= quantity

		e.consumeHeadIfFilled(bestBid, e.bids, buy)
		e.consumeHeadIfFilled(bestAsk, e.asks, sell)
	}
}

// consumeHeadIfFilled removes order from the front of level and releases it
// back to the pool if its remaining quantity has reached zero, erasing the
// level from idx if it is now empty. Quantity must already have been
// decremented by the caller; level.Remove's own bookkeeping decrement is
// therefore a no-op here (order.Quantity is already 0).
func (e *Engine) consumeHeadIfFilled(level *book.PriceLevel, idx *book.SideIndex, order *book.Order) {
	if order.Quantity != 0 {
		return
	}
	level.Remove(level.Head())
	e.loc.Delete(order.ID)
	e.pool.Release(order)
	if level.Empty() {
		idx.Erase(level.Price)
	}
}

func (e *Engine) emit(trade TradeEvent) {
	e.stats.TotalOrdersMatched++
	if e.sink != nil {
		e.sink(trade)
	}
}

// Snapshot copies at most depth (price, aggregate quantity) pairs from each
// side, best-first. depth <= 0 returns every resting level. Read-only.
func (e *Engine) Snapshot(depth int) (bids []LevelView, asks []LevelView) {
	return levelViews(e.bids.Levels(depth)), levelViews(e.asks.Levels(depth))
}

func levelViews(levels []*book.PriceLevel) []LevelView {
	out := make([]LevelView, len(levels))
	for i, l := range levels {
		out[i] = LevelView{Price: l.Price, Quantity: l.TotalQuantity}
	}
	return out
}

// BestBid returns the best resting bid, or false if the bid side is empty.
func (e *Engine) BestBid() (LevelView, bool) {
	level, ok := e.bids.Best()
	if !ok {
		return LevelView{}, false
	}
	return LevelView{Price: level.Price, Quantity: level.TotalQuantity}, true
}

// BestAsk returns the best resting ask, or false if the ask side is empty.
func (e *Engine) BestAsk() (LevelView, bool) {
	level, ok := e.asks.Best()
	if !ok {
		return LevelView{}, false
	}
	return LevelView{Price: level.Price, Quantity: level.TotalQuantity}, true
}

// BidLevels returns the number of distinct resting bid price levels.
func (e *Engine) BidLevels() int { return e.bids.Len() }

// AskLevels returns the number of distinct resting ask price levels.
func (e *Engine) AskLevels() int { return e.asks.Len() }

// Stats returns a copy of the current monotonic counters.
func (e *Engine) Stats() Stats { return e.stats }

// Clear drops all resting orders and resets every counter to zero. Order
// ids previously live become available for reuse.
func (e *Engine) Clear() {
	e.bids = book.NewBidIndex()
	e.asks = book.NewAskIndex()
	e.pool = book.NewPool()
	e.loc = book.NewLocator()
	e.stats = Stats{}
}
