package book

import "container/list"

// Handle is a stable reference to an order's position inside a PriceLevel's
// queue. It remains valid across insertions and unrelated removals in the
// same queue, which is what lets the Locator resolve an order id straight
// to O(1) removal.
type Handle = *list.Element

// PriceLevel is one price's resting FIFO queue. orders is a doubly-linked
// list so that Remove, given a Handle obtained at insertion time, is O(1) -
// a plain slice cannot offer that without either breaking FIFO (swap
// remove) or leaking memory (tombstones).
type PriceLevel struct {
	Price         Ticks
	TotalQuantity uint64
	orders        *list.List
}

// NewPriceLevel creates an empty level at the given price.
func NewPriceLevel(price Ticks) *PriceLevel {
	return &PriceLevel{
		Price:  price,
		orders: list.New(),
	}
}

// Append enqueues an order at the tail and returns the handle needed to
// remove it later in O(1).
func (l *PriceLevel) Append(o *Order) Handle {
	l.TotalQuantity += o.Quantity
	return l.orders.PushBack(o)
}

// Remove deletes the order at h from the queue. O(1).
func (l *PriceLevel) Remove(h Handle) {
	o := h.Value.(*Order)
	l.TotalQuantity -= o.Quantity
	l.orders.Remove(h)
}

// Head returns the handle at the front of the queue, or nil if empty.
func (l *PriceLevel) Head() Handle {
	return l.orders.Front()
}

// HeadOrder returns the order resting at the front of the queue, or nil if
// the level is empty.
func (l *PriceLevel) HeadOrder() *Order {
	h := l.orders.Front()
	if h == nil {
		return nil
	}
	return h.Value.(*Order)
}

// Empty reports whether the level currently holds no live orders.
func (l *PriceLevel) Empty() bool {
	return l.orders.Len() == 0
}

// Len returns the number of live orders resting at this level.
func (l *PriceLevel) Len() int {
	return l.orders.Len()
}

// Orders returns the live orders in arrival (FIFO) order. Used by tests;
// callers must not mutate the returned slice's backing order
// pointers' identity, only their Quantity fields via the engine.
func (l *PriceLevel) Orders() []*Order {
	out := make([]*Order, 0, l.orders.Len())
	for e := l.orders.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*Order))
	}
	return out
}
