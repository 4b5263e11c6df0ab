package engine

// TradeEvent reports one execution. Price is always the resting (passive)
// side's price: the side that did not trigger the crossing loop. This
// fixes the aggressor-priced-trade bug spec.md §9 documents in the source
// implementation (which unconditionally reports the sell side's price).
type TradeEvent struct {
	BuyOrderID  uint64
	SellOrderID uint64
	Quantity    uint64
	Price       Ticks
}

// TradeSink is invoked synchronously, once per emitted trade, from inside
// the crossing loop. Implementations MUST NOT re-enter the engine (call any
// Engine method) from within the sink: the crossing loop holds a head order
// with a transiently decremented quantity that has not yet been popped or
// returned to rest, so the book is not in a publicly-observable state.
type TradeSink func(TradeEvent)
