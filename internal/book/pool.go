package book

// DefaultBlockCapacity is the number of Order records allocated per block
// once the free list is exhausted. Chosen per the reference design (4096
// records/block) to amortize allocation cost across many acquires.
const DefaultBlockCapacity = 4096

// Pool is a bounded-amortized allocator for Order records. It hands out
// zeroed Order storage in O(1) amortized time and recycles released orders
// through a singly-linked intrusive free list (the link lives in Order.next
// itself, so no separate node allocation is needed). Blocks are grown on
// exhaustion and are never returned to the runtime until the Pool itself is
// collected.
type Pool struct {
	free      *Order
	blocks    [][]Order
	blockSize int
}

// NewPool creates a Pool that grows by DefaultBlockCapacity records at a
// time.
func NewPool() *Pool {
	return NewPoolWithBlockSize(DefaultBlockCapacity)
}

// NewPoolWithBlockSize creates a Pool with a custom block growth size.
// Mainly useful for tests that want to exercise block-boundary behavior
// without allocating thousands of orders.
func NewPoolWithBlockSize(blockSize int) *Pool {
	if blockSize <= 0 {
		blockSize = DefaultBlockCapacity
	}
	p := &Pool{blockSize: blockSize}
	p.grow()
	return p
}

// Acquire returns a zeroed Order ready for the caller to populate. O(1)
// amortized.
func (p *Pool) Acquire() *Order {
	if p.free == nil {
		p.grow()
	}
	o := p.free
	p.free = o.next
	o.next = nil
	return o
}

// Release returns an order's storage to the free list. The handle must not
// be used again by the caller after this call. O(1).
func (p *Pool) Release(o *Order) {
	*o = Order{next: p.free}
	p.free = o
}

// grow allocates one more block and threads its records onto the free list.
func (p *Pool) grow() {
	block := make([]Order, p.blockSize)
	for i := range block {
		if i+1 < len(block) {
			block[i].next = &block[i+1]
		} else {
			block[i].next = p.free
		}
	}
	p.free = &block[0]
	p.blocks = append(p.blocks, block)
}
