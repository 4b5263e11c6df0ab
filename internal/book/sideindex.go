package book

import "github.com/tidwall/btree"

// Levels is the ordered price -> PriceLevel dictionary backing one side of
// the book. The library and the ordered-map approach both come from the
// teacher's order book, which keys a btree.BTreeG[*PriceLevel] by a
// side-specific comparator instead of maintaining two separately-sorted
// structures.
type Levels = btree.BTreeG[*PriceLevel]

// SideIndex is an ordered map from price to PriceLevel for one side of the
// book. Bids are ordered greatest-price-first; asks least-price-first; the
// comparator baked in at construction encodes that, so "first" under the
// btree's natural (ascending, per its own less func) iteration is always
// "best".
type SideIndex struct {
	levels *Levels
}

// NewBidIndex builds a side index ordered descending by price (best bid
// first).
func NewBidIndex() *SideIndex {
	return &SideIndex{
		levels: btree.NewBTreeG(func(a, b *PriceLevel) bool {
			return a.Price > b.Price
		}),
	}
}

// NewAskIndex builds a side index ordered ascending by price (best ask
// first).
func NewAskIndex() *SideIndex {
	return &SideIndex{
		levels: btree.NewBTreeG(func(a, b *PriceLevel) bool {
			return a.Price < b.Price
		}),
	}
}

// FindOrCreate returns the PriceLevel at price, creating and inserting an
// empty one if it does not already exist.
func (s *SideIndex) FindOrCreate(price Ticks) *PriceLevel {
	if level, ok := s.levels.GetMut(&PriceLevel{Price: price}); ok {
		return level
	}
	level := NewPriceLevel(price)
	s.levels.Set(level)
	return level
}

// Get returns the level at price without creating one if it is missing.
func (s *SideIndex) Get(price Ticks) (*PriceLevel, bool) {
	return s.levels.GetMut(&PriceLevel{Price: price})
}

// Erase removes the level at price, if present. Invariant 4 (an empty
// PriceLevel is never present in a Side Index) is the caller's
// responsibility: Erase should only be called once a level's queue is
// empty.
func (s *SideIndex) Erase(price Ticks) {
	s.levels.Delete(&PriceLevel{Price: price})
}

// Best returns the best (first, per the side's comparator) price level, or
// false if the side is empty.
func (s *SideIndex) Best() (*PriceLevel, bool) {
	return s.levels.MinMut()
}

// Empty reports whether the side currently has no resting levels.
func (s *SideIndex) Empty() bool {
	return s.levels.Len() == 0
}

// Len returns the number of distinct price levels currently resting.
func (s *SideIndex) Len() int {
	return s.levels.Len()
}

// Levels returns up to `depth` levels in best-first order. depth <= 0 means
// unbounded.
func (s *SideIndex) Levels(depth int) []*PriceLevel {
	items := s.levels.Items()
	if depth > 0 && depth < len(items) {
		items = items[:depth]
	}
	out := make([]*PriceLevel, len(items))
	copy(out, items)
	return out
}
