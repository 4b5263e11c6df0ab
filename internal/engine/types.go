package engine

import (
	"errors"

	"matchbook/internal/book"
)

// Side, Ticks, Bid and Ask are re-exported from book so callers of this
// package never need to import it directly.
type (
	Side  = book.Side
	Ticks = book.Ticks
)

const (
	Bid = book.Bid
	Ask = book.Ask
)

var (
	// ErrNonPositiveQuantity is returned by AddOrder when quantity is zero.
	// spec.md leaves this undefined in the reference implementation; this
	// engine rejects it explicitly per the design note recommending
	// validation at minimum of zero quantity.
	ErrNonPositiveQuantity = errors.New("order quantity must be strictly positive")

	// ErrDuplicateOrderID is returned by AddOrder when the id is already
	// live in the book.
	ErrDuplicateOrderID = errors.New("order id is already live")
)
