package book

// Ticks is a fixed-point price key. The engine never rounds: callers convert
// a decimal quote price to ticks at the boundary (e.g. cents, or 1/10000 of
// the quote currency) and the book compares ticks exactly. This avoids the
// binary64 map-key ambiguity a floating point price would introduce.
type Ticks int64
