// Package orderbook tracks resting orders by reference number so that
// execution messages, which carry neither price nor symbol, can be
// resolved back to the order that originated them. Only the fields needed
// for that resolution are kept; no price-level depth is reconstructed.
package orderbook

// Side represents buy or sell.
type Side byte

const (
	SideBuy  Side = 'B'
	SideSell Side = 'S'
)

// Order is the resting state kept per open order reference number.
type Order struct {
	Stock  string
	Side   Side
	Shares uint32 // remaining
	Price  uint32 // fixed-point, 4 implied decimals
}

// Tracker maintains the order-reference-number → Order table across one
// tape scan. All methods are single-caller; the scan loop owns it.
type Tracker struct {
	orders map[uint64]Order

	// retainClosed keeps fully-executed/cancelled/deleted orders in the
	// table, reproducing the growth behavior of the legacy tool. Off by
	// default; reference numbers are only unique among open orders, so
	// retained entries can shadow a reused number with a stale price.
	retainClosed bool
}

// NewTracker returns an empty tracker.
func NewTracker(retainClosed bool) *Tracker {
	return &Tracker{
		orders:       make(map[uint64]Order, 1<<16),
		retainClosed: retainClosed,
	}
}

// Add inserts a new resting order. Returns false when ref was already
// present — a protocol violation; the new order overwrites the old.
func (t *Tracker) Add(ref uint64, stock string, side Side, shares, price uint32) bool {
	_, dup := t.orders[ref]
	t.orders[ref] = Order{Stock: stock, Side: side, Shares: shares, Price: price}
	return !dup
}

// Replace removes oldRef and inserts newRef carrying forward the stock and
// side, with the replacing message's shares and price. Returns false when
// oldRef is not tracked (orphaned replace); the stock and side cannot be
// fabricated, so nothing is inserted.
func (t *Tracker) Replace(oldRef, newRef uint64, shares, price uint32) bool {
	old, ok := t.orders[oldRef]
	if !ok {
		return false
	}
	if !t.retainClosed {
		delete(t.orders, oldRef)
	}
	t.orders[newRef] = Order{Stock: old.Stock, Side: old.Side, Shares: shares, Price: price}
	return true
}

// Cancel decrements the remaining shares of ref, removing the order when
// nothing remains. Returns false when ref is not tracked.
func (t *Tracker) Cancel(ref uint64, shares uint32) bool {
	o, ok := t.orders[ref]
	if !ok {
		return false
	}
	t.reduce(ref, o, shares)
	return true
}

// Delete removes ref unconditionally. Returns false when ref is not
// tracked (orphaned delete).
func (t *Tracker) Delete(ref uint64) bool {
	if _, ok := t.orders[ref]; !ok {
		return false
	}
	if !t.retainClosed {
		delete(t.orders, ref)
	}
	return true
}

// Execute resolves a fill without an explicit price: the trade happens at
// the order's resting price. Returns the stock and that price, with
// ok=false when ref is not tracked (orphaned execution).
func (t *Tracker) Execute(ref uint64, shares uint32) (stock string, price uint32, ok bool) {
	o, found := t.orders[ref]
	if !found {
		return "", 0, false
	}
	t.reduce(ref, o, shares)
	return o.Stock, o.Price, true
}

// ExecuteAt resolves a fill that carries its own execution price; only the
// stock comes from the resting order. Returns ok=false when ref is not
// tracked.
func (t *Tracker) ExecuteAt(ref uint64, shares uint32) (stock string, ok bool) {
	o, found := t.orders[ref]
	if !found {
		return "", false
	}
	t.reduce(ref, o, shares)
	return o.Stock, true
}

// reduce applies a share decrement and removes the order at zero.
func (t *Tracker) reduce(ref uint64, o Order, shares uint32) {
	if shares >= o.Shares {
		if !t.retainClosed {
			delete(t.orders, ref)
			return
		}
		o.Shares = 0
	} else {
		o.Shares -= shares
	}
	t.orders[ref] = o
}

// Lookup returns the tracked order for ref, if any.
func (t *Tracker) Lookup(ref uint64) (Order, bool) {
	o, ok := t.orders[ref]
	return o, ok
}

// OpenOrders returns the number of tracked orders.
func (t *Tracker) OpenOrders() int {
	return len(t.orders)
}
