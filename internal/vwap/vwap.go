// Package vwap accumulates per-instrument traded notional and volume and
// derives the volume-weighted average price on demand.
package vwap

import "context"

// Aggregate is the running total for one instrument. Notional is kept in
// raw price units (4 implied decimals) times shares, so the arithmetic is
// exact integer accumulation; 2^64 comfortably covers a full trading day.
type Aggregate struct {
	Notional uint64 // Σ rawPrice × shares
	Volume   uint64 // Σ shares
}

// VWAP returns the volume-weighted average price in dollars.
// Undefined (and meaningless) at zero volume; callers must check Volume
// first — a zero-volume instrument is absent from snapshots, never 0.
func (a Aggregate) VWAP() float64 {
	if a.Volume == 0 {
		return 0
	}
	return float64(a.Notional) / float64(a.Volume) / 10000
}

// Book holds the per-instrument aggregates for one session.
// Entries are created lazily on first trade and never removed.
type Book struct {
	aggs map[string]Aggregate
}

// NewBook returns an empty aggregate book.
func NewBook() *Book {
	return &Book{aggs: make(map[string]Aggregate, 1<<12)}
}

// RecordTrade adds one fill to the instrument's running totals.
// price is ITCH fixed-point (4 implied decimals).
func (b *Book) RecordTrade(stock string, price uint32, shares uint64) {
	a := b.aggs[stock]
	a.Notional += uint64(price) * shares
	a.Volume += shares
	b.aggs[stock] = a
}

// Lookup returns the aggregate for one instrument.
func (b *Book) Lookup(stock string) (Aggregate, bool) {
	a, ok := b.aggs[stock]
	return a, ok
}

// Instruments returns the number of instruments with at least one trade.
func (b *Book) Instruments() int {
	return len(b.aggs)
}

// SnapshotKind says what triggered a snapshot.
type SnapshotKind int

const (
	// SnapshotHourly is emitted when a message timestamp crosses an hour
	// boundary, before that message's own effects are applied.
	SnapshotHourly SnapshotKind = iota
	// SnapshotClosing is emitted on the End of Market Hours system event.
	SnapshotClosing
	// SnapshotFinal is the state at end of scan (clean EOF, truncation,
	// or cancellation).
	SnapshotFinal
)

// String returns the snapshot kind as a short label.
func (k SnapshotKind) String() string {
	switch k {
	case SnapshotHourly:
		return "hourly"
	case SnapshotClosing:
		return "closing"
	case SnapshotFinal:
		return "final"
	}
	return "unknown"
}

// Snapshot is a point-in-time copy of every instrument with nonzero
// traded volume. Hour is the bucket that just ended for hourly snapshots;
// TapeTime is the nanosecond timestamp of the triggering message.
type Snapshot struct {
	Kind     SnapshotKind
	Hour     int
	TapeTime int64
	VWAPs    map[string]Aggregate
}

// Snapshot copies the book's current state. Only instruments with traded
// volume are included, so a VWAP of zero can never be reported.
func (b *Book) Snapshot(kind SnapshotKind, hour int, tapeTime int64) Snapshot {
	out := make(map[string]Aggregate, len(b.aggs))
	for stock, a := range b.aggs {
		if a.Volume == 0 {
			continue
		}
		out[stock] = a
	}
	return Snapshot{Kind: kind, Hour: hour, TapeTime: tapeTime, VWAPs: out}
}

// Sink receives snapshots as the scan emits them, in tape order.
type Sink interface {
	Publish(ctx context.Context, snap Snapshot) error
}
