// Package engine drives the single-pass tape scan: decode each frame,
// apply it to the order tracker and the VWAP book in tape order, and emit
// snapshots at hour boundaries and market close.
package engine

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/ndrandal/itch-vwap/internal/itch"
	"github.com/ndrandal/itch-vwap/internal/orderbook"
	"github.com/ndrandal/itch-vwap/internal/vwap"
)

// Options configures a scan.
type Options struct {
	// RetainOrders keeps closed orders in the tracker (legacy behavior).
	RetainOrders bool
	// ProgressEvery logs a progress line every N decoded messages.
	// Zero disables progress logging.
	ProgressEvery uint64
}

// Engine owns all mutable scan state: the order tracker, the per-
// instrument aggregates, the session hour bucket, and the counters.
// Messages must be applied strictly in tape order; later messages read
// tracker state written by earlier ones.
type Engine struct {
	tracker  *orderbook.Tracker
	book     *vwap.Book
	counters Counters

	// directory maps stock locate codes to tickers as 'R' messages
	// arrive; diagnostic only.
	directory map[uint16]string

	currentHour int // -1 until the first trade-qualifying message
	closed      bool
	lastTape    int64

	progressEvery uint64
}

// New creates an engine for one tape scan.
func New(opts Options) *Engine {
	return &Engine{
		tracker:       orderbook.NewTracker(opts.RetainOrders),
		book:          vwap.NewBook(),
		directory:     make(map[uint16]string),
		currentHour:   -1,
		progressEvery: opts.ProgressEvery,
	}
}

// Counters returns the live scan counters.
func (e *Engine) Counters() *Counters {
	return &e.counters
}

// Book returns the per-instrument aggregate book.
func (e *Engine) Book() *vwap.Book {
	return e.book
}

// OpenOrders returns the number of currently tracked orders.
func (e *Engine) OpenOrders() int {
	return e.tracker.OpenOrders()
}

// MarketClosed reports whether the End of Market Hours event was seen.
func (e *Engine) MarketClosed() bool {
	return e.closed
}

// Process applies one decoded message and returns the snapshots it
// triggered, in emission order. An hour-boundary snapshot is taken before
// the boundary-crossing message's own effects; the closing snapshot is
// emitted on the End of Market Hours system event regardless of hour
// state.
func (e *Engine) Process(m *itch.Message) []vwap.Snapshot {
	var snaps []vwap.Snapshot

	if e.currentHour >= 0 && !e.closed && m.Hour() != e.currentHour {
		snaps = append(snaps, e.book.Snapshot(vwap.SnapshotHourly, e.currentHour, m.Timestamp))
		e.currentHour = m.Hour()
	}

	e.counters.Total.Add(1)
	e.counters.countType(byte(m.Type))
	e.lastTape = m.Timestamp

	switch m.Type {
	case itch.MsgSystemEvent:
		if m.EventCode == itch.EventEndOfMarket {
			snaps = append(snaps, e.book.Snapshot(vwap.SnapshotClosing, m.Hour(), m.Timestamp))
			e.closed = true
		}

	case itch.MsgStockDirectory:
		e.directory[m.StockLocate] = m.Stock

	case itch.MsgAddOrder, itch.MsgAddOrderMPID:
		if !e.tracker.Add(m.OrderRef, m.Stock, orderbook.Side(m.Side), m.Shares, m.Price) {
			e.counters.DuplicateAdds.Add(1)
		}

	case itch.MsgOrderReplace:
		if !e.tracker.Replace(m.OrigOrderRef, m.OrderRef, m.Shares, m.Price) {
			e.counters.OrphanReplaces.Add(1)
		}

	case itch.MsgOrderCancel:
		if !e.tracker.Cancel(m.OrderRef, m.Shares) {
			e.counters.OrphanCancels.Add(1)
		}

	case itch.MsgOrderDelete:
		if !e.tracker.Delete(m.OrderRef) {
			e.counters.OrphanDeletes.Add(1)
		}

	case itch.MsgOrderExecuted:
		e.seedHour(m)
		stock, price, ok := e.tracker.Execute(m.OrderRef, m.Shares)
		if !ok {
			e.counters.OrphanExecutes.Add(1)
			break
		}
		e.book.RecordTrade(stock, price, uint64(m.Shares))

	case itch.MsgOrderExecutedPrice:
		e.seedHour(m)
		stock, ok := e.tracker.ExecuteAt(m.OrderRef, m.Shares)
		if !ok {
			e.counters.OrphanExecutes.Add(1)
			break
		}
		e.book.RecordTrade(stock, m.ExecutionPrice, uint64(m.Shares))

	case itch.MsgTrade:
		// Non-cross trades are self-contained and do not affect the
		// resting-order table.
		e.seedHour(m)
		e.book.RecordTrade(m.Stock, m.Price, uint64(m.Shares))

	case itch.MsgCrossTrade:
		e.seedHour(m)
		e.book.RecordTrade(m.Stock, m.Price, m.CrossShares)

	case itch.MsgBrokenTrade:
		// Counted per type only. Undoing the referenced trade would need a
		// match-number index over every fill; see DESIGN.md.
	}

	return snaps
}

// seedHour initializes the hour bucket on the first trade-qualifying
// message of the session.
func (e *Engine) seedHour(m *itch.Message) {
	if e.currentHour < 0 {
		e.currentHour = m.Hour()
	}
}

// Final copies the current aggregates as the end-of-scan snapshot.
func (e *Engine) Final() vwap.Snapshot {
	hour := e.currentHour
	if hour < 0 {
		hour = 0
	}
	return e.book.Snapshot(vwap.SnapshotFinal, hour, e.lastTape)
}

// Result summarizes one completed (or aborted) scan. Final always
// reflects every trade resolved up to the point of termination.
type Result struct {
	Counters    CountersView
	Final       vwap.Snapshot
	OpenOrders  int
	Instruments int
}

// Run scans frames until clean EOF, a fatal stream error, or context
// cancellation, publishing every emitted snapshot to the sinks in order.
// Recoverable conditions (unknown types, malformed bodies, orphaned
// references) are counted and skipped; only stream-level truncation or
// cancellation ends the scan early, and even then the returned Result
// carries the last fully-computed state.
func (e *Engine) Run(ctx context.Context, fr *itch.FrameReader, sinks ...vwap.Sink) (Result, error) {
	var scanErr error

scan:
	for {
		select {
		case <-ctx.Done():
			scanErr = ctx.Err()
			break scan
		default:
		}

		body, err := fr.Next()
		if err != nil {
			if err == io.EOF {
				break scan
			}
			scanErr = err
			break scan
		}

		m, err := itch.Decode(body)
		if err != nil {
			if errors.Is(err, itch.ErrUnknownType) {
				e.counters.Unknown.Add(1)
			} else {
				e.counters.DecodeErrors.Add(1)
			}
			continue
		}

		for _, snap := range e.Process(&m) {
			e.publish(ctx, snap, sinks)
		}

		if e.progressEvery > 0 {
			if n := e.counters.Total.Load(); n%e.progressEvery == 0 {
				log.Printf("scanned %d messages (%d open orders, %d instruments)",
					n, e.tracker.OpenOrders(), e.book.Instruments())
			}
		}
	}

	// The final snapshot must go out even when the scan was cancelled.
	pubCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		pubCtx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}
	final := e.Final()
	e.publish(pubCtx, final, sinks)

	return Result{
		Counters:    e.counters.View(),
		Final:       final,
		OpenOrders:  e.tracker.OpenOrders(),
		Instruments: e.book.Instruments(),
	}, scanErr
}

// publish fans a snapshot out to every sink. Sink failures are logged and
// do not stop the scan; the sinks are reporting surfaces, not state.
func (e *Engine) publish(ctx context.Context, snap vwap.Snapshot, sinks []vwap.Sink) {
	for _, s := range sinks {
		if err := s.Publish(ctx, snap); err != nil {
			log.Printf("snapshot publish (%s): %v", snap.Kind, err)
		}
	}
}
