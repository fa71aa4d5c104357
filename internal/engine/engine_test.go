package engine

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ndrandal/itch-vwap/internal/itch"
	"github.com/ndrandal/itch-vwap/internal/vwap"
)

const (
	hour9  = int64(9) * 3_600_000_000_000
	hour10 = int64(10) * 3_600_000_000_000
	hour16 = int64(16) * 3_600_000_000_000
)

func addOrder(ref uint64, stock string, shares, price uint32, ts int64) itch.Message {
	return itch.Message{
		Type: itch.MsgAddOrder, Timestamp: ts,
		OrderRef: ref, Side: itch.SideBuy, Shares: shares, Stock: stock, Price: price,
	}
}

func executed(ref uint64, shares uint32, ts int64) itch.Message {
	return itch.Message{Type: itch.MsgOrderExecuted, Timestamp: ts, OrderRef: ref, Shares: shares}
}

func process(e *Engine, msgs ...itch.Message) []vwap.Snapshot {
	var out []vwap.Snapshot
	for i := range msgs {
		out = append(out, e.Process(&msgs[i])...)
	}
	return out
}

func TestAddExecuteVWAP(t *testing.T) {
	e := New(Options{})

	type fill struct {
		price  uint32
		shares uint32
	}
	fills := []fill{
		{itch.Price4(150.00), 100},
		{itch.Price4(151.25), 40},
		{itch.Price4(149.75), 260},
	}

	var notional, volume uint64
	for i, f := range fills {
		ref := uint64(i + 1)
		process(e,
			addOrder(ref, "AAPL", f.shares, f.price, hour9),
			executed(ref, f.shares, hour9),
		)
		notional += uint64(f.price) * uint64(f.shares)
		volume += uint64(f.shares)
	}

	a, ok := e.Book().Lookup("AAPL")
	if !ok {
		t.Fatal("AAPL missing from book")
	}
	if a.Notional != notional || a.Volume != volume {
		t.Fatalf("aggregate = %+v, want notional %d volume %d", a, notional, volume)
	}
	if e.OpenOrders() != 0 {
		t.Fatalf("open orders = %d, want 0", e.OpenOrders())
	}
}

func TestExecuteAfterDeleteIsOrphaned(t *testing.T) {
	e := New(Options{})

	process(e,
		addOrder(1, "AAPL", 100, itch.Price4(150.00), hour9),
		itch.Message{Type: itch.MsgOrderDelete, Timestamp: hour9, OrderRef: 1},
		executed(1, 50, hour9),
	)

	if got := e.Counters().OrphanExecutes.Load(); got != 1 {
		t.Fatalf("orphaned executions = %d, want 1", got)
	}
	if _, ok := e.Book().Lookup("AAPL"); ok {
		t.Fatal("orphaned execution mutated the aggregate")
	}
}

func TestExecuteThenTradeAggregation(t *testing.T) {
	e := New(Options{})

	process(e,
		addOrder(1, "AAPL", 100, itch.Price4(150.00), hour9),
		executed(1, 50, hour9),
	)

	a, _ := e.Book().Lookup("AAPL")
	if a.Notional != 75_000_000 || a.Volume != 50 {
		t.Fatalf("after execute: %+v, want notional 75000000 volume 50", a)
	}

	process(e, itch.Message{
		Type: itch.MsgTrade, Timestamp: hour9,
		Side: itch.SideSell, Shares: 50, Stock: "AAPL", Price: itch.Price4(151.00),
	})

	a, _ = e.Book().Lookup("AAPL")
	if a.Notional != 150_500_000 || a.Volume != 100 {
		t.Fatalf("after trade: %+v, want notional 150500000 volume 100", a)
	}
	if got := a.VWAP(); got != 150.5 {
		t.Fatalf("VWAP = %v, want 150.5", got)
	}
}

func TestTradeDoesNotTouchTracker(t *testing.T) {
	e := New(Options{})

	process(e, itch.Message{
		Type: itch.MsgTrade, Timestamp: hour9,
		OrderRef: 42, Side: itch.SideBuy, Shares: 10, Stock: "AAPL", Price: itch.Price4(150.00),
	})
	if e.OpenOrders() != 0 {
		t.Fatal("non-cross trade seeded the order tracker")
	}

	// The reference carried by P must not resolve later executions.
	process(e, executed(42, 10, hour9))
	if got := e.Counters().OrphanExecutes.Load(); got != 1 {
		t.Fatalf("orphaned executions = %d, want 1", got)
	}
}

func TestCrossTradeUsesCrossPriceAndShares(t *testing.T) {
	e := New(Options{})

	process(e, itch.Message{
		Type: itch.MsgCrossTrade, Timestamp: hour16,
		CrossShares: 1000, Stock: "AAPL", Price: itch.Price4(150.00), CrossType: 'C',
	})

	a, _ := e.Book().Lookup("AAPL")
	if a.Volume != 1000 || a.Notional != 1000*1_500_000 {
		t.Fatalf("cross trade aggregate = %+v", a)
	}
}

func TestHourBoundarySnapshot(t *testing.T) {
	e := New(Options{})

	snaps := process(e,
		addOrder(1, "AAPL", 100, itch.Price4(150.00), hour9),
		executed(1, 50, hour9),
	)
	if len(snaps) != 0 {
		t.Fatalf("snapshots within one hour = %d, want 0", len(snaps))
	}

	// The hour-10 trade crosses the boundary: exactly one hourly snapshot,
	// taken before the trade's own effects.
	snaps = process(e, itch.Message{
		Type: itch.MsgTrade, Timestamp: hour10,
		Side: itch.SideBuy, Shares: 50, Stock: "AAPL", Price: itch.Price4(151.00),
	})
	if len(snaps) != 1 {
		t.Fatalf("boundary snapshots = %d, want 1", len(snaps))
	}
	snap := snaps[0]
	if snap.Kind != vwap.SnapshotHourly || snap.Hour != 9 {
		t.Fatalf("snapshot = kind %s hour %d, want hourly hour 9", snap.Kind, snap.Hour)
	}
	if got := snap.VWAPs["AAPL"].Volume; got != 50 {
		t.Fatalf("snapshot volume = %d, want 50 (hour-10 trade must not be included)", got)
	}

	// The trade itself still landed after the snapshot.
	a, _ := e.Book().Lookup("AAPL")
	if a.Volume != 100 {
		t.Fatalf("book volume = %d, want 100", a.Volume)
	}
}

func TestHourBucketSeededByFirstTrade(t *testing.T) {
	e := New(Options{})

	// Non-trade traffic across hours before any fill must not snapshot.
	snaps := process(e,
		itch.Message{Type: itch.MsgSystemEvent, Timestamp: 0, EventCode: itch.EventStartOfMessages},
		addOrder(1, "AAPL", 100, itch.Price4(150.00), hour9),
	)
	if len(snaps) != 0 {
		t.Fatalf("pre-trade snapshots = %d, want 0", len(snaps))
	}

	process(e, executed(1, 10, hour9))

	// Any later message in a new hour triggers the boundary.
	snaps = process(e, itch.Message{Type: itch.MsgOrderDelete, Timestamp: hour10, OrderRef: 1})
	if len(snaps) != 1 || snaps[0].Hour != 9 {
		t.Fatalf("snaps = %+v, want one hourly snapshot for hour 9", snaps)
	}
}

func TestClosingSnapshotOnEndOfMarket(t *testing.T) {
	e := New(Options{})

	process(e,
		addOrder(1, "AAPL", 100, itch.Price4(150.00), hour9),
		executed(1, 100, hour9),
	)

	snaps := process(e, itch.Message{
		Type: itch.MsgSystemEvent, Timestamp: hour16, EventCode: itch.EventEndOfMarket,
	})

	// Crossing from hour 9 to 16 and closing in the same message:
	// hourly first, then closing.
	if len(snaps) != 2 {
		t.Fatalf("snapshots = %d, want 2 (hourly then closing)", len(snaps))
	}
	if snaps[0].Kind != vwap.SnapshotHourly || snaps[1].Kind != vwap.SnapshotClosing {
		t.Fatalf("kinds = %s, %s", snaps[0].Kind, snaps[1].Kind)
	}
	if !e.MarketClosed() {
		t.Fatal("market not marked closed")
	}

	// Post-close fills still aggregate, but no more hourly snapshots.
	snaps = process(e, itch.Message{
		Type: itch.MsgTrade, Timestamp: hour16 + 3_600_000_000_000,
		Side: itch.SideBuy, Shares: 10, Stock: "AAPL", Price: itch.Price4(152.00),
	})
	if len(snaps) != 0 {
		t.Fatalf("post-close snapshots = %d, want 0", len(snaps))
	}
	a, _ := e.Book().Lookup("AAPL")
	if a.Volume != 110 {
		t.Fatalf("post-close volume = %d, want 110", a.Volume)
	}
}

func TestZeroVolumeAbsentFromSnapshots(t *testing.T) {
	e := New(Options{})

	// AAPL rests but never trades; MSFT trades.
	process(e,
		addOrder(1, "AAPL", 100, itch.Price4(150.00), hour9),
		addOrder(2, "MSFT", 100, itch.Price4(310.00), hour9),
		executed(2, 100, hour9),
	)

	snaps := process(e, itch.Message{
		Type: itch.MsgSystemEvent, Timestamp: hour9, EventCode: itch.EventEndOfMarket,
	})
	if len(snaps) != 1 {
		t.Fatalf("snapshots = %d, want 1", len(snaps))
	}
	if _, ok := snaps[0].VWAPs["AAPL"]; ok {
		t.Fatal("untraded instrument reported in snapshot")
	}
	if _, ok := snaps[0].VWAPs["MSFT"]; !ok {
		t.Fatal("traded instrument missing from snapshot")
	}
}

// collectSink records published snapshots in order.
type collectSink struct {
	snaps []vwap.Snapshot
}

func (c *collectSink) Publish(_ context.Context, s vwap.Snapshot) error {
	c.snaps = append(c.snaps, s)
	return nil
}

func encodeStream(t *testing.T, msgs ...itch.Message) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for i := range msgs {
		data := itch.EncodeBinary(&msgs[i])
		if data == nil {
			t.Fatalf("cannot encode %c", msgs[i].Type)
		}
		buf.Write(data)
	}
	return &buf
}

func TestRunFullStream(t *testing.T) {
	stream := encodeStream(t,
		itch.Message{Type: itch.MsgSystemEvent, Timestamp: hour9, EventCode: itch.EventStartOfMarket},
		addOrder(1, "AAPL", 100, itch.Price4(150.00), hour9),
		executed(1, 50, hour9),
		itch.Message{Type: itch.MsgSystemEvent, Timestamp: hour16, EventCode: itch.EventEndOfMarket},
	)

	sink := &collectSink{}
	e := New(Options{})
	res, err := e.Run(context.Background(), itch.NewFrameReader(stream), sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// hourly (9→16 boundary), closing, final.
	if len(sink.snaps) != 3 {
		t.Fatalf("published %d snapshots, want 3", len(sink.snaps))
	}
	kinds := []vwap.SnapshotKind{vwap.SnapshotHourly, vwap.SnapshotClosing, vwap.SnapshotFinal}
	for i, k := range kinds {
		if sink.snaps[i].Kind != k {
			t.Errorf("snapshot %d kind = %s, want %s", i, sink.snaps[i].Kind, k)
		}
	}

	if res.Counters.Total != 4 {
		t.Fatalf("total = %d, want 4", res.Counters.Total)
	}
	if res.Counters.ByType["A"] != 1 || res.Counters.ByType["E"] != 1 || res.Counters.ByType["S"] != 2 {
		t.Fatalf("per-type counts = %v", res.Counters.ByType)
	}
	if got := res.Final.VWAPs["AAPL"].Volume; got != 50 {
		t.Fatalf("final volume = %d, want 50", got)
	}
}

func TestRunSkipsUnknownAndMalformedFrames(t *testing.T) {
	stream := encodeStream(t,
		addOrder(1, "AAPL", 100, itch.Price4(150.00), hour9),
	)
	// Unknown type frame.
	stream.Write([]byte{0x00, 0x03, 'z', 0x01, 0x02})
	// Known type with a short body.
	stream.Write([]byte{0x00, 0x02, 'D', 0x00})
	// A good frame after the bad ones must still be applied.
	tail := encodeStream(t, executed(1, 25, hour9))
	stream.Write(tail.Bytes())

	e := New(Options{})
	res, err := e.Run(context.Background(), itch.NewFrameReader(stream))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Counters.Unknown != 1 {
		t.Fatalf("unknown = %d, want 1", res.Counters.Unknown)
	}
	if res.Counters.DecodeErrors != 1 {
		t.Fatalf("decode errors = %d, want 1", res.Counters.DecodeErrors)
	}
	if got := res.Final.VWAPs["AAPL"].Volume; got != 25 {
		t.Fatalf("final volume = %d, want 25", got)
	}
}

func TestRunTruncatedStream(t *testing.T) {
	stream := encodeStream(t,
		addOrder(1, "AAPL", 100, itch.Price4(150.00), hour9),
		executed(1, 50, hour9),
	)
	// A frame body cut short is fatal.
	stream.Write([]byte{0x00, 0x13, 'D', 0x00, 0x01})

	sink := &collectSink{}
	e := New(Options{})
	res, err := e.Run(context.Background(), itch.NewFrameReader(stream), sink)
	if !errors.Is(err, itch.ErrTruncatedFrame) {
		t.Fatalf("err = %v, want ErrTruncatedFrame", err)
	}

	// Everything decoded before the break is reflected in the final state.
	if got := res.Final.VWAPs["AAPL"].Volume; got != 50 {
		t.Fatalf("final volume = %d, want 50", got)
	}
	last := sink.snaps[len(sink.snaps)-1]
	if last.Kind != vwap.SnapshotFinal {
		t.Fatalf("last published kind = %s, want final", last.Kind)
	}
}

func TestRunCancelledContext(t *testing.T) {
	stream := encodeStream(t,
		addOrder(1, "AAPL", 100, itch.Price4(150.00), hour9),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &collectSink{}
	e := New(Options{})
	_, err := e.Run(ctx, itch.NewFrameReader(stream), sink)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	// The final snapshot still goes out on cancellation.
	if len(sink.snaps) != 1 || sink.snaps[0].Kind != vwap.SnapshotFinal {
		t.Fatalf("published = %+v, want one final snapshot", sink.snaps)
	}
}

func TestDuplicateAddCounted(t *testing.T) {
	e := New(Options{})
	process(e,
		addOrder(1, "AAPL", 100, itch.Price4(150.00), hour9),
		addOrder(1, "AAPL", 200, itch.Price4(151.00), hour9),
	)
	if got := e.Counters().DuplicateAdds.Load(); got != 1 {
		t.Fatalf("duplicate adds = %d, want 1", got)
	}
}

func TestOrphanCounters(t *testing.T) {
	e := New(Options{})
	process(e,
		itch.Message{Type: itch.MsgOrderReplace, Timestamp: hour9, OrigOrderRef: 9, OrderRef: 10, Shares: 1, Price: 1},
		itch.Message{Type: itch.MsgOrderCancel, Timestamp: hour9, OrderRef: 9, Shares: 1},
		itch.Message{Type: itch.MsgOrderDelete, Timestamp: hour9, OrderRef: 9},
	)

	c := e.Counters()
	if c.OrphanReplaces.Load() != 1 || c.OrphanCancels.Load() != 1 || c.OrphanDeletes.Load() != 1 {
		t.Fatalf("orphans = %d/%d/%d, want 1/1/1",
			c.OrphanReplaces.Load(), c.OrphanCancels.Load(), c.OrphanDeletes.Load())
	}
}
