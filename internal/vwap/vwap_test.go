package vwap

import "testing"

func TestRecordTradeAccumulates(t *testing.T) {
	b := NewBook()

	// 50 @ 150.0000, then 50 @ 151.0000
	b.RecordTrade("AAPL", 1500000, 50)
	a, ok := b.Lookup("AAPL")
	if !ok {
		t.Fatal("AAPL missing after first trade")
	}
	if a.Notional != 75000000 || a.Volume != 50 {
		t.Fatalf("aggregate = %+v, want notional 75000000 volume 50", a)
	}
	if got := a.VWAP(); got != 150.0 {
		t.Fatalf("VWAP = %v, want 150", got)
	}

	b.RecordTrade("AAPL", 1510000, 50)
	a, _ = b.Lookup("AAPL")
	if a.Notional != 150500000 || a.Volume != 100 {
		t.Fatalf("aggregate = %+v, want notional 150500000 volume 100", a)
	}
	if got := a.VWAP(); got != 150.5 {
		t.Fatalf("VWAP = %v, want 150.5", got)
	}
}

func TestVWAPMatchesIndependentComputation(t *testing.T) {
	type fill struct {
		price  uint32
		shares uint64
	}
	fills := []fill{
		{1500000, 100}, {1502500, 40}, {1497500, 260}, {1510000, 15}, {1500000, 1},
	}

	b := NewBook()
	var notional, volume uint64
	for _, f := range fills {
		b.RecordTrade("AAPL", f.price, f.shares)
		notional += uint64(f.price) * f.shares
		volume += f.shares
	}

	a, _ := b.Lookup("AAPL")
	if a.Notional != notional || a.Volume != volume {
		t.Fatalf("aggregate = %+v, want notional %d volume %d", a, notional, volume)
	}
	want := float64(notional) / float64(volume) / 10000
	if got := a.VWAP(); got != want {
		t.Fatalf("VWAP = %v, want %v", got, want)
	}
}

func TestInstrumentsAreIndependent(t *testing.T) {
	b := NewBook()
	b.RecordTrade("AAPL", 1500000, 10)
	b.RecordTrade("MSFT", 3100000, 20)

	aapl, _ := b.Lookup("AAPL")
	msft, _ := b.Lookup("MSFT")
	if aapl.Volume != 10 || msft.Volume != 20 {
		t.Fatalf("volumes = %d/%d, want 10/20", aapl.Volume, msft.Volume)
	}
	if b.Instruments() != 2 {
		t.Fatalf("instruments = %d, want 2", b.Instruments())
	}
}

func TestZeroVolumeVWAPIsUndefined(t *testing.T) {
	var a Aggregate
	if got := a.VWAP(); got != 0 {
		t.Fatalf("zero-volume VWAP = %v", got)
	}
	if _, ok := NewBook().Lookup("AAPL"); ok {
		t.Fatal("untraded instrument present in book")
	}
}

func TestSnapshotCopiesAndFilters(t *testing.T) {
	b := NewBook()
	b.RecordTrade("AAPL", 1500000, 50)

	snap := b.Snapshot(SnapshotHourly, 9, 34_200_000_000_000)
	if snap.Kind != SnapshotHourly || snap.Hour != 9 {
		t.Fatalf("snapshot header = %+v", snap)
	}
	if len(snap.VWAPs) != 1 {
		t.Fatalf("snapshot has %d instruments, want 1", len(snap.VWAPs))
	}

	// Later trades must not leak into an already-taken snapshot.
	b.RecordTrade("AAPL", 1510000, 50)
	if got := snap.VWAPs["AAPL"].Volume; got != 50 {
		t.Fatalf("snapshot volume mutated to %d", got)
	}
}

func TestSnapshotKindString(t *testing.T) {
	if SnapshotHourly.String() != "hourly" || SnapshotClosing.String() != "closing" || SnapshotFinal.String() != "final" {
		t.Fatal("unexpected snapshot kind labels")
	}
}
