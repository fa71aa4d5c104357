package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/ndrandal/itch-vwap/internal/engine"
	"github.com/ndrandal/itch-vwap/internal/vwap"
)

// snapshotDoc is the persisted form of one emitted snapshot.
type snapshotDoc struct {
	Tape      string         `bson:"tape"`
	Kind      string         `bson:"kind"`
	Hour      int            `bson:"hour"`
	TapeTime  int64          `bson:"tape_time"` // nanoseconds since midnight
	CreatedAt time.Time      `bson:"created_at"`
	VWAPs     []snapshotEntry `bson:"vwaps"`
}

type snapshotEntry struct {
	Stock    string  `bson:"stock"`
	VWAP     float64 `bson:"vwap"`
	Volume   uint64  `bson:"volume"`
	Notional uint64  `bson:"notional"` // raw price units × shares
}

// SnapshotWriter persists every published snapshot to the snapshots
// collection. It implements vwap.Sink.
type SnapshotWriter struct {
	store *Store
	tape  string // tape identifier, usually the file name
}

// NewSnapshotWriter creates a snapshot writer for one tape run.
func NewSnapshotWriter(store *Store, tape string) *SnapshotWriter {
	return &SnapshotWriter{store: store, tape: tape}
}

// Publish writes one snapshot document.
func (w *SnapshotWriter) Publish(ctx context.Context, snap vwap.Snapshot) error {
	doc := snapshotDoc{
		Tape:      w.tape,
		Kind:      snap.Kind.String(),
		Hour:      snap.Hour,
		TapeTime:  snap.TapeTime,
		CreatedAt: time.Now(),
		VWAPs:     make([]snapshotEntry, 0, len(snap.VWAPs)),
	}
	for stock, a := range snap.VWAPs {
		doc.VWAPs = append(doc.VWAPs, snapshotEntry{
			Stock:    stock,
			VWAP:     a.VWAP(),
			Volume:   a.Volume,
			Notional: a.Notional,
		})
	}

	if _, err := w.store.db.Collection("snapshots").InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// runDoc records one completed scan with its diagnostic counters.
type runDoc struct {
	Tape        string               `bson:"tape"`
	FinishedAt  time.Time            `bson:"finished_at"`
	Counters    engine.CountersView  `bson:"counters"`
	OpenOrders  int                  `bson:"open_orders"`
	Instruments int                  `bson:"instruments"`
	Err         string               `bson:"error,omitempty"`
}

// SaveRun records a scan's final result for later data-quality review.
func (w *SnapshotWriter) SaveRun(ctx context.Context, res engine.Result, scanErr error) error {
	doc := runDoc{
		Tape:        w.tape,
		FinishedAt:  time.Now(),
		Counters:    res.Counters,
		OpenOrders:  res.OpenOrders,
		Instruments: res.Instruments,
	}
	if scanErr != nil {
		doc.Err = scanErr.Error()
	}
	if _, err := w.store.db.Collection("runs").InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}
