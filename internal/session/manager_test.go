package session

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ndrandal/itch-vwap/internal/vwap"
)

func testSnapshot() vwap.Snapshot {
	return vwap.Snapshot{
		Kind:     vwap.SnapshotHourly,
		Hour:     9,
		TapeTime: 35_400_000_000_000,
		VWAPs: map[string]vwap.Aggregate{
			"AAPL": {Notional: 150_500_000, Volume: 100},
			"MSFT": {Notional: 310_000_000, Volume: 100},
		},
	}
}

func TestClientStartsSubscribedToAll(t *testing.T) {
	c := NewClient(nil, 4)
	if c.Filter() != nil {
		t.Fatal("new client should receive all instruments")
	}
}

func TestSubscribeNarrowsAndStarResets(t *testing.T) {
	c := NewClient(nil, 4)

	c.Subscribe([]string{"AAPL"})
	f := c.Filter()
	if f == nil || !f["AAPL"] || len(f) != 1 {
		t.Fatalf("filter = %v, want {AAPL}", f)
	}

	c.Subscribe([]string{"MSFT"})
	f = c.Filter()
	if !f["AAPL"] || !f["MSFT"] {
		t.Fatalf("filter = %v, want {AAPL, MSFT}", f)
	}

	c.Unsubscribe([]string{"AAPL"})
	f = c.Filter()
	if f["AAPL"] || !f["MSFT"] {
		t.Fatalf("filter after unsubscribe = %v, want {MSFT}", f)
	}

	c.Subscribe([]string{"*"})
	if c.Filter() != nil {
		t.Fatal("star subscription should reset to all instruments")
	}
}

func TestSendDropsWhenBufferFull(t *testing.T) {
	c := NewClient(nil, 1)

	if !c.Send([]byte("one")) {
		t.Fatal("first send should fit in the buffer")
	}
	if c.Send([]byte("two")) {
		t.Fatal("second send should be dropped, not block")
	}
	if c.Dropped != 1 {
		t.Fatalf("dropped = %d, want 1", c.Dropped)
	}
}

func TestEncodeSnapshotPayload(t *testing.T) {
	data := encodeSnapshot(testSnapshot(), nil)
	if data == nil {
		t.Fatal("encode returned nil")
	}

	var p struct {
		Kind     string `json:"kind"`
		Hour     int    `json:"hour"`
		TapeTime int64  `json:"tapeTime"`
		VWAPs    map[string]struct {
			VWAP   float64 `json:"vwap"`
			Volume uint64  `json:"volume"`
		} `json:"vwaps"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if p.Kind != "hourly" || p.Hour != 9 {
		t.Fatalf("payload header = %s/%d, want hourly/9", p.Kind, p.Hour)
	}
	if got := p.VWAPs["AAPL"]; got.VWAP != 150.5 || got.Volume != 100 {
		t.Fatalf("AAPL entry = %+v, want vwap 150.5 volume 100", got)
	}
}

func TestEncodeSnapshotFiltered(t *testing.T) {
	data := encodeSnapshot(testSnapshot(), map[string]bool{"AAPL": true})

	var p snapshotPayload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(p.VWAPs) != 1 {
		t.Fatalf("filtered entries = %d, want 1", len(p.VWAPs))
	}
	if _, ok := p.VWAPs["MSFT"]; ok {
		t.Fatal("unsubscribed ticker leaked through the filter")
	}
}

func TestPublishFansOutPerSubscription(t *testing.T) {
	m := NewManager(4)

	all := NewClient(nil, 4)
	aaplOnly := NewClient(nil, 4)
	aaplOnly.Subscribe([]string{"AAPL"})

	m.clients[all.ID] = all
	m.clients[aaplOnly.ID] = aaplOnly

	if err := m.Publish(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	var allPayload, filteredPayload snapshotPayload
	select {
	case data := <-all.SendCh():
		if err := json.Unmarshal(data, &allPayload); err != nil {
			t.Fatal(err)
		}
	default:
		t.Fatal("all-instruments client received nothing")
	}
	select {
	case data := <-aaplOnly.SendCh():
		if err := json.Unmarshal(data, &filteredPayload); err != nil {
			t.Fatal(err)
		}
	default:
		t.Fatal("filtered client received nothing")
	}

	if len(allPayload.VWAPs) != 2 {
		t.Fatalf("all-instruments entries = %d, want 2", len(allPayload.VWAPs))
	}
	if len(filteredPayload.VWAPs) != 1 {
		t.Fatalf("filtered entries = %d, want 1", len(filteredPayload.VWAPs))
	}
}

func TestPublishNoClients(t *testing.T) {
	m := NewManager(4)
	if err := m.Publish(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("Publish with no clients: %v", err)
	}
	if m.ClientCount() != 0 {
		t.Fatalf("client count = %d, want 0", m.ClientCount())
	}
}
