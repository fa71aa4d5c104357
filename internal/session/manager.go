// Package session streams VWAP snapshots to WebSocket clients as they
// are emitted by the scan. Clients subscribe to tickers (or all) and
// receive each snapshot as one JSON message; a slow client drops
// snapshots rather than stalling the scan.
package session

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ndrandal/itch-vwap/internal/vwap"
)

// Manager handles client registration, subscriptions, and snapshot fan-out.
// It implements vwap.Sink.
type Manager struct {
	mu         sync.RWMutex
	clients    map[uint64]*Client
	bufferSize int
}

// NewManager creates a session manager.
func NewManager(bufferSize int) *Manager {
	return &Manager{
		clients:    make(map[uint64]*Client),
		bufferSize: bufferSize,
	}
}

// Register adds a new client. Returns the client for further use.
func (m *Manager) Register(conn *websocket.Conn) *Client {
	c := NewClient(conn, m.bufferSize)

	m.mu.Lock()
	m.clients[c.ID] = c
	m.mu.Unlock()

	log.Printf("client %d connected (%s)", c.ID, conn.RemoteAddr())
	return c
}

// Unregister removes a client.
func (m *Manager) Unregister(c *Client) {
	m.mu.Lock()
	delete(m.clients, c.ID)
	m.mu.Unlock()

	c.Close()
	log.Printf("client %d disconnected", c.ID)
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// snapshotPayload is the JSON wire form of one snapshot.
type snapshotPayload struct {
	Kind     string                  `json:"kind"`
	Hour     int                     `json:"hour"`
	TapeTime int64                   `json:"tapeTime"`
	VWAPs    map[string]entryPayload `json:"vwaps"`
}

type entryPayload struct {
	VWAP   float64 `json:"vwap"`
	Volume uint64  `json:"volume"`
}

// Publish fans a snapshot out to all connected clients, filtered per
// client subscription. The full payload is encoded once and shared by
// every all-instruments client.
func (m *Manager) Publish(_ context.Context, snap vwap.Snapshot) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.clients) == 0 {
		return nil
	}

	var full []byte
	var fullOnce sync.Once

	for _, c := range m.clients {
		filter := c.Filter()
		if filter == nil {
			fullOnce.Do(func() {
				full = encodeSnapshot(snap, nil)
			})
			if full != nil {
				c.Send(full)
			}
			continue
		}
		if data := encodeSnapshot(snap, filter); data != nil {
			c.Send(data)
		}
	}
	return nil
}

func encodeSnapshot(snap vwap.Snapshot, filter map[string]bool) []byte {
	p := snapshotPayload{
		Kind:     snap.Kind.String(),
		Hour:     snap.Hour,
		TapeTime: snap.TapeTime,
		VWAPs:    make(map[string]entryPayload),
	}
	for stock, a := range snap.VWAPs {
		if filter != nil && !filter[stock] {
			continue
		}
		p.VWAPs[stock] = entryPayload{VWAP: a.VWAP(), Volume: a.Volume}
	}

	data, err := json.Marshal(p)
	if err != nil {
		log.Printf("encode snapshot: %v", err)
		return nil
	}
	return data
}
