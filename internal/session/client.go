package session

import (
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Client represents a connected WebSocket client receiving snapshot JSON.
type Client struct {
	ID   uint64
	Conn *websocket.Conn

	mu         sync.RWMutex
	tickers    map[string]bool // ticker -> subscribed
	allTickers bool

	sendCh    chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// stats
	Dropped uint64
}

var clientIDCounter uint64

// NewClient creates a new client wrapping a WebSocket connection.
// Clients start subscribed to all instruments.
func NewClient(conn *websocket.Conn, bufferSize int) *Client {
	return &Client{
		ID:         atomic.AddUint64(&clientIDCounter, 1),
		Conn:       conn,
		tickers:    make(map[string]bool),
		allTickers: true,
		sendCh:     make(chan []byte, bufferSize),
		done:       make(chan struct{}),
	}
}

// Subscribe narrows the client to the given tickers. A "*" entry switches
// back to all instruments.
func (c *Client) Subscribe(tickers []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tickers {
		if t == "*" {
			c.allTickers = true
			c.tickers = make(map[string]bool)
			return
		}
		c.tickers[t] = true
	}
	c.allTickers = false
}

// Unsubscribe removes tickers from the client's subscription.
func (c *Client) Unsubscribe(tickers []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tickers {
		delete(c.tickers, t)
	}
}

// Filter returns the subscribed ticker set, or nil for all instruments.
func (c *Client) Filter() map[string]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.allTickers {
		return nil
	}
	out := make(map[string]bool, len(c.tickers))
	for t := range c.tickers {
		out[t] = true
	}
	return out
}

// Send enqueues data to be sent to the client.
// Returns false if the buffer is full (message dropped).
func (c *Client) Send(data []byte) bool {
	select {
	case c.sendCh <- data:
		return true
	default:
		atomic.AddUint64(&c.Dropped, 1)
		return false
	}
}

// SendCh returns the send channel for the write pump.
func (c *Client) SendCh() <-chan []byte {
	return c.sendCh
}

// Done returns a channel that is closed when the client is disconnected.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close terminates the client connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.Conn.Close()
	})
}
