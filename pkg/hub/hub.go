// Package hub fans state frames out to dashboard websocket clients
// through a channel-based broadcast loop with per-client buffered
// queues. Inbound command envelopes from any dashboard funnel into a
// single dispatch callback. The hub retains the newest frame and primes
// every new client with it, so a dashboard can draw without waiting for
// the next refresh tick.
package hub

import (
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-armdeck/internal/log"
)

// Hub owns the dashboard client set. The deck runs one.
type Hub struct {
	// Name for logging
	name string

	// Registered clients
	clients map[*Client]bool

	// Frames to fan out
	broadcast chan []byte

	// Register and unregister requests from clients
	register   chan *Client
	unregister chan *Client

	// Called with every command envelope a dashboard sends. Set
	// before Run.
	onCommand func(data []byte)

	// Newest broadcast frame. Only the Run goroutine touches it.
	last []byte

	broadcasts atomic.Uint64
	dropped    atomic.Uint64

	// Mutex for client count (read-only access from outside)
	mu sync.RWMutex
}

// New creates a hub. Call Run in a goroutine before attaching clients.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// OnCommand sets the handler for command envelopes received from any
// dashboard. The handler runs on the sending client's read goroutine.
func (h *Hub) OnCommand(fn func(data []byte)) {
	h.onCommand = fn
}

// Run is the hub's main loop: client lifecycle and frame fan-out on one
// goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			if h.last != nil {
				select {
				case client.send <- h.last:
				default:
				}
			}
			log.Info("dashboard connected", "hub", h.name, "total", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Info("dashboard disconnected", "hub", h.name, "remaining", count)

		case frame := <-h.broadcast:
			h.last = frame
			h.broadcasts.Add(1)
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- frame:
					// Frame queued successfully
				default:
					// Client's queue is full - they stopped
					// reading, so evict them
					close(client.send)
					delete(h.clients, client)
					h.dropped.Add(1)
					log.Warn("dropped slow dashboard", "hub", h.name)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues one frame for every connected dashboard. Never
// blocks; when the loop cannot keep up the frame is dropped, since the
// next refresh supersedes it anyway.
func (h *Hub) Broadcast(frame []byte) {
	select {
	case h.broadcast <- frame:
	default:
		h.dropped.Add(1)
		log.Warn("broadcast queue full, dropping frame", "hub", h.name)
	}
}

// ClientCount returns the number of connected dashboards.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats reports frames broadcast and frames or clients dropped.
func (h *Hub) Stats() (broadcasts, dropped uint64) {
	return h.broadcasts.Load(), h.dropped.Load()
}

func (h *Hub) dispatch(data []byte) {
	if h.onCommand != nil {
		h.onCommand(data)
	}
}
