package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-armdeck/internal/log"
)

const (
	// Time allowed to write a frame to the dashboard
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the dashboard
	pongWait = 60 * time.Second

	// Send pings to the dashboard with this period. Must be less
	// than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum command envelope size allowed from a dashboard. The
	// envelopes are small JSON objects; anything larger is junk.
	maxCommandSize = 4096
)

// Client is one dashboard's websocket attached to a hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Buffered queue of outbound frames
	send chan []byte
}

// NewClient wraps an upgraded connection and registers it with the hub.
// Call Run to start pumping; it returns when the connection dies.
func NewClient(h *Hub, conn *websocket.Conn) *Client {
	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 64),
	}
	h.register <- client
	return client
}

// Run services the connection until it closes. The write pump runs on
// its own goroutine; reads happen here so the websocket handler blocks
// for the connection's lifetime, as gofiber requires.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump reads command envelopes from the dashboard and hands them to
// the hub's dispatch. It also services pongs to keep the read deadline
// fresh.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxCommandSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("dashboard read error", "hub", c.hub.name, "error", err)
			}
			return
		}
		if msgType == websocket.TextMessage && len(data) > 0 {
			c.hub.dispatch(data)
		}
	}
}

// writePump is the sole writer on the connection: queued frames plus
// keepalive pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the queue: evicted or shutting down
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
