package signaling

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Enough for SDP blobs.
	maxMessageSize = 64 * 1024

	// Outbound queue depth per connection. Sends beyond it are dropped.
	sendQueueSize = 256

	// Inbound event budget per connection.
	eventsPerSecond = 10
	eventBurst      = 20
)

// Client is a wrapper for a single websocket connection (a participant).
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// ref is the connection's registry identity, minted at accept time.
	ref ConnRef

	// send is the buffered channel for all outbound events. WritePump is
	// the only writer to the socket. send is never closed; the hub may
	// race a queued delivery against teardown, so shutdown is signaled
	// through done instead.
	send chan protocol.Event

	// done closes when the hub discards the client, telling WritePump
	// to emit a close frame and exit.
	done chan struct{}

	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient wraps an upgraded websocket connection. The caller must
// start ReadPump and WritePump.
func NewClient(hub *Hub, conn *websocket.Conn, log zerolog.Logger) *Client {
	ref := ConnRef(uuid.NewString())
	return &Client{
		hub:     hub,
		conn:    conn,
		ref:     ref,
		send:    make(chan protocol.Event, sendQueueSize),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(eventsPerSecond, eventBurst),
		log:     log.With().Str("conn", string(ref)).Logger(),
	}
}

// Ref returns the connection's registry identity.
func (c *Client) Ref() ConnRef { return c.ref }

// ReadPump pumps events from the websocket connection into the hub.
//
// There is at most one reader per connection: all reads happen here.
// When the pump exits, the connection is treated as a transport loss
// and unregistered, which drives the registry Leave.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var ev protocol.Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug().Err(err).Msg("read error")
			}
			break
		}

		if !c.limiter.Allow() {
			c.log.Warn().Msg("rate limit exceeded, closing connection")
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "rate limit"),
				time.Now().Add(writeWait))
			break
		}

		c.hub.dispatch(c, ev)
	}
}

// WritePump pumps events from the send queue to the websocket
// connection and keeps the connection alive with periodic pings.
//
// There is at most one writer per connection: all writes happen here.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.log.Debug().Err(err).Msg("write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
