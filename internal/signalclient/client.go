package signalclient

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client manages the websocket connection to the signaling server.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	incoming  chan protocol.Event
	outgoing  chan protocol.Event
	done      chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewClient creates a signaling client for the given ws:// or wss:// URL.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		incoming:  make(chan protocol.Event, 32),
		outgoing:  make(chan protocol.Event, 32),
		done:      make(chan struct{}),
	}
}

// Connect establishes the websocket connection and starts the pumps.
func (c *Client) Connect() error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return nil
}

// readPump reads events from the websocket connection. The incoming
// channel closes when the transport is lost, which is the client's
// disconnect notification.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var ev protocol.Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			return
		}
		c.incoming <- ev
	}
}

// writePump writes queued events and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
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

// Send queues an event for the server. Sends after Close are dropped.
func (c *Client) Send(ev protocol.Event) {
	select {
	case c.outgoing <- ev:
	case <-c.done:
	}
}

// Incoming returns the channel of server events. It closes on
// transport loss.
func (c *Client) Incoming() <-chan protocol.Event {
	return c.incoming
}

// Close shuts the websocket connection down.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

// Join binds this connection to (roomID, role). It may be re-sent to
// switch rooms or roles while the transport is up.
func (c *Client) Join(roomID string, role protocol.Role) {
	c.Send(protocol.NewEvent(protocol.EventJoin, protocol.Join{RoomID: roomID, Role: role}))
}

// SendOffer relays an SDP offer to the room's other occupant.
func (c *Client) SendOffer(roomID string, offer json.RawMessage) {
	c.Send(protocol.NewEvent(protocol.EventOffer, protocol.Offer{RoomID: roomID, Offer: offer}))
}

// SendAnswer relays an SDP answer to the room's other occupant.
func (c *Client) SendAnswer(roomID string, answer json.RawMessage) {
	c.Send(protocol.NewEvent(protocol.EventAnswer, protocol.Answer{RoomID: roomID, Answer: answer}))
}

// SendCandidate relays one ICE candidate to the room's other occupant.
func (c *Client) SendCandidate(roomID string, candidate json.RawMessage) {
	c.Send(protocol.NewEvent(protocol.EventICECandidate, protocol.ICECandidate{RoomID: roomID, Candidate: candidate}))
}

// SendChat broadcasts a chat line to the room.
func (c *Client) SendChat(roomID, text string) {
	c.Send(protocol.NewEvent(protocol.EventChatMessage, protocol.ChatSend{
		RoomID:    roomID,
		Text:      text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}))
}

// SendEndCall announces a user hang-up to the room.
func (c *Client) SendEndCall(roomID string) {
	c.Send(protocol.NewEvent(protocol.EventEndCall, protocol.EndCall{RoomID: roomID}))
}
