package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrCallOpen is returned by Start while a call is already connected.
var ErrCallOpen = errors.New("voice call already open")

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 5 * time.Second
)

type controlFrame struct {
	Type string `json:"type"`
	StartRequest
}

type subscription struct {
	id int
	fn Listener
}

// WSClient speaks the provider's JSON-over-WebSocket session protocol.
type WSClient struct {
	url    string
	token  string
	dialer *websocket.Dialer

	mu   sync.Mutex // guards conn and writes
	conn *websocket.Conn

	subsMu sync.Mutex
	subs   []subscription
	nextID int
}

// NewWSClient creates a client for the session endpoint at url.
func NewWSClient(url, token string) *WSClient {
	return &WSClient{
		url:   url,
		token: token,
		dialer: &websocket.Dialer{
			HandshakeTimeout: dialTimeout,
			ReadBufferSize:   16384,
			WriteBufferSize:  16384,
		},
	}
}

// Subscribe registers l for all subsequent events.
func (c *WSClient) Subscribe(l Listener) func() {
	c.subsMu.Lock()
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscription{id: id, fn: l})
	c.subsMu.Unlock()

	return func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// Start dials the provider and sends the start frame. Events flow to
// subscribers from a read goroutine until the call ends.
func (c *WSClient) Start(ctx context.Context, req StartRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return ErrCallOpen
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("voice dial: %s: %w", resp.Status, err)
		}
		return fmt.Errorf("voice dial: %w", err)
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err = conn.WriteJSON(controlFrame{Type: "start", StartRequest: req}); err != nil {
		conn.Close()
		return fmt.Errorf("voice start frame: %w", err)
	}

	c.conn = conn
	go c.readLoop(conn)
	return nil
}

// Stop asks the provider to end the call and closes the socket. Stopping
// with no open call is a no-op.
func (c *WSClient) Stop(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	defer conn.Close()

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(controlFrame{Type: "stop"}); err != nil {
		return fmt.Errorf("voice stop frame: %w", err)
	}
	return nil
}

// readLoop decodes provider frames until the call ends. A socket that
// drops without a call-end frame still produces one. Once Stop has released
// conn, its remaining frames are discarded.
func (c *WSClient) readLoop(conn *websocket.Conn) {
	ended := false
	for !ended {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			slog.Info("voice connection closed", "error", err)
			break
		}
		if !c.owns(conn) {
			break
		}
		ended = ev.Type == EventCallEnd
		c.emit(ev)
	}

	c.mu.Lock()
	dropped := c.conn == conn
	if dropped {
		c.conn = nil
	}
	c.mu.Unlock()
	conn.Close()

	if dropped && !ended {
		c.emit(Event{Type: EventCallEnd})
	}
}

func (c *WSClient) owns(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn == conn
}

// emit fans ev out to a snapshot of the subscribers, so listeners may
// unsubscribe from inside the callback.
func (c *WSClient) emit(ev Event) {
	c.subsMu.Lock()
	snapshot := make([]Listener, len(c.subs))
	for i, s := range c.subs {
		snapshot[i] = s.fn
	}
	c.subsMu.Unlock()

	for _, fn := range snapshot {
		fn(ev)
	}
}
