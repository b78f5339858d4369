package server

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Tnze/go-mc/chat"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"voxelrelay.ai/internal/protocol"
	"voxelrelay.ai/internal/session"
	"voxelrelay.ai/internal/sim/coords"
	"voxelrelay.ai/internal/sim/ecs"
)

var (
	ErrClientDisconnected = errors.New("client disconnected")
	ErrSlowClient         = errors.New("outbound queue full")
)

// Conn is the transport a Client talks through. *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// ClientView is the read-only face of a Client handed to nearby broadcasts.
// Send only enqueues, so it is allowed here.
type ClientView interface {
	ID() ClientID
	Username() string
	UUID() uuid.UUID
	Entity() (ecs.EntityID, bool)
	Knows(id ecs.EntityID) bool
	IsDisconnected() bool
	Send(v any) error
}

// ClientConfig bounds the per-client queues.
type ClientConfig struct {
	OutboundQueue int
	InboundQueue  int
	// ReadTimeout is the longest a connection may stay silent. Zero disables it.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.OutboundQueue <= 0 {
		c.OutboundQueue = 256
	}
	if c.InboundQueue <= 0 {
		c.InboundQueue = 64
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	return c
}

// Client is one connected player. Network I/O runs on two goroutines owned
// by the client; everything else is touched only by the tick goroutine.
type Client struct {
	id       ClientID
	uuid     uuid.UUID
	username string
	session  *session.Session
	conn     Conn
	cfg      ClientConfig
	log      *log.Logger

	out     chan []byte
	in      chan []byte
	closing chan struct{}

	closeOnce    sync.Once
	disconnected atomic.Bool
	mu           sync.Mutex
	final        []byte
	reason       string

	lastAck atomic.Int64

	// Tick-goroutine state.
	entity      ecs.EntityID
	hasEntity   bool
	viewCenter  coords.ChunkPos
	hasView     bool
	known       map[ecs.EntityID]struct{}
	awaitID     int64
	awaitSince  time.Time
	awaiting    bool
	connectedAt time.Time
}

func newClient(np NewPlayer, cfg ClientConfig, logger *log.Logger) *Client {
	cfg = cfg.withDefaults()
	if np.MaxQueue > 0 && np.MaxQueue < cfg.OutboundQueue {
		cfg.OutboundQueue = np.MaxQueue
	}
	return &Client{
		uuid:     np.UUID,
		username: np.Username,
		session:  np.Session,
		conn:     np.Conn,
		cfg:      cfg,
		log:      logger,
		out:      make(chan []byte, cfg.OutboundQueue),
		in:       make(chan []byte, cfg.InboundQueue),
		closing:  make(chan struct{}),
		known:    map[ecs.EntityID]struct{}{},
	}
}

func (c *Client) start() {
	go c.writeLoop()
	go c.readLoop()
}

func (c *Client) ID() ClientID                  { return c.id }
func (c *Client) Username() string              { return c.username }
func (c *Client) UUID() uuid.UUID               { return c.uuid }
func (c *Client) Session() *session.Session     { return c.session }
func (c *Client) ConnectedAt() time.Time        { return c.connectedAt }
func (c *Client) Entity() (ecs.EntityID, bool)  { return c.entity, c.hasEntity }
func (c *Client) IsDisconnected() bool          { return c.disconnected.Load() }
func (c *Client) View() (coords.ChunkPos, bool) { return c.viewCenter, c.hasView }

func (c *Client) SetEntity(id ecs.EntityID) {
	c.entity = id
	c.hasEntity = true
}

func (c *Client) SetView(center coords.ChunkPos) {
	c.viewCenter = center
	c.hasView = true
}

// Knows reports whether id has been spawned on this client.
func (c *Client) Knows(id ecs.EntityID) bool {
	_, ok := c.known[id]
	return ok
}

func (c *Client) MarkKnown(id ecs.EntityID)   { c.known[id] = struct{}{} }
func (c *Client) MarkUnknown(id ecs.EntityID) { delete(c.known, id) }

// DisconnectReason returns the reason recorded by the first Disconnect.
func (c *Client) DisconnectReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// Send encodes v and queues it for the writer. It never blocks: a full
// queue disconnects the client.
func (c *Client) Send(v any) error {
	if c.disconnected.Load() {
		return ErrClientDisconnected
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.out <- b:
		return nil
	default:
		c.Disconnect(protocol.ErrSlowClient, "Outbound queue full")
		return ErrSlowClient
	}
}

// SendKeepAlive queues a keepalive. The oldest unanswered id is what
// KeepaliveOverdue measures against.
func (c *Client) SendKeepAlive(id int64, now time.Time) error {
	if !c.awaiting {
		c.awaitID = id
		c.awaitSince = now
		c.awaiting = true
	}
	return c.Send(protocol.KeepAliveMsg{Type: protocol.TypeKeepAlive, ID: id})
}

// KeepaliveOverdue reports whether an outstanding keepalive has gone
// unanswered for longer than timeout.
func (c *Client) KeepaliveOverdue(now time.Time, timeout time.Duration) bool {
	if !c.awaiting {
		return false
	}
	if c.lastAck.Load() >= c.awaitID {
		c.awaiting = false
		return false
	}
	return timeout > 0 && now.Sub(c.awaitSince) > timeout
}

// Disconnect sends a final DISCONNECT and closes the connection. Only the
// first call has any effect. Safe from any goroutine.
func (c *Client) Disconnect(code, reason string) {
	c.closeOnce.Do(func() {
		b, _ := json.Marshal(protocol.DisconnectMsg{
			Type:   protocol.TypeDisconnect,
			Code:   code,
			Reason: chat.Text(reason),
		})
		c.mu.Lock()
		c.final = b
		c.reason = reason
		c.mu.Unlock()
		c.disconnected.Store(true)
		close(c.closing)
	})
}

// DrainInbound returns the frames received since the last call.
func (c *Client) DrainInbound() [][]byte {
	var frames [][]byte
	for {
		select {
		case b := <-c.in:
			frames = append(frames, b)
		default:
			return frames
		}
	}
}

func (c *Client) writeLoop() {
	defer c.conn.Close()
	for {
		select {
		case <-c.closing:
			c.mu.Lock()
			final := c.final
			c.mu.Unlock()
			if final != nil {
				_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
				_ = c.conn.WriteMessage(websocket.TextMessage, final)
			}
			return
		case b := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				c.Disconnect("", "Connection lost")
				return
			}
		}
	}
}

func (c *Client) readLoop() {
	for {
		if c.cfg.ReadTimeout > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		}
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.Disconnect("", "Connection lost")
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		if base.Type == protocol.TypeKeepAlive {
			var ka protocol.KeepAliveMsg
			if err := json.Unmarshal(msg, &ka); err == nil && ka.ID > c.lastAck.Load() {
				c.lastAck.Store(ka.ID)
			}
			continue
		}
		pushLatest(c.in, msg)
	}
}

// pushLatest enqueues b, dropping the oldest queued frame when full.
func pushLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
