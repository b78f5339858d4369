// Package server is the tick-side half of the network layer: the client
// registry, chunk subscriptions and the broadcast primitives built on them,
// plus the listener that feeds it new players.
package server

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"voxelrelay.ai/internal/protocol"
	"voxelrelay.ai/internal/sim/coords"
)

type Config struct {
	MaxPlayers       int
	MaxPendingLogins int
	Client           ClientConfig
}

// Server owns the live clients. Apart from Close, every method must be
// called from the tick goroutine.
type Server struct {
	clients    *Clients
	subs       *ChunkSubscriptions
	count      *PlayerCount
	newPlayers <-chan NewPlayer
	listener   *Listener
	byUUID     map[uuid.UUID]ClientID
	cfg        ClientConfig
	log        *log.Logger

	now           func() time.Time
	lastKeepalive time.Time
	keepaliveSeq  int64

	onRemoved func(ClientID, *Client)
}

// New creates a Server fed from newPlayers. count must be the same counter
// the producer of newPlayers reserves slots on.
func New(cfg Config, count *PlayerCount, newPlayers <-chan NewPlayer, logger *log.Logger) *Server {
	return &Server{
		clients:    NewClients(),
		subs:       NewChunkSubscriptions(),
		count:      count,
		newPlayers: newPlayers,
		byUUID:     map[uuid.UUID]ClientID{},
		cfg:        cfg.Client.withDefaults(),
		log:        logger,
		now:        time.Now,
	}
}

// Bind starts a listener on lc and returns a Server connected to it.
func Bind(ctx context.Context, cfg Config, lc ListenerConfig, logger *log.Logger) (*Server, error) {
	pending := cfg.MaxPendingLogins
	if pending <= 0 {
		pending = 4
	}
	ch := make(chan NewPlayer, pending)
	count := NewPlayerCount(cfg.MaxPlayers)
	l, err := StartListener(ctx, lc, count, ch, logger)
	if err != nil {
		return nil, err
	}
	s := New(cfg, count, ch, logger)
	s.listener = l
	return s, nil
}

func (s *Server) Listener() *Listener                        { return s.listener }
func (s *Server) Clients() *Clients                          { return s.clients }
func (s *Server) Subscriptions() *ChunkSubscriptions         { return s.subs }
func (s *Server) PlayerCount() *PlayerCount                  { return s.count }
func (s *Server) LastKeepalive() time.Time                   { return s.lastKeepalive }
func (s *Server) SetClock(now func() time.Time)              { s.now = now }
func (s *Server) OnClientRemoved(fn func(ClientID, *Client)) { s.onRemoved = fn }

// Close stops the listener and disconnects every client.
func (s *Server) Close() error {
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for _, id := range s.clients.IDs() {
		if c, ok := s.clients.Get(id); ok {
			c.Disconnect(protocol.ErrShutdown, "Server closed")
		}
		s.RemoveClient(id)
	}
	return err
}

// AcceptNewPlayers registers every player waiting on the login channel and
// returns their ids. It never blocks. A player whose uuid is already online
// replaces the older client; the returned ids are unique and all live.
func (s *Server) AcceptNewPlayers() []ClientID {
	var ids []ClientID
	for {
		select {
		case np, ok := <-s.newPlayers:
			if !ok {
				return ids
			}
			if old, dup := s.byUUID[np.UUID]; dup {
				ids = dropID(ids, old)
			}
			if id, ok := s.accept(np); ok {
				ids = append(ids, id)
			}
		default:
			return ids
		}
	}
}

func (s *Server) accept(np NewPlayer) (ClientID, bool) {
	slot := !np.NoSlot
	if old, ok := s.byUUID[np.UUID]; ok {
		if c, ok := s.clients.Get(old); ok {
			c.Disconnect(protocol.ErrDuplicateLogin, "Logged in from another location!")
		}
		// Without a slot of its own the new client inherits the old one.
		s.removeClient(old, slot)
		slot = true
	}
	c := newClient(np, s.cfg, s.log)
	c.connectedAt = s.now()
	if !slot && !s.count.TryAcquire() {
		c.start()
		c.Disconnect(protocol.ErrServerFull, "Server is full")
		s.log.Printf("client rejected name=%s uuid=%s: server full", np.Username, np.UUID)
		return 0, false
	}
	id := s.clients.Insert(c)
	s.byUUID[np.UUID] = id
	s.count.MarkOnline(np.UUID)
	c.start()
	s.log.Printf("client joined id=%d name=%s uuid=%s", id, np.Username, np.UUID)
	return id, true
}

func dropID(ids []ClientID, id ClientID) []ClientID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// RemoveClient unregisters id, closes its connection and frees its player
// slot. Unknown ids are ignored.
func (s *Server) RemoveClient(id ClientID) { s.removeClient(id, true) }

func (s *Server) removeClient(id ClientID, release bool) {
	c, ok := s.clients.Remove(id)
	if !ok {
		return
	}
	s.subs.UnsubscribeAll(id)
	if cur, ok := s.byUUID[c.uuid]; ok && cur == id {
		delete(s.byUUID, c.uuid)
	}
	c.Disconnect("", "Disconnected")
	s.count.MarkOffline(c.uuid)
	if release {
		s.count.Release()
	}
	s.log.Printf("client left id=%d name=%s reason=%q", id, c.username, c.DisconnectReason())
	if s.onRemoved != nil {
		s.onRemoved(id, c)
	}
}

// BroadcastWith calls fn for every live client.
func (s *Server) BroadcastWith(fn func(*Client)) {
	s.clients.Each(func(_ ClientID, c *Client) { fn(c) })
}

// BroadcastNearbyWith calls fn for every client subscribed to the chunk
// containing pos.
func (s *Server) BroadcastNearbyWith(world, dimension string, pos coords.Position, fn func(ClientView)) {
	s.BroadcastChunkWith(SubscriptionKey{World: world, Dimension: dimension, Chunk: pos.Chunk()}, fn)
}

// BroadcastChunkWith is BroadcastNearbyWith for an already-known chunk.
func (s *Server) BroadcastChunkWith(key SubscriptionKey, fn func(ClientView)) {
	for _, id := range s.nearby(key) {
		if c, ok := s.clients.Get(id); ok {
			fn(c)
		}
	}
}

// UpdateNearbyWith is BroadcastNearbyWith with mutable access to each client.
func (s *Server) UpdateNearbyWith(world, dimension string, pos coords.Position, fn func(ClientID, *Client)) {
	s.UpdateChunkWith(SubscriptionKey{World: world, Dimension: dimension, Chunk: pos.Chunk()}, fn)
}

func (s *Server) UpdateChunkWith(key SubscriptionKey, fn func(ClientID, *Client)) {
	for _, id := range s.nearby(key) {
		if c, ok := s.clients.Get(id); ok {
			fn(id, c)
		}
	}
}

func (s *Server) nearby(key SubscriptionKey) []ClientID {
	set := s.subs.SubscriptionsFor(key)
	if len(set) == 0 {
		return nil
	}
	ids := make([]ClientID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// BroadcastKeepalive sends a keepalive to every client and records when.
func (s *Server) BroadcastKeepalive() {
	now := s.now()
	s.keepaliveSeq++
	id := s.keepaliveSeq
	s.clients.Each(func(_ ClientID, c *Client) {
		_ = c.SendKeepAlive(id, now)
	})
	s.lastKeepalive = now
}
