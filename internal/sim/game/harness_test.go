package game

import (
	"encoding/json"
	"io"
	"log"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxelrelay.ai/internal/assets"
	"voxelrelay.ai/internal/protocol"
	"voxelrelay.ai/internal/server"
	"voxelrelay.ai/internal/session"
	"voxelrelay.ai/internal/sim/coords"
)

type pipeConn struct {
	mu      sync.Mutex
	written [][]byte

	reads     chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newPipeConn() *pipeConn {
	return &pipeConn{reads: make(chan []byte, 64), closed: make(chan struct{})}
}

func (p *pipeConn) ReadMessage() (int, []byte, error) {
	select {
	case b := <-p.reads:
		return websocket.TextMessage, b, nil
	case <-p.closed:
		return 0, nil, io.EOF
	}
}

func (p *pipeConn) WriteMessage(_ int, b []byte) error {
	select {
	case <-p.closed:
		return net.ErrClosed
	default:
	}
	p.mu.Lock()
	p.written = append(p.written, append([]byte(nil), b...))
	p.mu.Unlock()
	return nil
}

func (p *pipeConn) SetReadDeadline(time.Time) error  { return nil }
func (p *pipeConn) SetWriteDeadline(time.Time) error { return nil }

func (p *pipeConn) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

func (p *pipeConn) send(t *testing.T, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	p.reads <- b
}

// messages decodes every written frame of type typ into a fresh T.
func messages[T any](p *pipeConn, typ string) []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []T
	for _, b := range p.written {
		base, err := protocol.DecodeBase(b)
		if err != nil || base.Type != typ {
			continue
		}
		var v T
		if json.Unmarshal(b, &v) == nil {
			out = append(out, v)
		}
	}
	return out
}

// sawSpawn reports whether id was spawned on p after its last despawn.
func sawSpawn(p *pipeConn, id uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	visible := false
	for _, b := range p.written {
		base, err := protocol.DecodeBase(b)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeEntitySpawn:
			var m protocol.EntitySpawnMsg
			if json.Unmarshal(b, &m) == nil && m.EntityID == id {
				visible = true
			}
		case protocol.TypeEntityDespawn:
			var m protocol.EntityDespawnMsg
			if json.Unmarshal(b, &m) == nil {
				for _, gone := range m.EntityIDs {
					if gone == id {
						visible = false
					}
				}
			}
		}
	}
	return visible
}

type harness struct {
	t   *testing.T
	g   *Game
	srv *server.Server
	ch  chan server.NewPlayer
	a   *assets.Assets
	now time.Time
}

func testConfig() Config {
	return Config{
		WorldID:           "world",
		Dimension:         "minecraft:overworld",
		Seed:              66,
		Gamemode:          protocol.GamemodeSurvival,
		LevelType:         protocol.LevelDefault,
		MaxPlayers:        8,
		ViewDistance:      1,
		Spawn:             coords.Position{X: 8, Y: 64, Z: 8},
		TickRateHz:        20,
		KeepaliveInterval: time.Second,
		KeepaliveTimeout:  5 * time.Second,
	}
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	a, err := assets.Load()
	if err != nil {
		t.Fatalf("assets: %v", err)
	}
	ch := make(chan server.NewPlayer, 8)
	logger := log.New(io.Discard, "", 0)
	srv := server.New(server.Config{MaxPlayers: cfg.MaxPlayers}, server.NewPlayerCount(cfg.MaxPlayers), ch, logger)
	h := &harness{t: t, srv: srv, ch: ch, a: a, now: time.Unix(1_700_000_000, 0)}
	h.g = New(cfg, srv, logger)
	t.Cleanup(func() { _ = srv.Close() })
	return h
}

// join queues a logged-in player; it is accepted on the next step.
func (h *harness) join(name string) *pipeConn {
	h.t.Helper()
	if !h.srv.PlayerCount().TryAcquire() {
		h.t.Fatalf("server full")
	}
	conn := newPipeConn()
	h.ch <- server.NewPlayer{
		UUID:            server.OfflineUUID(name),
		Username:        name,
		ProtocolVersion: protocol.Version,
		Session:         session.NewVanilla(h.a),
		Conn:            conn,
	}
	return conn
}

func (h *harness) step() {
	h.now = h.now.Add(50 * time.Millisecond)
	h.g.Step(h.now)
}

func (h *harness) stepUntil(what string, cond func() bool) {
	h.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.step()
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	h.t.Fatalf("timed out waiting for %s", what)
}

func (h *harness) client(name string) (server.ClientID, *server.Client) {
	var (
		id  server.ClientID
		out *server.Client
	)
	h.srv.Clients().Each(func(cid server.ClientID, c *server.Client) {
		if c.Username() == name {
			id, out = cid, c
		}
	})
	return id, out
}

func (h *harness) entityOf(name string) uint64 {
	h.t.Helper()
	_, c := h.client(name)
	if c == nil {
		h.t.Fatalf("no client %s", name)
	}
	eid, ok := c.Entity()
	if !ok {
		h.t.Fatalf("client %s has no entity", name)
	}
	return uint64(eid)
}
