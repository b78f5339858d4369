package server

import (
	"encoding/json"
	"io"
	"log"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxelrelay.ai/internal/protocol"
)

type fakeConn struct {
	mu      sync.Mutex
	written [][]byte

	reads     chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{reads: make(chan []byte, 16), closed: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case b := <-f.reads:
		return websocket.TextMessage, b, nil
	case <-f.closed:
		return 0, nil, io.EOF
	}
}

func (f *fakeConn) WriteMessage(_ int, b []byte) error {
	select {
	case <-f.closed:
		return net.ErrClosed
	default:
	}
	f.mu.Lock()
	f.written = append(f.written, append([]byte(nil), b...))
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

// types returns the message types written so far.
func (f *fakeConn) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, b := range f.written {
		base, err := protocol.DecodeBase(b)
		if err == nil {
			out = append(out, base.Type)
		}
	}
	return out
}

func (f *fakeConn) lastOf(typ string, v any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.written) - 1; i >= 0; i-- {
		base, err := protocol.DecodeBase(f.written[i])
		if err == nil && base.Type == typ {
			return json.Unmarshal(f.written[i], v) == nil
		}
	}
	return false
}

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func fakePlayer(name string) (NewPlayer, *fakeConn) {
	conn := newFakeConn()
	return NewPlayer{
		UUID:            OfflineUUID(name),
		Username:        name,
		ProtocolVersion: protocol.Version,
		Conn:            conn,
	}, conn
}

// newTestServer returns a server whose login channel the test feeds directly.
func newTestServer(maxPlayers int) (*Server, chan NewPlayer) {
	ch := make(chan NewPlayer, 4)
	return New(Config{MaxPlayers: maxPlayers}, NewPlayerCount(maxPlayers), ch, testLogger()), ch
}

// admit reserves a slot the way the listener would and queues np.
func admit(t *testing.T, s *Server, ch chan NewPlayer, np NewPlayer) {
	t.Helper()
	if !s.PlayerCount().TryAcquire() {
		t.Fatalf("no player slot for %s", np.Username)
	}
	ch <- np
}

