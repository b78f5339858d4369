package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Tnze/go-mc/chat"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"voxelrelay.ai/internal/assets"
	"voxelrelay.ai/internal/protocol"
	"voxelrelay.ai/internal/session"
)

// NewPlayer is a client that finished the handshake and holds a reserved
// player slot. It is consumed exactly once by AcceptNewPlayers.
type NewPlayer struct {
	UUID            uuid.UUID
	Username        string
	ProtocolVersion string
	Session         *session.Session
	Conn            Conn
	MaxQueue        int

	// NoSlot is set when the server was full but UUID was online. The
	// player takes over the slot of the session it replaces.
	NoSlot bool
}

type ListenerConfig struct {
	BindAddress      string
	Port             int
	Path             string
	HandshakeTimeout time.Duration
	Assets           *assets.Assets
}

// Listener accepts websocket connections and runs the login handshake off
// the tick goroutine. Admitted players are handed over on a bounded channel.
type Listener struct {
	cfg   ListenerConfig
	count *PlayerCount
	out   chan<- NewPlayer
	log   *log.Logger

	ln       net.Listener
	srv      *http.Server
	upgrader websocket.Upgrader
	hello    *jsonschema.Schema

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// StartListener binds the configured address and starts serving. Cancelling
// ctx or calling Close stops new logins; registered clients are unaffected.
func StartListener(ctx context.Context, cfg ListenerConfig, count *PlayerCount, out chan<- NewPlayer, logger *log.Logger) (*Listener, error) {
	if cfg.Path == "" {
		cfg.Path = "/v1/ws"
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 5 * time.Second
	}
	if cfg.Assets == nil {
		return nil, errors.New("listener: assets required")
	}
	hello, err := protocol.CompileSchema(protocol.SchemaHello)
	if err != nil {
		return nil, fmt.Errorf("listener: %w", err)
	}
	addr := net.JoinHostPort(cfg.BindAddress, strconv.Itoa(cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	l := &Listener{
		cfg:   cfg,
		count: count,
		out:   out,
		log:   logger,
		ln:    ln,
		hello: hello,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	l.ctx, l.cancel = context.WithCancel(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Path, l.handle)
	l.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.log.Printf("listener: serve: %v", err)
		}
	}()
	go func() {
		<-l.ctx.Done()
		_ = l.srv.Close()
	}()

	l.log.Printf("listening on %s%s", ln.Addr(), cfg.Path)
	return l, nil
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// URL is the websocket endpoint clients should dial.
func (l *Listener) URL() string {
	return "ws://" + l.ln.Addr().String() + l.cfg.Path
}

func (l *Listener) Close() error {
	l.cancel()
	err := l.srv.Close()
	l.wg.Wait()
	return err
}

func (l *Listener) handle(rw http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	np, ok := l.handshake(conn)
	if !ok {
		_ = conn.Close()
		return
	}
	select {
	case l.out <- np:
	case <-l.ctx.Done():
		if !np.NoSlot {
			l.count.Release()
		}
		rejectConn(conn, protocol.ErrShutdown, "Server closed")
		_ = conn.Close()
	}
}

func (l *Listener) handshake(conn *websocket.Conn) (NewPlayer, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(l.cfg.HandshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return NewPlayer{}, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		rejectConn(conn, protocol.ErrProtoBadRequest, "expected HELLO")
		return NewPlayer{}, false
	}
	if err := protocol.ValidateRaw(l.hello, msg); err != nil {
		rejectConn(conn, protocol.ErrProtoBadRequest, "malformed HELLO")
		return NewPlayer{}, false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		rejectConn(conn, protocol.ErrProtoBadRequest, "malformed HELLO")
		return NewPlayer{}, false
	}
	sess, err := session.ForVersion(hello.ProtocolVersion, l.cfg.Assets)
	if err != nil {
		rejectConn(conn, protocol.ErrProtoVersion, "Unsupported protocol version "+hello.ProtocolVersion)
		return NewPlayer{}, false
	}

	id := identity(hello)
	reserved := l.count.TryAcquire()
	if !reserved && !l.count.Online(id) {
		rejectConn(conn, protocol.ErrServerFull, "Server is full")
		return NewPlayer{}, false
	}
	if err := writeJSON(conn, protocol.LoginSuccessMsg{
		Type:            protocol.TypeLoginSuccess,
		ProtocolVersion: sess.Version(),
		UUID:            id.String(),
		Username:        hello.Username,
	}); err != nil {
		if reserved {
			l.count.Release()
		}
		return NewPlayer{}, false
	}
	_ = conn.SetReadDeadline(time.Time{})

	return NewPlayer{
		UUID:            id,
		Username:        hello.Username,
		ProtocolVersion: hello.ProtocolVersion,
		Session:         sess,
		Conn:            conn,
		MaxQueue:        hello.Capabilities.MaxQueue,
		NoSlot:          !reserved,
	}, true
}

// identity is the claimed uuid when it parses, else the offline-mode uuid
// derived from the username.
func identity(hello protocol.HelloMsg) uuid.UUID {
	if hello.Auth != nil {
		if id, err := uuid.Parse(strings.TrimSpace(hello.Auth.UUID)); err == nil && id != uuid.Nil {
			return id
		}
	}
	return OfflineUUID(hello.Username)
}

// OfflineUUID is the stable identity of an unauthenticated username.
func OfflineUUID(username string) uuid.UUID {
	return uuid.NewMD5(uuid.Nil, []byte("OfflinePlayer:"+username))
}

func rejectConn(conn *websocket.Conn, code, reason string) {
	_ = writeJSON(conn, protocol.DisconnectMsg{
		Type:   protocol.TypeDisconnect,
		Code:   code,
		Reason: chat.Text(reason),
	})
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
