package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"voxelrelay.ai/internal/protocol"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:25565/v1/ws", "ws url")
		name  = flag.String("name", "bot", "username")
		every = flag.Duration("move_every", 500*time.Millisecond, "interval between MOVE frames")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Username:        *name,
		Capabilities:    protocol.HelloCapabilities{MaxQueue: 64},
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	// gorilla connections allow a single writer.
	out := make(chan any, 16)
	go func() {
		for v := range out {
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(v); err != nil {
				logger.Printf("write: %v", err)
				return
			}
		}
	}()

	frames := make(chan []byte, 64)
	go func() {
		defer close(frames)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				logger.Printf("read: %v", err)
				return
			}
			frames <- msg
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	w := &walker{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
	ticker := time.NewTicker(*every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if mv, ok := w.step(); ok {
				select {
				case out <- mv:
				default:
				}
			}
		case msg, ok := <-frames:
			if !ok {
				return
			}
			if done := handle(logger, w, out, msg); done {
				return
			}
		}
	}
}

func handle(logger *log.Logger, w *walker, out chan<- any, msg []byte) bool {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return false
	}
	switch base.Type {
	case protocol.TypeLoginSuccess:
		var m protocol.LoginSuccessMsg
		if json.Unmarshal(msg, &m) == nil {
			logger.Printf("LOGIN_SUCCESS uuid=%s username=%s", m.UUID, m.Username)
		}
	case protocol.TypeJoinGame:
		var m protocol.JoinGameMsg
		if json.Unmarshal(msg, &m) == nil {
			logger.Printf("JOIN_GAME entity=%d gamemode=%s world=%s view_distance=%d hashed_seed=%d",
				m.EntityID, m.Gamemode, m.WorldName, m.ViewDistance, m.HashedSeed)
		}
	case protocol.TypeSpawnPosition:
		var m protocol.SpawnPositionMsg
		if json.Unmarshal(msg, &m) == nil {
			w.place(m.Pos)
			logger.Printf("SPAWN_POSITION %v", m.Pos)
		}
	case protocol.TypeKeepAlive:
		var m protocol.KeepAliveMsg
		if json.Unmarshal(msg, &m) == nil {
			select {
			case out <- protocol.KeepAliveMsg{Type: protocol.TypeKeepAlive, ID: m.ID}:
			default:
				logger.Printf("dropped KEEP_ALIVE %d", m.ID)
			}
		}
	case protocol.TypeEntitySpawn:
		var m protocol.EntitySpawnMsg
		if json.Unmarshal(msg, &m) == nil {
			logger.Printf("ENTITY_SPAWN id=%d kind=%s name=%s pos=%v", m.EntityID, m.Kind, m.Name, m.Pos)
		}
	case protocol.TypeEntityDespawn:
		var m protocol.EntityDespawnMsg
		if json.Unmarshal(msg, &m) == nil {
			logger.Printf("ENTITY_DESPAWN ids=%v", m.EntityIDs)
		}
	case protocol.TypeError:
		var m protocol.ErrorMsg
		if json.Unmarshal(msg, &m) == nil {
			logger.Printf("ERROR %s: %s", m.Code, m.Message)
		}
	case protocol.TypeDisconnect:
		var m protocol.DisconnectMsg
		if json.Unmarshal(msg, &m) == nil {
			logger.Printf("DISCONNECT %s: %s", m.Code, m.Reason.ClearString())
		}
		return true
	}
	return false
}

// walker is a random walk around the spawn point.
type walker struct {
	r      *rand.Rand
	placed bool
	pos    [3]float64
	yaw    float32
}

func (w *walker) place(pos [3]float64) {
	w.pos = pos
	w.placed = true
}

func (w *walker) step() (protocol.MoveMsg, bool) {
	if !w.placed {
		return protocol.MoveMsg{}, false
	}
	w.pos[0] += float64(w.r.Intn(5) - 2)
	w.pos[2] += float64(w.r.Intn(5) - 2)
	w.yaw = float32(w.r.Intn(360))
	return protocol.MoveMsg{
		Type:     protocol.TypeMove,
		Pos:      w.pos,
		Yaw:      w.yaw,
		OnGround: true,
	}, true
}
