package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello         = "HELLO"
	TypeLoginSuccess  = "LOGIN_SUCCESS"
	TypeJoinGame      = "JOIN_GAME"
	TypeSpawnPosition = "SPAWN_POSITION"
	TypeKeepAlive     = "KEEP_ALIVE"
	TypeDisconnect    = "DISCONNECT"
	TypeError         = "ERROR"

	TypeMove        = "MOVE"
	TypeHeldItem    = "HELD_ITEM"
	TypePlayerState = "PLAYER_STATE"

	TypeEntitySpawn   = "ENTITY_SPAWN"
	TypeEntityMove    = "ENTITY_MOVE"
	TypeEntityDespawn = "ENTITY_DESPAWN"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
