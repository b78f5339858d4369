package protocol

import "github.com/Tnze/go-mc/chat"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	Username        string            `json:"username"`
	Auth            *HelloAuth        `json:"auth,omitempty"`
	Capabilities    HelloCapabilities `json:"capabilities,omitempty"`
}

type HelloAuth struct {
	UUID string `json:"uuid,omitempty"`
}

type HelloCapabilities struct {
	MaxQueue int `json:"max_queue,omitempty"`
}

// LOGIN_SUCCESS (server -> client): handshake accepted, join follows.
type LoginSuccessMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	UUID            string `json:"uuid"`
	Username        string `json:"username"`
}

// JOIN_GAME (server -> client): first message establishing world parameters.
type JoinGameMsg struct {
	Type                string         `json:"type"`
	ProtocolVersion     string         `json:"protocol_version"`
	EntityID            uint64         `json:"entity_id"`
	IsHardcore          bool           `json:"is_hardcore"`
	Gamemode            Gamemode       `json:"gamemode"`
	PreviousGamemode    int            `json:"previous_gamemode"` // -1: not set
	WorldNames          []string       `json:"world_names"`
	DimensionCodec      map[string]any `json:"dimension_codec"`
	Dimension           map[string]any `json:"dimension"`
	WorldName           string         `json:"world_name"`
	HashedSeed          uint64         `json:"hashed_seed"`
	MaxPlayers          int            `json:"max_players"`
	ViewDistance        int            `json:"view_distance"`
	ReducedDebugInfo    bool           `json:"reduced_debug_info"`
	EnableRespawnScreen bool           `json:"enable_respawn_screen"`
	IsDebug             bool           `json:"is_debug"`
	IsFlat              bool           `json:"is_flat"`
}

type SpawnPositionMsg struct {
	Type string     `json:"type"`
	Pos  [3]float64 `json:"pos"`
}

// KEEP_ALIVE is sent by the server and echoed back by the client.
type KeepAliveMsg struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

type DisconnectMsg struct {
	Type   string       `json:"type"`
	Code   string       `json:"code,omitempty"`
	Reason chat.Message `json:"reason"`
}

type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// MOVE (client -> server)
type MoveMsg struct {
	Type     string     `json:"type"`
	Pos      [3]float64 `json:"pos"`
	Yaw      float32    `json:"yaw"`
	Pitch    float32    `json:"pitch"`
	OnGround bool       `json:"on_ground,omitempty"`
}

// HELD_ITEM (client -> server): hotbar selection.
type HeldItemMsg struct {
	Type string `json:"type"`
	Slot int    `json:"slot"`
}

// PLAYER_STATE (client -> server): movement flags. Flying is only accepted
// in creative and spectator mode.
type PlayerStateMsg struct {
	Type      string `json:"type"`
	Sneaking  bool   `json:"sneaking"`
	Sprinting bool   `json:"sprinting"`
	Flying    bool   `json:"flying"`
}

type EntitySpawnMsg struct {
	Type     string     `json:"type"`
	EntityID uint64     `json:"entity_id"`
	Kind     string     `json:"kind"`
	Name     string     `json:"name,omitempty"`
	UUID     string     `json:"uuid,omitempty"`
	Pos      [3]float64 `json:"pos"`
	Yaw      float32    `json:"yaw"`
	Pitch    float32    `json:"pitch"`
}

type EntityMoveMsg struct {
	Type     string     `json:"type"`
	EntityID uint64     `json:"entity_id"`
	Pos      [3]float64 `json:"pos"`
	Yaw      float32    `json:"yaw"`
	Pitch    float32    `json:"pitch"`
}

type EntityDespawnMsg struct {
	Type      string   `json:"type"`
	EntityIDs []uint64 `json:"entity_ids"`
}
