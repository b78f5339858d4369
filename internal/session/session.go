// Package session maps abstract gameplay intents onto concrete protocol
// messages. Each supported protocol version is one sessionImpl; callers only
// ever see Session, so new versions are added here without touching them.
package session

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"voxelrelay.ai/internal/assets"
	"voxelrelay.ai/internal/protocol"
)

var ErrUnsupportedVersion = errors.New("unsupported protocol version")

// Sender accepts an outbound message. Send only enqueues; it never waits on
// the network.
type Sender interface {
	Send(v any) error
}

// JoinParams are the world parameters announced in the join message.
type JoinParams struct {
	EntityID     uint64
	Gamemode     protocol.Gamemode
	Seed         uint64
	MaxPlayers   int
	ViewDistance int
	LevelType    protocol.LevelType
}

type Session struct {
	impl    sessionImpl
	version string
}

type sessionImpl interface {
	joinGame(p JoinParams) protocol.JoinGameMsg
}

// ForVersion returns the session for a client speaking version.
func ForVersion(version string, a *assets.Assets) (*Session, error) {
	switch version {
	case protocol.Version:
		return NewVanilla(a), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
	}
}

// NewVanilla creates a session for the current protocol version.
func NewVanilla(a *assets.Assets) *Session {
	return &Session{impl: vanillaSession{assets: a}, version: protocol.Version}
}

func (s *Session) Version() string { return s.version }

// Join sends the message that admits a freshly logged-in client to the world.
func (s *Session) Join(to Sender, p JoinParams) error {
	if err := to.Send(s.impl.joinGame(p)); err != nil {
		return fmt.Errorf("join: %w", err)
	}
	return nil
}

// JoinMessage builds the join message without sending it.
func (s *Session) JoinMessage(p JoinParams) protocol.JoinGameMsg {
	return s.impl.joinGame(p)
}

// vanillaSession implements protocol.Version.
type vanillaSession struct {
	assets *assets.Assets
}

func (v vanillaSession) joinGame(p JoinParams) protocol.JoinGameMsg {
	return protocol.JoinGameMsg{
		Type:                protocol.TypeJoinGame,
		ProtocolVersion:     protocol.Version,
		EntityID:            p.EntityID,
		IsHardcore:          false,
		Gamemode:            p.Gamemode,
		PreviousGamemode:    -1,
		WorldNames:          []string{"world"}, // single world shard
		DimensionCodec:      v.assets.DimensionCodec,
		Dimension:           v.assets.Dimension,
		WorldName:           "world",
		HashedSeed:          HashSeed(p.Seed),
		MaxPlayers:          p.MaxPlayers,
		ViewDistance:        p.ViewDistance,
		ReducedDebugInfo:    false,
		EnableRespawnScreen: true,
		IsDebug:             false,
		IsFlat:              p.LevelType == protocol.LevelFlat,
	}
}

// HashSeed is the client-visible form of the world seed: the first eight
// bytes of SHA-256 over the big-endian seed. It cannot be inverted.
func HashSeed(seed uint64) uint64 {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seed)
	sum := sha256.Sum256(b[:])
	return binary.BigEndian.Uint64(sum[:8])
}
