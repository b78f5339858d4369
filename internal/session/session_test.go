package session

import (
	"encoding/json"
	"errors"
	"testing"

	"voxelrelay.ai/internal/assets"
	"voxelrelay.ai/internal/protocol"
)

type captureSender struct{ msgs []any }

func (c *captureSender) Send(v any) error {
	c.msgs = append(c.msgs, v)
	return nil
}

func loadAssets(t *testing.T) *assets.Assets {
	t.Helper()
	a, err := assets.Load()
	if err != nil {
		t.Fatalf("load assets: %v", err)
	}
	return a
}

func TestHashSeed(t *testing.T) {
	for seed := uint64(0); seed < 10; seed++ {
		if HashSeed(seed) != HashSeed(seed) {
			t.Fatalf("HashSeed(%d) not deterministic", seed)
		}
	}
	if HashSeed(66) == 66 {
		t.Fatalf("hashed seed must not match seed")
	}
	if HashSeed(1) == HashSeed(2) {
		t.Fatalf("distinct seeds collided")
	}
}

func TestJoinMessage(t *testing.T) {
	s := NewVanilla(loadAssets(t))
	msg := s.JoinMessage(JoinParams{
		EntityID:     10,
		Gamemode:     protocol.GamemodeSurvival,
		Seed:         66,
		MaxPlayers:   16,
		ViewDistance: 10,
		LevelType:    protocol.LevelAmplified,
	})
	if msg.Type != protocol.TypeJoinGame || msg.EntityID != 10 {
		t.Fatalf("unexpected header: %+v", msg)
	}
	if msg.Gamemode != protocol.GamemodeSurvival || msg.PreviousGamemode != -1 {
		t.Fatalf("gamemode=%s previous=%d", msg.Gamemode, msg.PreviousGamemode)
	}
	if msg.ViewDistance != 10 || msg.MaxPlayers != 16 {
		t.Fatalf("view=%d max=%d", msg.ViewDistance, msg.MaxPlayers)
	}
	if msg.HashedSeed == 66 {
		t.Fatalf("hashed seed leaked raw seed")
	}
	if msg.IsFlat || msg.IsDebug || msg.ReducedDebugInfo || !msg.EnableRespawnScreen {
		t.Fatalf("unexpected flags: %+v", msg)
	}
	if len(msg.DimensionCodec) == 0 || len(msg.Dimension) == 0 {
		t.Fatalf("assets missing from join message")
	}

	schema, err := protocol.CompileSchema(protocol.SchemaJoinGame)
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := protocol.ValidateRaw(schema, raw); err != nil {
		t.Fatalf("join message violates schema: %v", err)
	}
}

func TestJoinMessage_FlatWorld(t *testing.T) {
	s := NewVanilla(loadAssets(t))
	msg := s.JoinMessage(JoinParams{EntityID: 10, Gamemode: protocol.GamemodeCreative, Seed: 66, MaxPlayers: 16, ViewDistance: 10, LevelType: protocol.LevelFlat})
	if !msg.IsFlat {
		t.Fatalf("flat level type must set is_flat")
	}
}

func TestJoin_SendsThroughSender(t *testing.T) {
	s := NewVanilla(loadAssets(t))
	var out captureSender
	if err := s.Join(&out, JoinParams{EntityID: 1, Gamemode: protocol.GamemodeSurvival, MaxPlayers: 1, ViewDistance: 2}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if len(out.msgs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(out.msgs))
	}
	if _, ok := out.msgs[0].(protocol.JoinGameMsg); !ok {
		t.Fatalf("sent %T", out.msgs[0])
	}
}

func TestForVersion(t *testing.T) {
	a := loadAssets(t)
	s, err := ForVersion(protocol.Version, a)
	if err != nil || s.Version() != protocol.Version {
		t.Fatalf("ForVersion(current): %v", err)
	}
	if _, err := ForVersion("0.1", a); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("ForVersion(old) err=%v", err)
	}
}
