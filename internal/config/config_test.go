package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voxelrelay.ai/internal/protocol"
)

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load("../../configs/server.yaml")
	if err != nil {
		t.Fatalf("load server.yaml: %v", err)
	}
	if cfg.MaxPendingLogins != 4 {
		t.Fatalf("max_pending_logins=%d want 4", cfg.MaxPendingLogins)
	}
	if cfg.ViewDistance <= 0 || cfg.TickRateHz <= 0 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoad_EmptyPathIsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.GamemodeValue() != protocol.GamemodeCreative || cfg.LevelTypeValue() != protocol.LevelDefault {
		t.Fatalf("gamemode=%s level=%s", cfg.GamemodeValue(), cfg.LevelTypeValue())
	}
	if cfg.TickRateHz != 20 || cfg.KeepaliveInterval() != 5*time.Second {
		t.Fatalf("tick_rate=%d keepalive=%s", cfg.TickRateHz, cfg.KeepaliveInterval())
	}
}

func TestLoad_OverridesAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	body := `
port: 4000
max_pending_logins: 0
gamemode: " Survival "
level_type: FLAT
spawn: [8, 70, -8]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 4000 || cfg.MaxPendingLogins != 4 {
		t.Fatalf("port=%d pending=%d", cfg.Port, cfg.MaxPendingLogins)
	}
	if cfg.GamemodeValue() != protocol.GamemodeSurvival || cfg.LevelTypeValue() != protocol.LevelFlat {
		t.Fatalf("gamemode=%q level=%q", cfg.Gamemode, cfg.LevelType)
	}
	if p := cfg.SpawnPosition(); p.X != 8 || p.Y != 70 || p.Z != -8 {
		t.Fatalf("spawn=%+v", p)
	}
	if cfg.MaxPlayers != Defaults().MaxPlayers {
		t.Fatalf("unset key lost its default")
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"gamemode", func(c *Config) { c.Gamemode = "hardcore" }, "gamemode"},
		{"level type", func(c *Config) { c.LevelType = "islands" }, "level type"},
		{"max players", func(c *Config) { c.MaxPlayers = 0 }, "max_players"},
		{"view distance", func(c *Config) { c.ViewDistance = 0 }, "view_distance"},
		{"tick rate", func(c *Config) { c.TickRateHz = 0 }, "tick_rate_hz"},
		{"keepalive", func(c *Config) { c.KeepaliveTimeoutMS = 10 }, "keepalive_timeout_ms"},
		{"world id", func(c *Config) { c.WorldID = "" }, "world_id"},
		{"npc count", func(c *Config) { c.NPCCount = -1 }, "npc_count"},
	}
	for _, tc := range cases {
		cfg := Defaults()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: err=%v want mention of %q", tc.name, err, tc.want)
		}
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte("port: [not a number"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.HasPrefix(err.Error(), "server.yaml:") {
		t.Fatalf("err=%v", err)
	}
}
