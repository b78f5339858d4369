// Package config loads the server's YAML configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"voxelrelay.ai/internal/protocol"
	"voxelrelay.ai/internal/sim/coords"
)

type Config struct {
	BindAddress      string `yaml:"bind_address"`
	Port             int    `yaml:"port"`
	MaxPlayers       int    `yaml:"max_players"`
	MaxPendingLogins int    `yaml:"max_pending_logins"`
	OutboundQueue    int    `yaml:"outbound_queue"`
	ViewDistance     int    `yaml:"view_distance"`

	TickRateHz          int `yaml:"tick_rate_hz"`
	KeepaliveIntervalMS int `yaml:"keepalive_interval_ms"`
	KeepaliveTimeoutMS  int `yaml:"keepalive_timeout_ms"`

	WorldID   string     `yaml:"world_id"`
	Dimension string     `yaml:"dimension"`
	Seed      uint64     `yaml:"seed"`
	Gamemode  string     `yaml:"gamemode"`
	LevelType string     `yaml:"level_type"`
	Spawn     [3]float64 `yaml:"spawn"`
	NPCCount  int        `yaml:"npc_count"`

	DataDir     string `yaml:"data_dir"`
	DisableDB   bool   `yaml:"disable_db"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("server.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("server.yaml: %w", err)
	}
	return cfg, nil
}

func Defaults() Config {
	return Config{
		BindAddress:         "0.0.0.0",
		Port:                25565,
		MaxPlayers:          16,
		MaxPendingLogins:    4,
		OutboundQueue:       256,
		ViewDistance:        6,
		TickRateHz:          20,
		KeepaliveIntervalMS: 5000,
		KeepaliveTimeoutMS:  30000,
		WorldID:             "world",
		Dimension:           "minecraft:overworld",
		Seed:                0,
		Gamemode:            string(protocol.GamemodeCreative),
		LevelType:           string(protocol.LevelDefault),
		Spawn:               [3]float64{0, 64, 0},
		NPCCount:            0,
		DataDir:             "./data",
		MetricsAddr:         "127.0.0.1:9100",
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.BindAddress = strings.TrimSpace(c.BindAddress)
	c.WorldID = strings.TrimSpace(c.WorldID)
	c.Dimension = strings.TrimSpace(c.Dimension)
	c.Gamemode = strings.ToLower(strings.TrimSpace(c.Gamemode))
	c.LevelType = strings.ToLower(strings.TrimSpace(c.LevelType))
	if c.MaxPendingLogins <= 0 {
		c.MaxPendingLogins = 4
	}
	if c.OutboundQueue <= 0 {
		c.OutboundQueue = 256
	}
	if c.Dimension == "" {
		c.Dimension = "minecraft:overworld"
	}
}

func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in [0, 65535]")
	}
	if c.MaxPlayers <= 0 {
		return fmt.Errorf("max_players must be > 0")
	}
	if c.ViewDistance < 1 || c.ViewDistance > 32 {
		return fmt.Errorf("view_distance must be in [1, 32]")
	}
	if c.TickRateHz <= 0 || c.TickRateHz > 1000 {
		return fmt.Errorf("tick_rate_hz must be in (0, 1000]")
	}
	if c.KeepaliveIntervalMS <= 0 {
		return fmt.Errorf("keepalive_interval_ms must be > 0")
	}
	if c.KeepaliveTimeoutMS < c.KeepaliveIntervalMS {
		return fmt.Errorf("keepalive_timeout_ms must be >= keepalive_interval_ms")
	}
	if c.WorldID == "" {
		return fmt.Errorf("world_id must not be empty")
	}
	if c.NPCCount < 0 {
		return fmt.Errorf("npc_count must be >= 0")
	}
	if _, err := protocol.ParseGamemode(c.Gamemode); err != nil {
		return err
	}
	if _, err := protocol.ParseLevelType(c.LevelType); err != nil {
		return err
	}
	return nil
}

// GamemodeValue is the parsed gamemode. Only meaningful after Validate.
func (c Config) GamemodeValue() protocol.Gamemode {
	g, _ := protocol.ParseGamemode(c.Gamemode)
	return g
}

func (c Config) LevelTypeValue() protocol.LevelType {
	l, _ := protocol.ParseLevelType(c.LevelType)
	return l
}

func (c Config) SpawnPosition() coords.Position {
	return coords.Position{X: c.Spawn[0], Y: c.Spawn[1], Z: c.Spawn[2]}
}

func (c Config) KeepaliveInterval() time.Duration {
	return time.Duration(c.KeepaliveIntervalMS) * time.Millisecond
}

func (c Config) KeepaliveTimeout() time.Duration {
	return time.Duration(c.KeepaliveTimeoutMS) * time.Millisecond
}
