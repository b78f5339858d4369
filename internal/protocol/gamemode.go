package protocol

import (
	"fmt"
	"strings"
)

type Gamemode string

const (
	GamemodeSurvival  Gamemode = "survival"
	GamemodeCreative  Gamemode = "creative"
	GamemodeAdventure Gamemode = "adventure"
	GamemodeSpectator Gamemode = "spectator"
)

func ParseGamemode(s string) (Gamemode, error) {
	switch g := Gamemode(strings.ToLower(strings.TrimSpace(s))); g {
	case GamemodeSurvival, GamemodeCreative, GamemodeAdventure, GamemodeSpectator:
		return g, nil
	default:
		return "", fmt.Errorf("unknown gamemode %q", s)
	}
}

// LevelType is the world-generation flavor advertised to clients.
type LevelType string

const (
	LevelDefault     LevelType = "default"
	LevelFlat        LevelType = "flat"
	LevelLargeBiomes LevelType = "large_biomes"
	LevelAmplified   LevelType = "amplified"
)

func ParseLevelType(s string) (LevelType, error) {
	switch l := LevelType(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelDefault, LevelFlat, LevelLargeBiomes, LevelAmplified:
		return l, nil
	default:
		return "", fmt.Errorf("unknown level type %q", s)
	}
}
