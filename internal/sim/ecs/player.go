package ecs

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"voxelrelay.ai/internal/protocol"
)

var (
	ErrInvalidHotbarSlot = errors.New("invalid hotbar slot id")
	ErrFlyingNotAllowed  = errors.New("flying not allowed in this gamemode")
)

// HotbarSlotCount is the number of hotbar slots; valid slots are 0..8.
const HotbarSlotCount = 9

// Player holds the components only player entities carry.
type Player struct {
	Username       string
	UUID           uuid.UUID
	Gamemode       protocol.Gamemode
	Hotbar         HotbarSlot
	Sneaking       bool
	Sprinting      bool
	CreativeFlying bool
}

// SetFlags applies client movement flags. Flying outside creative and
// spectator mode is rejected and leaves every flag unchanged.
func (p *Player) SetFlags(sneaking, sprinting, flying bool) error {
	if flying && p.Gamemode != protocol.GamemodeCreative && p.Gamemode != protocol.GamemodeSpectator {
		return fmt.Errorf("%w: %s", ErrFlyingNotAllowed, p.Gamemode)
	}
	p.Sneaking, p.Sprinting, p.CreativeFlying = sneaking, sprinting, flying
	return nil
}

// HotbarSlot is the hotbar slot a player's cursor is currently on.
type HotbarSlot struct {
	slot int
}

func (h HotbarSlot) Get() int { return h.slot }

// Set selects slot id. Out-of-range ids are rejected, never clamped.
func (h *HotbarSlot) Set(id int) error {
	if id < 0 || id >= HotbarSlotCount {
		return fmt.Errorf("%w: %d", ErrInvalidHotbarSlot, id)
	}
	h.slot = id
	return nil
}
