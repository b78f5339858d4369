package game

import (
	"encoding/json"
	"fmt"
	"math"

	"voxelrelay.ai/internal/protocol"
	"voxelrelay.ai/internal/server"
	"voxelrelay.ai/internal/sim/coords"
	"voxelrelay.ai/internal/sim/ecs"
)

// maxMoveDistance caps how far a single MOVE may teleport a player.
const maxMoveDistance = 100.0

func (g *Game) handleInbound() error {
	g.server.Clients().Each(func(_ server.ClientID, c *server.Client) {
		if c.IsDisconnected() {
			return
		}
		eid, ok := c.Entity()
		if !ok {
			return
		}
		for _, frame := range c.DrainInbound() {
			if err := g.applyFrame(eid, frame); err != nil {
				_ = c.Send(protocol.ErrorMsg{
					Type:    protocol.TypeError,
					Code:    protocol.ErrBadRequest,
					Message: err.Error(),
				})
			}
		}
	})
	return nil
}

func (g *Game) applyFrame(eid ecs.EntityID, frame []byte) error {
	e, ok := g.world.Get(eid)
	if !ok || e.Removed() {
		return nil
	}
	base, err := protocol.DecodeBase(frame)
	if err != nil {
		return fmt.Errorf("bad json: %w", err)
	}
	switch base.Type {
	case protocol.TypeMove:
		var m protocol.MoveMsg
		if err := json.Unmarshal(frame, &m); err != nil {
			return fmt.Errorf("bad MOVE: %w", err)
		}
		for _, v := range m.Pos {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("bad MOVE: non-finite position")
			}
		}
		to := coords.Position{X: m.Pos[0], Y: m.Pos[1], Z: m.Pos[2]}
		from := e.Position()
		if math.Abs(to.X-from.X) > maxMoveDistance || math.Abs(to.Z-from.Z) > maxMoveDistance {
			return fmt.Errorf("bad MOVE: too far")
		}
		e.Yaw, e.Pitch = m.Yaw, m.Pitch
		g.world.SetPosition(eid, to)
		return nil

	case protocol.TypeHeldItem:
		var m protocol.HeldItemMsg
		if err := json.Unmarshal(frame, &m); err != nil {
			return fmt.Errorf("bad HELD_ITEM: %w", err)
		}
		if e.Player == nil {
			return nil
		}
		return e.Player.Hotbar.Set(m.Slot)

	case protocol.TypePlayerState:
		var m protocol.PlayerStateMsg
		if err := json.Unmarshal(frame, &m); err != nil {
			return fmt.Errorf("bad PLAYER_STATE: %w", err)
		}
		if e.Player == nil {
			return nil
		}
		return e.Player.SetFlags(m.Sneaking, m.Sprinting, m.Flying)

	case protocol.TypeKeepAlive:
		return nil

	default:
		return fmt.Errorf("unknown message type %q", base.Type)
	}
}
