package game

import (
	"voxelrelay.ai/internal/protocol"
	"voxelrelay.ai/internal/server"
	"voxelrelay.ai/internal/sim/coords"
	"voxelrelay.ai/internal/sim/ecs"
)

// updateViews keeps every player subscribed to the square of chunks within
// view distance of its own chunk. Entities in chunks entering the view are
// spawned on the client, those in chunks leaving it are despawned.
func (g *Game) updateViews() error {
	g.server.Clients().Each(func(id server.ClientID, c *server.Client) {
		if c.IsDisconnected() {
			return
		}
		eid, ok := c.Entity()
		if !ok {
			return
		}
		e, ok := g.world.Get(eid)
		if !ok || e.Removed() {
			return
		}
		center, ok := e.LastChunk()
		if !ok {
			return
		}
		old, hadView := c.View()
		if hadView && old == center {
			return
		}
		g.moveView(id, c, old, hadView, center)
	})
	return nil
}

func (g *Game) moveView(id server.ClientID, c *server.Client, old coords.ChunkPos, hadView bool, center coords.ChunkPos) {
	r := g.cfg.ViewDistance
	subs := g.server.Subscriptions()
	self, _ := c.Entity()

	var gone []uint64
	if hadView {
		for _, chunk := range coords.Square(old, r) {
			if chunk.Within(center, r) {
				continue
			}
			subs.Unsubscribe(id, g.key(chunk))
			for _, other := range g.index.EntitiesIn(chunk) {
				if other == self || !c.Knows(other) {
					continue
				}
				c.MarkUnknown(other)
				gone = append(gone, uint64(other))
			}
		}
	}
	if len(gone) > 0 {
		_ = c.Send(protocol.EntityDespawnMsg{Type: protocol.TypeEntityDespawn, EntityIDs: gone})
	}

	for _, chunk := range coords.Square(center, r) {
		if hadView && chunk.Within(old, r) {
			continue
		}
		subs.Subscribe(id, g.key(chunk))
		for _, other := range g.index.EntitiesIn(chunk) {
			if other == self || c.Knows(other) {
				continue
			}
			e, ok := g.world.Get(other)
			if !ok || e.Removed() {
				continue
			}
			c.MarkKnown(other)
			_ = c.Send(spawnMsg(e))
		}
	}
	c.SetView(center)
}

// broadcastEntities tells nearby clients about this tick's entity changes.
func (g *Game) broadcastEntities() error {
	ch := g.changes

	for _, e := range ch.Created {
		if e.Removed() {
			continue
		}
		g.server.UpdateNearbyWith(e.World, e.Dimension, e.Position(), func(_ server.ClientID, c *server.Client) {
			if self, ok := c.Entity(); (ok && self == e.ID) || c.Knows(e.ID) {
				return
			}
			c.MarkKnown(e.ID)
			_ = c.Send(spawnMsg(e))
		})
	}

	for _, e := range ch.Moved {
		move := protocol.EntityMoveMsg{
			Type:     protocol.TypeEntityMove,
			EntityID: uint64(e.ID),
			Pos:      posArray(e.Position()),
			Yaw:      e.Yaw,
			Pitch:    e.Pitch,
		}
		g.server.UpdateNearbyWith(e.World, e.Dimension, e.Position(), func(_ server.ClientID, c *server.Client) {
			if self, ok := c.Entity(); ok && self == e.ID {
				return
			}
			if c.Knows(e.ID) {
				_ = c.Send(move)
				return
			}
			c.MarkKnown(e.ID)
			_ = c.Send(spawnMsg(e))
		})
	}

	// Clients that could see the old chunk but not the new one lose sight.
	for _, cross := range ch.Crossed {
		e := cross.Entity
		to := server.SubscriptionKey{World: e.World, Dimension: e.Dimension, Chunk: cross.To}
		from := server.SubscriptionKey{World: e.World, Dimension: e.Dimension, Chunk: cross.From}
		g.server.UpdateChunkWith(from, func(id server.ClientID, c *server.Client) {
			if g.server.Subscriptions().IsSubscribed(id, to) || !c.Knows(e.ID) {
				return
			}
			c.MarkUnknown(e.ID)
			_ = c.Send(protocol.EntityDespawnMsg{Type: protocol.TypeEntityDespawn, EntityIDs: []uint64{uint64(e.ID)}})
		})
	}

	if len(ch.Removed) > 0 {
		g.server.BroadcastWith(func(c *server.Client) {
			var gone []uint64
			for _, e := range ch.Removed {
				if c.Knows(e.ID) {
					c.MarkUnknown(e.ID)
					gone = append(gone, uint64(e.ID))
				}
			}
			if len(gone) > 0 {
				_ = c.Send(protocol.EntityDespawnMsg{Type: protocol.TypeEntityDespawn, EntityIDs: gone})
			}
		})
	}
	return nil
}

func spawnMsg(e *ecs.Entity) protocol.EntitySpawnMsg {
	m := protocol.EntitySpawnMsg{
		Type:     protocol.TypeEntitySpawn,
		EntityID: uint64(e.ID),
		Kind:     string(e.Kind),
		Pos:      posArray(e.Position()),
		Yaw:      e.Yaw,
		Pitch:    e.Pitch,
	}
	if e.Player != nil {
		m.Name = e.Player.Username
		m.UUID = e.Player.UUID.String()
	}
	return m
}

func posArray(p coords.Position) [3]float64 {
	return [3]float64{p.X, p.Y, p.Z}
}
