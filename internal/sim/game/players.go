package game

import (
	"voxelrelay.ai/internal/protocol"
	"voxelrelay.ai/internal/server"
	"voxelrelay.ai/internal/session"
	"voxelrelay.ai/internal/sim/ecs"
)

func (g *Game) acceptNewPlayers() error {
	for _, id := range g.server.AcceptNewPlayers() {
		c, ok := g.server.Clients().Get(id)
		if !ok {
			continue
		}
		g.joinPlayer(id, c)
	}
	return nil
}

func (g *Game) joinPlayer(id server.ClientID, c *server.Client) {
	spawn := g.cfg.Spawn
	eid := g.world.Spawn(ecs.Spec{
		Kind:      ecs.KindPlayer,
		World:     g.cfg.WorldID,
		Dimension: g.cfg.Dimension,
		Pos:       spawn,
		Player: &ecs.Player{
			Username: c.Username(),
			UUID:     c.UUID(),
			Gamemode: g.cfg.Gamemode,
		},
	})
	c.SetEntity(eid)

	err := c.Session().Join(c, session.JoinParams{
		EntityID:     uint64(eid),
		Gamemode:     g.cfg.Gamemode,
		Seed:         g.cfg.Seed,
		MaxPlayers:   g.cfg.MaxPlayers,
		ViewDistance: g.cfg.ViewDistance,
		LevelType:    g.cfg.LevelType,
	})
	if err != nil {
		// The client is already disconnected; remove_disconnected reaps it.
		g.log.Printf("join id=%d name=%s: %v", id, c.Username(), err)
		return
	}
	_ = c.Send(protocol.SpawnPositionMsg{
		Type: protocol.TypeSpawnPosition,
		Pos:  [3]float64{spawn.X, spawn.Y, spawn.Z},
	})

	j := RecordedJoin{
		Tick:     g.tick,
		At:       c.ConnectedAt(),
		ClientID: uint32(id),
		EntityID: uint64(eid),
		UUID:     c.UUID().String(),
		Name:     c.Username(),
	}
	g.joins = append(g.joins, j)
	g.joinsTotal++
	if g.sessions != nil {
		g.sessions.RecordJoin(j)
	}
}

func (g *Game) removeDisconnected() error {
	var gone []server.ClientID
	g.server.Clients().Each(func(id server.ClientID, c *server.Client) {
		if c.IsDisconnected() {
			gone = append(gone, id)
		}
	})
	for _, id := range gone {
		g.server.RemoveClient(id)
	}
	return nil
}

// onClientRemoved despawns the player entity of a removed client. Spatial
// maintenance then drops it from the index and entity_broadcast tells the
// clients that could see it. A client replaced before it ever joined the
// world has no entity and no recorded join, so no leave is recorded either.
func (g *Game) onClientRemoved(_ server.ClientID, c *server.Client) {
	eid, ok := c.Entity()
	if !ok {
		return
	}
	g.world.Despawn(eid)
	l := RecordedLeave{
		Tick:   g.tick,
		At:     g.now,
		UUID:   c.UUID().String(),
		Name:   c.Username(),
		Reason: c.DisconnectReason(),
	}
	g.leaves = append(g.leaves, l)
	g.leavesTotal++
	if g.sessions != nil {
		g.sessions.RecordLeave(l)
	}
}
