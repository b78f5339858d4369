package game

import (
	"voxelrelay.ai/internal/sim/coords"
	"voxelrelay.ai/internal/sim/ecs"
	"voxelrelay.ai/internal/sim/mathx"
)

const (
	npcStepEvery    = 5  // ticks between steps
	npcWanderRadius = 48 // blocks from spawn
)

func (g *Game) spawnNPCs() {
	for i := 0; i < g.cfg.NPCCount; i++ {
		h := mathx.Hash2(int64(g.cfg.Seed), i, -1)
		pos := g.cfg.Spawn.Add(float64(int(h%33))-16, 0, float64(int((h>>8)%33))-16)
		id := g.world.Spawn(ecs.Spec{
			Kind:      ecs.KindNPC,
			World:     g.cfg.WorldID,
			Dimension: g.cfg.Dimension,
			Pos:       pos,
		})
		g.npcs = append(g.npcs, id)
	}
}

// wander moves each NPC one block along a seeded pseudo-random direction,
// turning back towards spawn once it strays past npcWanderRadius.
func (g *Game) wander() error {
	if len(g.npcs) == 0 || g.tick%npcStepEvery != 0 {
		return nil
	}
	step := int(g.tick / npcStepEvery)
	for _, id := range g.npcs {
		e, ok := g.world.Get(id)
		if !ok || e.Removed() {
			continue
		}
		p := e.Position()
		h := mathx.Hash2(int64(g.cfg.Seed), int(id), step)
		dx := float64(int(h%3) - 1)
		dz := float64(int((h>>2)%3) - 1)

		sx, sz := int(g.cfg.Spawn.X), int(g.cfg.Spawn.Z)
		if mathx.Chebyshev(int(p.X+dx), int(p.Z+dz), sx, sz) > npcWanderRadius {
			dx, dz = towards(p.X, g.cfg.Spawn.X), towards(p.Z, g.cfg.Spawn.Z)
		}
		if dx == 0 && dz == 0 {
			continue
		}
		e.Yaw = float32(int(h>>4) % 360)
		g.world.SetPosition(id, coords.Position{X: p.X + dx, Y: p.Y, Z: p.Z + dz})
	}
	return nil
}

func towards(from, to float64) float64 {
	switch {
	case from < to:
		return 1
	case from > to:
		return -1
	default:
		return 0
	}
}
