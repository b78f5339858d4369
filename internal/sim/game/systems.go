package game

import (
	"fmt"

	"voxelrelay.ai/internal/sim/spatial"
)

// System is one step of the tick. Systems run in a fixed order; an error is
// logged and does not stop the remaining systems.
type System struct {
	Name string
	Run  func(g *Game) error
}

// defaultSystems is the tick order. Everything that moves, spawns or
// despawns entities runs before spatial maintenance, and everything that
// consumes its changes runs after it.
func defaultSystems() []System {
	return []System{
		{Name: "accept_new_players", Run: (*Game).acceptNewPlayers},
		{Name: "remove_disconnected", Run: (*Game).removeDisconnected},
		{Name: "handle_inbound", Run: (*Game).handleInbound},
		{Name: "wander", Run: (*Game).wander},
		{Name: "spatial_maintenance", Run: (*Game).maintainIndex},
		{Name: "view", Run: (*Game).updateViews},
		{Name: "entity_broadcast", Run: (*Game).broadcastEntities},
		{Name: "keepalive", Run: (*Game).keepalive},
		{Name: "record_tick", Run: (*Game).recordTick},
	}
}

func (g *Game) SystemNames() []string {
	names := make([]string, len(g.systems))
	for i, s := range g.systems {
		names[i] = s.Name
	}
	return names
}

func (g *Game) runSystems() {
	for _, s := range g.systems {
		if err := runSystem(s, g); err != nil {
			g.log.Printf("tick=%d system=%s: %v", g.tick, s.Name, err)
		}
	}
}

func runSystem(s System, g *Game) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Run(g)
}

func (g *Game) maintainIndex() error {
	g.changes = spatial.Maintain(g.world, g.index)
	return nil
}
