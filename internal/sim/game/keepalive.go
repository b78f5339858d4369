package game

import (
	"voxelrelay.ai/internal/protocol"
	"voxelrelay.ai/internal/server"
)

// keepalive pings every client once per interval and disconnects those
// that left a ping unanswered past the timeout.
func (g *Game) keepalive() error {
	if g.cfg.KeepaliveInterval > 0 && g.now.Sub(g.server.LastKeepalive()) >= g.cfg.KeepaliveInterval {
		g.server.BroadcastKeepalive()
	}
	g.server.Clients().Each(func(id server.ClientID, c *server.Client) {
		if c.IsDisconnected() {
			return
		}
		if c.KeepaliveOverdue(g.now, g.cfg.KeepaliveTimeout) {
			g.log.Printf("client timed out id=%d name=%s", id, c.Username())
			c.Disconnect(protocol.ErrTimeout, "Timed out")
		}
	})
	return nil
}

func (g *Game) recordTick() error {
	if g.tickLog == nil {
		return nil
	}
	return g.tickLog.WriteTick(TickLogEntry{
		Tick:     g.tick,
		Time:     g.now,
		Joins:    g.joins,
		Leaves:   g.leaves,
		Clients:  g.server.Clients().Len(),
		Entities: g.world.Len(),
		Created:  len(g.changes.Created),
		Moved:    len(g.changes.Moved),
		Crossed:  len(g.changes.Crossed),
		Removed:  len(g.changes.Removed),
	})
}
