package game

import (
	"context"
	"time"
)

// Metrics is a read-only snapshot published after every tick.
type Metrics struct {
	Tick uint64 `json:"tick"`

	Clients          int `json:"clients"`
	PlayerCount      int `json:"player_count"`
	MaxPlayers       int `json:"max_players"`
	Entities         int `json:"entities"`
	IndexedEntities  int `json:"indexed_entities"`
	IndexedChunks    int `json:"indexed_chunks"`
	SubscribedChunks int `json:"subscribed_chunks"`

	JoinsTotal  uint64 `json:"joins_total"`
	LeavesTotal uint64 `json:"leaves_total"`

	StepMS float64 `json:"step_ms"`
}

func (g *Game) Metrics() Metrics {
	if g == nil {
		return Metrics{}
	}
	m, _ := g.metrics.Load().(Metrics)
	return m
}

// Run ticks the game until ctx is cancelled.
func (g *Game) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(g.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			g.Step(now)
		}
	}
}

// Step runs one tick at time now.
func (g *Game) Step(now time.Time) {
	start := time.Now()
	g.tick++
	g.now = now
	g.joins = nil
	g.leaves = nil

	g.runSystems()

	g.metrics.Store(Metrics{
		Tick:             g.tick,
		Clients:          g.server.Clients().Len(),
		PlayerCount:      g.server.PlayerCount().Get(),
		MaxPlayers:       g.server.PlayerCount().Max(),
		Entities:         g.world.Len(),
		IndexedEntities:  g.index.Len(),
		IndexedChunks:    g.index.ChunkCount(),
		SubscribedChunks: g.server.Subscriptions().KeyCount(),
		JoinsTotal:       g.joinsTotal,
		LeavesTotal:      g.leavesTotal,
		StepMS:           float64(time.Since(start).Microseconds()) / 1000,
	})
}
