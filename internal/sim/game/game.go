// Package game owns the per-tick state of one world shard: the entity store,
// the chunk index and the connected clients. Everything here runs on the
// single tick goroutine started by Run.
package game

import (
	"log"
	"sync/atomic"
	"time"

	"voxelrelay.ai/internal/protocol"
	"voxelrelay.ai/internal/server"
	"voxelrelay.ai/internal/sim/coords"
	"voxelrelay.ai/internal/sim/ecs"
	"voxelrelay.ai/internal/sim/spatial"
)

type Config struct {
	WorldID      string
	Dimension    string
	Seed         uint64
	Gamemode     protocol.Gamemode
	LevelType    protocol.LevelType
	MaxPlayers   int
	ViewDistance int
	Spawn        coords.Position
	NPCCount     int

	TickRateHz        int
	KeepaliveInterval time.Duration
	KeepaliveTimeout  time.Duration
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// SessionRecorder is told about every client that joins or leaves.
type SessionRecorder interface {
	RecordJoin(j RecordedJoin)
	RecordLeave(l RecordedLeave)
}

type TickLogEntry struct {
	Tick     uint64          `json:"tick"`
	Time     time.Time       `json:"time"`
	Joins    []RecordedJoin  `json:"joins,omitempty"`
	Leaves   []RecordedLeave `json:"leaves,omitempty"`
	Clients  int             `json:"clients"`
	Entities int             `json:"entities"`
	Created  int             `json:"created"`
	Moved    int             `json:"moved"`
	Crossed  int             `json:"crossed"`
	Removed  int             `json:"removed"`
}

type RecordedJoin struct {
	Tick     uint64    `json:"tick"`
	At       time.Time `json:"at"`
	ClientID uint32    `json:"client_id"`
	EntityID uint64    `json:"entity_id"`
	UUID     string    `json:"uuid"`
	Name     string    `json:"name"`
}

type RecordedLeave struct {
	Tick   uint64    `json:"tick"`
	At     time.Time `json:"at"`
	UUID   string    `json:"uuid"`
	Name   string    `json:"name"`
	Reason string    `json:"reason,omitempty"`
}

type Game struct {
	cfg    Config
	world  *ecs.World
	index  *spatial.ChunkEntities
	server *server.Server
	log    *log.Logger

	systems []System

	tick    uint64
	now     time.Time
	changes spatial.Changes
	joins   []RecordedJoin
	leaves  []RecordedLeave
	npcs    []ecs.EntityID

	tickLog  TickLogger
	sessions SessionRecorder

	joinsTotal  uint64
	leavesTotal uint64
	metrics     atomic.Value
}

// New wires a game to srv. srv must not be shared with another game.
func New(cfg Config, srv *server.Server, logger *log.Logger) *Game {
	if cfg.Dimension == "" {
		cfg.Dimension = "minecraft:overworld"
	}
	if cfg.ViewDistance <= 0 {
		cfg.ViewDistance = 1
	}
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 20
	}
	g := &Game{
		cfg:    cfg,
		world:  ecs.NewWorld(),
		index:  spatial.NewChunkEntities(),
		server: srv,
		log:    logger,
	}
	g.systems = defaultSystems()
	srv.SetClock(func() time.Time { return g.now })
	srv.OnClientRemoved(g.onClientRemoved)
	g.spawnNPCs()
	return g
}

func (g *Game) SetTickLogger(l TickLogger)           { g.tickLog = l }
func (g *Game) SetSessionRecorder(r SessionRecorder) { g.sessions = r }

func (g *Game) World() *ecs.World             { return g.world }
func (g *Game) Index() *spatial.ChunkEntities { return g.index }
func (g *Game) Server() *server.Server        { return g.server }
func (g *Game) CurrentTick() uint64           { return g.tick }
func (g *Game) Config() Config                { return g.cfg }

// key is the subscription key of chunk c in this shard.
func (g *Game) key(c coords.ChunkPos) server.SubscriptionKey {
	return server.SubscriptionKey{World: g.cfg.WorldID, Dimension: g.cfg.Dimension, Chunk: c}
}
