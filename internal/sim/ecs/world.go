// Package ecs is the entity store driven by the tick loop.
//
// It is deliberately small: entities carry a fixed set of typed components
// (position, last-known chunk, optional player data) and the store emits
// discrete creation, movement and removal notifications that downstream
// systems drain once per tick. All access must happen on the tick goroutine.
package ecs

import (
	"sort"

	"voxelrelay.ai/internal/sim/coords"
)

// EntityID is a stable entity handle. IDs are never reused within a process.
type EntityID uint64

type Kind string

const (
	KindPlayer Kind = "player"
	KindNPC    Kind = "npc"
)

// Entity is one simulated object. Position and last-known chunk are only
// mutable through World and the spatial maintenance system respectively.
type Entity struct {
	ID        EntityID
	Kind      Kind
	World     string
	Dimension string
	Yaw       float32
	Pitch     float32

	// Player is nil for non-player entities.
	Player *Player

	pos      coords.Position
	chunk    coords.ChunkPos
	hasChunk bool
	removed  bool
}

func (e *Entity) Position() coords.Position { return e.pos }

// LastChunk returns the chunk the spatial index last filed this entity under.
func (e *Entity) LastChunk() (coords.ChunkPos, bool) { return e.chunk, e.hasChunk }

func (e *Entity) SetLastChunk(c coords.ChunkPos) {
	e.chunk = c
	e.hasChunk = true
}

// Removed reports whether the entity has been despawned but not yet drained.
func (e *Entity) Removed() bool { return e.removed }

// Spec describes an entity to spawn.
type Spec struct {
	Kind      Kind
	World     string
	Dimension string
	Pos       coords.Position
	Yaw       float32
	Pitch     float32
	Player    *Player
}

type World struct {
	entities map[EntityID]*Entity
	nextID   EntityID

	created []EntityID
	moved   map[EntityID]struct{}
	removed []EntityID
}

func NewWorld() *World {
	return &World{
		entities: map[EntityID]*Entity{},
		moved:    map[EntityID]struct{}{},
	}
}

// Spawn creates an entity and queues its creation notification.
func (w *World) Spawn(s Spec) EntityID {
	w.nextID++
	id := w.nextID
	w.entities[id] = &Entity{
		ID:        id,
		Kind:      s.Kind,
		World:     s.World,
		Dimension: s.Dimension,
		Yaw:       s.Yaw,
		Pitch:     s.Pitch,
		Player:    s.Player,
		pos:       s.Pos,
	}
	w.created = append(w.created, id)
	return id
}

// Get returns the entity, including one despawned this tick whose removal
// has not been drained yet.
func (w *World) Get(id EntityID) (*Entity, bool) {
	e, ok := w.entities[id]
	return e, ok
}

// SetPosition moves a live entity and marks it for spatial maintenance.
func (w *World) SetPosition(id EntityID, pos coords.Position) bool {
	e, ok := w.entities[id]
	if !ok || e.removed {
		return false
	}
	if e.pos == pos {
		return true
	}
	e.pos = pos
	w.moved[id] = struct{}{}
	return true
}

// Despawn queues the entity's removal. The entity stays readable through Get
// until DrainRemoved hands it out. Despawning twice is a no-op.
func (w *World) Despawn(id EntityID) bool {
	e, ok := w.entities[id]
	if !ok || e.removed {
		return false
	}
	e.removed = true
	w.removed = append(w.removed, id)
	return true
}

// DrainCreated returns the IDs spawned since the last drain, in spawn order.
// Call it before DrainRemoved: an entity created and removed within one tick
// must still be observed as created.
func (w *World) DrainCreated() []EntityID {
	out := w.created
	w.created = nil
	return out
}

// DrainMoved returns the IDs whose position changed since the last drain,
// in ascending order.
func (w *World) DrainMoved() []EntityID {
	if len(w.moved) == 0 {
		return nil
	}
	out := make([]EntityID, 0, len(w.moved))
	for id := range w.moved {
		out = append(out, id)
	}
	clear(w.moved)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DrainRemoved deletes every despawned entity from the store and returns
// them in despawn order.
func (w *World) DrainRemoved() []*Entity {
	if len(w.removed) == 0 {
		return nil
	}
	out := make([]*Entity, 0, len(w.removed))
	for _, id := range w.removed {
		e, ok := w.entities[id]
		if !ok {
			continue
		}
		delete(w.entities, id)
		delete(w.moved, id)
		out = append(out, e)
	}
	w.removed = nil
	return out
}

// Each visits every live entity in ascending ID order.
func (w *World) Each(fn func(*Entity)) {
	ids := make([]EntityID, 0, len(w.entities))
	for id, e := range w.entities {
		if e.removed {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fn(w.entities[id])
	}
}

// Len is the number of live entities.
func (w *World) Len() int {
	return len(w.entities) - len(w.removed)
}
