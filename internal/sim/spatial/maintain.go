package spatial

import (
	"voxelrelay.ai/internal/sim/coords"
	"voxelrelay.ai/internal/sim/ecs"
)

// ChunkCross records an entity leaving one chunk for another.
type ChunkCross struct {
	Entity *ecs.Entity
	From   coords.ChunkPos
	To     coords.ChunkPos
}

// Changes is what one maintenance pass observed. Removed entities are no
// longer in the world; their last-known chunk is still readable.
type Changes struct {
	Created []*ecs.Entity
	Moved   []*ecs.Entity
	Crossed []ChunkCross
	Removed []*ecs.Entity
}

// Maintain brings idx up to date with this tick's events in w.
//
// It must run after every system that moves, spawns or despawns entities
// and before any system that consumes the returned removals. Creations are
// applied before removals, so an entity spawned and despawned in the same
// tick leaves no trace in the index.
func Maintain(w *ecs.World, idx *ChunkEntities) Changes {
	var ch Changes

	for _, id := range w.DrainCreated() {
		e, ok := w.Get(id)
		if !ok {
			continue
		}
		chunk := e.Position().Chunk()
		old, hadOld := e.LastChunk()
		idx.NotePositionChange(id, old, hadOld, chunk)
		e.SetLastChunk(chunk)
		ch.Created = append(ch.Created, e)
	}

	for _, id := range w.DrainMoved() {
		e, ok := w.Get(id)
		if !ok {
			continue
		}
		old, hadOld := e.LastChunk()
		chunk := e.Position().Chunk()
		if !hadOld || old != chunk {
			idx.NotePositionChange(id, old, hadOld, chunk)
			e.SetLastChunk(chunk)
		}
		if e.Removed() {
			continue
		}
		ch.Moved = append(ch.Moved, e)
		if hadOld && old != chunk {
			ch.Crossed = append(ch.Crossed, ChunkCross{Entity: e, From: old, To: chunk})
		}
	}

	for _, e := range w.DrainRemoved() {
		if chunk, ok := e.LastChunk(); ok {
			idx.NoteRemoved(e.ID, chunk)
		}
		ch.Removed = append(ch.Removed, e)
	}
	return ch
}
