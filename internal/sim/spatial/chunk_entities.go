// Package spatial indexes live entities by the chunk they occupy.
package spatial

import (
	"slices"

	"voxelrelay.ai/internal/sim/coords"
	"voxelrelay.ai/internal/sim/ecs"
)

// ChunkEntities looks up the entities within a given chunk.
// Accessed only from the tick goroutine; no locking.
type ChunkEntities struct {
	entities map[coords.ChunkPos][]ecs.EntityID
	count    int
}

func NewChunkEntities() *ChunkEntities {
	return &ChunkEntities{entities: map[coords.ChunkPos][]ecs.EntityID{}}
}

// EntitiesIn returns the entities filed under chunk. The slice is a view into
// the index and must not be modified; it is empty when the chunk has none.
func (ce *ChunkEntities) EntitiesIn(chunk coords.ChunkPos) []ecs.EntityID {
	return slices.Clip(ce.entities[chunk])
}

// NotePositionChange files id under newChunk, taking it out of oldChunk when
// hadOld is set. Same-chunk updates are no-ops.
func (ce *ChunkEntities) NotePositionChange(id ecs.EntityID, oldChunk coords.ChunkPos, hadOld bool, newChunk coords.ChunkPos) {
	if hadOld {
		if oldChunk == newChunk {
			return
		}
		ce.remove(id, oldChunk)
	}
	bucket := ce.entities[newChunk]
	if slices.Contains(bucket, id) {
		return
	}
	ce.entities[newChunk] = append(bucket, id)
	ce.count++
}

// NoteRemoved takes id out of chunk. Absent entries are ignored.
func (ce *ChunkEntities) NoteRemoved(id ecs.EntityID, chunk coords.ChunkPos) {
	ce.remove(id, chunk)
}

func (ce *ChunkEntities) remove(id ecs.EntityID, chunk coords.ChunkPos) {
	bucket, ok := ce.entities[chunk]
	if !ok {
		return
	}
	i := slices.Index(bucket, id)
	if i < 0 {
		return
	}
	bucket = slices.Delete(bucket, i, i+1)
	ce.count--
	if len(bucket) == 0 {
		delete(ce.entities, chunk)
		return
	}
	ce.entities[chunk] = bucket
}

// Len is the number of indexed entities.
func (ce *ChunkEntities) Len() int { return ce.count }

// ChunkCount is the number of non-empty buckets.
func (ce *ChunkEntities) ChunkCount() int { return len(ce.entities) }
