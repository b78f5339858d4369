// Package coords holds world positions and the chunk grid they map onto.
package coords

import (
	"fmt"
	"math"

	"voxelrelay.ai/internal/sim/mathx"
)

// ChunkSize is the horizontal edge length of a chunk, in blocks.
const ChunkSize = 16

// Position is an absolute world position.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ChunkPos identifies one column of the horizontal chunk grid.
type ChunkPos struct {
	X int32 `json:"x"`
	Z int32 `json:"z"`
}

func (c ChunkPos) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Z) }

// Chunk returns the chunk containing p. Negative coordinates round toward
// negative infinity, so x=-0.5 lies in chunk -1.
func (p Position) Chunk() ChunkPos {
	return ChunkPos{
		X: int32(mathx.FloorDiv(int(math.Floor(p.X)), ChunkSize)),
		Z: int32(mathx.FloorDiv(int(math.Floor(p.Z)), ChunkSize)),
	}
}

// Add returns p shifted by (dx, dy, dz).
func (p Position) Add(dx, dy, dz float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

// Within reports whether c lies in the square of the given radius around center.
func (c ChunkPos) Within(center ChunkPos, radius int) bool {
	return mathx.Chebyshev(int(c.X), int(c.Z), int(center.X), int(center.Z)) <= radius
}

// Square returns every chunk within radius of center, row by row.
func Square(center ChunkPos, radius int) []ChunkPos {
	if radius < 0 {
		return nil
	}
	side := 2*radius + 1
	out := make([]ChunkPos, 0, side*side)
	for dz := -radius; dz <= radius; dz++ {
		for dx := -radius; dx <= radius; dx++ {
			out = append(out, ChunkPos{X: center.X + int32(dx), Z: center.Z + int32(dz)})
		}
	}
	return out
}
