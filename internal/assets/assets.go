// Package assets holds the static world-definition documents sent to every
// client on join. Both are binary NBT, embedded at build time and parsed
// once at startup.
package assets

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"github.com/Tnze/go-mc/nbt"
)

//go:embed dimension_codec.nbt
var dimensionCodecNBT []byte

//go:embed dimension.nbt
var dimensionNBT []byte

const dimensionTypeRegistry = "minecraft:dimension_type"

// Assets is read-only after Load; callers must not mutate the maps.
type Assets struct {
	DimensionCodec map[string]any
	Dimension      map[string]any
}

// Load parses the embedded documents. An error here means the build shipped
// malformed assets and the server must not start.
func Load() (*Assets, error) {
	return Parse(dimensionCodecNBT, dimensionNBT)
}

func Parse(codecRaw, dimensionRaw []byte) (*Assets, error) {
	codec, err := decodeCompound(codecRaw)
	if err != nil {
		return nil, fmt.Errorf("dimension codec: %w", err)
	}
	dim, err := decodeCompound(dimensionRaw)
	if err != nil {
		return nil, fmt.Errorf("dimension: %w", err)
	}
	a := &Assets{DimensionCodec: codec, Dimension: dim}
	if len(a.DimensionNames()) == 0 {
		return nil, fmt.Errorf("dimension codec: no entries in %s", dimensionTypeRegistry)
	}
	if _, ok := dim["has_skylight"]; !ok {
		return nil, errors.New("dimension: missing has_skylight")
	}
	return a, nil
}

func decodeCompound(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty document")
	}
	var m map[string]any
	if err := nbt.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, errors.New("empty root compound")
	}
	return m, nil
}

// DimensionNames lists the dimension types declared in the codec, sorted.
func (a *Assets) DimensionNames() []string {
	reg, ok := a.DimensionCodec[dimensionTypeRegistry].(map[string]any)
	if !ok {
		return nil
	}
	values, ok := reg["value"].([]any)
	if !ok {
		return nil
	}
	var names []string
	for _, v := range values {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := entry["name"].(string); ok && name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// HasDimension reports whether the codec declares the named dimension type.
func (a *Assets) HasDimension(name string) bool {
	for _, n := range a.DimensionNames() {
		if n == name {
			return true
		}
	}
	return false
}
