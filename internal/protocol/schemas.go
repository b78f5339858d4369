package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBaseURL = "https://voxelrelay.ai/schemas/"

// Schema file names.
const (
	SchemaHello         = "hello.schema.json"
	SchemaJoinGame      = "join_game.schema.json"
	SchemaKeepAlive     = "keep_alive.schema.json"
	SchemaDisconnect    = "disconnect.schema.json"
	SchemaMove          = "move.schema.json"
	SchemaPlayerState   = "player_state.schema.json"
	SchemaEntitySpawn   = "entity_spawn.schema.json"
	SchemaEntityDespawn = "entity_despawn.schema.json"
)

// CompileSchema compiles one of the embedded message schemas.
func CompileSchema(name string) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	ents, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, err
	}
	for _, e := range ents {
		b, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(schemaBaseURL+e.Name(), bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("schema %s: %w", e.Name(), err)
		}
	}
	s, err := c.Compile(schemaBaseURL + name)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	return s, nil
}

// ValidateRaw checks an encoded message against s.
func ValidateRaw(s *jsonschema.Schema, raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return s.Validate(v)
}
