// Package save implements JSON serialization of replay blobs.
package save

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/nathoo/duelcore/engine/state"
	"github.com/nathoo/duelcore/types"
)

// Format tags every blob written by this package.
const Format = "duelcore/replay/v1"

var (
	// ErrFormat indicates a blob with an unknown format tag.
	ErrFormat = errors.New("unsupported replay format")
	// ErrNoInitialState indicates a blob without an initial state.
	ErrNoInitialState = errors.New("replay has no initial state")
)

// Blob is everything needed to rebuild a session: the seed, every executed
// command in order, every random draw, and the state as of Initialize.
type Blob struct {
	Format   string               `json:"format"`
	Seed     uint32               `json:"seed"`
	Commands []types.CommandEntry `json:"commands"`
	Draws    []float64            `json:"draws"`
	Initial  *types.State         `json:"initial"`
}

// Encode serializes a blob to indented JSON.
func Encode(b Blob) ([]byte, error) {
	if b.Format == "" {
		b.Format = Format
	}
	if b.Commands == nil {
		b.Commands = []types.CommandEntry{}
	}
	if b.Draws == nil {
		b.Draws = []float64{}
	}
	return json.MarshalIndent(b, "", "  ")
}

// Decode deserializes a blob and normalizes nil collections.
func Decode(data []byte) (*Blob, error) {
	var b Blob
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	if b.Format != Format {
		return nil, fmt.Errorf("%w: %q", ErrFormat, b.Format)
	}
	if b.Initial == nil {
		return nil, ErrNoInitialState
	}
	// Ensure maps are never nil after load.
	s := state.New()
	s.Version = b.Initial.Version
	s.Turn = b.Initial.Turn
	for id, p := range b.Initial.Players {
		s.Players[id] = p
	}
	for id, e := range b.Initial.Entities {
		s.Entities[id] = e
	}
	for id, z := range b.Initial.Zones {
		s.Zones[id] = z
	}
	for id, v := range b.Initial.Visibility {
		s.Visibility[id] = v
	}
	b.Initial = s
	for i := range b.Commands {
		if b.Commands[i].Payload == nil {
			b.Commands[i].Payload = map[string]any{}
		}
	}
	return &b, nil
}

// WriteFile encodes a blob to path.
func WriteFile(path string, b Blob) error {
	data, err := Encode(b)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFile decodes a blob from path.
func ReadFile(path string) (*Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}
