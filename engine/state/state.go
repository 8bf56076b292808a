// Package state holds the immutable game state helpers: construction, deep
// copies, read-only lookups, and the zone-type registry. Transitions live in
// patch.go and always return a new *types.State.
package state

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mohae/deepcopy"

	"github.com/nathoo/duelcore/types"
)

var (
	// ErrZoneTypesFrozen indicates a registration after Initialize.
	ErrZoneTypesFrozen = errors.New("zone types are frozen")
	// ErrZoneTypeRequired indicates an empty zone type id.
	ErrZoneTypeRequired = errors.New("zone type id is required")
)

// New returns an empty state at version 0.
func New() *types.State {
	return &types.State{
		Players:    map[string]types.Player{},
		Entities:   map[string]types.Entity{},
		Zones:      map[string]types.Zone{},
		Visibility: map[string]types.Visibility{},
	}
}

// Clone returns a deep copy that shares nothing with s.
func Clone(s *types.State) *types.State {
	if s == nil {
		return nil
	}
	out := &types.State{
		Version:    s.Version,
		Turn:       s.Turn,
		Players:    make(map[string]types.Player, len(s.Players)),
		Entities:   make(map[string]types.Entity, len(s.Entities)),
		Zones:      make(map[string]types.Zone, len(s.Zones)),
		Visibility: make(map[string]types.Visibility, len(s.Visibility)),
	}
	out.Turn.Seats = copyStrings(s.Turn.Seats)
	for id, p := range s.Players {
		p.Attrs = CopyAttrs(p.Attrs)
		out.Players[id] = p
	}
	for id, e := range s.Entities {
		e.Attrs = CopyAttrs(e.Attrs)
		out.Entities[id] = e
	}
	for id, z := range s.Zones {
		z.Entities = copyStrings(z.Entities)
		out.Zones[id] = z
	}
	for id, v := range s.Visibility {
		out.Visibility[id] = v
	}
	return out
}

func copyStrings(ids []string) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// CopyAttrs deep-copies an attribute or payload map. Nil stays nil.
func CopyAttrs(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return deepcopy.Copy(m).(map[string]any)
}

// Attr looks up an attribute on a player first, then on an entity.
func Attr(s *types.State, id, attr string) (any, bool) {
	if p, ok := s.Players[id]; ok {
		v, ok := p.Attrs[attr]
		return v, ok
	}
	if e, ok := s.Entities[id]; ok {
		v, ok := e.Attrs[attr]
		return v, ok
	}
	return nil, false
}

// AttrInt returns an attribute as an int. Missing attributes return 0.
func AttrInt(s *types.State, id, attr string) int {
	v, _ := Attr(s, id, attr)
	return ToInt(v)
}

// Exists reports whether id names a player or an entity.
func Exists(s *types.State, id string) bool {
	if _, ok := s.Players[id]; ok {
		return true
	}
	_, ok := s.Entities[id]
	return ok
}

// OwnerOf returns the owning player of an entity, or the id itself for players.
func OwnerOf(s *types.State, id string) string {
	if _, ok := s.Players[id]; ok {
		return id
	}
	return s.Entities[id].Owner
}

// ZoneEntities returns the entity ids in a zone, in zone order.
func ZoneEntities(s *types.State, zoneID string) []string {
	return s.Zones[zoneID].Entities
}

// Counts returns the sizes of the three entity collections.
func Counts(s *types.State) (players, entities, zones int) {
	return len(s.Players), len(s.Entities), len(s.Zones)
}

// NextSeat returns the seat after the given player, wrapping around.
func NextSeat(s *types.State, playerID string) string {
	seats := s.Turn.Seats
	for i, id := range seats {
		if id == playerID {
			return seats[(i+1)%len(seats)]
		}
	}
	if len(seats) > 0 {
		return seats[0]
	}
	return ""
}

// ToInt converts an attribute value to int, handling float64 from JSON/Lua.
func ToInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	default:
		return 0
	}
}

// ZoneTypes is the per-engine registry of zone descriptors. It is frozen
// once the engine is initialized.
type ZoneTypes struct {
	types  map[string]types.ZoneType
	frozen bool
}

// NewZoneTypes creates an empty registry.
func NewZoneTypes() *ZoneTypes {
	return &ZoneTypes{types: map[string]types.ZoneType{}}
}

// Register adds a zone type.
func (z *ZoneTypes) Register(zt types.ZoneType) error {
	if z.frozen {
		return ErrZoneTypesFrozen
	}
	if zt.ID == "" {
		return ErrZoneTypeRequired
	}
	if _, exists := z.types[zt.ID]; exists {
		return fmt.Errorf("zone type already registered: %s", zt.ID)
	}
	if zt.Visibility == "" {
		zt.Visibility = types.VisibilityPublic
	}
	z.types[zt.ID] = zt
	return nil
}

// Get returns a registered zone type.
func (z *ZoneTypes) Get(id string) (types.ZoneType, bool) {
	zt, ok := z.types[id]
	return zt, ok
}

// Freeze makes the registry immutable.
func (z *ZoneTypes) Freeze() { z.frozen = true }

// Frozen reports whether Freeze was called.
func (z *ZoneTypes) Frozen() bool { return z.frozen }

// IDs returns the registered zone type ids, sorted.
func (z *ZoneTypes) IDs() []string {
	ids := make([]string, 0, len(z.types))
	for id := range z.types {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// VisibilityOf returns the effective visibility of an entity: the per-entity
// override if any, else its zone type's visibility.
func (z *ZoneTypes) VisibilityOf(s *types.State, entityID string) types.Visibility {
	if v, ok := s.Visibility[entityID]; ok && v != "" {
		return v
	}
	e, ok := s.Entities[entityID]
	if !ok {
		return types.VisibilityPublic
	}
	if zt, ok := z.types[s.Zones[e.Zone].Type]; ok {
		return zt.Visibility
	}
	return types.VisibilityPublic
}
