package state

import (
	"errors"
	"fmt"

	"github.com/nathoo/duelcore/types"
)

var (
	// ErrUnknownPatch indicates a patch kind outside the closed set.
	ErrUnknownPatch = errors.New("unknown patch kind")
	// ErrTargetNotFound indicates a patch addressed a missing player, entity or zone.
	ErrTargetNotFound = errors.New("patch target not found")
	// ErrEntityExists indicates a create patch for an id already in use.
	ErrEntityExists = errors.New("entity already exists")
	// ErrZoneFull indicates a move or create past the zone type's max size.
	ErrZoneFull = errors.New("zone is full")
	// ErrUnknownTurnField indicates a set_turn patch for an unknown field.
	ErrUnknownTurnField = errors.New("unknown turn field")
)

type patchFunc func(a *Applier, s *types.State, p types.Patch) (*types.State, error)

// patchTable maps every patch kind to its transition. Each entry copies only
// the branch it touches; untouched maps and slices are shared.
var patchTable = map[types.PatchKind]patchFunc{
	types.PatchSetAttr:       applySetAttr,
	types.PatchMove:          applyMove,
	types.PatchCreate:        applyCreate,
	types.PatchRemove:        applyRemove,
	types.PatchSetTurn:       applySetTurn,
	types.PatchSetVisibility: applySetVisibility,
}

// Applier applies patches. It consults the zone-type registry for ordering
// and capacity rules and never mutates its input state.
type Applier struct {
	zones *ZoneTypes
}

// NewApplier creates an applier backed by a zone-type registry.
func NewApplier(zones *ZoneTypes) *Applier {
	if zones == nil {
		zones = NewZoneTypes()
	}
	return &Applier{zones: zones}
}

// Apply returns the state after p, with Version incremented by one.
func (a *Applier) Apply(s *types.State, p types.Patch) (*types.State, error) {
	fn, ok := patchTable[p.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPatch, p.Kind)
	}
	next, err := fn(a, s, p)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", p.Kind, p.Target, err)
	}
	next.Version = s.Version + 1
	return next, nil
}

// ApplyAll folds patches left to right.
func (a *Applier) ApplyAll(s *types.State, patches []types.Patch) (*types.State, error) {
	cur := s
	for _, p := range patches {
		next, err := a.Apply(cur, p)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func applySetAttr(_ *Applier, s *types.State, p types.Patch) (*types.State, error) {
	attr, _ := p.Payload["attr"].(string)
	value := p.Payload["value"]
	next := *s

	if pl, ok := s.Players[p.Target]; ok {
		pl.Attrs = withAttr(pl.Attrs, attr, value)
		next.Players = copyPlayers(s.Players)
		next.Players[p.Target] = pl
		return &next, nil
	}
	if e, ok := s.Entities[p.Target]; ok {
		e.Attrs = withAttr(e.Attrs, attr, value)
		next.Entities = copyEntities(s.Entities)
		next.Entities[p.Target] = e
		return &next, nil
	}
	return nil, ErrTargetNotFound
}

func applyMove(a *Applier, s *types.State, p types.Patch) (*types.State, error) {
	e, ok := s.Entities[p.Target]
	if !ok {
		return nil, ErrTargetNotFound
	}
	to, _ := p.Payload["to"].(string)
	dest, ok := s.Zones[to]
	if !ok {
		return nil, fmt.Errorf("zone %q: %w", to, ErrTargetNotFound)
	}

	next := *s
	next.Zones = copyZones(s.Zones)

	if src, ok := s.Zones[e.Zone]; ok {
		src.Entities = without(src.Entities, e.ID)
		next.Zones[src.ID] = src
		if src.ID == dest.ID {
			dest = src
		}
	}

	zt, _ := a.zones.Get(dest.Type)
	if zt.MaxSize > 0 && len(dest.Entities) >= zt.MaxSize {
		return nil, fmt.Errorf("zone %q: %w", dest.ID, ErrZoneFull)
	}
	index := -1
	if raw, ok := p.Payload["index"]; ok && zt.Ordered {
		index = ToInt(raw)
	}
	dest.Entities = insertAt(dest.Entities, e.ID, index)
	next.Zones[dest.ID] = dest

	e.Zone = dest.ID
	next.Entities = copyEntities(s.Entities)
	next.Entities[e.ID] = e
	return &next, nil
}

func applyCreate(a *Applier, s *types.State, p types.Patch) (*types.State, error) {
	if Exists(s, p.Target) {
		return nil, ErrEntityExists
	}
	zoneID, _ := p.Payload["zone"].(string)
	z, ok := s.Zones[zoneID]
	if !ok {
		return nil, fmt.Errorf("zone %q: %w", zoneID, ErrTargetNotFound)
	}
	if zt, _ := a.zones.Get(z.Type); zt.MaxSize > 0 && len(z.Entities) >= zt.MaxSize {
		return nil, fmt.Errorf("zone %q: %w", zoneID, ErrZoneFull)
	}
	kind, _ := p.Payload["kind"].(string)
	owner, _ := p.Payload["owner"].(string)
	attrs, _ := p.Payload["attrs"].(map[string]any)

	next := *s
	next.Entities = copyEntities(s.Entities)
	next.Entities[p.Target] = types.Entity{
		ID:    p.Target,
		Kind:  kind,
		Owner: owner,
		Zone:  zoneID,
		Attrs: CopyAttrs(attrs),
	}
	z.Entities = insertAt(z.Entities, p.Target, -1)
	next.Zones = copyZones(s.Zones)
	next.Zones[zoneID] = z
	return &next, nil
}

func applyRemove(_ *Applier, s *types.State, p types.Patch) (*types.State, error) {
	e, ok := s.Entities[p.Target]
	if !ok {
		return nil, ErrTargetNotFound
	}
	next := *s
	next.Entities = copyEntities(s.Entities)
	delete(next.Entities, e.ID)

	if z, ok := s.Zones[e.Zone]; ok {
		z.Entities = without(z.Entities, e.ID)
		next.Zones = copyZones(s.Zones)
		next.Zones[z.ID] = z
	}
	if _, ok := s.Visibility[e.ID]; ok {
		next.Visibility = copyVisibility(s.Visibility)
		delete(next.Visibility, e.ID)
	}
	return &next, nil
}

func applySetTurn(_ *Applier, s *types.State, p types.Patch) (*types.State, error) {
	field, _ := p.Payload["field"].(string)
	value := p.Payload["value"]
	next := *s
	switch field {
	case "active_player":
		v, _ := value.(string)
		next.Turn.ActivePlayer = v
	case "number":
		next.Turn.Number = ToInt(value)
	case "phase":
		v, _ := value.(string)
		next.Turn.Phase = v
	case "winner":
		v, _ := value.(string)
		next.Turn.Winner = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTurnField, field)
	}
	return &next, nil
}

func applySetVisibility(_ *Applier, s *types.State, p types.Patch) (*types.State, error) {
	if _, ok := s.Entities[p.Target]; !ok {
		return nil, ErrTargetNotFound
	}
	v, _ := p.Payload["visibility"].(string)
	next := *s
	next.Visibility = copyVisibility(s.Visibility)
	if v == "" {
		delete(next.Visibility, p.Target)
	} else {
		next.Visibility[p.Target] = types.Visibility(v)
	}
	return &next, nil
}

func withAttr(attrs map[string]any, attr string, value any) map[string]any {
	out := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		out[k] = v
	}
	out[attr] = value
	return out
}

func copyPlayers(m map[string]types.Player) map[string]types.Player {
	out := make(map[string]types.Player, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyEntities(m map[string]types.Entity) map[string]types.Entity {
	out := make(map[string]types.Entity, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyZones(m map[string]types.Zone) map[string]types.Zone {
	out := make(map[string]types.Zone, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyVisibility(m map[string]types.Visibility) map[string]types.Visibility {
	out := make(map[string]types.Visibility, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// without returns a new slice with id removed.
func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// insertAt returns a new slice with id inserted at index; out-of-range or
// negative indexes append.
func insertAt(ids []string, id string, index int) []string {
	out := make([]string, 0, len(ids)+1)
	if index < 0 || index >= len(ids) {
		out = append(out, ids...)
		return append(out, id)
	}
	out = append(out, ids[:index]...)
	out = append(out, id)
	return append(out, ids[index:]...)
}
