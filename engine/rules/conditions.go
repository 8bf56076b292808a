package rules

import (
	"github.com/nathoo/duelcore/engine/state"
	"github.com/nathoo/duelcore/types"
)

var builtinConditions = map[string]bool{
	"always":            true,
	"not":               true,
	"any":               true,
	"all":               true,
	"event_is":          true,
	"event_payload_eq":  true,
	"command_is":        true,
	"payload_eq":        true,
	"attr_eq":           true,
	"attr_gt":           true,
	"attr_lt":           true,
	"in_zone":           true,
	"zone_type_is":      true,
	"owner_is":          true,
	"active_player":     true,
	"phase_is":          true,
	"turn_gt":           true,
	"outcome_has_event": true,
}

// Eval evaluates a single condition against env.
func (d *Dispatcher) Eval(c types.Condition, env Env) bool {
	s := env.State
	switch c.Type {
	case "always":
		return true

	case "not":
		return !d.EvalAll(c.Inner, env)

	case "all":
		return d.EvalAll(c.Inner, env)

	case "any":
		for _, inner := range c.Inner {
			if d.Eval(inner, env) {
				return true
			}
		}
		return false

	case "event_is":
		return env.Event != nil && env.Event.Type == refString(c.Params, "type", env)

	case "event_payload_eq":
		if env.Event == nil {
			return false
		}
		key, _ := c.Params["key"].(string)
		return equalValues(env.Event.Payload[key], Ref(c.Params["value"], env))

	case "command_is":
		return env.CommandType == refString(c.Params, "type", env)

	case "payload_eq":
		key, _ := c.Params["key"].(string)
		return equalValues(env.Payload[key], Ref(c.Params["value"], env))

	case "attr_eq", "attr_gt", "attr_lt":
		if s == nil {
			return false
		}
		entity := refString(c.Params, "entity", env)
		attr, _ := c.Params["attr"].(string)
		actual, ok := state.Attr(s, entity, attr)
		expected := Ref(c.Params["value"], env)
		switch c.Type {
		case "attr_eq":
			if !ok {
				return expected == nil
			}
			return equalValues(actual, expected)
		case "attr_gt":
			return ok && toInt(actual) > toInt(expected)
		default:
			return ok && toInt(actual) < toInt(expected)
		}

	case "in_zone":
		if s == nil {
			return false
		}
		e, ok := s.Entities[refString(c.Params, "entity", env)]
		return ok && e.Zone == refString(c.Params, "zone", env)

	case "zone_type_is":
		if s == nil {
			return false
		}
		e, ok := s.Entities[refString(c.Params, "entity", env)]
		return ok && s.Zones[e.Zone].Type == refString(c.Params, "type", env)

	case "owner_is":
		if s == nil {
			return false
		}
		return state.OwnerOf(s, refString(c.Params, "entity", env)) == refString(c.Params, "player", env)

	case "active_player":
		return s != nil && s.Turn.ActivePlayer == refString(c.Params, "player", env)

	case "phase_is":
		return s != nil && s.Turn.Phase == refString(c.Params, "phase", env)

	case "turn_gt":
		return s != nil && s.Turn.Number > toInt(c.Params["value"])

	case "outcome_has_event":
		if env.Outcome == nil {
			return false
		}
		typ := refString(c.Params, "type", env)
		for _, evt := range env.Outcome.Events {
			if evt.Type == typ {
				return true
			}
		}
		return false

	default:
		if fn, ok := d.conditions[c.Type]; ok {
			return fn(c, env)
		}
		return false
	}
}

// EvalAll returns true if all conditions pass (AND logic).
// An empty condition list is vacuously true.
func (d *Dispatcher) EvalAll(conditions []types.Condition, env Env) bool {
	for _, c := range conditions {
		if !d.Eval(c, env) {
			return false
		}
	}
	return true
}
