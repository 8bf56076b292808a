package rules

import (
	"fmt"

	"github.com/nathoo/duelcore/engine/state"
	"github.com/nathoo/duelcore/types"
)

var builtinTransforms = map[string]bool{
	"add": true,
	"mul": true,
	"set": true,
	"min": true,
	"max": true,
}

var builtinActions = map[string]bool{
	"veto":          true,
	"replace_event": true,
	"clamp_attr":    true,
	"scale_attr":    true,
	"add_event":     true,
	"drop_intents":  true,
}

// Transform applies a modifier op to a value. Unknown ops leave the value
// unchanged.
func (d *Dispatcher) Transform(t types.Transform, value any, env Env) any {
	n := toInt(Ref(t.Params["value"], env))
	switch t.Op {
	case "add":
		return toInt(value) + n
	case "mul":
		return toInt(value) * n
	case "set":
		return Ref(t.Params["value"], env)
	case "min":
		// caps the value at n
		if v := toInt(value); v > n {
			return n
		}
		return toInt(value)
	case "max":
		// floors the value at n
		if v := toInt(value); v < n {
			return n
		}
		return toInt(value)
	default:
		if fn, ok := d.transforms[t.Op]; ok {
			return fn(value, t.Params, env)
		}
		return value
	}
}

// Act applies a replacement op to an outcome. A nil result means veto. The
// input outcome is never modified.
func (d *Dispatcher) Act(a types.Action, out types.Outcome, env Env) (*types.Outcome, error) {
	switch a.Op {
	case "veto":
		return nil, nil

	case "replace_event":
		from := refString(a.Params, "from", env)
		to := refString(a.Params, "to", env)
		next := copyOutcome(out)
		for i, evt := range next.Events {
			if evt.Type == from {
				evt.Type = to
				next.Events[i] = evt
			}
		}
		return &next, nil

	case "clamp_attr":
		attr := refString(a.Params, "attr", env)
		floor := toInt(Ref(a.Params["min"], env))
		next := copyOutcome(out)
		for i, p := range next.Patches {
			if p.Kind != types.PatchSetAttr || p.Payload["attr"] != attr {
				continue
			}
			if toInt(p.Payload["value"]) < floor {
				payload := state.CopyAttrs(p.Payload)
				payload["value"] = floor
				p.Payload = payload
				next.Patches[i] = p
			}
		}
		return &next, nil

	case "scale_attr":
		// Scales the change each set_attr makes relative to the current state,
		// so "double damage" is {factor: 2} and "halve healing" is {divisor: 2}.
		attr := refString(a.Params, "attr", env)
		factor, divisor := 1, 1
		if v, ok := a.Params["factor"]; ok {
			factor = toInt(Ref(v, env))
		}
		if v, ok := a.Params["divisor"]; ok && toInt(Ref(v, env)) != 0 {
			divisor = toInt(Ref(v, env))
		}
		next := copyOutcome(out)
		for i, p := range next.Patches {
			if p.Kind != types.PatchSetAttr || p.Payload["attr"] != attr {
				continue
			}
			cur := 0
			if env.State != nil {
				cur = state.AttrInt(env.State, p.Target, attr)
			}
			delta := (toInt(p.Payload["value"]) - cur) * factor / divisor
			payload := state.CopyAttrs(p.Payload)
			payload["value"] = cur + delta
			p.Payload = payload
			next.Patches[i] = p
		}
		return &next, nil

	case "add_event":
		next := copyOutcome(out)
		payload := map[string]any{}
		if raw, ok := a.Params["payload"].(map[string]any); ok {
			for k, v := range raw {
				payload[k] = Ref(v, env)
			}
		}
		next.Events = append(next.Events, types.DomainEvent{
			Type:    refString(a.Params, "type", env),
			Payload: payload,
			Source:  env.CommandType,
		})
		return &next, nil

	case "drop_intents":
		next := copyOutcome(out)
		next.Intents = nil
		return &next, nil

	default:
		if fn, ok := d.actions[a.Op]; ok {
			return fn(copyOutcome(out), a.Params, env)
		}
		return nil, fmt.Errorf("unknown replacement action %q", a.Op)
	}
}

func copyOutcome(out types.Outcome) types.Outcome {
	return types.Outcome{
		Patches: append([]types.Patch(nil), out.Patches...),
		Events:  append([]types.DomainEvent(nil), out.Events...),
		Intents: append([]types.Intent(nil), out.Intents...),
	}
}
