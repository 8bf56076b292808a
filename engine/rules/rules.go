// Package rules interprets the tagged descriptors carried by triggers,
// replacements and modifiers. Descriptors are plain data; the Dispatcher is
// the fixed interpreter, extended per engine with named custom kinds.
package rules

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/nathoo/duelcore/engine/state"
	"github.com/nathoo/duelcore/types"
)

// ErrNameTaken indicates a custom kind collides with a built-in or earlier registration.
var ErrNameTaken = errors.New("descriptor name already registered")

// Env is everything a descriptor may observe.
type Env struct {
	State       *types.State
	Event       *types.DomainEvent
	CommandType string
	Payload     map[string]any // command payload
	Outcome     *types.Outcome
	Self        string // entity being queried or reacting
}

// ConditionFunc evaluates a custom condition kind.
type ConditionFunc func(c types.Condition, env Env) bool

// TransformFunc applies a custom modifier op.
type TransformFunc func(value any, params map[string]any, env Env) any

// ActionFunc applies a custom replacement op. A nil outcome vetoes.
type ActionFunc func(out types.Outcome, params map[string]any, env Env) (*types.Outcome, error)

// Dispatcher owns the custom kinds for one engine.
type Dispatcher struct {
	conditions map[string]ConditionFunc
	transforms map[string]TransformFunc
	actions    map[string]ActionFunc
}

// NewDispatcher creates a dispatcher with only the built-in kinds.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		conditions: map[string]ConditionFunc{},
		transforms: map[string]TransformFunc{},
		actions:    map[string]ActionFunc{},
	}
}

// RegisterCondition adds a custom condition kind.
func (d *Dispatcher) RegisterCondition(name string, fn ConditionFunc) error {
	if builtinConditions[name] || d.conditions[name] != nil {
		return fmt.Errorf("%w: condition %q", ErrNameTaken, name)
	}
	d.conditions[name] = fn
	return nil
}

// RegisterTransform adds a custom modifier op.
func (d *Dispatcher) RegisterTransform(name string, fn TransformFunc) error {
	if builtinTransforms[name] || d.transforms[name] != nil {
		return fmt.Errorf("%w: transform %q", ErrNameTaken, name)
	}
	d.transforms[name] = fn
	return nil
}

// RegisterAction adds a custom replacement op.
func (d *Dispatcher) RegisterAction(name string, fn ActionFunc) error {
	if builtinActions[name] || d.actions[name] != nil {
		return fmt.Errorf("%w: action %q", ErrNameTaken, name)
	}
	d.actions[name] = fn
	return nil
}

// KnownCondition reports whether a condition kind can be evaluated.
func (d *Dispatcher) KnownCondition(name string) bool {
	return builtinConditions[name] || d.conditions[name] != nil
}

// KnownTransform reports whether a modifier op can be applied.
func (d *Dispatcher) KnownTransform(name string) bool {
	return builtinTransforms[name] || d.transforms[name] != nil
}

// KnownAction reports whether a replacement op can be applied.
func (d *Dispatcher) KnownAction(name string) bool {
	return builtinActions[name] || d.actions[name] != nil
}

// Ref resolves a reference string against env. Non-references pass through.
//
//	$self          the entity under evaluation
//	$active        the active player
//	$event.<key>   a key of the observed event's payload
//	$payload.<key> a key of the command payload
func Ref(v any, env Env) any {
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, "$") {
		return v
	}
	switch {
	case s == "$self":
		return env.Self
	case s == "$active":
		if env.State == nil {
			return ""
		}
		return env.State.Turn.ActivePlayer
	case strings.HasPrefix(s, "$event."):
		if env.Event == nil {
			return nil
		}
		return env.Event.Payload[strings.TrimPrefix(s, "$event.")]
	case strings.HasPrefix(s, "$payload."):
		return env.Payload[strings.TrimPrefix(s, "$payload.")]
	}
	return v
}

// refString resolves a param and returns it as a string.
func refString(params map[string]any, key string, env Env) string {
	s, _ := Ref(params[key], env).(string)
	return s
}

// Instantiate builds an intent from a template, resolving references in the
// payload.
func Instantiate(tmpl types.IntentTemplate, source string, env Env) types.Intent {
	payload := make(map[string]any, len(tmpl.Payload))
	for k, v := range tmpl.Payload {
		payload[k] = Ref(v, env)
	}
	return types.Intent{Type: tmpl.Type, Payload: payload, Source: source, Priority: tmpl.Priority}
}

// equalValues compares two attribute values, treating all numbers alike.
func equalValues(a, b any) bool {
	if isNumber(a) && isNumber(b) {
		return toFloat(a) == toFloat(b)
	}
	return reflect.DeepEqual(a, b)
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int64, float64, float32:
		return true
	}
	return false
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	case float32:
		return float64(n)
	}
	return 0
}

// toInt mirrors state.ToInt for params.
func toInt(v any) int { return state.ToInt(v) }
