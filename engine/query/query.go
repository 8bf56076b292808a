package query

import (
	"github.com/nathoo/duelcore/engine/rules"
	"github.com/nathoo/duelcore/engine/state"
	"github.com/nathoo/duelcore/types"
)

type cacheKey struct {
	entity string
	attr   string
}

type cached struct {
	value any
	ok    bool
}

// API answers attribute queries against the current state.
type API struct {
	rules    *rules.Dispatcher
	registry *Registry
	state    *types.State

	cache    map[cacheKey]cached
	version  int
	revision int
}

// New creates a query API over a modifier registry.
func New(d *rules.Dispatcher, reg *Registry) *API {
	return &API{rules: d, registry: reg, cache: map[cacheKey]cached{}}
}

// Registry returns the modifier registry.
func (q *API) Registry() *Registry { return q.registry }

// SetState points the API at a new state.
func (q *API) SetState(s *types.State) {
	q.state = s
}

// State returns the state queries run against.
func (q *API) State() *types.State { return q.state }

// InvalidateCache drops every cached result.
func (q *API) InvalidateCache() {
	q.cache = map[cacheKey]cached{}
}

// Query returns an attribute after folding every matching modifier over the
// base value. ok is false when neither a base value nor a modifier exists.
func (q *API) Query(entityID, attr string) (any, bool) {
	if q.state == nil {
		return nil, false
	}
	if q.state.Version != q.version || q.registry.Revision() != q.revision {
		q.InvalidateCache()
		q.version = q.state.Version
		q.revision = q.registry.Revision()
	}

	key := cacheKey{entityID, attr}
	if c, hit := q.cache[key]; hit {
		return c.value, c.ok
	}

	value, ok := state.Attr(q.state, entityID, attr)
	env := rules.Env{State: q.state, Self: entityID}
	for _, m := range q.registry.Sorted() {
		if m.Attribute != attr || !state.Exists(q.state, entityID) {
			continue
		}
		if !q.rules.EvalAll(m.When, env) {
			continue
		}
		value = q.rules.Transform(m.Op, value, env)
		ok = true
	}

	q.cache[key] = cached{value, ok}
	return value, ok
}

// QueryInt is Query coerced to int. Missing attributes are 0.
func (q *API) QueryInt(entityID, attr string) int {
	v, _ := q.Query(entityID, attr)
	return state.ToInt(v)
}
