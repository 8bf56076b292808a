package loader

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/duelcore/engine/state"
	"github.com/nathoo/duelcore/ruleset"
	"github.com/nathoo/duelcore/types"
)

// rawNamed holds a curried constructor's id and body before compilation.
type rawNamed struct {
	id    string
	table *lua.LTable
	order int
}

// rawPause holds a PauseOn call.
type rawPause struct {
	event  string
	reason string
}

// Scenario is a compiled scenario file.
type Scenario struct {
	Name     string
	Seed     uint32
	MaxSteps int
	First    string // active player on turn 1, defaults to the first hero

	ZoneTypes    []types.ZoneType
	Heroes       []Hero
	Triggers     []types.Trigger
	Replacements []types.Replacement
	Modifiers    []types.Modifier
	Pauses       []Pause
	Script       []Step

	// Warnings are problems that do not stop the scenario from loading.
	Warnings []string
}

// Hero is a starting player. Zones holds cards for extra zone types.
type Hero struct {
	ruleset.HeroSpec
	Attrs map[string]any
	Zones map[string][]ruleset.CardSpec
}

// Pause is a PauseOn rule.
type Pause struct {
	Event  string
	Reason string
}

// Step is one scripted action: a command, or an answer to the pending choice
// when Command.Type is empty.
type Step struct {
	Command types.CommandEntry
	Choose  any
}

// IsChoice reports whether the step answers a choice.
func (s Step) IsChoice() bool { return s.Command.Type == "" }

// InitialState builds the turn-1 state.
func (sc *Scenario) InitialState() *types.State {
	specs := make([]ruleset.HeroSpec, len(sc.Heroes))
	for i, h := range sc.Heroes {
		specs[i] = h.HeroSpec
	}
	s := ruleset.NewMatch(specs...)

	for _, h := range sc.Heroes {
		if len(h.Attrs) > 0 {
			p := s.Players[h.ID]
			for k, v := range state.CopyAttrs(h.Attrs) {
				p.Attrs[k] = v
			}
			s.Players[h.ID] = p
		}
		for _, zt := range sc.ZoneTypes {
			id := ruleset.ZoneID(h.ID, zt.ID)
			z := types.Zone{ID: id, Type: zt.ID, Owner: h.ID, Entities: []string{}}
			for _, c := range h.Zones[zt.ID] {
				attrs := state.CopyAttrs(c.Attrs)
				if attrs == nil {
					attrs = map[string]any{}
				}
				s.Entities[c.ID] = types.Entity{ID: c.ID, Kind: c.Kind, Owner: h.ID, Zone: id, Attrs: attrs}
				z.Entities = append(z.Entities, c.ID)
			}
			s.Zones[id] = z
		}
	}
	if sc.First != "" {
		s.Turn.ActivePlayer = sc.First
	}
	return s
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getNumber returns a numeric field from a Lua table, or 0 if missing.
func getNumber(tbl *lua.LTable, key string) float64 {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	return int(getNumber(tbl, key))
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// list returns the array part of a table.
func list(tbl *lua.LTable) []*lua.LTable {
	if tbl == nil {
		return nil
	}
	var out []*lua.LTable
	for i := 1; i <= tbl.MaxN(); i++ {
		if t, ok := tbl.RawGetInt(i).(*lua.LTable); ok {
			out = append(out, t)
		}
	}
	return out
}

// toGoValue converts a Lua value to a Go value recursively.
func toGoValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int(f)) {
			return int(f)
		}
		return f
	case *lua.LNilType:
		return nil
	case lua.LString:
		return string(val)
	case *lua.LTable:
		// Sequential integer keys starting at 1 make an array.
		maxN := val.MaxN()
		if maxN > 0 {
			arr := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				arr = append(arr, toGoValue(val.RawGetInt(i)))
			}
			return arr
		}
		m := map[string]any{}
		val.ForEach(func(k, v lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				m[string(ks)] = toGoValue(v)
			}
		})
		return m
	default:
		return nil
	}
}

// tableToAnyMap converts a Lua table to a map[string]any.
func tableToAnyMap(tbl *lua.LTable) map[string]any {
	if tbl == nil {
		return nil
	}
	m := map[string]any{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			m[string(ks)] = toGoValue(v)
		}
	})
	return m
}

// compile converts all collected Lua data into a Scenario.
func compile(coll *collector) (*Scenario, error) {
	sc := &Scenario{}
	if coll.match != nil {
		sc.Name = getString(coll.match, "name")
		sc.Seed = uint32(getNumber(coll.match, "seed"))
		sc.MaxSteps = getInt(coll.match, "max_steps")
		sc.First = getString(coll.match, "first")
	}

	for _, raw := range coll.zoneTypes {
		sc.ZoneTypes = append(sc.ZoneTypes, types.ZoneType{
			ID:         raw.id,
			Ordered:    getBool(raw.table, "ordered", false),
			Visibility: types.Visibility(getString(raw.table, "visibility")),
			MaxSize:    getInt(raw.table, "max_size"),
		})
	}

	for _, raw := range coll.heroes {
		hero, err := compileHero(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling hero %s: %w", raw.id, err)
		}
		sc.Heroes = append(sc.Heroes, hero)
	}

	for _, raw := range coll.triggers {
		sc.Triggers = append(sc.Triggers, compileTrigger(raw))
	}
	for _, raw := range coll.replacements {
		sc.Replacements = append(sc.Replacements, compileReplacement(raw))
	}
	for _, raw := range coll.modifiers {
		sc.Modifiers = append(sc.Modifiers, compileModifier(raw))
	}
	for _, raw := range coll.pauses {
		sc.Pauses = append(sc.Pauses, Pause{Event: raw.event, Reason: raw.reason})
	}

	for i, tbl := range coll.script {
		step, err := compileStep(tbl)
		if err != nil {
			return nil, fmt.Errorf("compiling script step %d: %w", i+1, err)
		}
		sc.Script = append(sc.Script, step)
	}
	return sc, nil
}

// Known hero fields; anything else in a Hero table is an error.
var heroFields = map[string]bool{
	"hp": true, "armor": true, "mana": true, "attrs": true,
	"deck": true, "hand": true, "board": true, "zones": true,
}

func compileHero(raw rawNamed) (Hero, error) {
	var unknown []string
	raw.table.ForEach(func(k, _ lua.LValue) {
		if ks, ok := k.(lua.LString); ok && !heroFields[string(ks)] {
			unknown = append(unknown, string(ks))
		}
	})
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Hero{}, fmt.Errorf("unknown fields %v", unknown)
	}

	hero := Hero{
		HeroSpec: ruleset.HeroSpec{
			ID:    raw.id,
			HP:    getInt(raw.table, "hp"),
			Armor: getInt(raw.table, "armor"),
			Mana:  getInt(raw.table, "mana"),
			Deck:  compileCards(getTable(raw.table, "deck")),
			Hand:  compileCards(getTable(raw.table, "hand")),
			Board: compileCards(getTable(raw.table, "board")),
		},
		Attrs: tableToAnyMap(getTable(raw.table, "attrs")),
	}
	if zones := getTable(raw.table, "zones"); zones != nil {
		hero.Zones = map[string][]ruleset.CardSpec{}
		zones.ForEach(func(k, v lua.LValue) {
			ks, ok := k.(lua.LString)
			tbl, isTable := v.(*lua.LTable)
			if ok && isTable {
				hero.Zones[string(ks)] = compileCards(tbl)
			}
		})
	}
	return hero, nil
}

func compileCards(tbl *lua.LTable) []ruleset.CardSpec {
	var cards []ruleset.CardSpec
	for _, c := range list(tbl) {
		attrs := tableToAnyMap(getTable(c, "attrs"))
		delete(attrs, "kind")
		cards = append(cards, ruleset.CardSpec{
			ID:    getString(c, "id"),
			Kind:  getString(c, "kind"),
			Attrs: attrs,
		})
	}
	return cards
}

func compileTrigger(raw rawNamed) types.Trigger {
	tr := types.Trigger{
		ID:        raw.id,
		EventType: getString(raw.table, "on"),
		When:      compileConditions(getTable(raw.table, "when")),
	}
	if in := getTable(raw.table, "intent"); in != nil {
		tr.Intent = types.IntentTemplate{
			Type:     getString(in, "type"),
			Payload:  tableToAnyMap(getTable(in, "payload")),
			Priority: getInt(in, "priority"),
		}
	}
	return tr
}

func compileReplacement(raw rawNamed) types.Replacement {
	rep := types.Replacement{
		ID:       raw.id,
		Priority: getInt(raw.table, "priority"),
		Command:  getString(raw.table, "command"),
		When:     compileConditions(getTable(raw.table, "when")),
	}
	if a := getTable(raw.table, "action"); a != nil {
		rep.Action = types.Action{Op: getString(a, "op"), Params: tableToAnyMap(getTable(a, "params"))}
	}
	return rep
}

func compileModifier(raw rawNamed) types.Modifier {
	mod := types.Modifier{
		ID:        raw.id,
		Attribute: getString(raw.table, "attribute"),
		Layer:     getInt(raw.table, "layer"),
		Timestamp: getInt(raw.table, "timestamp"),
		When:      compileConditions(getTable(raw.table, "when")),
	}
	if raw.table.RawGetString("timestamp") == lua.LNil {
		mod.Timestamp = raw.order
	}
	if op := getTable(raw.table, "op"); op != nil {
		mod.Op = types.Transform{Op: getString(op, "op"), Params: tableToAnyMap(getTable(op, "params"))}
	}
	return mod
}

// compileConditions accepts either a single condition or a list of them.
func compileConditions(tbl *lua.LTable) []types.Condition {
	if tbl == nil {
		return nil
	}
	if tbl.RawGetString("type") != lua.LNil {
		return []types.Condition{compileCondition(tbl)}
	}
	var out []types.Condition
	for _, c := range list(tbl) {
		out = append(out, compileCondition(c))
	}
	return out
}

func compileCondition(tbl *lua.LTable) types.Condition {
	c := types.Condition{Type: getString(tbl, "type")}
	if params := tableToAnyMap(getTable(tbl, "params")); len(params) > 0 {
		c.Params = params
	}
	for _, inner := range list(getTable(tbl, "inner")) {
		c.Inner = append(c.Inner, compileCondition(inner))
	}
	return c
}

func compileStep(tbl *lua.LTable) (Step, error) {
	if cmd := getString(tbl, "command"); cmd != "" {
		return Step{Command: types.CommandEntry{
			Type:    cmd,
			Payload: tableToAnyMap(getTable(tbl, "payload")),
		}}, nil
	}
	sel := toGoValue(tbl.RawGetString("choose"))
	if sel == nil {
		return Step{}, fmt.Errorf("empty step")
	}
	return Step{Choose: sel}, nil
}

// sortedLuaFiles returns .lua files with match.lua first and the rest
// sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var matchFile string
	var others []string
	for _, f := range files {
		if f == "match.lua" {
			matchFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if matchFile != "" {
		return append([]string{matchFile}, others...)
	}
	return others
}
