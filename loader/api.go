package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerCardConstructors(L)
	registerConditionHelpers(L)
	registerOpHelpers(L)
	registerScriptHelpers(L, coll)
}

// curried registers Name "id" { ... }: Name("id") returns a function that
// takes the body table.
func curried(L *lua.LState, name string, fn func(id string, tbl *lua.LTable)) {
	L.SetGlobal(name, L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			fn(id, L.CheckTable(1))
			return 0
		}))
		return 1
	}))
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Match { name = "...", seed = 7, first = "alice", max_steps = 500 }
	L.SetGlobal("Match", L.NewFunction(func(L *lua.LState) int {
		coll.match = L.CheckTable(1)
		return 0
	}))

	curried(L, "ZoneType", func(id string, tbl *lua.LTable) {
		coll.zoneTypes = append(coll.zoneTypes, rawNamed{id: id, table: tbl, order: coll.nextSourceOrder()})
	})

	// Hero "alice" { hp = 30, deck = { Unit "a1" {...}, ... } }
	curried(L, "Hero", func(id string, tbl *lua.LTable) {
		coll.heroes = append(coll.heroes, rawNamed{id: id, table: tbl, order: coll.nextSourceOrder()})
	})

	// Trigger "id" { on = "UNIT_DIED", when = {...}, intent = Intent(...) }
	curried(L, "Trigger", func(id string, tbl *lua.LTable) {
		coll.triggers = append(coll.triggers, rawNamed{id: id, table: tbl, order: coll.nextSourceOrder()})
	})

	// Replacement "id" { priority = 1, command = "DEAL_DAMAGE", action = Veto() }
	curried(L, "Replacement", func(id string, tbl *lua.LTable) {
		coll.replacements = append(coll.replacements, rawNamed{id: id, table: tbl, order: coll.nextSourceOrder()})
	})

	// Modifier "id" { attribute = "power", layer = 1, op = Add(2) }
	curried(L, "Modifier", func(id string, tbl *lua.LTable) {
		coll.modifiers = append(coll.modifiers, rawNamed{id: id, table: tbl, order: coll.nextSourceOrder()})
	})

	// PauseOn("UNIT_DIED", "unit_died")
	L.SetGlobal("PauseOn", L.NewFunction(func(L *lua.LState) int {
		evt := L.CheckString(1)
		reason := L.OptString(2, evt)
		coll.pauses = append(coll.pauses, rawPause{event: evt, reason: reason})
		return 0
	}))

	// Intent("DRAW_CARD", { player = "$event.owner" }, priority)
	L.SetGlobal("Intent", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString(L.CheckString(1)))
		tbl.RawSetString("payload", L.OptTable(2, L.NewTable()))
		tbl.RawSetString("priority", lua.LNumber(L.OptInt(3, 0)))
		L.Push(tbl)
		return 1
	}))
}

// registerCardConstructors registers Unit, Spell and Card. Unlike the
// top-level constructors they return the card so it can sit in a zone list.
func registerCardConstructors(L *lua.LState) {
	card := func(kind string) lua.LGFunction {
		return func(L *lua.LState) int {
			id := L.CheckString(1)
			L.Push(L.NewFunction(func(L *lua.LState) int {
				attrs := L.CheckTable(1)
				k := kind
				if k == "" {
					k = getString(attrs, "kind")
				}
				tbl := L.NewTable()
				tbl.RawSetString("id", lua.LString(id))
				tbl.RawSetString("kind", lua.LString(k))
				tbl.RawSetString("attrs", attrs)
				L.Push(tbl)
				return 1
			}))
			return 1
		}
	}
	L.SetGlobal("Unit", L.NewFunction(card("unit")))
	L.SetGlobal("Spell", L.NewFunction(card("spell")))
	// Card "id" { kind = "relic", ... }
	L.SetGlobal("Card", L.NewFunction(card("")))
}

// descriptor returns a helper that packs its positional arguments into
// { [tag] = kind, params = { names[i] = arg i } }. Nil arguments are left out.
func descriptor(tag, kind string, names ...string) lua.LGFunction {
	return func(L *lua.LState) int {
		params := L.NewTable()
		for i, name := range names {
			if v := L.Get(i + 1); v != lua.LNil {
				params.RawSetString(name, v)
			}
		}
		tbl := L.NewTable()
		tbl.RawSetString(tag, lua.LString(kind))
		tbl.RawSetString("params", params)
		L.Push(tbl)
		return 1
	}
}

// combinator returns a helper whose arguments are inner conditions.
func combinator(kind string) lua.LGFunction {
	return func(L *lua.LState) int {
		inner := L.NewTable()
		for i := 1; i <= L.GetTop(); i++ {
			inner.Append(L.CheckTable(i))
		}
		tbl := L.NewTable()
		tbl.RawSetString("type", lua.LString(kind))
		tbl.RawSetString("inner", inner)
		L.Push(tbl)
		return 1
	}
}

// custom returns a helper for registered kinds: Name("kind", { params }).
func custom(tag string) lua.LGFunction {
	return func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString(tag, lua.LString(L.CheckString(1)))
		tbl.RawSetString("params", L.OptTable(2, L.NewTable()))
		if tag == "type" {
			inner := L.NewTable()
			for i := 3; i <= L.GetTop(); i++ {
				inner.Append(L.CheckTable(i))
			}
			tbl.RawSetString("inner", inner)
		}
		L.Push(tbl)
		return 1
	}
}

func registerConditionHelpers(L *lua.LState) {
	helpers := map[string]lua.LGFunction{
		"Always":          descriptor("type", "always"),
		"Not":             combinator("not"),
		"All":             combinator("all"),
		"Any":             combinator("any"),
		"EventIs":         descriptor("type", "event_is", "type"),
		"EventPayloadEq":  descriptor("type", "event_payload_eq", "key", "value"),
		"CommandIs":       descriptor("type", "command_is", "type"),
		"PayloadEq":       descriptor("type", "payload_eq", "key", "value"),
		"AttrEq":          descriptor("type", "attr_eq", "entity", "attr", "value"),
		"AttrGt":          descriptor("type", "attr_gt", "entity", "attr", "value"),
		"AttrLt":          descriptor("type", "attr_lt", "entity", "attr", "value"),
		"InZone":          descriptor("type", "in_zone", "entity", "zone"),
		"ZoneTypeIs":      descriptor("type", "zone_type_is", "entity", "type"),
		"OwnerIs":         descriptor("type", "owner_is", "entity", "player"),
		"ActivePlayer":    descriptor("type", "active_player", "player"),
		"PhaseIs":         descriptor("type", "phase_is", "phase"),
		"TurnGt":          descriptor("type", "turn_gt", "value"),
		"OutcomeHasEvent": descriptor("type", "outcome_has_event", "type"),
		// Condition("kind", { params }, inner...)
		"Condition": custom("type"),
	}
	for name, fn := range helpers {
		L.SetGlobal(name, L.NewFunction(fn))
	}
}

func registerOpHelpers(L *lua.LState) {
	helpers := map[string]lua.LGFunction{
		// Modifier transforms.
		"Add": descriptor("op", "add", "value"),
		"Mul": descriptor("op", "mul", "value"),
		"Set": descriptor("op", "set", "value"),
		"Min": descriptor("op", "min", "value"),
		"Max": descriptor("op", "max", "value"),
		// Replacement actions.
		"Veto":         descriptor("op", "veto"),
		"ReplaceEvent": descriptor("op", "replace_event", "from", "to"),
		"ClampAttr":    descriptor("op", "clamp_attr", "attr", "min"),
		"ScaleAttr":    descriptor("op", "scale_attr", "attr", "factor", "divisor"),
		"AddEvent":     descriptor("op", "add_event", "type", "payload"),
		"DropIntents":  descriptor("op", "drop_intents"),
		// Registered kinds.
		"Transform": custom("op"),
		"Action":    custom("op"),
	}
	for name, fn := range helpers {
		L.SetGlobal(name, L.NewFunction(fn))
	}
}

func registerScriptHelpers(L *lua.LState, coll *collector) {
	// Do("PLAY_UNIT", { player = "alice", card = "a1" })
	L.SetGlobal("Do", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("command", lua.LString(L.CheckString(1)))
		tbl.RawSetString("payload", L.OptTable(2, L.NewTable()))
		coll.script = append(coll.script, tbl)
		return 0
	}))

	// Choose("a7") or Choose({ "a7", "a9" }) answers the pending choice.
	L.SetGlobal("Choose", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("choose", L.CheckAny(1))
		coll.script = append(coll.script, tbl)
		return 0
	}))
}
