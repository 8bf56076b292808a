// Package loader loads Lua scenario files into Go structs. A scenario names
// the starting heroes and cards, extra zone types, triggers, replacements,
// modifiers, pause rules and a scripted command sequence. The Lua VM is
// discarded after loading; nothing Lua runs during a match.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// collector accumulates Lua definitions during file execution.
type collector struct {
	match        *lua.LTable
	zoneTypes    []rawNamed
	heroes       []rawNamed
	triggers     []rawNamed
	replacements []rawNamed
	modifiers    []rawNamed
	pauses       []rawPause
	script       []*lua.LTable
	order        int
}

func (c *collector) nextSourceOrder() int {
	c.order++
	return c.order
}

// Load reads a scenario from a single .lua file or from every .lua file in a
// directory, compiles it and checks it for internal consistency. Descriptor
// kinds and command types are checked later, against the engine the scenario
// is installed into.
func Load(path string) (*Scenario, error) {
	files, err := discover(path)
	if err != nil {
		return nil, err
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)

	for _, f := range files {
		if err := L.DoFile(f); err != nil {
			return nil, fmt.Errorf("executing %s: %w", filepath.Base(f), err)
		}
	}

	sc, err := compile(coll)
	if err != nil {
		return nil, fmt.Errorf("compiling scenario: %w", err)
	}
	if err := validate(sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// LoadString compiles a scenario from Lua source.
func LoadString(src string) (*Scenario, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)
	if err := L.DoString(src); err != nil {
		return nil, fmt.Errorf("executing scenario: %w", err)
	}

	sc, err := compile(coll)
	if err != nil {
		return nil, fmt.Errorf("compiling scenario: %w", err)
	}
	if err := validate(sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// discover returns the files to execute, match.lua first when loading a
// directory.
func discover(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario directory %s: %w", path, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no .lua files found in %s", path)
	}

	names = sortedLuaFiles(names)
	files := make([]string, len(names))
	for i, n := range names {
		files[i] = filepath.Join(path, n)
	}
	return files, nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	// Base library (print, type, tostring, tonumber, pairs, ipairs, etc.)
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes globals that reach outside the VM or break determinism.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage", "print",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Randomness comes from the engine tape only.
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("randomseed", lua.LNil)
		tbl.RawSetString("random", lua.LNil)
	}
}
