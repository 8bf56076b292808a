// Package cli provides terminal I/O, output formatting, and meta-command
// dispatch for the duelcore engine.
package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nathoo/duelcore/engine"
	"github.com/nathoo/duelcore/engine/save"
	"github.com/nathoo/duelcore/types"
)

// CLI drives an engine from line input. A line is either a command
// ("PLAY_UNIT player=alice card=a1" or "END_TURN {"player":"alice"}"), a
// choice answer ("choose a1" or "choose a1,a2"), or a /meta command.
type CLI struct {
	Engine    *engine.Engine
	In        io.Reader
	Out       io.Writer
	ReplayDir string
	MaxSteps  int
	Trace     bool
	Manual    bool // queue commands without running them; use /step and /run
	EchoInput bool // echo each input line after the prompt (for script playback)
	lastCmd   string
	styles    *styles
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine) *CLI {
	home, _ := os.UserHomeDir()
	return &CLI{
		Engine:    eng,
		In:        os.Stdin,
		Out:       os.Stdout,
		ReplayDir: filepath.Join(home, ".duelcore", "replays"),
	}
}

// Run loops: prompt, input, dispatch, output. It returns at end of input or
// on /quit.
func (c *CLI) Run() {
	unsubscribe := c.Engine.Bus().Subscribe(c.printEvents)
	defer unsubscribe()

	c.printStatus()
	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" || strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		if strings.HasPrefix(input, "/") {
			if c.handleMeta(input) {
				return
			}
			continue
		}

		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printSystem("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}
		c.handleInput(input)
	}
}

func (c *CLI) handleInput(input string) {
	word, rest, _ := strings.Cut(input, " ")
	if strings.EqualFold(word, "choose") {
		c.cmdChoose(strings.TrimSpace(rest))
		return
	}

	payload, err := ParsePayload(rest)
	if err != nil {
		c.printError(fmt.Sprintf("Bad payload: %v", err))
		return
	}
	entry := types.CommandEntry{Type: strings.ToUpper(word), Payload: payload}
	if err := c.Engine.EnqueueEntry(entry); err != nil {
		c.printError(err.Error())
		return
	}
	if !c.Manual {
		c.run(c.MaxSteps)
	}
}

// handleMeta dispatches meta-commands. Returns true if the session should end.
func (c *CLI) handleMeta(input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/help":
		c.cmdHelp()

	case "/step":
		c.cmdStep()

	case "/run":
		n := c.MaxSteps
		if arg != "" {
			v, err := strconv.Atoi(arg)
			if err != nil {
				c.printError(fmt.Sprintf("Bad step count %q", arg))
				return false
			}
			n = v
		}
		c.run(n)

	case "/state":
		c.cmdState()

	case "/view":
		c.cmdView(arg)

	case "/hash":
		c.printSystem("Hash: " + c.Engine.GetViewHash())

	case "/pending":
		c.cmdPending()

	case "/log":
		for i, entry := range c.Engine.Log().Entries() {
			c.printLine(fmt.Sprintf("%3d %s", i+1, formatPayload(entry.Type, entry.Payload)))
		}

	case "/export":
		c.cmdExport(arg)

	case "/import":
		c.cmdImport(arg)

	case "/resume":
		c.Engine.ResumeLive()
		c.printSystem("Live play resumed.")

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) run(maxSteps int) {
	res, err := c.Engine.RunUntilIdle(maxSteps)
	if err != nil {
		c.printError(fmt.Sprintf("Engine halted: %v", err))
		return
	}
	c.printRun(res)
}

func (c *CLI) cmdStep() {
	res, err := c.Engine.Step()
	if err != nil {
		c.printError(fmt.Sprintf("Engine halted: %v", err))
		return
	}
	if c.Trace && res.Command != "" {
		c.printTrace(fmt.Sprintf("[trace] step %s -> %s", res.Command, res.Status))
	}
	if res.Pause != nil {
		c.printSystem("Paused: " + res.Pause.Reason)
	} else if res.Status == engine.StatusIdle {
		c.printSystem("Idle.")
	}
}

func (c *CLI) cmdChoose(arg string) {
	pending := c.Engine.Choices().Pending()
	if pending == nil {
		c.printError("No choice is pending.")
		return
	}
	var selection any = arg
	if strings.Contains(arg, ",") {
		var picks []string
		for _, p := range strings.Split(arg, ",") {
			picks = append(picks, strings.TrimSpace(p))
		}
		selection = picks
	}
	if !c.Engine.ProvideChoice(pending.ID, selection) {
		c.printError(fmt.Sprintf("%q is not a valid answer; options: %s", arg, strings.Join(pending.Selector.Options, ", ")))
		return
	}
	if !c.Manual {
		c.run(c.MaxSteps)
	}
}

func (c *CLI) cmdPending() {
	p := c.Engine.Choices().Pending()
	if p == nil {
		c.printSystem("No choice is pending.")
		return
	}
	c.printSystem(fmt.Sprintf("Choice for %s from %s: %s (pick %d-%d)",
		p.Player, p.Source, strings.Join(p.Selector.Options, ", "), max(p.Selector.Min, 1), max(p.Selector.Max, 1)))
}

func (c *CLI) cmdExport(name string) {
	if name == "" {
		name = "replay"
	}
	if err := os.MkdirAll(c.ReplayDir, 0o755); err != nil {
		c.printError(fmt.Sprintf("Export failed: %v", err))
		return
	}
	path := filepath.Join(c.ReplayDir, name+".json")
	if err := save.WriteFile(path, c.Engine.ExportReplay()); err != nil {
		c.printError(fmt.Sprintf("Export failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Replay exported to %s (%d commands).", path, c.Engine.Log().Len()))
}

func (c *CLI) cmdImport(name string) {
	if name == "" {
		name = "replay"
	}
	blob, err := save.ReadFile(filepath.Join(c.ReplayDir, name+".json"))
	if err != nil {
		c.printError(fmt.Sprintf("Import failed: %v", err))
		return
	}
	if err := c.Engine.ImportReplay(*blob); err != nil {
		c.printError(fmt.Sprintf("Import failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Replay %s loaded (%d commands). /run to play it back, /resume to continue live.", name, len(blob.Commands)))
}

func (c *CLI) cmdHelp() {
	help := []string{
		"Commands:",
		"  TYPE key=value ...  Queue a command and run until idle",
		"  TYPE {json}         Same, with a JSON payload",
		"  choose <a>[,<b>]    Answer the pending choice",
		"  again (g)           Repeat the last command",
		"",
		"System:",
		"  /step          Execute one command",
		"  /run [n]       Run until idle, at most n commands",
		"  /state         Show heroes, zones and the turn",
		"  /view [player] Dump the (redacted) state as JSON",
		"  /hash          Show the state hash",
		"  /pending       Show the pending choice",
		"  /log           Show the command log",
		"  /export [name] Export a replay (default: replay)",
		"  /import [name] Load a replay",
		"  /resume        Leave replay mode",
		"  /trace         Toggle trace output",
		"  /quit          Exit",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdState() {
	s := c.Engine.State()
	if s == nil {
		c.printSystem("No match.")
		return
	}
	c.printStatus()
	for _, id := range s.Turn.Seats {
		p := s.Players[id]
		c.printLine(fmt.Sprintf("%s  hp %v  armor %v  mana %v/%v",
			id, p.Attrs["hp"], p.Attrs["armor"], p.Attrs["mana"], p.Attrs["max_mana"]))
	}
	zones := make([]string, 0, len(s.Zones))
	for id := range s.Zones {
		zones = append(zones, id)
	}
	sort.Strings(zones)
	for _, id := range zones {
		c.printLine(fmt.Sprintf("  %-18s %s", id, strings.Join(s.Zones[id].Entities, " ")))
	}
}

func (c *CLI) cmdView(player string) {
	view := c.Engine.GetView()
	if player != "" {
		view = c.Engine.ViewFor(player)
	}
	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		c.printError(err.Error())
		return
	}
	c.printLine(string(data))
}

// ParsePayload reads "key=value ..." pairs or a JSON object. Values that
// parse as integers or booleans keep those types.
func ParsePayload(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	payload := map[string]any{}
	if text == "" {
		return payload, nil
	}
	if strings.HasPrefix(text, "{") {
		if err := json.Unmarshal([]byte(text), &payload); err != nil {
			return nil, err
		}
		return payload, nil
	}
	for _, field := range strings.Fields(text) {
		k, v, ok := strings.Cut(field, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", field)
		}
		payload[k] = parseValue(v)
	}
	return payload, nil
}

func parseValue(v string) any {
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}
