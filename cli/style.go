package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/duelcore/engine"
	"github.com/nathoo/duelcore/types"
)

// styles are bound to the output's renderer, so piped output and test
// buffers get plain text.
type styles struct {
	status   lipgloss.Style
	event    lipgloss.Style
	eventKey lipgloss.Style
	system   lipgloss.Style
	error    lipgloss.Style
	trace    lipgloss.Style
	gameOver lipgloss.Style
}

func newStyles(w io.Writer) *styles {
	r := lipgloss.NewRenderer(w)
	return &styles{
		status: r.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true),
		event:    r.NewStyle().Foreground(lipgloss.Color("255")),
		eventKey: r.NewStyle().Foreground(lipgloss.Color("228")).Bold(true),
		system:   r.NewStyle().Foreground(lipgloss.Color("243")),
		error:    r.NewStyle().Foreground(lipgloss.Color("196")),
		trace:    r.NewStyle().Foreground(lipgloss.Color("240")),
		gameOver: r.NewStyle().Foreground(lipgloss.Color("34")).Bold(true),
	}
}

func (c *CLI) style() *styles {
	if c.styles == nil {
		c.styles = newStyles(c.Out)
	}
	return c.styles
}

// formatPayload renders "TYPE k=v k=v" with keys sorted.
func formatPayload(typ string, payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(typ)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, payload[k])
	}
	return b.String()
}

func (c *CLI) printEvents(batch []types.DomainEvent) {
	for _, evt := range batch {
		line := formatPayload(evt.Type, evt.Payload)
		switch evt.Type {
		case types.EventCommandRejected, types.EventCommandVetoed:
			c.printLine(c.style().error.Render(line))
		case types.EventGameOver:
			c.printLine(c.style().gameOver.Render(line))
		default:
			rest := strings.TrimPrefix(line, evt.Type)
			c.printLine(c.style().eventKey.Render(evt.Type) + c.style().event.Render(rest))
		}
		if c.Trace && evt.Source != "" {
			c.printTrace(fmt.Sprintf("[trace]   from %s", evt.Source))
		}
	}
}

func (c *CLI) printRun(res engine.RunResult) {
	if c.Trace {
		c.printTrace(fmt.Sprintf("[trace] %d command(s), %s", res.Steps, res.Status))
	}
	switch res.Status {
	case engine.StatusPaused:
		c.printSystem("Paused: " + res.Pause.Reason)
		if p := c.Engine.Choices().Pending(); p != nil {
			c.printSystem(fmt.Sprintf("%s chooses from: %s", p.Player, strings.Join(p.Selector.Options, ", ")))
		}
	case engine.StatusCycle:
		c.printError("Stopped: the engine is repeating itself.")
	case engine.StatusMaxSteps:
		c.printError(fmt.Sprintf("Stopped after %d commands.", res.Steps))
	}
	c.printStatus()
}

func (c *CLI) printStatus() {
	s := c.Engine.State()
	if s == nil {
		return
	}
	text := fmt.Sprintf(" Turn %d | %s to act | %s ", s.Turn.Number, s.Turn.ActivePlayer, s.Turn.Phase)
	if s.Turn.Winner != "" {
		text = fmt.Sprintf(" Turn %d | %s wins ", s.Turn.Number, s.Turn.Winner)
	}
	if c.Engine.Replaying() {
		text += "| replay "
	}
	c.printLine(c.style().status.Render(text))
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	c.printLine(c.style().system.Render("[" + text + "]"))
}

func (c *CLI) printError(text string) {
	c.printLine(c.style().error.Render(text))
}

func (c *CLI) printTrace(text string) {
	c.printLine(c.style().trace.Render(text))
}
