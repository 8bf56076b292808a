package command

import (
	"github.com/nathoo/duelcore/engine/state"
	"github.com/nathoo/duelcore/types"
)

// Log is the ordered record of every executed command, accepted or not.
// It keeps a replay cursor independent of appends.
type Log struct {
	entries []types.CommandEntry
	cursor  int
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// NewLogFrom creates a log pre-filled with entries, cursor at the start.
func NewLogFrom(entries []types.CommandEntry) *Log {
	l := &Log{}
	for _, e := range entries {
		l.Append(e)
	}
	return l
}

// Append records a command. The payload is deep-copied so later mutation by
// the caller cannot rewrite history.
func (l *Log) Append(entry types.CommandEntry) {
	l.entries = append(l.entries, types.CommandEntry{
		Type:    entry.Type,
		Payload: state.CopyAttrs(entry.Payload),
	})
}

// Record appends the log entry for a live command.
func (l *Log) Record(cmd types.Command) {
	l.Append(types.CommandEntry{Type: cmd.Type(), Payload: cmd.Payload()})
}

// Len returns the number of entries.
func (l *Log) Len() int { return len(l.entries) }

// Entries returns a deep copy of all entries in execution order.
func (l *Log) Entries() []types.CommandEntry {
	out := make([]types.CommandEntry, len(l.entries))
	for i, e := range l.entries {
		out[i] = types.CommandEntry{Type: e.Type, Payload: state.CopyAttrs(e.Payload)}
	}
	return out
}

// Next returns the entry under the replay cursor and advances it.
func (l *Log) Next() (types.CommandEntry, bool) {
	if l.cursor >= len(l.entries) {
		return types.CommandEntry{}, false
	}
	e := l.entries[l.cursor]
	l.cursor++
	return e, true
}

// Cursor returns the replay cursor position.
func (l *Log) Cursor() int { return l.cursor }

// Reset clears entries and cursor.
func (l *Log) Reset() {
	l.entries = nil
	l.cursor = 0
}
