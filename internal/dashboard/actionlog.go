package dashboard

import (
	"time"

	"pilgrimwatch/internal/telemetry"
)

// LogEntry is one line of the action log.
type LogEntry struct {
	Icon        string
	Description string
	Level       telemetry.AlertLevel
	At          time.Time
}

// ActionLog is a bounded, most-recent-first list. Push returns a new log and
// leaves the receiver untouched.
type ActionLog struct {
	entries  []LogEntry
	capacity int
}

// NewActionLog returns an empty log holding at most capacity entries.
func NewActionLog(capacity int) ActionLog {
	if capacity < 1 {
		capacity = 1
	}
	return ActionLog{capacity: capacity}
}

// Push prepends e, dropping the oldest entry when the log is full.
func (l ActionLog) Push(e LogEntry) ActionLog {
	keep := len(l.entries)
	if keep >= l.capacity {
		keep = l.capacity - 1
	}
	out := make([]LogEntry, 0, keep+1)
	out = append(out, e)
	out = append(out, l.entries[:keep]...)
	return ActionLog{entries: out, capacity: l.capacity}
}

// Clear returns an empty log with the same capacity.
func (l ActionLog) Clear() ActionLog { return ActionLog{capacity: l.capacity} }

// Entries returns the entries, newest first. The slice must not be modified.
func (l ActionLog) Entries() []LogEntry { return l.entries }

// Len returns the number of entries.
func (l ActionLog) Len() int { return len(l.entries) }

// Cap returns the capacity.
func (l ActionLog) Cap() int { return l.capacity }
