package command

import (
	"sync"

	"github.com/shuttleops/dispatchboard/core/model"
)

// DefaultUndoDepth bounds undo history memory.
const DefaultUndoDepth = 20

// UndoEntry records a booking's assignment immediately before a mutation.
// CommandID keys the entry to the in-flight command that pushed it, so a
// failure rollback removes exactly its own entry even when mutations for
// other bookings resolve out of order.
type UndoEntry struct {
	CommandID string
	BookingID string
	// Previous is nil when the booking was unassigned.
	Previous *model.Assignment
}

// UndoStack is a bounded LIFO of UndoEntries. Most recent entries are
// popped first; the oldest entry is dropped when the bound is exceeded.
type UndoStack struct {
	mu      sync.Mutex
	entries []UndoEntry
	depth   int
}

// NewUndoStack creates a stack bounded to depth entries. A non-positive
// depth uses DefaultUndoDepth.
func NewUndoStack(depth int) *UndoStack {
	if depth <= 0 {
		depth = DefaultUndoDepth
	}
	return &UndoStack{depth: depth}
}

// Push appends the entry, evicting the oldest beyond the bound.
func (s *UndoStack) Push(e UndoEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	if len(s.entries) > s.depth {
		s.entries = s.entries[len(s.entries)-s.depth:]
	}
}

// Pop removes and returns the most recent entry.
func (s *UndoStack) Pop() (UndoEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return UndoEntry{}, false
	}
	e := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return e, true
}

// RemoveCommand removes every entry pushed by the given command, wherever
// it sits in the stack. Used to roll back a failed mutation without
// touching entries pushed by overlapping commands.
func (s *UndoStack) RemoveCommand(commandID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if e.CommandID == commandID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed
}

// Len returns the current depth.
func (s *UndoStack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
