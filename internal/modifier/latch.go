package modifier

import "github.com/roach88/modset/internal/tree"

// Latch records the last externally committed availability of a node.
//
// It is written by the child availability listener outside cascade
// passes and read by SetModels. An unlatched node is treated as still
// available. Entries are cleared when the owning node is reset or
// becomes incomplete again.
type Latch struct {
	values map[tree.ID]bool
}

// NewLatch creates an empty latch table.
func NewLatch() *Latch {
	return &Latch{values: make(map[tree.ID]bool)}
}

// Set records v for id.
func (l *Latch) Set(id tree.ID, v bool) {
	l.values[id] = v
}

// Get returns the latched value for id and whether one exists.
func (l *Latch) Get(id tree.ID) (bool, bool) {
	v, ok := l.values[id]
	return v, ok
}

// StillAvailable returns the latched value, defaulting to true.
func (l *Latch) StillAvailable(id tree.ID) bool {
	if v, ok := l.values[id]; ok {
		return v
	}
	return true
}

// Clear forgets id. Returns whether an entry existed.
func (l *Latch) Clear(id tree.ID) bool {
	_, ok := l.values[id]
	delete(l.values, id)
	return ok
}

// Len returns the number of latched nodes.
func (l *Latch) Len() int {
	return len(l.values)
}
