// Package handle implements a per-process ring handle table: a small fixed
// table mapping a descriptor index to the ring it refers to and the user
// virtual base address of its mapping.
package handle

import (
	"sync"

	"github.com/teachos/ipckernel/internal/bitset"
	"github.com/teachos/ipckernel/internal/ring"
)

// MaxPerProc bounds how many rings one process may have bound at once.
const MaxPerProc = 16

// Entry is one handle table row.
type Entry struct {
	Ring *ring.Buffer
	Base uintptr
}

// Table is one process's handle table. Every method takes the table's
// lock, so concurrent calls (such as the exit path's concurrent ring
// teardown) are safe.
type Table struct {
	mu      sync.Mutex
	slots   bitset.SlotSet
	entries [MaxPerProc]Entry
}

// New returns an empty handle table.
func New() *Table {
	return &Table{}
}

// Insert records a new handle for r's mapping at base, returning its
// descriptor index. Returns ok=false if the table is full.
func (t *Table) Insert(r *ring.Buffer, base uintptr) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.slots.FirstFree(MaxPerProc)
	if !ok {
		return 0, false
	}
	t.slots.Set(idx)
	t.entries[idx] = Entry{Ring: r, Base: base}
	return int(idx), true
}

// Remove frees the handle at idx.
func (t *Table) Remove(idx int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.slots.Clear(uint32(idx))
	t.entries[idx] = Entry{}
}

// FindByName looks up the handle bound to the ring named name. Closing a
// ring is resolved this way, by name, rather than by a separately-passed
// descriptor.
func (t *Table) FindByName(name ring.Name) (int, Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := 0; i < MaxPerProc; i++ {
		if t.slots.Test(uint32(i)) && t.entries[i].Ring.Name() == name {
			return i, t.entries[i], true
		}
	}
	return 0, Entry{}, false
}

// All returns every in-use handle.
func (t *Table) All() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Entry
	for i := 0; i < MaxPerProc; i++ {
		if t.slots.Test(uint32(i)) {
			out = append(out, t.entries[i])
		}
	}
	return out
}
