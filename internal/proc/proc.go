// Package proc models process identity: the "killed" predicate blocking
// primitives must honor, and the per-process virtual-address-space budget
// the ring binder draws against when it maps a new ring into a process.
package proc

import (
	"sync"
	"sync/atomic"
)

// ID is an opaque process identity token, suitable as an owner-set entry.
// The zero value never identifies a real process; it is used as the
// empty-slot sentinel in owner sets.
type ID uint64

// Process is one schedulable entity in this core's simplified process model.
type Process struct {
	ID     ID
	killed atomic.Bool

	mu              sync.Mutex
	addrBudgetPages int
	boundPages      int
}

// Killed reports whether the process has been marked for termination.
// Blocking primitives poll this on every wakeup and before every blocking
// step, so a killed waiter unblocks instead of sleeping forever.
func (p *Process) Killed() bool {
	return p.killed.Load()
}

// Kill marks the process for termination.
func (p *Process) Kill() {
	p.killed.Store(true)
}

// TryReserve claims pages of virtual-address-space budget for a new ring
// binding. Returns false (no side effect) if the process has insufficient
// remaining budget, which the ring binder surfaces as AddressSpaceFull.
func (p *Process) TryReserve(pages int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.boundPages+pages > p.addrBudgetPages {
		return false
	}
	p.boundPages += pages
	return true
}

// Release returns pages of virtual-address-space budget, e.g. after
// unbinding a ring.
func (p *Process) Release(pages int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.boundPages -= pages
}

// Table is the process-wide table of live processes.
type Table struct {
	mu     sync.Mutex
	nextID ID
	procs  map[ID]*Process
}

// NewTable returns an empty process table.
func NewTable() *Table {
	return &Table{procs: make(map[ID]*Process), nextID: 1}
}

// Spawn creates and registers a new process with the given virtual
// address-space budget, expressed in pages.
func (t *Table) Spawn(addrBudgetPages int) *Process {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := &Process{ID: t.nextID, addrBudgetPages: addrBudgetPages}
	t.procs[p.ID] = p
	t.nextID++
	return p
}

// Exit removes p from the table. Callers are responsible for releasing any
// resources p held before or after calling Exit; Exit itself only retires
// the process identity so it can never again be looked up or reused.
func (t *Table) Exit(p *Process) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.procs, p.ID)
}

// Lookup returns the live process with the given ID, if any.
func (t *Table) Lookup(id ID) (*Process, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.procs[id]
	return p, ok
}
