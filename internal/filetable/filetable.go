// Package filetable is a process's open-file table: small integer
// descriptors mapped to whatever file-like object the ipc façade hands it
// (currently only pipe.End values).
package filetable

import "sync"

// FD is a file descriptor.
type FD int

// Table is a process's open-file table.
type Table struct {
	mu    sync.Mutex
	next  FD
	files map[FD]any
}

// New returns an empty file table.
func New() *Table {
	return &Table{files: make(map[FD]any)}
}

// Alloc installs v under a fresh descriptor and returns it.
func (t *Table) Alloc(v any) FD {
	t.mu.Lock()
	defer t.mu.Unlock()

	fd := t.next
	t.next++
	t.files[fd] = v
	return fd
}

// Get returns the object installed at fd, if any.
func (t *Table) Get(fd FD) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.files[fd]
	return v, ok
}

// Close removes fd from the table, returning the object that was installed
// there.
func (t *Table) Close(fd FD) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.files[fd]
	delete(t.files, fd)
	return v, ok
}
