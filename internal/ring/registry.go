package ring

import (
	"sync"

	"github.com/teachos/ipckernel/internal/bitset"
	"github.com/teachos/ipckernel/internal/pagepool"
	"github.com/teachos/ipckernel/internal/proc"
)

// FramesPerRing is the number of contiguous physical frames a new ring
// consumes: one book page plus PayloadPages payload pages.
const FramesPerRing = 1 + PayloadPages

// Registry is the process-wide name → Buffer table, guarded by a single
// lock. Entries are scanned linearly and matched by exact byte comparison,
// not hashed — MaxRings is small enough that this is cheaper than it sounds.
type Registry struct {
	mu      sync.Mutex
	pool    *pagepool.Pool
	slots   bitset.SlotSet
	entries [MaxRings]*Buffer
}

// NewRegistry returns an empty registry backing rings with frames from pool.
func NewRegistry(pool *pagepool.Pool) *Registry {
	return &Registry{pool: pool}
}

// lookup returns the ring named name and its slot index, or (nil, -1).
// Caller must hold r.mu.
func (r *Registry) lookup(name Name) (*Buffer, int) {
	for i := 0; i < MaxRings; i++ {
		if r.slots.Test(uint32(i)) && r.entries[i].name == name {
			return r.entries[i], i
		}
	}
	return nil, -1
}

// Open resolves or allocates the ring named name and adds id as an owner.
// On success the returned *Buffer is stable for the ring's lifetime; the
// caller binds it into its address space and must call Close (or have it
// called on exit) to release its ownership.
func (r *Registry) Open(id proc.ID, name Name) (*Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, _ := r.lookup(name); b != nil {
		if b.HasOwner(id) {
			return nil, ErrAlreadyOwned
		}
		if b.OwnerCount() >= 2 {
			return nil, ErrTooManyOwners
		}
		b.addOwner(id)
		return b, nil
	}

	idx, ok := r.slots.FirstFree(MaxRings)
	if !ok {
		return nil, ErrTableFull
	}

	book, ok := r.pool.AllocRun(FramesPerRing)
	if !ok {
		return nil, ErrOutOfMemory
	}

	b := &Buffer{name: name, book: book}
	b.addOwner(id)

	r.entries[idx] = b
	r.slots.Set(idx)
	return b, nil
}

// Close releases id's ownership of the ring named name. When the last owner
// releases, the ring's frames are zeroed and returned to the pool and its
// registry slot is freed.
func (r *Registry) Close(id proc.ID, name Name) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, idx := r.lookup(name)
	if b == nil || !b.HasOwner(id) {
		return ErrNotOwned
	}

	b.removeOwner(id)
	if b.OwnerCount() == 0 {
		r.pool.FreeRun(b.book, FramesPerRing)
		r.entries[idx] = nil
		r.slots.Clear(uint32(idx))
	}
	return nil
}

// OwnedNames returns the names of every ring id currently owns. Used by the
// exit path to release every ring a process still holds without requiring
// the caller to already know which rings it holds.
func (r *Registry) OwnedNames(id proc.ID) []Name {
	r.mu.Lock()
	defer r.mu.Unlock()

	var names []Name
	for i := 0; i < MaxRings; i++ {
		if r.slots.Test(uint32(i)) && r.entries[i].HasOwner(id) {
			names = append(names, r.entries[i].name)
		}
	}
	return names
}
