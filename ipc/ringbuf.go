package ipc

import (
	"github.com/teachos/ipckernel/internal/ring"
	"github.com/teachos/ipckernel/internal/ringio"
)

// Op selects the ringbuf syscall's operation.
type Op int

const (
	// OpClose unbinds a ring.
	OpClose Op = 0
	// OpOpen binds (and if necessary creates) a ring.
	OpOpen Op = 1
)

// Ringbuf implements the ringbuf syscall. On OpOpen it returns the user
// virtual base address of the ring's mapping; on OpClose the returned
// address is meaningless and should be ignored.
func (k *Kernel) Ringbuf(p *Process, name string, op Op) (uintptr, error) {
	n, err := ring.ParseName(name)
	if err != nil {
		return 0, err
	}

	switch op {
	case OpOpen:
		return k.ringOpen(p, n)
	case OpClose:
		return 0, k.releaseRing(p, n)
	default:
		return 0, ring.ErrNameInvalid
	}
}

func (k *Kernel) ringOpen(p *Process, name ring.Name) (uintptr, error) {
	r, err := k.registry.Open(p.ID, name)
	if err != nil {
		return 0, err
	}

	base, err := k.binder.Bind(p.Process, r.BookPage())
	if err != nil {
		_ = k.registry.Close(p.ID, name)
		return 0, err
	}

	if _, ok := p.Handles.Insert(r, base); !ok {
		_ = k.binder.Unbind(p.Process, base)
		_ = k.registry.Close(p.ID, name)
		return 0, ring.ErrTableFull
	}

	return base, nil
}

// releaseRing unbinds and closes the ring named name on p's behalf. Used by
// the OpClose syscall path, Exit's cleanup sweep, and OnExec.
func (k *Kernel) releaseRing(p *Process, name ring.Name) error {
	idx, entry, ok := p.Handles.FindByName(name)
	if !ok {
		return ring.ErrNotOwned
	}

	unbindErr := k.binder.Unbind(p.Process, entry.Base)
	p.Handles.Remove(idx)
	closeErr := k.registry.Close(p.ID, name)

	if unbindErr != nil {
		return unbindErr
	}
	return closeErr
}

// RingHandle returns the user-library read/write view over the ring named
// name that p currently has bound, or ok=false if it has none.
func (k *Kernel) RingHandle(p *Process, name string) (*ringio.Handle, bool) {
	n, err := ring.ParseName(name)
	if err != nil {
		return nil, false
	}
	_, entry, ok := p.Handles.FindByName(n)
	if !ok {
		return nil, false
	}
	return ringio.Open(entry.Base), true
}
