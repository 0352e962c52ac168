// Package ringbind installs and removes the double-mapped user region for a
// ring in a process's address space, subject to that process's virtual
// address-space budget.
package ringbind

import (
	"errors"
	"fmt"

	"github.com/teachos/ipckernel/internal/pagepool"
	"github.com/teachos/ipckernel/internal/pagetable"
	"github.com/teachos/ipckernel/internal/proc"
)

// PayloadPages is the number of payload pages a ring's mapping aliases
// twice.
const PayloadPages = 16

// TotalPages is the full size, in pages, of a ring's user-visible mapping:
// one book page, one copy of the payload, and the magic second copy.
const TotalPages = 1 + 2*PayloadPages

// ErrAddressSpaceFull is returned when the caller has insufficient virtual
// address-space budget for the mapping.
var ErrAddressSpaceFull = errors.New("ringbind: insufficient virtual address space")

// Binder installs and removes ring double mappings.
type Binder struct {
	editor *pagetable.Editor
}

// New returns a binder that maps frames through editor.
func New(editor *pagetable.Editor) *Binder {
	return &Binder{editor: editor}
}

// Bind installs the 33-page double mapping for the ring whose book frame is
// book (payload frames are book+1 .. book+PayloadPages, contiguous) into
// caller's simulated address space. Returns the user virtual base.
func (b *Binder) Bind(caller *proc.Process, book pagepool.PageID) (uintptr, error) {
	if !caller.TryReserve(TotalPages) {
		return 0, ErrAddressSpaceFull
	}

	base, err := b.editor.MapRingDouble(book, PayloadPages)
	if err != nil {
		caller.Release(TotalPages)
		return 0, fmt.Errorf("ringbind: bind: %w", err)
	}
	return base, nil
}

// Unbind removes a mapping previously installed by Bind and returns its
// virtual-address-space budget to caller.
func (b *Binder) Unbind(caller *proc.Process, base uintptr) error {
	if err := b.editor.Unmap(base, PayloadPages); err != nil {
		return fmt.Errorf("ringbind: unbind: %w", err)
	}
	caller.Release(TotalPages)
	return nil
}
