// Package pagetable installs and removes address-space mappings,
// specialized to the one mapping shape this core needs: a ring's double
// mapping of its payload frames.
//
// A real kernel would install two page-table entries per payload frame
// pointing at the same physical page. This process has no separate address
// spaces to edit, so the "page table edit" is done for real against the
// host OS's own page tables: the book+payload frames live in a shared memfd
// (internal/pagepool), and this package mmaps that memfd twice into the
// calling process's address space, back to back, so the two views genuinely
// alias the same physical memory.
package pagetable

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/teachos/ipckernel/internal/pagepool"
)

// Editor installs and removes double mappings backed by a page pool's memfd.
type Editor struct {
	pool *pagepool.Pool
}

// New returns an editor that maps frames out of pool.
func New(pool *pagepool.Pool) *Editor {
	return &Editor{pool: pool}
}

// MapRingDouble maps one book frame followed by payloadPages contiguous
// payload frames (starting at book+1) at a fresh virtual base, then maps the
// same payload frames again immediately afterwards. The returned base
// addresses a region of (1+2*payloadPages)*PageSize bytes:
//
//	[base,                      base+PageSize)                    -> book
//	[base+PageSize,             base+(1+payloadPages)*PageSize)    -> payload, copy 1
//	[base+(1+payloadPages)*PageSize, base+(1+2*payloadPages)*PageSize) -> payload, copy 2 (alias)
func (e *Editor) MapRingDouble(book pagepool.PageID, payloadPages int) (uintptr, error) {
	total := (1 + 2*payloadPages) * pagepool.PageSize

	// Reserve a hole in the address space big enough for both mappings. The
	// kernel won't place anything else inside a range we're still holding,
	// so replacing parts of it with MAP_FIXED below is safe.
	reservation, err := unix.Mmap(-1, 0, total, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, fmt.Errorf("pagetable: reserve address space: %w", err)
	}
	base := uintptr(unsafe.Pointer(&reservation[0]))

	firstLen := (1 + payloadPages) * pagepool.PageSize
	if _, err := rawMmapFixed(base, uintptr(firstLen), e.pool.FD(), int64(book)*pagepool.PageSize); err != nil {
		_ = unix.Munmap(reservation)
		return 0, fmt.Errorf("pagetable: map book+payload: %w", err)
	}

	secondLen := payloadPages * pagepool.PageSize
	secondAddr := base + uintptr(firstLen)
	secondOff := int64(book+1) * pagepool.PageSize
	if _, err := rawMmapFixed(secondAddr, uintptr(secondLen), e.pool.FD(), secondOff); err != nil {
		_ = rawMunmap(base, uintptr(total))
		return 0, fmt.Errorf("pagetable: map magic payload copy: %w", err)
	}

	return base, nil
}

// Unmap removes a region previously installed by MapRingDouble.
func (e *Editor) Unmap(base uintptr, payloadPages int) error {
	total := uintptr((1 + 2*payloadPages) * pagepool.PageSize)
	if err := rawMunmap(base, total); err != nil {
		return fmt.Errorf("pagetable: unmap: %w", err)
	}
	return nil
}

// rawMmapFixed performs a MAP_FIXED|MAP_SHARED mapping of fd at offset onto
// an address range previously reserved by the caller. golang.org/x/sys/unix
// has no Mmap variant that accepts a caller-chosen address, so this goes
// straight to the syscall, the same way userspace ring-buffer libraries do.
func rawMmapFixed(addr, length uintptr, fd int, offset int64) (uintptr, error) {
	r1, _, errno := unix.Syscall6(
		unix.SYS_MMAP,
		addr, length,
		uintptr(unix.PROT_READ|unix.PROT_WRITE),
		uintptr(unix.MAP_SHARED|unix.MAP_FIXED),
		uintptr(fd), uintptr(offset),
	)
	if errno != 0 {
		return 0, errno
	}
	return r1, nil
}

func rawMunmap(addr, length uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_MUNMAP, addr, length, 0)
	if errno != 0 {
		return errno
	}
	return nil
}
