// Package pagepool implements a page-granular physical frame allocator:
// alloc and free in units of one page, zeroing on free.
//
// The pool is backed by a single anonymous memfd so that a page handed out
// here can later be mapped into a user address space twice over the same
// physical frame by internal/pagetable — the memfd is what makes the
// magic/double ring-buffer mapping a real aliasing of physical memory rather
// than a copy.
package pagepool

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PageSize is the page granularity of the pool.
const PageSize = 4096

// PageID identifies a physical frame by its offset (in pages) into the
// pool's backing memfd.
type PageID uint32

// Pool is a page-granular physical frame allocator.
type Pool struct {
	fd       int
	arena    []byte
	capacity PageID
	used     []bool
}

// New creates a pool with room for capacity pages, all initially free and
// zeroed.
func New(capacity PageID) (*Pool, error) {
	fd, err := unix.MemfdCreate("ipckernel-pagepool", 0)
	if err != nil {
		return nil, fmt.Errorf("pagepool: memfd_create: %w", err)
	}

	size := int64(capacity) * PageSize
	if err := unix.Ftruncate(fd, size); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("pagepool: ftruncate: %w", err)
	}

	arena, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("pagepool: mmap: %w", err)
	}

	return &Pool{
		fd:       fd,
		arena:    arena,
		capacity: capacity,
		used:     make([]bool, capacity),
	}, nil
}

// Close unmaps and releases the pool's backing memfd. Callers must ensure no
// page from this pool is still mapped into a user address space.
func (p *Pool) Close() error {
	if err := unix.Munmap(p.arena); err != nil {
		return fmt.Errorf("pagepool: munmap: %w", err)
	}
	return unix.Close(p.fd)
}

// FD returns the file descriptor backing the pool, for use by
// internal/pagetable when mapping frames into a user address space.
func (p *Pool) FD() int {
	return p.fd
}

// Bytes returns the kernel-visible view of frame id, length PageSize.
func (p *Pool) Bytes(id PageID) []byte {
	off := int(id) * PageSize
	return p.arena[off : off+PageSize]
}

// AllocRun allocates n physically contiguous frames and returns the id of
// the first one. Returns ok=false if no contiguous run of n free frames
// exists.
func (p *Pool) AllocRun(n int) (PageID, bool) {
	if n <= 0 {
		return 0, false
	}

	run := 0
	for i := 0; i < int(p.capacity); i++ {
		if p.used[i] {
			run = 0
			continue
		}
		run++
		if run == n {
			start := i - n + 1
			for j := start; j <= i; j++ {
				p.used[j] = true
			}
			return PageID(start), true
		}
	}
	return 0, false
}

// FreeRun zeroes and releases the n frames starting at id.
func (p *Pool) FreeRun(id PageID, n int) {
	for i := 0; i < n; i++ {
		frame := int(id) + i
		off := frame * PageSize
		clear(p.arena[off : off+PageSize])
		p.used[frame] = false
	}
}

// Capacity returns the total number of pages the pool manages.
func (p *Pool) Capacity() PageID {
	return p.capacity
}
