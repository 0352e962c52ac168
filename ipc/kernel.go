// Package ipc is the top-level façade implementing the kernel's two IPC
// syscalls, pipe and ringbuf, plus the user-library wrapper pair built on
// top of ringbuf. It wires together the process, scheduler, and page-pool
// collaborators with the two IPC subsystems (internal/pipe and
// internal/ring + internal/ringbind + internal/handle).
package ipc

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/teachos/ipckernel/internal/config"
	"github.com/teachos/ipckernel/internal/filetable"
	"github.com/teachos/ipckernel/internal/handle"
	"github.com/teachos/ipckernel/internal/pagepool"
	"github.com/teachos/ipckernel/internal/pagetable"
	"github.com/teachos/ipckernel/internal/pipe"
	"github.com/teachos/ipckernel/internal/proc"
	"github.com/teachos/ipckernel/internal/ring"
	"github.com/teachos/ipckernel/internal/ringbind"
	"github.com/teachos/ipckernel/internal/sched"
	"github.com/teachos/ipckernel/internal/usercopy"
)

// Process is one process as seen by the ipc façade: a process-table entry
// plus the handle table and file table that belong to it. Handle and file
// tables live here rather than on proc.Process so that internal/proc stays
// independent of internal/ring and internal/pipe.
type Process struct {
	*proc.Process
	Handles *handle.Table
	Files   *filetable.Table
}

// Kernel aggregates every collaborator behind the two syscalls.
type Kernel struct {
	cfg    *config.Config
	procs  *proc.Table
	sched  *sched.Scheduler
	copier usercopy.Copier

	pipePool *pagepool.Pool
	ringPool *pagepool.Pool

	registry *ring.Registry
	binder   *ringbind.Binder

	mu     sync.Mutex
	owners map[proc.ID]*Process
}

// New constructs a Kernel. Pipes and rings draw from separate page pools,
// each sized to cfg.PagePool, so pipe allocations can never exhaust the
// frames rings need, or the reverse.
func New(cfg *config.Config) (*Kernel, error) {
	pipePool, err := pagepool.New(cfg.PagePoolPages())
	if err != nil {
		return nil, fmt.Errorf("ipc: pipe page pool: %w", err)
	}

	ringPool, err := pagepool.New(cfg.PagePoolPages())
	if err != nil {
		return nil, fmt.Errorf("ipc: ring page pool: %w", err)
	}

	editor := pagetable.New(ringPool)

	return &Kernel{
		cfg:      cfg,
		procs:    proc.NewTable(),
		sched:    sched.New(),
		copier:   usercopy.Default{},
		pipePool: pipePool,
		ringPool: ringPool,
		registry: ring.NewRegistry(ringPool),
		binder:   ringbind.New(editor),
		owners:   make(map[proc.ID]*Process),
	}, nil
}

// Close releases the kernel's page pools. Callers must ensure no ring
// mapping is still installed.
func (k *Kernel) Close() error {
	return errors.Join(k.pipePool.Close(), k.ringPool.Close())
}

// Spawn registers a new process and returns its façade handle.
func (k *Kernel) Spawn() *Process {
	p := &Process{
		Process: k.procs.Spawn(k.cfg.AddressSpaceBudgetPages()),
		Handles: handle.New(),
		Files:   filetable.New(),
	}

	k.mu.Lock()
	k.owners[p.ID] = p
	k.mu.Unlock()
	return p
}

// Exit releases every resource p still holds: every ring it still owns is
// released as if it had called Ringbuf(name, OpClose) itself, then p is
// retired from the process table. This is infallible — every held resource
// is forcibly released regardless of individual failures, which are joined
// and returned for logging only.
func (k *Kernel) Exit(p *Process) error {
	names := k.registry.OwnedNames(p.ID)

	var wg errgroup.Group
	errs := make([]error, len(names))
	for i, name := range names {
		i, name := i, name
		wg.Go(func() error {
			errs[i] = k.releaseRing(p, name)
			return nil
		})
	}
	_ = wg.Wait()

	k.mu.Lock()
	delete(k.owners, p.ID)
	k.mu.Unlock()
	k.procs.Exit(p.Process)

	return errors.Join(errs...)
}

// OnExec unbinds every ring p currently has bound, without retiring p
// itself: an exec replaces a process's image but keeps its identity, and a
// ring mapping belongs to the old image's address space.
func (k *Kernel) OnExec(p *Process) error {
	names := k.registry.OwnedNames(p.ID)

	var errs []error
	for _, name := range names {
		if err := k.releaseRing(p, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
