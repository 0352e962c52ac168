// Package pipe implements a bounded byte-stream FIFO shared by exactly one
// reader and one writer, backed by a single page of the kernel's page pool.
package pipe

import (
	"errors"
	"sync"

	"github.com/teachos/ipckernel/internal/pagepool"
	"github.com/teachos/ipckernel/internal/proc"
	"github.com/teachos/ipckernel/internal/sched"
	"github.com/teachos/ipckernel/internal/usercopy"
)

// Size is the pipe's backing buffer capacity in bytes.
const Size = 512

// Errors surfaced by pipe I/O.
var (
	ErrOutOfMemory = errors.New("pipe: page pool exhausted")
	ErrBrokenPipe  = errors.New("pipe: reader closed")
	ErrInterrupted = errors.New("pipe: process killed")
)

// Pipe is a single unidirectional byte stream shared by one reader and one
// writer. All fields are protected by mu; nread/nwrite's addresses double
// as the stable sleep-channel tokens passed to the scheduler.
type Pipe struct {
	mu    sync.Mutex
	sched *sched.Scheduler
	pool  *pagepool.Pool
	page  pagepool.PageID
	buf   []byte

	nread, nwrite       uint64
	readOpen, writeOpen bool
}

// Alloc allocates a pipe and its backing page. On failure (page pool
// exhaustion) no partial state is left behind.
func Alloc(pool *pagepool.Pool, sc *sched.Scheduler) (*Pipe, error) {
	page, ok := pool.AllocRun(1)
	if !ok {
		return nil, ErrOutOfMemory
	}

	return &Pipe{
		sched:     sc,
		pool:      pool,
		page:      page,
		buf:       pool.Bytes(page)[:Size],
		readOpen:  true,
		writeOpen: true,
	}, nil
}

// Write copies up to len(data) bytes from data into the pipe, blocking while
// the pipe is full. A nil error with
// n < len(data) means a user-copy fault ended the transfer early (a short
// count, not a hard failure). A non-nil error means the transfer was
// aborted outright: the reader end closed, or the calling process was
// killed.
func (p *Pipe) Write(caller *proc.Process, data []byte, cp usercopy.Copier) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := 0
	for i < len(data) {
		if !p.readOpen {
			return i, ErrBrokenPipe
		}
		if caller.Killed() {
			return i, ErrInterrupted
		}

		if p.nwrite-p.nread == Size {
			p.sched.Wakeup(&p.nread)
			p.sched.Sleep(&p.nwrite, &p.mu)
			continue
		}

		avail := Size - (p.nwrite - p.nread)
		toWrite := min(avail, uint64(len(data)-i))
		writePos := p.nwrite % Size
		untilEnd := Size - writePos
		chunk := min(untilEnd, toWrite)

		n, cerr := cp.CopyIn(p.buf[writePos:writePos+chunk], data[i:i+int(chunk)])
		i += n
		p.nwrite += uint64(n)

		if cerr != nil || uint64(n) < chunk {
			break
		}
	}

	p.sched.Wakeup(&p.nread)
	return i, nil
}

// Read copies up to len(dst) bytes out of the pipe into dst, blocking while
// the pipe is empty and the writer end is still open. Returns (0, nil) at
// end of stream (writer closed, buffer drained).
func (p *Pipe) Read(caller *proc.Process, dst []byte, cp usercopy.Copier) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.nread == p.nwrite && p.writeOpen {
		if caller.Killed() {
			return 0, ErrInterrupted
		}
		p.sched.Sleep(&p.nread, &p.mu)
	}

	i := 0
	for i < len(dst) {
		remaining := p.nwrite - p.nread
		if remaining == 0 {
			break
		}
		toRead := min(remaining, uint64(len(dst)-i))
		readPos := p.nread % Size
		untilEnd := Size - readPos
		chunk := min(untilEnd, toRead)

		n, cerr := cp.CopyOut(dst[i:i+int(chunk)], p.buf[readPos:readPos+chunk])
		i += n
		p.nread += uint64(n)

		if cerr != nil || uint64(n) < chunk {
			break
		}
	}

	p.sched.Wakeup(&p.nwrite)
	return i, nil
}

// End identifies which half of a pipe a file descriptor refers to.
type End struct {
	P     *Pipe
	Write bool
}

// Close marks this end (write=true for the write end) closed. Once both
// ends are closed, the pipe's backing page is freed.
func (p *Pipe) Close(write bool) {
	p.mu.Lock()
	if write {
		p.writeOpen = false
		p.sched.Wakeup(&p.nread)
	} else {
		p.readOpen = false
		p.sched.Wakeup(&p.nwrite)
	}
	done := !p.readOpen && !p.writeOpen
	p.mu.Unlock()

	if done {
		p.pool.FreeRun(p.page, 1)
	}
}
