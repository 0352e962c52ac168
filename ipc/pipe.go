package ipc

import (
	"errors"

	"github.com/teachos/ipckernel/internal/filetable"
	"github.com/teachos/ipckernel/internal/pipe"
)

// ErrBadFD is returned when a descriptor doesn't name an open pipe end of
// the requested direction.
var ErrBadFD = errors.New("ipc: bad file descriptor")

// PipeAlloc implements the pipe syscall: it allocates a pipe and installs
// its two ends into p's file table, returning (readFD, writeFD).
func (k *Kernel) PipeAlloc(p *Process) (filetable.FD, filetable.FD, error) {
	pp, err := pipe.Alloc(k.pipePool, k.sched)
	if err != nil {
		return -1, -1, err
	}

	readFD := p.Files.Alloc(&pipe.End{P: pp, Write: false})
	writeFD := p.Files.Alloc(&pipe.End{P: pp, Write: true})
	return readFD, writeFD, nil
}

// PipeWrite writes data to the pipe end installed at fd.
func (k *Kernel) PipeWrite(p *Process, fd filetable.FD, data []byte) (int, error) {
	end, err := k.pipeEnd(p, fd, true)
	if err != nil {
		return -1, err
	}
	return end.P.Write(p.Process, data, k.copier)
}

// PipeRead reads from the pipe end installed at fd into dst.
func (k *Kernel) PipeRead(p *Process, fd filetable.FD, dst []byte) (int, error) {
	end, err := k.pipeEnd(p, fd, false)
	if err != nil {
		return -1, err
	}
	return end.P.Read(p.Process, dst, k.copier)
}

// PipeClose closes the pipe end installed at fd and removes it from p's
// file table.
func (k *Kernel) PipeClose(p *Process, fd filetable.FD) error {
	v, ok := p.Files.Close(fd)
	if !ok {
		return ErrBadFD
	}
	end, ok := v.(*pipe.End)
	if !ok {
		return ErrBadFD
	}
	end.P.Close(end.Write)
	return nil
}

func (k *Kernel) pipeEnd(p *Process, fd filetable.FD, write bool) (*pipe.End, error) {
	v, ok := p.Files.Get(fd)
	if !ok {
		return nil, ErrBadFD
	}
	end, ok := v.(*pipe.End)
	if !ok || end.Write != write {
		return nil, ErrBadFD
	}
	return end, nil
}
