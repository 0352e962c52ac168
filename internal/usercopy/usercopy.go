// Package usercopy abstracts copying bytes between kernel memory and a
// caller-supplied buffer, standing in for the fallible copy in/copy out a
// real kernel performs against a user virtual address. Pipe endpoints here
// are ordinary Go byte slices rather than raw addresses, so the fault path a
// real copy would take on a bad user pointer is modeled as a Copier
// returning ErrFault instead — callers only depend on the interface, so a
// test can swap in a Copier that faults partway through a transfer.
package usercopy

import "errors"

// ErrFault is returned when a copy could not be completed because the
// caller-supplied buffer refused to participate (the stand-in for a user
// page fault).
var ErrFault = errors.New("usercopy: fault")

// Copier moves bytes between kernel memory and a caller-supplied buffer.
type Copier interface {
	// CopyIn copies into dst (kernel memory) from src (user memory),
	// copying at most min(len(dst), len(src)) bytes.
	CopyIn(dst, src []byte) (int, error)
	// CopyOut copies into dst (user memory) from src (kernel memory),
	// copying at most min(len(dst), len(src)) bytes.
	CopyOut(dst, src []byte) (int, error)
}

// Default is the normal, always-succeeds Copier.
type Default struct{}

func (Default) CopyIn(dst, src []byte) (int, error) {
	return copy(dst, src), nil
}

func (Default) CopyOut(dst, src []byte) (int, error) {
	return copy(dst, src), nil
}

// FaultAfter is a test Copier that succeeds for the first N bytes copied in
// total (across however many calls) and then reports a fault on every
// subsequent call, copying nothing.
type FaultAfter struct {
	Remaining int
}

func (f *FaultAfter) CopyIn(dst, src []byte) (int, error) {
	return f.copy(dst, src)
}

func (f *FaultAfter) CopyOut(dst, src []byte) (int, error) {
	return f.copy(dst, src)
}

func (f *FaultAfter) copy(dst, src []byte) (int, error) {
	if f.Remaining <= 0 {
		return 0, ErrFault
	}
	n := min(len(dst), len(src), f.Remaining)
	copy(dst[:n], src[:n])
	f.Remaining -= n
	if n == 0 {
		return 0, ErrFault
	}
	return n, nil
}
