// Package ringio is the user-space half of a bound ring: start/finish read
// and start/finish write, built as local atomic reads/writes on the ring's
// book page over the double mapping the kernel installed. These are not
// kernel operations — the kernel's only job was handing back a mapped base
// address; everything here runs entirely against user memory with no
// further kernel involvement on the steady-state path.
package ringio

import (
	"sync/atomic"
	"unsafe"

	"github.com/teachos/ipckernel/internal/pagepool"
	"github.com/teachos/ipckernel/internal/ringbind"
)

// cacheLinePad separates the producer and consumer counters onto distinct
// cache lines within the book page.
const cacheLinePad = 64

// payloadCapacity is the number of bytes in one copy of the payload.
const payloadCapacity = ringbind.PayloadPages * pagepool.PageSize

// Handle is a bound ring's user-space view: the book page's atomics plus a
// slice spanning both copies of the payload, so that any linear access of
// up to payloadCapacity bytes starting anywhere in the first copy stays in
// bounds without wrapping.
type Handle struct {
	base    uintptr
	payload []byte
}

// Open constructs a Handle over a mapping previously returned by the
// ringbuf syscall at base.
func Open(base uintptr) *Handle {
	payloadBase := base + pagepool.PageSize
	return &Handle{
		base:    base,
		payload: unsafe.Slice((*byte)(unsafe.Pointer(payloadBase)), 2*payloadCapacity),
	}
}

// Base returns the mapping's virtual base address.
func (h *Handle) Base() uintptr { return h.base }

func (h *Handle) producer() *uint64 {
	return (*uint64)(unsafe.Pointer(h.base))
}

func (h *Handle) consumer() *uint64 {
	return (*uint64)(unsafe.Pointer(h.base + cacheLinePad))
}

// StartRead returns a slice over the bytes currently available to read,
// without consuming them. Call FinishRead once they have been consumed.
func (h *Handle) StartRead() []byte {
	c := atomic.LoadUint64(h.consumer())
	p := atomic.LoadUint64(h.producer())
	avail := p - c
	if avail == 0 {
		return nil
	}
	pos := c % payloadCapacity
	return h.payload[pos : pos+avail]
}

// FinishRead releases n bytes previously returned by StartRead back to the
// producer.
func (h *Handle) FinishRead(n int) {
	c := atomic.LoadUint64(h.consumer())
	atomic.StoreUint64(h.consumer(), c+uint64(n))
}

// StartWrite returns a slice over the bytes currently free to write into.
// Call FinishWrite once they have been filled.
func (h *Handle) StartWrite() []byte {
	p := atomic.LoadUint64(h.producer())
	c := atomic.LoadUint64(h.consumer())
	free := uint64(payloadCapacity) - (p - c)
	if free == 0 {
		return nil
	}
	pos := p % payloadCapacity
	return h.payload[pos : pos+free]
}

// FinishWrite publishes n bytes previously written via StartWrite to the
// consumer.
func (h *Handle) FinishWrite(n int) {
	p := atomic.LoadUint64(h.producer())
	atomic.StoreUint64(h.producer(), p+uint64(n))
}
