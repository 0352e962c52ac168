package ipc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teachos/ipckernel/internal/config"
	"github.com/teachos/ipckernel/internal/ring"
)

func newTestKernel(t *testing.T) *Kernel {
	t.Helper()
	cfg := config.Default()
	k, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { k.Close() })
	return k
}

// Test_RingOnExit exercises exit cleanup end to end through the syscall
// façade: a process that exits without closing its rings must have them
// released, and a later unrelated process must be able to take the freed
// owner slot.
func Test_RingOnExit(t *testing.T) {
	k := newTestKernel(t)

	p := k.Spawn()
	c := k.Spawn()

	_, err := k.Ringbuf(p, "second", OpOpen)
	require.NoError(t, err)
	_, err = k.Ringbuf(c, "second", OpOpen)
	require.NoError(t, err)

	// p exits without closing "second".
	require.NoError(t, k.Exit(p))

	cPrime := k.Spawn()
	_, err = k.Ringbuf(cPrime, "second", OpOpen)
	require.NoError(t, err, "the slot p vacated on exit must be available")
}

// Test_NameValidationSyscall exercises name validation and ownership
// checking through the Ringbuf syscall.
func Test_NameValidationSyscall(t *testing.T) {
	k := newTestKernel(t)
	p := k.Spawn()

	_, err := k.Ringbuf(p, "", OpOpen)
	assert.ErrorIs(t, err, ring.ErrNameInvalid)

	_, err = k.Ringbuf(p, "0123456789ABCDEF", OpOpen)
	assert.ErrorIs(t, err, ring.ErrNameInvalid)

	_, err = k.Ringbuf(p, "test", OpClose)
	assert.ErrorIs(t, err, ring.ErrNotOwned)
}

// Test_RingHandlesNotInherited: a child doesn't inherit its parent's handle
// table, even though both are free to bind the same name independently.
func Test_RingHandlesNotInherited(t *testing.T) {
	k := newTestKernel(t)
	parent := k.Spawn()
	child := k.Spawn()

	_, err := k.Ringbuf(parent, "inherited", OpOpen)
	require.NoError(t, err)

	_, _, ok := child.Handles.FindByName(mustParseName(t, "inherited"))
	assert.False(t, ok, "a freshly spawned process starts with an empty handle table")
}

// Test_PipeAndRingbufRoundTrip exercises both syscalls together on one
// process.
func Test_PipeAndRingbufRoundTrip(t *testing.T) {
	k := newTestKernel(t)
	p := k.Spawn()

	readFD, writeFD, err := k.PipeAlloc(p)
	require.NoError(t, err)

	n, err := k.PipeWrite(p, writeFD, []byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.NoError(t, k.PipeClose(p, writeFD))

	buf := make([]byte, 16)
	n, err = k.PipeRead(p, readFD, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))

	base, err := k.Ringbuf(p, "scratch", OpOpen)
	require.NoError(t, err)
	assert.NotZero(t, base)

	_, err = k.Ringbuf(p, "scratch", OpClose)
	require.NoError(t, err)
}

// Test_RingStreamXorshift streams a large amount of xorshift-generated data
// from one goroutine to another through a bound ring, and checks that the
// reader observes exactly what the writer produced.
func Test_RingStreamXorshift(t *testing.T) {
	k := newTestKernel(t)
	producer := k.Spawn()
	consumer := k.Spawn()

	_, err := k.Ringbuf(producer, "stream", OpOpen)
	require.NoError(t, err)
	_, err = k.Ringbuf(consumer, "stream", OpOpen)
	require.NoError(t, err)

	ph, ok := k.RingHandle(producer, "stream")
	require.True(t, ok)
	ch, ok := k.RingHandle(consumer, "stream")
	require.True(t, ok)

	const writeAmt = 4 * 1024 * 1024

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		gen := newXorshiftChar(42)
		written := 0
		for written < writeAmt {
			buf := ph.StartWrite()
			if len(buf) == 0 {
				continue
			}
			n := min(len(buf), writeAmt-written)
			for i := 0; i < n; i++ {
				buf[i] = gen.next()
			}
			ph.FinishWrite(n)
			written += n
		}
	}()

	gen := newXorshiftChar(42)
	read := 0
	mismatch := false
	for read < writeAmt {
		buf := ch.StartRead()
		if len(buf) == 0 {
			continue
		}
		for _, b := range buf {
			if b != gen.next() {
				mismatch = true
			}
		}
		ch.FinishRead(len(buf))
		read += len(buf)
	}
	wg.Wait()

	assert.False(t, mismatch, "reader must observe exactly what the writer produced")
}

func mustParseName(t *testing.T, s string) ring.Name {
	t.Helper()
	n, err := ring.ParseName(s)
	require.NoError(t, err)
	return n
}

// xorshiftChar is a small xorshift PRNG used to generate a reproducible
// byte stream for streaming tests.
type xorshiftChar struct {
	state uint32
}

func newXorshiftChar(seed uint32) *xorshiftChar {
	return &xorshiftChar{state: seed}
}

func (g *xorshiftChar) next() byte {
	g.state ^= g.state << 13
	g.state ^= g.state >> 17
	g.state ^= g.state << 5
	return byte(g.state)
}
