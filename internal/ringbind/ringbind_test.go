package ringbind

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teachos/ipckernel/internal/pagepool"
	"github.com/teachos/ipckernel/internal/pagetable"
	"github.com/teachos/ipckernel/internal/proc"
)

// Test_DoubleMap: a byte written at offset PageSize+k is readable at offset
// (1+PayloadPages)*PageSize+k, because both ranges are real mappings of the
// same physical frame.
func Test_DoubleMap(t *testing.T) {
	pool, err := pagepool.New(1 + PayloadPages)
	require.NoError(t, err)
	defer pool.Close()

	book, ok := pool.AllocRun(1 + PayloadPages)
	require.True(t, ok)

	editor := pagetable.New(pool)
	b := New(editor)

	table := proc.NewTable()
	owner := table.Spawn(TotalPages)

	base, err := b.Bind(owner, book)
	require.NoError(t, err)
	defer b.Unbind(owner, base)

	region := unsafe.Slice((*byte)(unsafe.Pointer(base)), TotalPages*pagepool.PageSize)

	k := 12345
	firstOff := pagepool.PageSize + k
	secondOff := (1+PayloadPages)*pagepool.PageSize + k

	region[firstOff] = 0x42
	assert.Equal(t, byte(0x42), region[secondOff])

	region[secondOff] = 0x99
	assert.Equal(t, byte(0x99), region[firstOff])
}

// Test_AddressSpaceBudget asserts binding fails when the process lacks room
// for the full mapping.
func Test_AddressSpaceBudget(t *testing.T) {
	pool, err := pagepool.New(2 * (1 + PayloadPages))
	require.NoError(t, err)
	defer pool.Close()

	editor := pagetable.New(pool)
	b := New(editor)

	table := proc.NewTable()
	owner := table.Spawn(TotalPages - 1) // one page short of a single binding

	book, ok := pool.AllocRun(1 + PayloadPages)
	require.True(t, ok)

	_, err = b.Bind(owner, book)
	assert.ErrorIs(t, err, ErrAddressSpaceFull)
}
