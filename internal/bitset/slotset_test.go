package bitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SlotSetFirstFree(t *testing.T) {
	var s SlotSet

	idx, ok := s.FirstFree(4)
	require.True(t, ok)
	assert.Equal(t, uint32(0), idx)

	s.Set(0)
	s.Set(1)
	idx, ok = s.FirstFree(4)
	require.True(t, ok)
	assert.Equal(t, uint32(2), idx)

	s.Set(2)
	s.Set(3)
	_, ok = s.FirstFree(4)
	assert.False(t, ok)

	s.Clear(1)
	idx, ok = s.FirstFree(4)
	require.True(t, ok)
	assert.Equal(t, uint32(1), idx)
}

func Test_SlotSetCount(t *testing.T) {
	var s SlotSet
	assert.Equal(t, 0, s.Count())

	s.Set(0)
	s.Set(42)
	assert.Equal(t, 2, s.Count())

	s.Clear(0)
	assert.Equal(t, 1, s.Count())
}

func Test_SlotSetTest(t *testing.T) {
	var s SlotSet
	assert.False(t, s.Test(5))
	s.Set(5)
	assert.True(t, s.Test(5))
	s.Clear(5)
	assert.False(t, s.Test(5))
}
