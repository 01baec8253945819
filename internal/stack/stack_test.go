package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChain_RejectsOversizedInitialFrame(t *testing.T) {
	_, err := NewChain(StackMin - GuardBand + 1)
	assert.Error(t, err)
}

func TestNewChain_AcceptsBoundaryFrame(t *testing.T) {
	c, err := NewChain(StackMin - GuardBand)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Depth())
	assert.True(t, c.Valid())
}

func TestChain_GrowShrinkRoundTrip(t *testing.T) {
	c, err := NewChain(64)
	require.NoError(t, err)

	seg := c.Grow(4096, 64, false)
	require.Equal(t, 2, c.Depth())
	assert.Same(t, seg, c.Top())
	assert.True(t, c.Valid())

	ok := c.Shrink()
	assert.True(t, ok)
	assert.Equal(t, 1, c.Depth())
}

func TestChain_ShrinkBaseSegmentFails(t *testing.T) {
	c, err := NewChain(64)
	require.NoError(t, err)
	assert.False(t, c.Shrink())
	assert.Equal(t, 1, c.Depth())
}

func TestChain_UnwindWalksToTarget(t *testing.T) {
	c, err := NewChain(64)
	require.NoError(t, err)
	base := c.Top().ArgP()

	c.Grow(4096, 64, false)
	mid := c.Top().ArgP()
	c.Grow(4096, 64, true)

	ok := c.Unwind(mid)
	assert.True(t, ok)
	assert.Equal(t, mid, c.Top().ArgP())

	ok = c.Unwind(base)
	assert.True(t, ok)
	assert.Equal(t, 1, c.Depth())
}

func TestChain_UnwindPastBaseFails(t *testing.T) {
	c, err := NewChain(64)
	require.NoError(t, err)
	assert.False(t, c.Unwind(999))
}

func TestSegment_PanicTagPropagates(t *testing.T) {
	c, err := NewChain(64)
	require.NoError(t, err)
	c.Grow(64, 0, true)
	assert.True(t, c.Top().Panic())
}
