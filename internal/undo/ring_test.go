package undo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	value int
}

func (c *counter) add(n int) Command {
	c.value += n
	return Func{
		Label:  fmt.Sprintf("add %d", n),
		OnUndo: func() error { c.value -= n; return nil },
		OnRedo: func() error { c.value += n; return nil },
	}
}

func TestRing_UndoRedo(t *testing.T) {
	c := &counter{}
	r := NewRing(10)
	r.Push(c.add(1))
	r.Push(c.add(2))
	require.Equal(t, 3, c.value)

	ok, err := r.Undo()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, c.value)

	ok, err = r.Redo()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, c.value)

	ok, err = r.Redo()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRing_PushTruncatesRedoTail(t *testing.T) {
	c := &counter{}
	r := NewRing(10)
	r.Push(c.add(1))
	r.Push(c.add(2))
	_, _ = r.Undo()

	r.Push(c.add(5))
	assert.Equal(t, 2, r.Len())
	assert.False(t, r.CanRedo())
	assert.Equal(t, 6, c.value)
}

func TestRing_DropsOldest(t *testing.T) {
	c := &counter{}
	r := NewRing(2)
	r.Push(c.add(1))
	r.Push(c.add(10))
	r.Push(c.add(100))
	assert.Equal(t, 2, r.Len())

	for r.CanUndo() {
		_, err := r.Undo()
		require.NoError(t, err)
	}
	// the first command fell off the ring
	assert.Equal(t, 1, c.value)
}

func TestRing_ZeroCapacity(t *testing.T) {
	c := &counter{}
	r := NewRing(0)
	r.Push(c.add(1))
	assert.Zero(t, r.Len())

	ok, err := r.Undo()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRing_FailingUndoStaysApplied(t *testing.T) {
	r := NewRing(3)
	r.Push(Func{
		Label:  "broken",
		OnUndo: func() error { return errors.New("cannot") },
		OnRedo: func() error { return nil },
	})

	ok, err := r.Undo()
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, r.CanUndo())

	r.Clear()
	assert.False(t, r.CanUndo())
}
