package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUGetMiss(t *testing.T) {
	l := NewLRU()
	_, ok := l.Get(1)
	assert.False(t, ok)
}

func TestLRUSetCASSuccessThenGet(t *testing.T) {
	l := NewLRU()
	s := &Schema{Version: 1}
	assert.True(t, l.Set(1, nil, s))
	got, ok := l.Get(1)
	require.True(t, ok)
	assert.Same(t, s, got)
}

func TestLRUSetCASFailsOnStaleOld(t *testing.T) {
	l := NewLRU()
	first := &Schema{Version: 1}
	second := &Schema{Version: 2}
	require.True(t, l.Set(1, nil, first))

	assert.False(t, l.Set(1, nil, second))
	got, _ := l.Get(1)
	assert.Same(t, first, got)
}

func TestLRUSetCASSucceedsAgainstCurrent(t *testing.T) {
	l := NewLRU()
	first := &Schema{Version: 1}
	second := &Schema{Version: 2}
	require.True(t, l.Set(1, nil, first))

	assert.True(t, l.Set(1, first, second))
	got, _ := l.Get(1)
	assert.Same(t, second, got)
}

func TestLRULoadOrCreateCallsOnceOnMiss(t *testing.T) {
	l := NewLRU()
	calls := 0
	created := &Schema{Version: 7}

	got, err := l.LoadOrCreate(1, func() (*Schema, error) {
		calls++
		return created, nil
	})
	require.NoError(t, err)
	assert.Same(t, created, got)
	assert.Equal(t, 1, calls)

	got2, err := l.LoadOrCreate(1, func() (*Schema, error) {
		calls++
		return &Schema{Version: 99}, nil
	})
	require.NoError(t, err)
	assert.Same(t, created, got2)
	assert.Equal(t, 1, calls, "create must not be called again once cached")
}
