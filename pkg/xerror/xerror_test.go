package xerror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(BackendError, "commit failed", cause)

	assert.Equal(t, BackendError, KindOf(err))
	assert.True(t, Is(err, BackendError))
	assert.False(t, Is(err, NetworkError))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "BackendError")
	assert.Contains(t, err.Error(), "disk full")
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(New(ConcurrentModification, "revision advanced")))
	assert.True(t, Retryable(New(NetworkError, "connection reset")))
	assert.True(t, Retryable(New(AlreadyLocked, "writer held")))
	assert.False(t, Retryable(New(TypeMismatch, "field n")))
	assert.False(t, Retryable(errors.New("plain error")))
}

func TestKindOfNonXerror(t *testing.T) {
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}
