package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("direct error", func(t *testing.T) {
		err := New(CodeNotFound, "record not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("wrapped with fmt", func(t *testing.T) {
		err := fmt.Errorf("load: %w", New(CodeUnknownScope, "no such district"))
		assert.True(t, HasCode(err, CodeUnknownScope))
	})

	t.Run("nil error has no code", func(t *testing.T) {
		assert.False(t, HasCode(nil, CodeNotFound))
		assert.Equal(t, Code(""), CodeOf(nil))
	})

	t.Run("plain error has no code", func(t *testing.T) {
		assert.Equal(t, Code(""), CodeOf(errors.New("boom")))
	})
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "failed to load record")

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to load record")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(CodeStorageConflict, "serialization failure")))
	assert.False(t, IsRetryable(New(CodeImmutableRecord, "closed")))
	assert.False(t, IsRetryable(errors.New("boom")))
}
