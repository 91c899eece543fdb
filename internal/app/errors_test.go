package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("end: %w", ErrCycleAlreadyEnded)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Cycle has already ended", Message(err))

	var appErr *Error
	if assert.ErrorAs(t, err, &appErr) {
		assert.Equal(t, ErrConflict, appErr.Kind())
	}
}

func TestStorageFailure(t *testing.T) {
	cause := errors.New("connection reset")
	err := storageFailure("failed to settle cycle", cause)

	assert.ErrorIs(t, err, ErrTransient)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to settle cycle: connection reset", err.Error())
	assert.Equal(t, retryMessage, Message(err))

	// already classified errors pass through untouched
	assert.Same(t, ErrNoActiveCycle, storageFailure("x", ErrNoActiveCycle))
	assert.ErrorIs(t, storageFailure("x", context.DeadlineExceeded), ErrTransient)
}

func TestMessageOfUnclassifiedError(t *testing.T) {
	assert.Equal(t, retryMessage, Message(errors.New("boom")))
}
