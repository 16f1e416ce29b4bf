package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: NewValidationError("BAD", "bad input"), want: 400},
		{name: "rate limit", err: NewRateLimitError("slow down"), want: 429},
		{name: "untrained", err: NewUntrainedStateError("no model"), want: 409},
		{name: "wrapped", err: fmt.Errorf("refresh: %w", NewPersistenceError("disk full")), want: 500},
		{name: "missing status", err: &AppError{Type: ErrorTypeInternal, Code: "X"}, want: 500},
		{name: "plain", err: errors.New("boom"), want: 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetStatusCode(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewRateLimitError("slow down")))
	assert.True(t, IsRetryable(Wrap(NewInternalError("fit failed"), "train")))
	assert.False(t, IsRetryable(NewValidationError("BAD", "bad input")))
	assert.False(t, IsRetryable(errors.New("boom")))
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewPersistenceError("failed to save snapshot").WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to save snapshot: disk full", err.Error())

	appErr, ok := As(Wrap(err, "refresh"))
	assert.True(t, ok)
	assert.True(t, IsType(appErr, ErrorTypePersistence))
	assert.Nil(t, Wrap(nil, "ignored"))
}
