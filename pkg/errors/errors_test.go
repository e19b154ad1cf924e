package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCloneKeepsIdentity(t *testing.T) {
	err := Clone(ErrConflict, "Already a supervisor for this CC/UC.")
	require.ErrorIs(t, err, ErrConflict)
	require.NotErrorIs(t, err, ErrNotFound)
	require.Equal(t, http.StatusConflict, err.Status)
	require.Equal(t, "conflict", ErrConflict.Message, "clone must not mutate the original")
}

func TestNoChangeIsConflict(t *testing.T) {
	require.ErrorIs(t, ErrNoChange, ErrConflict)
}

func TestWrapAsKeepsRetryHint(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapAs(ErrStorage, cause, "failed to persist")

	require.ErrorIs(t, err, ErrStorage)
	require.ErrorIs(t, err, cause)
	require.True(t, IsRetryable(err))
	require.True(t, IsRetryable(fmt.Errorf("outer: %w", err)))
	require.False(t, IsRetryable(ErrValidation))
	require.False(t, IsRetryable(cause))
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	got := FromError(errors.New("boom"))
	require.Equal(t, ErrInternal.Code, got.Code)
	require.Equal(t, http.StatusInternalServerError, got.Status)
	require.Nil(t, FromError(nil))

	typed := Clonef(ErrNotFound, "person %s not found", "P1")
	require.Same(t, typed, FromError(typed))
	require.Equal(t, "person P1 not found", typed.Error())
}
