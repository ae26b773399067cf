package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIncludesInternal(t *testing.T) {
	err := New("TEST", "failed", http.StatusInternalServerError).WithInternal(stdErrors.New("boom"))
	require.Equal(t, "failed: boom", err.Error())
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", http.StatusBadRequest)
	with := base.WithInternal(stdErrors.New("oops"))

	require.NotSame(t, base, with)
	require.Nil(t, base.Internal)
	require.NotNil(t, with.Internal)
}

func TestFromErrorUnwrapsWrappedAppError(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", ErrNotFound)
	require.Same(t, ErrNotFound, FromError(wrapped))

	out := FromError(stdErrors.New("raw"))
	require.Equal(t, ErrInternalServer.Code, out.Code)
	require.NotNil(t, out.Internal)

	require.Nil(t, FromError(nil))
}

func TestNewBadRequest(t *testing.T) {
	bad := NewBadRequest("invalid payload")
	require.Equal(t, ErrBadRequest.Code, bad.Code)
	require.Equal(t, "invalid payload", bad.Message)
	require.Equal(t, http.StatusBadRequest, bad.StatusCode)
	require.ErrorIs(t, bad, ErrBadRequest)
}

func TestWithInternalKeepsSentinelIdentity(t *testing.T) {
	cause := stdErrors.New("unique constraint failed")
	err := fmt.Errorf("service: %w", ErrNotFound.WithInternal(cause))

	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, cause)
	require.False(t, stdErrors.Is(err, ErrForbidden))
	require.Equal(t, ErrNotFound.Message, FromError(err).Message)
}
