package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestGetAppError_UnwrapsWrappedErrors tests AppError lookup through wrapping
func TestGetAppError_UnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("accept request: %w", ErrMissingCredentials)

	appErr := GetAppError(wrapped)

	assert.Equal(t, CodeMissingCredentials, appErr.Code)
	assert.Equal(t, http.StatusUnauthorized, appErr.Status)
	assert.True(t, HasCode(wrapped, CodeMissingCredentials))
	assert.True(t, errors.Is(wrapped, ErrMissingCredentials))
}

// TestGetAppError_PlainError tests the internal fallback
func TestGetAppError_PlainError(t *testing.T) {
	appErr := GetAppError(errors.New("boom"))

	assert.Equal(t, CodeInternal, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.False(t, IsAppError(errors.New("boom")))
}

// TestUpstream_KeepsStatus tests upstream error construction
func TestUpstream_KeepsStatus(t *testing.T) {
	err := Upstream(http.StatusNotFound, `{"message":"no such trip"}`)

	assert.Equal(t, CodeUpstream, err.Code)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.Contains(t, err.Error(), "Server returned status: 404")
	assert.Contains(t, err.Error(), "no such trip")
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "ignored"))
	assert.EqualError(t, Wrap(errors.New("x"), "ctx"), "ctx: x")
}
