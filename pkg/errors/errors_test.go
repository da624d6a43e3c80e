package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := Wrap(errors.New("boom"), ErrConflict.Code, ErrConflict.Status, "proposal stale")

	got := FromError(wrapped)

	assert.Equal(t, "CONFLICT", got.Code)
	assert.Equal(t, http.StatusConflict, got.Status)
	assert.Equal(t, "proposal stale: boom", got.Error())
}

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	got := FromError(errors.New("driver exploded"))

	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Nil(t, FromError(nil))
}

func TestCloneDoesNotMutateSentinel(t *testing.T) {
	clone := Clone(ErrNotFound, "proposal not found")

	assert.Equal(t, "proposal not found", clone.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
	assert.True(t, errors.Is(Wrap(ErrCacheMiss, "X", 500, "y"), ErrCacheMiss))
}
