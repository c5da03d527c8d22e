package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}

func TestFromErrorKeepsTyped(t *testing.T) {
	wrapped := fmt.Errorf("load: %w", Clone(ErrNotFound, "room not found"))
	appErr := FromError(wrapped)
	assert.Equal(t, "room not found", appErr.Message)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestCloneMatchesTemplate(t *testing.T) {
	clone := Clone(ErrSourceUnavailable, "no csv")
	assert.True(t, errors.Is(clone, ErrSourceUnavailable))
	assert.False(t, errors.Is(clone, ErrNotFound))
	assert.Equal(t, "schedule source unavailable", ErrSourceUnavailable.Message)
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("disk")
	err := Wrap(cause, ErrInternal.Code, ErrInternal.Status, "read failed")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "read failed: disk", err.Error())
}
