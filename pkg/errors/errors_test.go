package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClonePreservesIdentity(t *testing.T) {
	err := Clone(ErrValidation, "subject is required")
	assert.Equal(t, "subject is required", err.Message)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "validation failed", ErrValidation.Message, "sentinel must not be mutated")
}

func TestWrapAsKeepsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := WrapAs(ErrStorageWrite, cause)
	assert.True(t, errors.Is(err, ErrStorageWrite))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "dial tcp: refused")

	outer := fmt.Errorf("upload: %w", err)
	assert.True(t, errors.Is(outer, ErrStorageWrite))
	assert.Equal(t, http.StatusInternalServerError, FromError(outer).Status)
}

func TestFromErrorUnknown(t *testing.T) {
	assert.Nil(t, FromError(nil))
	e := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, e.Code)
	assert.Equal(t, http.StatusInternalServerError, e.Status)
}

func TestPayloadMissingDistinctFromNotFound(t *testing.T) {
	assert.Equal(t, ErrNotFound.Status, ErrPayloadMissing.Status)
	assert.Equal(t, ErrNotFound.Message, ErrPayloadMissing.Message)
	assert.False(t, errors.Is(ErrPayloadMissing, ErrNotFound))
}
