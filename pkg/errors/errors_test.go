package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrTimeslotOverlap, "overlaps slot 2"))

	appErr := FromError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrTimeslotOverlap.Code, appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "overlaps slot 2", appErr.Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}

func TestIsMatchesByCode(t *testing.T) {
	err := Wrap(errors.New("fk"), ErrUnresolvedReference.Code, ErrUnresolvedReference.Status, "class not found")
	assert.ErrorIs(t, err, ErrUnresolvedReference)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestWithDetails(t *testing.T) {
	err := WithDetails(ErrScheduleConflict, "A collides with B", map[string]string{"a": "A", "b": "B"})
	assert.Equal(t, "A collides with B", err.Message)
	assert.Equal(t, map[string]string{"a": "A", "b": "B"}, err.Details)
	assert.Nil(t, ErrScheduleConflict.Details)
}
