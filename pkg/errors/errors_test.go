package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesTemplate(t *testing.T) {
	err := Clone(ErrNotFound, "student not found")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "student not found", err.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestWrappedErrorIsMatchedThroughFmt(t *testing.T) {
	inner := Wrap(fmt.Errorf("boom"), ErrImport.Code, ErrImport.Status, "unreadable workbook")
	outer := fmt.Errorf("import: %w", inner)
	assert.True(t, errors.Is(outer, ErrImport))
	assert.Equal(t, "unreadable workbook: boom", inner.Error())
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(fmt.Errorf("disk full"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}
