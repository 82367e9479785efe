package errors

import (
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	err := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestCloneKeepsCodeForErrorsIs(t *testing.T) {
	cloned := Clone(ErrAmountExceedsBalance, "reste à payer: 200")
	assert.Equal(t, "reste à payer: 200", cloned.Message)
	assert.True(t, errors.Is(cloned, ErrAmountExceedsBalance))
	assert.False(t, errors.Is(cloned, ErrValidation))
	assert.Equal(t, "le montant dépasse le reste à payer", ErrAmountExceedsBalance.Message)
}
