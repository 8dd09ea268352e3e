package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchSentinels(t *testing.T) {
	err := fmt.Errorf("create order: %w", Conflict("Out of stock for %s", "Vitamin C"))
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, "Out of stock for Vitamin C", PublicMessage(err))
	assert.Equal(t, http.StatusConflict, HTTPStatus(err))
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause, "failed to create order")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, "internal server error", PublicMessage(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))

	assert.Equal(t, KindInternal, KindOf(cause))
	assert.Equal(t, "internal server error", PublicMessage(cause))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{Signature("bad"), http.StatusBadRequest},
		{AmountMismatch(100, 99), http.StatusBadRequest},
		{NotFound("missing"), http.StatusNotFound},
		{Unauthorized("who"), http.StatusUnauthorized},
		{Forbidden("no"), http.StatusForbidden},
		{Unavailable("down"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
	assert.Equal(t, "amount mismatch: expected 100, received 99", AmountMismatch(100, 99).Message)
}
