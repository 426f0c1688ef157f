package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, NewValidation("x").HTTPStatus)
	assert.Equal(t, http.StatusBadGateway, NewStorage("x", nil).HTTPStatus)
	assert.Equal(t, http.StatusUnauthorized, New(ErrAuthFailed, "x", nil).HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, New(ErrRuleLoad, "x", nil).HTTPStatus)
}

func TestUnwrapAndPredicates(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStorage("write failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsStorage(err))
	assert.True(t, IsStorage(fmt.Errorf("outer: %w", err)))
	assert.False(t, IsValidation(err))
	assert.False(t, IsStorage(cause))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWrapPreservesAppError(t *testing.T) {
	orig := NewValidation("bad input")
	assert.Same(t, orig, Wrap(orig))
	assert.Same(t, orig, Wrap(fmt.Errorf("outer: %w", orig)))
	assert.Nil(t, Wrap(nil))

	wrapped := Wrap(errors.New("plain"))
	assert.Equal(t, ErrInternal, wrapped.Type)
}
