package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsMatchByKind(t *testing.T) {
	err := Duplicate("Movie already exists in this watchlist")

	assert.True(t, errors.Is(err, ErrDuplicate))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "Movie already exists in this watchlist", err.Error())
}

func TestWrappedErrorKeepsKind(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("load watchlist: %w", Internal("Failed to load watchlist", cause))

	assert.Equal(t, KindInternal, KindOf(err))
	assert.True(t, errors.Is(err, cause))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("Search query is required"), http.StatusBadRequest},
		{Auth("Invalid email or password"), http.StatusUnauthorized},
		{Authorization("You don't have access to this watchlist"), http.StatusForbidden},
		{NotFound("Watchlist not found"), http.StatusNotFound},
		{Duplicate("User is already a member of this watchlist"), http.StatusConflict},
		{Conflict("retry"), http.StatusConflict},
		{API("Not Found", nil), http.StatusBadGateway},
		{PartialSignUp("Account created but profile setup failed", nil), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestErrorMessageFallsBackToCause(t *testing.T) {
	err := API("", errors.New("dial tcp: timeout"))
	assert.Equal(t, "dial tcp: timeout", err.Error())
}
