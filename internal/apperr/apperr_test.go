package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("email is required"), http.StatusBadRequest},
		{"conflict", Conflict("email already registered"), http.StatusBadRequest},
		{"not found", NotFound("subscription"), http.StatusNotFound},
		{"upstream", Upstream("erp", "create company", errors.New("boom")), http.StatusBadGateway},
		{"internal", Internal("insert user", errors.New("socket closed")), http.StatusInternalServerError},
		{"unknown", errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("socket closed")
	err := Internal("insert user", cause)

	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Internal server error", PublicMessage(err))
}

func TestUpstreamErrorMessage(t *testing.T) {
	err := &UpstreamError{Service: "erp", Op: "create user", Status: 417, Message: `{"exc_type":"DuplicateEntryError"}`}

	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, `erp create user failed (status 417): {"exc_type":"DuplicateEntryError"}`, err.Error())

	var ue *UpstreamError
	assert.True(t, errors.As(Upstream("billing", "create price", errors.New("card_declined")), &ue))
	assert.Equal(t, "billing", ue.Service)
	assert.Equal(t, "card_declined", ue.Message)
}
