package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   Code
	}{
		{"validation", NewValidationError("bad", []string{"x"}), http.StatusBadRequest, CodeValidation},
		{"not found", NewNotFoundError("none"), http.StatusNotFound, CodeNotFound},
		{"timeout", NewTimeoutError(""), http.StatusGatewayTimeout, CodeTimeout},
		{"remote", NewRemoteAPIError("upstream", errors.New("eof")), http.StatusBadGateway, CodeRemoteAPI},
		{"domain", NewDomainError(CodeDomain, "rule broken", nil), http.StatusInternalServerError, CodeDomain},
		{"plain", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
		{"wrapped", fmt.Errorf("lookup: %w", NewNotFoundError("none")), http.StatusNotFound, CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
			assert.Equal(t, tt.code, CodeOf(tt.err))
		})
	}
}

func TestValidationErrorFields(t *testing.T) {
	err := NewValidationError("Invalid TripRequest", []string{"Invalid from location: 1", "Invalid travellers: 0"})

	var v *ValidationError
	require.True(t, errors.As(fmt.Errorf("wrap: %w", err), &v))
	assert.Equal(t, []string{"Invalid from location: 1", "Invalid travellers: 0"}, v.Fields())
	assert.Equal(t, "Invalid TripRequest", err.Error())

	body := ToBody(err)
	assert.Equal(t, CodeValidation, body.Code)
	require.NotNil(t, body.Details)
	assert.Len(t, body.Details.Fields, 2)
}

func TestDefaultMessages(t *testing.T) {
	assert.Equal(t, "Validation failed", NewValidationError("", nil).Error())
	assert.Equal(t, "Not found", NewNotFoundError("").Error())
	assert.Equal(t, "Remote API error", NewRemoteAPIError("", nil).Error())
	assert.Equal(t, "Timeout expired", NewTimeoutError("").Error())
	assert.Nil(t, NewValidationError("", nil).Fields())
}

func TestRemoteAPIErrorUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewRemoteAPIError("Fetching weather data failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Fetching weather data failed: connection reset", err.Error())

	body := ToBody(err)
	assert.Equal(t, CodeRemoteAPI, body.Code)
	assert.Equal(t, "Fetching weather data failed", body.Message)
	assert.Nil(t, body.Details)
}

func TestToBodyPlainError(t *testing.T) {
	body := ToBody(errors.New("kaput"))
	assert.Equal(t, CodeInternal, body.Code)
	assert.Equal(t, "kaput", body.Message)
}
