package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"order not found", ErrOrderNotFound, http.StatusNotFound, "ORDER_NOT_FOUND"},
		{"wrapped user not found", fmt.Errorf("delete user: %w", ErrUserNotFound), http.StatusNotFound, "USER_NOT_FOUND"},
		{"duplicate username", ErrUsernameTaken, http.StatusConflict, "USERNAME_TAKEN"},
		{"bad date", ErrInvalidDate, http.StatusBadRequest, "INVALID_DATE"},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			assert.Equal(t, tt.wantCode, httpErr.Code)
		})
	}
}

func TestMapErrorToHTTP_Validation(t *testing.T) {
	verr := &ValidationError{}
	verr.Add("customer_name", "顧客名は必須です")
	verr.Add("order_date", "受注日は必須です")

	httpErr := MapErrorToHTTP(fmt.Errorf("create order: %w", verr))
	resp := httpErr.ToErrorResponse()

	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, MsgValidation, resp.Error)
	assert.Contains(t, resp.Errors, "customer_name")
	assert.Contains(t, resp.Errors, "order_date")
}

func TestMapErrorToHTTP_InternalMessageIsGeneric(t *testing.T) {
	httpErr := MapErrorToHTTP(fmt.Errorf("dial tcp 10.0.0.1:3306: connection refused"))
	assert.Equal(t, MsgInternal, httpErr.Message)
}
