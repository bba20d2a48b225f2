package realdebrid

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoteError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      apiError
		code      ErrorCode
		retryable bool
	}{
		{"bad parameter", 400, apiError{Error: "bad_parameter", ErrorCode: 2}, CodeValidation, false},
		{"bad token", 401, apiError{Error: "bad_token", ErrorCode: 8}, CodeAuthentication, false},
		{"account locked", 403, apiError{Error: "account_locked", ErrorCode: 14}, CodeAuthentication, false},
		{"hoster unsupported", 503, apiError{Error: "hoster_unsupported", ErrorCode: 16}, CodeUnsupportedHost, false},
		{"hoster not free", 403, apiError{Error: "hoster_not_free", ErrorCode: 20}, CodePremiumRequired, false},
		{"traffic exhausted", 503, apiError{Error: "traffic_exhausted", ErrorCode: 23}, CodeTrafficExhausted, false},
		{"internal error", 500, apiError{Error: "internal_error", ErrorCode: -1}, CodeRemoteService, true},
		{"slow down", 429, apiError{Error: "slow_down", ErrorCode: 5}, CodeRemoteService, true},
		{"hoster maintenance", 503, apiError{Error: "hoster_in_maintenance", ErrorCode: 17}, CodeRemoteService, true},
		{"file unavailable", 503, apiError{Error: "file_unavailable", ErrorCode: 24}, CodeRemoteService, false},
		{"empty 401", 401, apiError{}, CodeAuthentication, false},
		{"empty 400", 400, apiError{}, CodeValidation, false},
		{"empty 404", 404, apiError{}, CodeRemoteService, false},
		{"empty 429", 429, apiError{}, CodeRemoteService, true},
		{"empty 502", 502, apiError{}, CodeRemoteService, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := remoteError(tt.status, tt.body)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.status, err.Status)
			assert.Equal(t, tt.body.ErrorCode, err.RemoteCode)
			assert.Equal(t, tt.retryable, err.Retryable())
		})
	}
}

func TestRemoteError_Details(t *testing.T) {
	err := remoteError(400, apiError{Error: "bad_parameter", ErrorCode: 2, ErrorDetails: "link is missing"})
	assert.Contains(t, err.Error(), "link is missing")
	assert.Contains(t, err.Error(), "bad_parameter")
}

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &Error{Code: CodeTimeout, Message: "slow"})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrNetwork)
	assert.Equal(t, CodeTimeout, CodeOf(err))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("connection reset by peer")
	err := wrapError(inner, CodeNetwork, "could not reach Real-Debrid")

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "connection reset by peer")
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestTranslateError(t *testing.T) {
	refused := &url.Error{Op: "Get", URL: "http://x", Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}}

	tests := []struct {
		name string
		err  error
		code ErrorCode
	}{
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), CodeTimeout},
		{"net timeout", &url.Error{Op: "Get", URL: "http://x", Err: timeoutErr{}}, CodeTimeout},
		{"cancelled", &url.Error{Op: "Get", URL: "http://x", Err: context.Canceled}, CodeNetwork},
		{"refused", refused, CodeNetwork},
		{"decode", errors.New("invalid character '<' looking for beginning of value"), CodeRemoteService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translateError(tt.err)
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}

	already := &Error{Code: CodeValidation}
	assert.Same(t, already, translateError(already))
	assert.NoError(t, translateError(nil))
}

func TestTranslateError_Retryable(t *testing.T) {
	cancelled := translateError(&url.Error{Op: "Get", URL: "http://x", Err: context.Canceled}).(*Error)
	assert.False(t, cancelled.Retryable())

	timeout := translateError(context.DeadlineExceeded).(*Error)
	assert.True(t, timeout.Retryable())

	auth := remoteError(http.StatusUnauthorized, apiError{})
	assert.False(t, auth.Retryable())
}
