package realdebrid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/rclone/rclone/fs/fserrors"
	"github.com/rclone/rclone/lib/rest"
)

type ErrorCode string

const (
	CodeConfiguration    ErrorCode = "CONFIGURATION"
	CodeAuthentication   ErrorCode = "AUTHENTICATION"
	CodeValidation       ErrorCode = "VALIDATION"
	CodeUnsupportedHost  ErrorCode = "UNSUPPORTED_HOST"
	CodeRemoteService    ErrorCode = "REMOTE_SERVICE"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeNetwork          ErrorCode = "NETWORK"
	CodePremiumRequired  ErrorCode = "PREMIUM_REQUIRED"
	CodeTrafficExhausted ErrorCode = "TRAFFIC_EXHAUSTED"
	CodeEmptyFolder      ErrorCode = "EMPTY_FOLDER"
)

// Sentinels for errors.Is. Any *Error with the same Code matches.
var (
	ErrConfiguration    = &Error{Code: CodeConfiguration}
	ErrAuthentication   = &Error{Code: CodeAuthentication}
	ErrValidation       = &Error{Code: CodeValidation}
	ErrUnsupportedHost  = &Error{Code: CodeUnsupportedHost}
	ErrRemoteService    = &Error{Code: CodeRemoteService}
	ErrTimeout          = &Error{Code: CodeTimeout}
	ErrNetwork          = &Error{Code: CodeNetwork}
	ErrPremiumRequired  = &Error{Code: CodePremiumRequired}
	ErrTrafficExhausted = &Error{Code: CodeTrafficExhausted}
	ErrEmptyFolder      = &Error{Code: CodeEmptyFolder}
)

// Error is the only error type returned by Client methods. Transport
// failures are kept in Err, remote failures in Status/RemoteCode/RemoteError.
type Error struct {
	Code    ErrorCode
	Message string

	// Status is the HTTP status of the remote response, 0 when no response
	// was received.
	Status int
	// RemoteError and RemoteCode mirror the Real-Debrid error body
	// {"error": "...", "error_code": N}. RemoteError is empty when the
	// body carried no error.
	RemoteError string
	RemoteCode  int

	Err error
}

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.RemoteError != "" {
		msg += fmt.Sprintf(" [%s, code %d]", e.RemoteError, e.RemoteCode)
	} else if e.Status != 0 {
		msg += fmt.Sprintf(" [HTTP %d]", e.Status)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (%v)", e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Retryable reports whether repeating the same call later may succeed.
// The client never retries on its own.
func (e *Error) Retryable() bool {
	switch e.Code {
	case CodeTimeout:
		return true
	case CodeNetwork:
		return e.Err != nil && !errors.Is(e.Err, context.Canceled) && fserrors.ShouldRetry(e.Err)
	case CodeRemoteService:
		if e.RemoteError != "" {
			switch e.RemoteCode {
			case remoteInternalError, remoteSlowDown, remoteHosterMaintenance,
				remoteHosterUnavailable, remoteServiceUnavailable, remoteTooManyRequests:
				return true
			}
			return false
		}
		return e.Status == http.StatusTooManyRequests || e.Status >= 500
	}
	return false
}

func newError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func wrapError(err error, code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Real-Debrid error_code values, see https://api.real-debrid.com/#api_error_codes
const (
	remoteInternalError      = -1
	remoteMissingParameter   = 1
	remoteBadParameter       = 2
	remoteSlowDown           = 5
	remoteBadToken           = 8
	remotePermissionDenied   = 9
	remoteTwoFactorNeeded    = 10
	remoteTwoFactorPending   = 11
	remoteInvalidLogin       = 12
	remoteInvalidPassword    = 13
	remoteAccountLocked      = 14
	remoteAccountInactive    = 15
	remoteHosterUnsupported  = 16
	remoteHosterMaintenance  = 17
	remoteHosterUnavailable  = 19
	remoteHosterNotFree      = 20
	remoteTrafficExhausted   = 23
	remoteServiceUnavailable = 25
	remoteTooManyRequests    = 34
)

type apiError struct {
	Error        string `json:"error"`
	ErrorCode    int    `json:"error_code"`
	ErrorDetails string `json:"error_details"`
}

func remoteError(status int, body apiError) *Error {
	e := &Error{Status: status, RemoteError: body.Error, RemoteCode: body.ErrorCode}

	if body.Error != "" {
		switch body.ErrorCode {
		case remoteMissingParameter, remoteBadParameter:
			e.Code, e.Message = CodeValidation, "request rejected by Real-Debrid"
		case remoteBadToken, remotePermissionDenied, remoteTwoFactorNeeded, remoteTwoFactorPending,
			remoteInvalidLogin, remoteInvalidPassword, remoteAccountLocked, remoteAccountInactive:
			e.Code, e.Message = CodeAuthentication, "credentials rejected by Real-Debrid"
		case remoteHosterUnsupported:
			e.Code, e.Message = CodeUnsupportedHost, "the given url is not supported by Real-Debrid"
		case remoteHosterNotFree:
			e.Code, e.Message = CodePremiumRequired, "a premium account is required for this hoster"
		case remoteTrafficExhausted:
			e.Code, e.Message = CodeTrafficExhausted, "remote traffic exhausted, see https://real-debrid.com/trafficshare"
		default:
			e.Code, e.Message = CodeRemoteService, "Real-Debrid returned an error"
		}
		if body.ErrorDetails != "" {
			e.Message += ": " + body.ErrorDetails
		}
		return e
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Code, e.Message = CodeAuthentication, "credentials rejected by Real-Debrid"
	case status == http.StatusBadRequest:
		e.Code, e.Message = CodeValidation, "request rejected by Real-Debrid"
	default:
		e.Code, e.Message = CodeRemoteService, "unexpected response from Real-Debrid"
	}
	return e
}

// errorHandler turns a non-2xx API response into an *Error.
func errorHandler(resp *http.Response) error {
	var body apiError
	data, err := rest.ReadBody(resp)
	if err == nil && len(data) > 0 {
		_ = json.Unmarshal(data, &body)
	}
	return remoteError(resp.StatusCode, body)
}

// translateError maps whatever the transport returned into the *Error
// taxonomy. Errors already translated pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var rdErr *Error
	if errors.As(err, &rdErr) {
		return rdErr
	}

	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return wrapError(err, CodeTimeout, "request to Real-Debrid timed out")
	case errors.As(err, &netErr) && netErr.Timeout():
		return wrapError(err, CodeTimeout, "request to Real-Debrid timed out")
	case errors.Is(err, context.Canceled):
		return wrapError(err, CodeNetwork, "request to Real-Debrid was cancelled")
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		return wrapError(err, CodeNetwork, "could not reach Real-Debrid")
	default:
		return wrapError(err, CodeRemoteService, "malformed response from Real-Debrid")
	}
}
