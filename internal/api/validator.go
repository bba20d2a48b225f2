package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"rdwrapper/internal/logger"
	"rdwrapper/pkg/realdebrid"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

const maxBodyBytes = 1 << 20

func sendError(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(logger.ErrorCodeHeader, resp.Code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func sendJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

// statusOf maps a realdebrid error code to the gateway's HTTP status.
func statusOf(code realdebrid.ErrorCode) int {
	switch code {
	case realdebrid.CodeValidation:
		return http.StatusBadRequest
	case realdebrid.CodeAuthentication:
		return http.StatusUnauthorized
	case realdebrid.CodePremiumRequired:
		return http.StatusPaymentRequired
	case realdebrid.CodeUnsupportedHost:
		return http.StatusUnprocessableEntity
	case realdebrid.CodeEmptyFolder:
		return http.StatusNotFound
	case realdebrid.CodeTrafficExhausted:
		return http.StatusTooManyRequests
	case realdebrid.CodeTimeout:
		return http.StatusGatewayTimeout
	case realdebrid.CodeNetwork, realdebrid.CodeRemoteService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorResponse builds the error envelope for err.
func NewErrorResponse(err error) ErrorResponse {
	var rdErr *realdebrid.Error
	if !errors.As(err, &rdErr) {
		return ErrorResponse{Error: err.Error(), Code: string(realdebrid.CodeRemoteService)}
	}
	return ErrorResponse{
		Error:      rdErr.Error(),
		Code:       string(rdErr.Code),
		RemoteCode: rdErr.RemoteCode,
		Retryable:  rdErr.Retryable(),
	}
}

func sendRDError(w http.ResponseWriter, err error) {
	sendError(w, statusOf(realdebrid.CodeOf(err)), NewErrorResponse(err))
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	// We read the body to log it on error
	bodyBytes, _ := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		sendError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON: " + err.Error(), Code: CodeBadRequest})
		return false
	}

	if err := validate.Struct(dst); err != nil {
		errMsg := "validation failed: "
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, err := range verrs {
				errMsg += fmt.Sprintf("[%s: %s] ", err.Field(), err.Tag())
			}
		} else {
			errMsg += err.Error()
		}

		// Bodies may carry link passwords; log the path only.
		logger.L.Warn("API validation failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("error", errMsg),
		)

		sendError(w, http.StatusBadRequest, ErrorResponse{Error: errMsg, Code: string(realdebrid.CodeValidation)})
		return false
	}

	return true
}
