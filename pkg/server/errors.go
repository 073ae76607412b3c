package server

import (
	"maps"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/netops-tools/invsync/pkg/errors"
	"github.com/netops-tools/invsync/pkg/serializer"
)

// HTTPStatusFromCode maps an error code to the status answered to clients.
// Failures talking to the source are the server's upstream, so they map to
// gateway statuses rather than to the client's own 401 or 429.
func HTTPStatusFromCode(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case errors.ErrCodeUnauthorized, errors.ErrCodeNetwork, errors.ErrCodeSchema:
		return http.StatusBadGateway
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case errors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case errors.ErrCodeUnavailable, errors.ErrCodeNotReady:
		return http.StatusServiceUnavailable
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func retryableFromCode(code errors.ErrorCode) bool {
	switch code {
	case errors.ErrCodeTimeout, errors.ErrCodeUnavailable, errors.ErrCodeRateLimitExceeded,
		errors.ErrCodeInternal, errors.ErrCodeNetwork, errors.ErrCodeNotReady:
		return true
	default:
		return false
	}
}

func mergeDetails(a, b map[string]any) map[string]any {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]any, len(a)+len(b))
	maps.Copy(out, a)
	maps.Copy(out, b)
	return out
}

// WriteError writes a JSON ErrorResponse.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int,
	code errors.ErrorCode, message string, retryable bool, details map[string]any) {

	requestID := RequestID(r.Context())
	if requestID == "" {
		requestID = uuid.New().String()
	}

	errResp := ErrorResponse{
		Code:      string(code),
		Message:   message,
		Details:   details,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Retryable: retryable,
	}

	serializer.RespondJSON(w, statusCode, errResp)
}

// WriteErrorFromErr derives status, code and details from err. Errors
// without a code are answered as INTERNAL with fallbackMessage.
func WriteErrorFromErr(w http.ResponseWriter, r *http.Request, err error, fallbackMessage string,
	extraDetails map[string]any) {

	se, ok := errors.AsStructured(err)
	if !ok {
		WriteError(w, r, http.StatusInternalServerError, errors.ErrCodeInternal, fallbackMessage,
			true, mergeDetails(extraDetails, map[string]any{"error": err.Error()}))
		return
	}

	details := mergeDetails(se.Context, extraDetails)
	if se.Cause != nil {
		details = mergeDetails(details, map[string]any{"error": se.Cause.Error()})
	}
	if d, ok := se.RetryAfter(); ok {
		delete(details, errors.ContextKeyRetryAfter)
		w.Header().Set("Retry-After", strconv.Itoa(int(d.Round(time.Second).Seconds())))
	}

	message := se.Message
	if message == "" {
		message = fallbackMessage
	}
	WriteError(w, r, HTTPStatusFromCode(se.Code), se.Code, message, retryableFromCode(se.Code), details)
}
