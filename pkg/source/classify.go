package source

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/netops-tools/invsync/pkg/errors"
)

// classifyTransport turns a failed round trip into a retryable NETWORK error.
// Per-request timeouts land here too.
func classifyTransport(resource string, err error) error {
	ctx := map[string]any{"resource": resource}
	if stderrors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		ctx["timeout"] = true
		return errors.WrapWithContext(errors.ErrCodeNetwork, "source request timed out", err, ctx)
	}
	return errors.WrapWithContext(errors.ErrCodeNetwork, "source request failed", err, ctx)
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return stderrors.As(err, &te) && te.Timeout()
}

// classifyStatus maps a non-2xx response to the error taxonomy:
// 401 and 403 are fatal authentication failures, 429 is retried after
// Retry-After, 5xx is a retryable network failure and any other 4xx is an
// invalid request.
func classifyStatus(resource string, resp *http.Response, body []byte, now time.Time) error {
	ctx := map[string]any{
		"resource": resource,
		"status":   resp.StatusCode,
	}
	if detail := detailOf(body); detail != "" {
		ctx["detail"] = detail
	}

	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errors.NewWithContext(errors.ErrCodeUnauthorized, "source rejected credentials", ctx)
	case code == http.StatusTooManyRequests:
		if d, ok := parseRetryAfter(resp.Header.Get("Retry-After"), now); ok {
			ctx[errors.ContextKeyRetryAfter] = d
		}
		return errors.NewWithContext(errors.ErrCodeRateLimitExceeded, "source rate limit exceeded", ctx)
	case code >= 500:
		return errors.NewWithContext(errors.ErrCodeNetwork, "source server error", ctx)
	default:
		return errors.NewWithContext(errors.ErrCodeInvalidRequest, "source rejected request", ctx)
	}
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// detailOf extracts the {"detail": "..."} message the source returns with
// errors, falling back to the raw body, truncated for logs.
func detailOf(body []byte) string {
	const maxDetail = 200
	s := strings.TrimSpace(string(body))
	var payload struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Detail != "" {
		s = payload.Detail
	}
	if len(s) > maxDetail {
		s = s[:maxDetail]
	}
	return s
}
