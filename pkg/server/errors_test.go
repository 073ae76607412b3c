// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	inverrors "github.com/netops-tools/invsync/pkg/errors"
)

func TestHTTPStatusFromCode(t *testing.T) {
	tests := []struct {
		name string
		code inverrors.ErrorCode
		want int
	}{
		{"invalid request", inverrors.ErrCodeInvalidRequest, http.StatusBadRequest},
		{"source unauthorized is upstream", inverrors.ErrCodeUnauthorized, http.StatusBadGateway},
		{"source network", inverrors.ErrCodeNetwork, http.StatusBadGateway},
		{"source schema", inverrors.ErrCodeSchema, http.StatusBadGateway},
		{"not ready", inverrors.ErrCodeNotReady, http.StatusServiceUnavailable},
		{"not found", inverrors.ErrCodeNotFound, http.StatusNotFound},
		{"method not allowed", inverrors.ErrCodeMethodNotAllowed, http.StatusMethodNotAllowed},
		{"rate limit", inverrors.ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
		{"unavailable", inverrors.ErrCodeUnavailable, http.StatusServiceUnavailable},
		{"timeout", inverrors.ErrCodeTimeout, http.StatusGatewayTimeout},
		{"internal", inverrors.ErrCodeInternal, http.StatusInternalServerError},
		{"unknown defaults to internal", inverrors.ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusFromCode(tt.code); got != tt.want {
				t.Fatalf("HTTPStatusFromCode(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestRetryableFromCode(t *testing.T) {
	tests := []struct {
		name string
		code inverrors.ErrorCode
		want bool
	}{
		{"invalid request", inverrors.ErrCodeInvalidRequest, false},
		{"unauthorized", inverrors.ErrCodeUnauthorized, false},
		{"not found", inverrors.ErrCodeNotFound, false},
		{"method not allowed", inverrors.ErrCodeMethodNotAllowed, false},
		{"timeout", inverrors.ErrCodeTimeout, true},
		{"unavailable", inverrors.ErrCodeUnavailable, true},
		{"rate limit", inverrors.ErrCodeRateLimitExceeded, true},
		{"internal", inverrors.ErrCodeInternal, true},
		{"network", inverrors.ErrCodeNetwork, true},
		{"not ready", inverrors.ErrCodeNotReady, true},
		{"schema", inverrors.ErrCodeSchema, false},
		{"unknown defaults false", inverrors.ErrorCode("SOMETHING_ELSE"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryableFromCode(tt.code); got != tt.want {
				t.Fatalf("retryableFromCode(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestMergeDetails(t *testing.T) {
	t.Run("both empty returns nil", func(t *testing.T) {
		if got := mergeDetails(nil, nil); got != nil {
			t.Fatalf("expected nil, got %#v", got)
		}
		if got := mergeDetails(map[string]any{}, map[string]any{}); got != nil {
			t.Fatalf("expected nil, got %#v", got)
		}
	})

	t.Run("merges and second overwrites", func(t *testing.T) {
		a := map[string]any{"a": 1, "shared": "old"}
		b := map[string]any{"b": 2, "shared": "new"}

		got := mergeDetails(a, b)
		if got == nil {
			t.Fatal("expected map, got nil")
		}
		if got["a"].(int) != 1 {
			t.Fatalf("expected a=1, got %#v", got["a"])
		}
		if got["b"].(int) != 2 {
			t.Fatalf("expected b=2, got %#v", got["b"])
		}
		if got["shared"].(string) != "new" {
			t.Fatalf("expected shared to be overwritten to 'new', got %#v", got["shared"])
		}
	})
}

func TestWriteError_WritesErrorResponse(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), contextKeyRequestID, "req-123"))
	w := httptest.NewRecorder()

	WriteError(w, req, http.StatusBadRequest, inverrors.ErrCodeInvalidRequest, "bad request", false, map[string]any{"k": "v"})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if resp.Code != string(inverrors.ErrCodeInvalidRequest) {
		t.Fatalf("expected code %q, got %q", inverrors.ErrCodeInvalidRequest, resp.Code)
	}
	if resp.Message != "bad request" {
		t.Fatalf("expected message %q, got %q", "bad request", resp.Message)
	}
	if resp.RequestID != "req-123" {
		t.Fatalf("expected requestId %q, got %q", "req-123", resp.RequestID)
	}
	if resp.Retryable {
		t.Fatalf("expected retryable=false, got true")
	}
	if resp.Details == nil || resp.Details["k"].(string) != "v" {
		t.Fatalf("expected details to include k=v, got %#v", resp.Details)
	}
}

func TestWriteErrorFromErr_StructuredErrorMapsStatusAndDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	cause := errors.New("dial tcp 10.0.0.5:443: connection refused")
	err := inverrors.WrapWithContext(inverrors.ErrCodeUnavailable, "service unavailable", cause, map[string]any{"component": "netbox"})

	WriteErrorFromErr(w, req, err, "fallback", map[string]any{"extra": "yes"})

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}

	var resp ErrorResponse
	if uerr := json.Unmarshal(w.Body.Bytes(), &resp); uerr != nil {
		t.Fatalf("failed to unmarshal response: %v", uerr)
	}

	if resp.Code != string(inverrors.ErrCodeUnavailable) {
		t.Fatalf("expected code %q, got %q", inverrors.ErrCodeUnavailable, resp.Code)
	}
	if resp.Message != "service unavailable" {
		t.Fatalf("expected message %q, got %q", "service unavailable", resp.Message)
	}
	if !resp.Retryable {
		t.Fatalf("expected retryable=true")
	}
	if resp.Details == nil {
		t.Fatalf("expected details, got nil")
	}
	if resp.Details["component"].(string) != "netbox" {
		t.Fatalf("expected component=netbox, got %#v", resp.Details["component"])
	}
	if resp.Details["extra"].(string) != "yes" {
		t.Fatalf("expected extra=yes, got %#v", resp.Details["extra"])
	}
	if resp.Details["error"].(string) != "dial tcp 10.0.0.5:443: connection refused" {
		t.Fatalf("expected error cause propagated, got %#v", resp.Details["error"])
	}
}

func TestWriteErrorFromErr_NonStructuredFallsBackToInternal(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	WriteErrorFromErr(w, req, errors.New("boom"), "fallback", map[string]any{"x": "y"})

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if resp.Code != string(inverrors.ErrCodeInternal) {
		t.Fatalf("expected code %q, got %q", inverrors.ErrCodeInternal, resp.Code)
	}
	if !resp.Retryable {
		t.Fatalf("expected retryable=true")
	}
	if resp.Details == nil || resp.Details["x"].(string) != "y" {
		t.Fatalf("expected details to include x=y, got %#v", resp.Details)
	}
	if resp.Details["error"].(string) != "boom" {
		t.Fatalf("expected details error=boom, got %#v", resp.Details["error"])
	}
}

func TestWriteErrorFromErr_RetryAfterHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/refresh", nil)
	w := httptest.NewRecorder()

	err := inverrors.NewWithContext(inverrors.ErrCodeRateLimitExceeded, "source throttled",
		map[string]any{inverrors.ContextKeyRetryAfter: 3 * time.Second})

	WriteErrorFromErr(w, req, err, "fallback", nil)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "3" {
		t.Fatalf("expected Retry-After 3, got %q", got)
	}

	var resp ErrorResponse
	if uerr := json.Unmarshal(w.Body.Bytes(), &resp); uerr != nil {
		t.Fatalf("failed to unmarshal response: %v", uerr)
	}
	if _, ok := resp.Details[inverrors.ContextKeyRetryAfter]; ok {
		t.Fatalf("expected retry_after to move to the header, got %#v", resp.Details)
	}
}
