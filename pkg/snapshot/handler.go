package snapshot

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/netops-tools/invsync/pkg/defaults"
	"github.com/netops-tools/invsync/pkg/errors"
	"github.com/netops-tools/invsync/pkg/serializer"
	"github.com/netops-tools/invsync/pkg/server"
)

// SignatureHeader carries the hex HMAC-SHA512 of a webhook body, as NetBox
// sends it when the webhook has a secret.
const SignatureHeader = "X-Hook-Signature"

// maxWebhookBody caps the webhook payload read for signature checks.
const maxWebhookBody = 1 << 20

var refreshHandlerTimeout = defaults.RefreshHandlerTimeout

// HandleRefresh runs a manual refresh and answers the resulting status.
// When the refresh outlives the handler timeout it keeps running and the
// answer is 202 with the status at that moment.
func (r *Refresher) HandleRefresh(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		server.MethodNotAllowed(w, req, http.MethodPost)
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), refreshHandlerTimeout)
	defer cancel()

	if _, err := r.Refresh(ctx, TriggerManual); err != nil {
		if ctx.Err() != nil && errors.Is(err, errors.ErrCodeTimeout) {
			serializer.RespondJSON(w, http.StatusAccepted, r.Status())
			return
		}
		server.WriteErrorFromErr(w, req, err, "Refresh failed", nil)
		return
	}

	serializer.RespondJSON(w, http.StatusOK, r.Status())
}

// HandleStatus answers the refresh status. It succeeds before the first
// snapshot is published, with Ready false.
func (r *Refresher) HandleStatus(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		server.MethodNotAllowed(w, req, http.MethodGet)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	serializer.RespondJSON(w, http.StatusOK, r.Status())
}

// WebhookHandler accepts change notifications from the source and triggers
// a background refresh. With a non-empty secret every request must carry
// a valid signature.
func (r *Refresher) WebhookHandler(secret []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			server.MethodNotAllowed(w, req, http.MethodPost)
			return
		}

		body, err := io.ReadAll(io.LimitReader(req.Body, maxWebhookBody+1))
		if err != nil {
			server.WriteError(w, req, http.StatusBadRequest, errors.ErrCodeInvalidRequest,
				"Failed to read webhook body", false, map[string]any{"error": err.Error()})
			return
		}
		if len(body) > maxWebhookBody {
			server.WriteError(w, req, http.StatusRequestEntityTooLarge, errors.ErrCodeInvalidRequest,
				"Webhook body too large", false, map[string]any{"limit": maxWebhookBody})
			return
		}

		if len(secret) > 0 && !validSignature(secret, body, req.Header.Get(SignatureHeader)) {
			webhookRejected.Inc()
			slog.Warn("webhook signature rejected", "remote", req.RemoteAddr)
			server.WriteError(w, req, http.StatusUnauthorized, errors.ErrCodeUnauthorized,
				"Invalid webhook signature", false, nil)
			return
		}

		r.Trigger(TriggerWebhook)
		serializer.RespondJSON(w, http.StatusAccepted, map[string]any{
			"accepted": true,
			"trigger":  TriggerWebhook,
		})
	}
}

// Sign returns the signature a webhook sender computes for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha512.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func validSignature(secret, body []byte, got string) bool {
	want, err := hex.DecodeString(strings.TrimSpace(got))
	if err != nil || len(want) == 0 {
		return false
	}
	mac := hmac.New(sha512.New, secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}
