package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/bitpal/wallet-service/internal/service"
	"go.uber.org/zap"
)

// WebhookHandler receives Paystack charge events.
type WebhookHandler struct {
	svc *service.WebhookService
}

func NewWebhookHandler(svc *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

// HandlePaystack handles POST /v1/paystack/webhook. The response is always
// 200 so the provider does not retry events we have already rejected; the
// body's status flag and server-side logs carry the real outcome.
func (h *WebhookHandler) HandlePaystack(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		zap.L().Error("read webhook body failed", zap.Error(err))
		respondWebhook(w, false, "failed to read request body")
		return
	}

	signature := r.Header.Get("x-paystack-signature")

	outcome, err := h.svc.HandleWebhook(r.Context(), body, signature)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			zap.L().Warn("webhook signature rejected")
			respondWebhook(w, false, "invalid signature")
		case errors.Is(err, service.ErrMalformedWebhook):
			respondWebhook(w, false, "malformed payload")
		case errors.Is(err, service.ErrMissingReference):
			respondWebhook(w, false, "missing reference")
		case errors.Is(err, service.ErrUnknownReference):
			respondWebhook(w, false, "unknown reference")
		case errors.Is(err, service.ErrNotDepositWebhook):
			respondWebhook(w, false, "reference is not a deposit")
		default:
			zap.L().Error("process webhook failed", zap.Error(err))
			respondWebhook(w, false, "processing failed")
		}
		return
	}

	respondWebhook(w, true, outcome.Message)
}

func respondWebhook(w http.ResponseWriter, ok bool, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(envelope{Status: ok, Message: message})
}
