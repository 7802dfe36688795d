package http

import (
	"io"
	"net/http"

	"moneylink-backend/internal/logger"
	"moneylink-backend/internal/service"
)

// SignatureHeader carries the rail's hex HMAC-SHA256 of the raw body.
const SignatureHeader = "X-Request-Signature-SHA-256"

type webhookAck struct {
	Received bool `json:"received"`
}

type WebhookHandler struct {
	svc service.WebhookService
}

func NewWebhookHandler(svc service.WebhookService) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

// HandleRail answers 200 once the event is recorded or recognized as a duplicate.
// Storage failures answer 500 so the rail redelivers.
func (h *WebhookHandler) HandleRail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Unreadable body")
		return
	}

	if err := h.svc.HandleRailEvent(ctx, body, r.Header.Get(SignatureHeader)); err != nil {
		writeError(ctx, w, err)
		return
	}
	respondJSON(w, http.StatusOK, webhookAck{Received: true})
}

// HandleAggregator always answers 200; failures are logged only.
func (h *WebhookHandler) HandleAggregator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		logger.WarnContext(ctx, "Unreadable aggregator webhook", "error", err)
	} else if err := h.svc.HandleAggregatorEvent(ctx, body); err != nil {
		logger.WarnContext(ctx, "Aggregator webhook failed", "error", err)
	}
	respondJSON(w, http.StatusOK, webhookAck{Received: true})
}
