package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"moneylink-backend/internal/security"
	"moneylink-backend/internal/service"
)

// Pinger reports database reachability for /healthz.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type RouterDeps struct {
	Transfers     service.TransferService
	Webhooks      service.WebhookService
	Notifications service.NotificationService
	TokenManager  security.TokenManager
	DB            Pinger
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// NewRouter registers every route. Security levels per route live in
// config.EndpointSecurityConfig.
func NewRouter(deps RouterDeps) *mux.Router {
	transfers := NewTransferHandler(deps.Transfers)
	webhooks := NewWebhookHandler(deps.Webhooks)
	notifications := NewNotificationHandler(deps.Notifications)
	auth := NewAuthMiddleware(deps.TokenManager)

	r := mux.NewRouter()
	r.Use(requestContext, instrument, recoverer, auth.Handler)

	r.HandleFunc("/healthz", healthHandler(deps.DB)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	r.HandleFunc("/webhooks/rail", webhooks.HandleRail).Methods("POST")
	r.HandleFunc("/webhooks/aggregator", webhooks.HandleAggregator).Methods("POST")

	r.HandleFunc("/api/v1/transfers/p2p", transfers.CreateP2PTransfer).Methods("POST")
	r.HandleFunc("/api/v1/transfers/bank", transfers.CreateBankTransfer).Methods("POST")
	r.HandleFunc("/api/v1/transactions/{id}/cancel", transfers.CancelTransfer).Methods("POST")

	r.HandleFunc("/api/v1/notifications", notifications.GetNotifications).Methods("GET")
	r.HandleFunc("/api/v1/notifications/{id}/read", notifications.MarkAsRead).Methods("POST")

	return r
}
