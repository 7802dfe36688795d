package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"moneylink-backend/internal/domain"
	"moneylink-backend/internal/logger"
	"moneylink-backend/internal/metrics"
	"moneylink-backend/internal/repository"
	"moneylink-backend/internal/security"
)

var fundingSourceRemovedTopics = map[string]bool{
	"funding_source_removed":          true,
	"customer_funding_source_removed": true,
}

type railLink struct {
	Href string `json:"href"`
}

// railEnvelope is the rail's webhook body. The resource link arrives either under
// _links or at the top level depending on the API version.
type railEnvelope struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	Timestamp string `json:"timestamp"`
	Links     struct {
		Resource railLink `json:"resource"`
	} `json:"_links"`
	Resource *railLink `json:"resource"`
}

func (e *railEnvelope) resourceID() string {
	href := e.Links.Resource.Href
	if href == "" && e.Resource != nil {
		href = e.Resource.Href
	}
	href = strings.TrimRight(href, "/")
	if i := strings.LastIndex(href, "/"); i >= 0 {
		return href[i+1:]
	}
	return href
}

type webhookService struct {
	eventRepo  repository.WebhookEventRepository
	reconciler ReconciliationService
	bankHealth BankHealthService
	secret     string
}

func NewWebhookService(
	eventRepo repository.WebhookEventRepository,
	reconciler ReconciliationService,
	bankHealth BankHealthService,
	secret string,
) WebhookService {
	return &webhookService{
		eventRepo:  eventRepo,
		reconciler: reconciler,
		bankHealth: bankHealth,
		secret:     secret,
	}
}

func (s *webhookService) HandleRailEvent(ctx context.Context, rawBody []byte, signature string) error {
	provider := string(domain.WebhookProviderRail)

	if err := security.VerifyPayload(s.secret, rawBody, signature); err != nil {
		metrics.WebhookEvents.WithLabelValues(provider, metrics.OutcomeRejected).Inc()
		logger.WarnContext(ctx, "Rejected rail webhook", "error", err)
		return fmt.Errorf("%w: %v", domain.ErrAuthentication, err)
	}

	var envelope railEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		metrics.WebhookEvents.WithLabelValues(provider, metrics.OutcomeRejected).Inc()
		return domain.NewValidationError("malformed webhook body: %v", err)
	}
	resourceID := envelope.resourceID()
	if envelope.ID == "" || envelope.Topic == "" || resourceID == "" {
		metrics.WebhookEvents.WithLabelValues(provider, metrics.OutcomeRejected).Inc()
		return domain.NewValidationError("webhook body must carry id, topic and resource link")
	}

	ctx = logger.WithContext(ctx, "eventID", envelope.ID, "topic", envelope.Topic)

	inserted, err := s.eventRepo.Insert(ctx, &domain.WebhookEvent{
		ID:        envelope.ID,
		Provider:  domain.WebhookProviderRail,
		EventType: envelope.Topic,
		Payload:   json.RawMessage(rawBody),
	})
	if err != nil {
		return fmt.Errorf("record webhook event %s: %w", envelope.ID, err)
	}
	if !inserted {
		metrics.WebhookEvents.WithLabelValues(provider, metrics.OutcomeDuplicate).Inc()
		logger.InfoContext(ctx, "Duplicate rail webhook ignored")
		return nil
	}

	// The event is now recorded and will not be redelivered for processing, so
	// failures from here on are only logged.
	outcome, err := s.dispatch(ctx, envelope.Topic, resourceID)
	if err != nil {
		outcome = metrics.OutcomeFailed
		logger.ErrorContext(ctx, "Rail webhook processing failed", "resourceID", resourceID, "error", err)
	}
	metrics.WebhookEvents.WithLabelValues(provider, outcome).Inc()
	return nil
}

func (s *webhookService) dispatch(ctx context.Context, topic, resourceID string) (string, error) {
	switch {
	case fundingSourceRemovedTopics[topic]:
		return metrics.OutcomeProcessed, s.bankHealth.HandleFundingSourceRemoved(ctx, resourceID)
	case strings.Contains(topic, "transfer"):
		return metrics.OutcomeProcessed, s.reconciler.Reconcile(ctx, resourceID, topic)
	default:
		logger.InfoContext(ctx, "Ignoring rail webhook topic", "resourceID", resourceID)
		return metrics.OutcomeIgnored, nil
	}
}

func (s *webhookService) HandleAggregatorEvent(ctx context.Context, rawBody []byte) error {
	provider := string(domain.WebhookProviderAggregator)

	var event domain.AggregatorEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		metrics.WebhookEvents.WithLabelValues(provider, metrics.OutcomeRejected).Inc()
		return domain.NewValidationError("malformed aggregator webhook: %v", err)
	}

	if err := s.bankHealth.HandleItemEvent(ctx, event); err != nil {
		metrics.WebhookEvents.WithLabelValues(provider, metrics.OutcomeFailed).Inc()
		return err
	}
	metrics.WebhookEvents.WithLabelValues(provider, metrics.OutcomeProcessed).Inc()
	return nil
}
