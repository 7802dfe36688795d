package domain

import (
	"encoding/json"
	"time"
)

type WebhookProvider string

const (
	WebhookProviderRail       WebhookProvider = "RAIL"
	WebhookProviderAggregator WebhookProvider = "AGGREGATOR"
)

// WebhookEvent is the permanent dedup/audit record of a delivered event.
// ID is the provider's event identifier and is unique.
type WebhookEvent struct {
	ID         string          `json:"id"`
	Provider   WebhookProvider `json:"provider"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}

// AggregatorEvent is an item-health webhook from the bank-linking aggregator.
type AggregatorEvent struct {
	WebhookType string           `json:"webhook_type"`
	WebhookCode string           `json:"webhook_code"`
	ItemID      string           `json:"item_id"`
	Error       *AggregatorError `json:"error,omitempty"`
}

type AggregatorError struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}
