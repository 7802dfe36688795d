package service

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"moneylink-backend/internal/domain"
	"moneylink-backend/internal/logger"
)

// messageSender is the part of *messaging.Client used here.
type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type fcmPusher struct {
	client messageSender
}

// NewFCMPusher publishes notifications to the per-user topic "user-<id>" that the
// mobile app subscribes to after login.
func NewFCMPusher(ctx context.Context, credentialsFile string) (PushSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return &fcmPusher{client: client}, nil
}

func (p *fcmPusher) Push(ctx context.Context, n *domain.Notification) error {
	msg := pushMessage(n)

	logger.ExternalServiceCall("fcm", "Send", "topic", msg.Topic, "type", n.Type)
	id, err := p.client.Send(ctx, msg)
	logger.ExternalServiceResult("fcm", "Send", err, "messageID", id)
	return err
}

func pushTopic(userID string) string {
	return "user-" + userID
}

func pushMessage(n *domain.Notification) *messaging.Message {
	data := map[string]string{
		"notification_id": n.ID,
		"type":            string(n.Type),
	}
	if n.RelatedTransactionID != nil {
		data["transaction_id"] = *n.RelatedTransactionID
	}
	if n.ActionURL != nil {
		data["action_url"] = *n.ActionURL
	}
	return &messaging.Message{
		Topic: pushTopic(n.UserID),
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Message,
		},
		Data: data,
	}
}
