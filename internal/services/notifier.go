package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// Notification is a user-facing push message
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// Notifier delivers push notifications to a device token
type Notifier interface {
	Notify(ctx context.Context, deviceToken string, n Notification) error
}

// NopNotifier drops every notification
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, Notification) error { return nil }

// APNsNotifier sends notifications through Apple Push Notification service
type APNsNotifier struct {
	client *apns2.Client
	topic  string
}

// NewAPNsNotifier creates a token-authenticated APNs notifier from a .p8 key file
func NewAPNsNotifier(keyFile, keyID, teamID, topic string, production bool) (*APNsNotifier, error) {
	authKey, err := token.AuthKeyFromFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   keyID,
		TeamID:  teamID,
	})
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNsNotifier{client: client, topic: topic}, nil
}

// Notify sends n to deviceToken
func (a *APNsNotifier) Notify(ctx context.Context, deviceToken string, n Notification) error {
	p := payload.NewPayload().AlertTitle(n.Title).AlertBody(n.Body).Sound("default")
	for k, v := range n.Data {
		p = p.Custom(k, v)
	}

	res, err := a.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       a.topic,
		Payload:     p,
	})
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("push rejected: %d %s", res.StatusCode, res.Reason)
	}
	return nil
}

// notifyUser pushes n to user's device if they registered one. Failures are only logged.
func notifyUser(ctx context.Context, notifier Notifier, pushToken *string, userID string, n Notification) {
	if notifier == nil || pushToken == nil || *pushToken == "" {
		return
	}
	if err := notifier.Notify(ctx, *pushToken, n); err != nil {
		log.Warn().
			Err(err).
			Str("user_id", userID).
			Msg("Failed to send push notification")
	}
}
