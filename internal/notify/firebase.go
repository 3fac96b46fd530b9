package notify

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/erazemk/perutnina/internal/store"
)

// FirebaseNotifier sends messages through Firebase Cloud Messaging to the
// push tokens a user has registered.
type FirebaseNotifier struct {
	db        *sql.DB
	messaging *messaging.Client
}

// NewFirebaseNotifier creates a notifier from a service account credentials file.
func NewFirebaseNotifier(ctx context.Context, credentialsFile string, db *sql.DB) (*FirebaseNotifier, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing messaging client: %w", err)
	}

	return &FirebaseNotifier{db: db, messaging: client}, nil
}

// Notify sends msg to all of the user's devices. Tokens the service reports
// as unregistered are removed.
func (n *FirebaseNotifier) Notify(ctx context.Context, uid string, msg Message) error {
	tokens, err := store.GetPushTokens(ctx, n.db, uid)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   msg.Data.Map(),
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority": "10",
			},
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}

	br, err := n.messaging.SendEachForMulticast(ctx, message)
	if err != nil {
		return fmt.Errorf("sending push: %w", err)
	}

	if br.FailureCount == 0 {
		return nil
	}

	// Responses are in token order.
	for i, resp := range br.Responses {
		if resp.Success || !messaging.IsUnregistered(resp.Error) {
			continue
		}
		if err := store.RemovePushToken(ctx, n.db, tokens[i]); err != nil {
			slog.Warn("removing push token", "uid", uid, "error", err)
		}
	}

	if br.SuccessCount == 0 {
		return fmt.Errorf("push failed for all %d devices", br.FailureCount)
	}
	return nil
}
