// Package notify delivers transfer status updates to the parties involved.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/erazemk/perutnina/internal/model"
)

// TypeTransferUpdate is the data type tag of transfer status messages.
const TypeTransferUpdate = "transfer_update"

// Message is a push notification payload.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Data  Data   `json:"data"`
}

// Data is the machine-readable part of a Message.
type Data struct {
	TransferID string `json:"transferId"`
	Status     string `json:"status"`
	Type       string `json:"type"`
}

// Map returns the data as the string map push services expect.
func (d Data) Map() map[string]string {
	return map[string]string{
		"transferId": d.TransferID,
		"status":     d.Status,
		"type":       d.Type,
	}
}

// Notifier sends a message to every device of a user.
type Notifier interface {
	Notify(ctx context.Context, uid string, msg Message) error
}

// TransferUpdate builds the message sent to both parties when a transfer
// reaches a final status.
func TransferUpdate(t *model.Transfer) Message {
	msg := Message{
		Data: Data{
			TransferID: t.ID,
			Status:     t.Status,
			Type:       TypeTransferUpdate,
		},
	}

	switch t.Status {
	case model.TransferVerified:
		msg.Title = "Transfer verified"
		msg.Body = fmt.Sprintf("Ownership of fowl %s has been transferred.", t.FowlID)
	case model.TransferRejected:
		msg.Title = "Transfer rejected"
		msg.Body = fmt.Sprintf("The transfer of fowl %s was rejected: %s.", t.FowlID, t.Reason)
	default:
		msg.Title = "Transfer updated"
		msg.Body = fmt.Sprintf("The transfer of fowl %s is %s.", t.FowlID, t.Status)
	}
	return msg
}

// LogNotifier writes messages to the log instead of delivering them. It is
// used when no push credentials are configured.
type LogNotifier struct{}

// Notify logs the message.
func (LogNotifier) Notify(ctx context.Context, uid string, msg Message) error {
	slog.Info("notification",
		"uid", uid,
		"title", msg.Title,
		"transfer_id", msg.Data.TransferID,
		"status", msg.Data.Status,
	)
	return nil
}
