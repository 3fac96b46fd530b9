// Package transfer implements the fowl ownership transfer workflow: a
// sender creates a pending transfer, and a party later verifies it with a
// signed proof, which moves the fowl to the recipient.
package transfer

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/erazemk/perutnina/internal/dispatch"
	"github.com/erazemk/perutnina/internal/metrics"
	"github.com/erazemk/perutnina/internal/model"
	"github.com/erazemk/perutnina/internal/notify"
	"github.com/erazemk/perutnina/internal/store"
)

// OwnershipStore completes a transfer. CompleteTransfer must atomically mark
// t VERIFIED and move the fowl from t.FromUID to t.ToUID, writing nothing
// and returning store.ErrOwnerConflict if the fowl is no longer owned by
// t.FromUID, or store.ErrNotPending if t was already resolved.
type OwnershipStore interface {
	CompleteTransfer(ctx context.Context, t *model.Transfer, signature string, at time.Time) error
}

// Repository is the storage the service needs.
type Repository interface {
	OwnershipStore

	GetFowl(ctx context.Context, id string) (*model.Fowl, error)
	GetUser(ctx context.Context, uid string) (*model.User, error)
	FindUserByContact(ctx context.Context, method, identifier string) (*model.User, error)

	CreateTransfer(ctx context.Context, t *model.Transfer) error
	GetTransfer(ctx context.Context, id string) (*model.Transfer, error)
	SetTransferProof(ctx context.Context, id string, urls []string) error
	RejectTransfer(ctx context.Context, t *model.Transfer, reason string, at time.Time) error
}

// EventRecorder buffers analytics events.
type EventRecorder interface {
	Record(ctx context.Context, name string, params map[string]any) error
}

// Dispatcher runs side effects after the request that caused them.
type Dispatcher interface {
	Submit(name string, fn dispatch.Task) bool
}

// Service runs transfer operations on behalf of an authenticated caller.
type Service struct {
	Repo     Repository
	Notifier notify.Notifier
	Events   EventRecorder
	Tasks    Dispatcher
	Now      func() time.Time
}

// NewService creates a service. Notifier and events may be nil.
func NewService(repo Repository, notifier notify.Notifier, events EventRecorder, tasks Dispatcher) *Service {
	return &Service{
		Repo:     repo,
		Notifier: notifier,
		Events:   events,
		Tasks:    tasks,
		Now:      time.Now,
	}
}

// notifyParties sends the final status of t to both parties.
func (s *Service) notifyParties(t *model.Transfer) {
	if s.Notifier == nil {
		return
	}

	msg := notify.TransferUpdate(t)
	for _, uid := range []string{t.FromUID, t.ToUID} {
		if uid == "" {
			continue
		}
		s.Tasks.Submit("notify", func(ctx context.Context) error {
			err := s.Notifier.Notify(ctx, uid, msg)
			metrics.Notification(err == nil)
			return err
		})
	}
}

func (s *Service) record(name string, params map[string]any) {
	if s.Events == nil {
		return
	}
	s.Tasks.Submit("analytics:"+name, func(ctx context.Context) error {
		return s.Events.Record(ctx, name, params)
	})
}

func methodLabel(contactMethod string) string {
	if contactMethod == model.ContactPhone {
		return "phone"
	}
	return "email"
}

// SQLRepository is the Repository backed by the application database.
type SQLRepository struct {
	DB *sql.DB
}

var _ Repository = (*SQLRepository)(nil)

func (r *SQLRepository) GetFowl(ctx context.Context, id string) (*model.Fowl, error) {
	return store.GetFowl(ctx, r.DB, id)
}

func (r *SQLRepository) GetUser(ctx context.Context, uid string) (*model.User, error) {
	return store.GetUserByUID(ctx, r.DB, uid)
}

func (r *SQLRepository) FindUserByContact(ctx context.Context, method, identifier string) (*model.User, error) {
	return store.FindUserByContact(ctx, r.DB, method, identifier)
}

func (r *SQLRepository) CreateTransfer(ctx context.Context, t *model.Transfer) error {
	return store.CreateTransfer(ctx, r.DB, t)
}

func (r *SQLRepository) GetTransfer(ctx context.Context, id string) (*model.Transfer, error) {
	return store.GetTransfer(ctx, r.DB, id)
}

func (r *SQLRepository) SetTransferProof(ctx context.Context, id string, urls []string) error {
	return store.SetTransferProof(ctx, r.DB, id, urls)
}

func (r *SQLRepository) RejectTransfer(ctx context.Context, t *model.Transfer, reason string, at time.Time) error {
	return store.RejectTransfer(ctx, r.DB, t, reason, at)
}

func (r *SQLRepository) CompleteTransfer(ctx context.Context, t *model.Transfer, signature string, at time.Time) error {
	return store.CompleteTransfer(ctx, r.DB, t, signature, at)
}

func logTransfer(msg string, t *model.Transfer, args ...any) {
	slog.Info(msg, append([]any{
		"transfer_id", t.ID,
		"fowl_id", t.FowlID,
		"from", t.FromUID,
		"to", t.ToUID,
		"status", t.Status,
	}, args...)...)
}
