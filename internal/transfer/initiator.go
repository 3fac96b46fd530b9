package transfer

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"github.com/erazemk/perutnina/internal/metrics"
	"github.com/erazemk/perutnina/internal/model"
	"github.com/erazemk/perutnina/internal/store"
)

// CreateRequest starts a transfer of a fowl to a recipient identified by
// email or phone number.
type CreateRequest struct {
	FowlID        string `json:"fowlId"`
	Recipient     string `json:"recipient"`
	ContactMethod string `json:"contactMethod"`
}

func (r *CreateRequest) normalize() {
	r.FowlID = strings.TrimSpace(r.FowlID)
	r.ContactMethod = strings.ToUpper(strings.TrimSpace(r.ContactMethod))
	r.Recipient = model.NormalizeContact(r.ContactMethod, r.Recipient)
}

// Validate checks the request fields.
func (r CreateRequest) Validate() error {
	recipientRules := []validation.Rule{validation.Required}
	switch r.ContactMethod {
	case model.ContactEmail:
		recipientRules = append(recipientRules, is.EmailFormat)
	case model.ContactPhone:
		recipientRules = append(recipientRules,
			validation.Match(model.PhonePattern).Error("must be a phone number in international format"))
	}

	return validation.ValidateStruct(&r,
		validation.Field(&r.FowlID, validation.Required),
		validation.Field(&r.ContactMethod, validation.Required, validation.In(model.ContactEmail, model.ContactPhone)),
		validation.Field(&r.Recipient, recipientRules...),
	)
}

// CreateTransfer records a pending transfer of a fowl the caller owns and
// returns its id. The recipient is resolved to a user when one with the
// given email or phone already exists; otherwise it is bound when the
// recipient verifies.
func (s *Service) CreateTransfer(ctx context.Context, callerUID string, req CreateRequest) (string, error) {
	if callerUID == "" {
		return "", newError(KindUnauthenticated, "authentication required")
	}

	req.normalize()
	if err := req.Validate(); err != nil {
		return "", &Error{Kind: KindInvalidArgument, Msg: err.Error(), Err: err}
	}

	fowl, err := s.Repo.GetFowl(ctx, req.FowlID)
	if err != nil {
		return "", internalError("loading fowl", err)
	}
	if fowl == nil {
		return "", newError(KindNotFound, "fowl not found")
	}
	if fowl.OwnerID != callerUID {
		return "", newError(KindPermissionDenied, "fowl is not owned by caller")
	}

	t := &model.Transfer{
		ID:            uuid.NewString(),
		FowlID:        fowl.ID,
		FromUID:       callerUID,
		Recipient:     req.Recipient,
		ContactMethod: req.ContactMethod,
		Status:        model.TransferPending,
		Timestamp:     s.Now().UnixMilli(),
		ProofURLs:     []string{},
	}

	recipient, err := s.Repo.FindUserByContact(ctx, req.ContactMethod, req.Recipient)
	if err != nil {
		return "", internalError("resolving recipient", err)
	}
	if recipient != nil {
		if recipient.UID == callerUID {
			return "", newError(KindInvalidArgument, "cannot transfer a fowl to yourself")
		}
		t.ToUID = recipient.UID
	}

	if err := s.Repo.CreateTransfer(ctx, t); err != nil {
		return "", internalError("creating transfer", err)
	}

	method := methodLabel(t.ContactMethod)
	metrics.TransferInitiated(method)
	logTransfer("transfer created", t, "method", method)
	s.record("transfer_initiated", map[string]any{"method": method, "transferId": t.ID})

	return t.ID, nil
}

// AttachProof replaces the proof URLs of a pending transfer. Only a party to
// the transfer may attach proof.
func (s *Service) AttachProof(ctx context.Context, callerUID, transferID string, urls []string) (*model.Transfer, error) {
	if callerUID == "" {
		return nil, newError(KindUnauthenticated, "authentication required")
	}

	if err := validation.Validate(urls,
		validation.Length(0, 20),
		validation.Each(validation.Required, is.URL),
	); err != nil {
		return nil, &Error{Kind: KindInvalidArgument, Msg: "proofUrls: " + err.Error(), Err: err}
	}

	t, err := s.Repo.GetTransfer(ctx, transferID)
	if err != nil {
		return nil, internalError("loading transfer", err)
	}
	if t == nil {
		return nil, newError(KindNotFound, "transfer not found")
	}

	ok, err := s.isParty(ctx, callerUID, t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(KindPermissionDenied, "caller is not a party to this transfer")
	}
	if model.IsTerminal(t.Status) {
		return nil, newError(KindInvalidArgument, "transfer already resolved")
	}

	if urls == nil {
		urls = []string{}
	}
	if err := s.Repo.SetTransferProof(ctx, t.ID, urls); err != nil {
		if errors.Is(err, store.ErrNotPending) {
			return nil, newError(KindInvalidArgument, "transfer already resolved")
		}
		return nil, internalError("attaching proof", err)
	}

	t.ProofURLs = urls
	logTransfer("transfer proof attached", t, "urls", len(urls))
	return t, nil
}

// GetTransfer returns a transfer the caller is a party to.
func (s *Service) GetTransfer(ctx context.Context, callerUID, transferID string) (*model.Transfer, error) {
	if callerUID == "" {
		return nil, newError(KindUnauthenticated, "authentication required")
	}

	t, err := s.Repo.GetTransfer(ctx, transferID)
	if err != nil {
		return nil, internalError("loading transfer", err)
	}
	if t == nil {
		return nil, newError(KindNotFound, "transfer not found")
	}

	ok, err := s.isParty(ctx, callerUID, t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError(KindPermissionDenied, "caller is not a party to this transfer")
	}
	return t, nil
}

// isParty reports whether the caller is the sender or the recipient of t.
// When the recipient is still unresolved, a caller whose contact details
// match the recipient is the recipient, and t.ToUID is bound to them.
func (s *Service) isParty(ctx context.Context, callerUID string, t *model.Transfer) (bool, error) {
	if t.IsParty(callerUID) {
		return true, nil
	}
	if t.ToUID != "" {
		return false, nil
	}

	caller, err := s.Repo.GetUser(ctx, callerUID)
	if err != nil {
		return false, internalError("loading caller", err)
	}
	if caller == nil || !matchesRecipient(caller, t) {
		return false, nil
	}

	t.ToUID = caller.UID
	return true, nil
}

func matchesRecipient(u *model.User, t *model.Transfer) bool {
	var contact string
	switch t.ContactMethod {
	case model.ContactEmail:
		contact = u.Email
	case model.ContactPhone:
		contact = u.Phone
	}
	if contact == "" {
		return false
	}
	return model.NormalizeContact(t.ContactMethod, contact) == t.Recipient
}
