package transfer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/erazemk/perutnina/internal/metrics"
	"github.com/erazemk/perutnina/internal/model"
	"github.com/erazemk/perutnina/internal/proof"
	"github.com/erazemk/perutnina/internal/store"
)

// Rejection reasons stored on the transfer.
const (
	ReasonInvalidSignature  = "invalid signature"
	ReasonProofHashMismatch = "proof hash mismatch"
)

// VerifyRequest is a party's signed claim over a transfer.
type VerifyRequest struct {
	TransferID string     `json:"transferId"`
	Signature  string     `json:"signature"`
	ProofData  proof.Data `json:"proofData"`
}

// Validate checks the request fields.
func (r VerifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TransferID, validation.Required),
		validation.Field(&r.Signature, validation.Required),
	)
}

// VerifyResult is returned for a verified transfer.
type VerifyResult struct {
	Success    bool   `json:"success"`
	TransferID string `json:"transferId"`
	Status     string `json:"status"`
}

// VerifyTransfer checks the caller's signature and proof for a pending
// transfer. A bad signature or a proof that does not match the stored
// transfer rejects the transfer for good. Otherwise the transfer is marked
// VERIFIED and the fowl moves to the recipient in one transaction.
// Notifications and analytics are sent in the background.
func (s *Service) VerifyTransfer(ctx context.Context, callerUID string, req VerifyRequest) (*VerifyResult, error) {
	if callerUID == "" {
		return nil, newError(KindUnauthenticated, "authentication required")
	}
	if err := req.Validate(); err != nil {
		return nil, &Error{Kind: KindInvalidArgument, Msg: err.Error(), Err: err}
	}

	t, err := s.Repo.GetTransfer(ctx, req.TransferID)
	if err != nil {
		return nil, s.fail(internalError("loading transfer", err))
	}
	if t == nil {
		return nil, newError(KindNotFound, "transfer not found")
	}

	ok, err := s.isParty(ctx, callerUID, t)
	if err != nil {
		return nil, s.fail(err)
	}
	if !ok {
		return nil, newError(KindPermissionDenied, "caller is not a party to this transfer")
	}

	if t.Status != model.TransferPending {
		return nil, newError(KindInvalidArgument, "transfer already resolved")
	}
	if t.ToUID == "" {
		return nil, newError(KindInvalidArgument, "recipient has not been resolved yet")
	}

	caller, err := s.Repo.GetUser(ctx, callerUID)
	if err != nil {
		return nil, s.fail(internalError("loading caller", err))
	}
	if caller == nil || caller.PublicKey == "" {
		return nil, newError(KindInvalidArgument, "no public key registered")
	}

	submitted := req.ProofData.Hash()
	if !proof.Verify(caller.PublicKey, req.Signature, submitted) {
		return nil, s.reject(ctx, t, ReasonInvalidSignature)
	}
	if !bytes.Equal(proof.FromTransfer(t).Hash(), submitted) {
		return nil, s.reject(ctx, t, ReasonProofHashMismatch)
	}

	now := s.Now()
	if err := s.Repo.CompleteTransfer(ctx, t, req.Signature, now); err != nil {
		switch {
		case errors.Is(err, store.ErrNotPending):
			return nil, newError(KindInvalidArgument, "transfer already resolved")
		case errors.Is(err, store.ErrOwnerConflict):
			return nil, s.fail(&Error{Kind: KindInternal, Msg: "fowl ownership changed, retry later", Err: err})
		default:
			return nil, s.fail(internalError("completing transfer", err))
		}
	}

	t.Status = model.TransferVerified
	t.Verified = true
	t.Signature = req.Signature
	t.ResolvedAt = now.UnixMilli()

	metrics.TransferVerification("verified")
	logTransfer("transfer verified", t, "by", callerUID)

	s.notifyParties(t)
	s.record("transfer_verified", map[string]any{
		"method":     methodLabel(t.ContactMethod),
		"outcome":    "verified",
		"transferId": t.ID,
	})

	return &VerifyResult{Success: true, TransferID: t.ID, Status: t.Status}, nil
}

// reject finalizes t as REJECTED and returns the error for the caller.
func (s *Service) reject(ctx context.Context, t *model.Transfer, reason string) error {
	now := s.Now()
	if err := s.Repo.RejectTransfer(ctx, t, reason, now); err != nil {
		if errors.Is(err, store.ErrNotPending) {
			return newError(KindInvalidArgument, "transfer already resolved")
		}
		return s.fail(internalError("rejecting transfer", err))
	}

	t.Status = model.TransferRejected
	t.Verified = false
	t.Reason = reason
	t.ResolvedAt = now.UnixMilli()

	metrics.TransferVerification("rejected")
	logTransfer("transfer rejected", t, "reason", reason)

	s.notifyParties(t)
	s.record("transfer_rejected", map[string]any{
		"method":     methodLabel(t.ContactMethod),
		"outcome":    "rejected",
		"reason":     reason,
		"transferId": t.ID,
	})

	return newError(KindInvalidArgument, "%s", reason)
}

func (s *Service) fail(err error) error {
	metrics.TransferVerification("error")
	slog.Error("transfer verification failed", "error", err)
	return err
}
