package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erazemk/perutnina/internal/model"
)

const transferColumns = `id, fowl_id, from_uid, to_uid, recipient, contact_method, status,
	timestamp, verified, signature, proof_urls, reason, resolved_at`

// CreateTransfer inserts a PENDING transfer record.
func CreateTransfer(ctx context.Context, db *sql.DB, t *model.Transfer) error {
	urls, err := encodeURLs(t.ProofURLs)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO transfers (id, fowl_id, from_uid, to_uid, recipient, contact_method, status, timestamp, proof_urls)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.FowlID, t.FromUID, t.ToUID, t.Recipient, t.ContactMethod,
		model.TransferPending, t.Timestamp, urls,
	)
	if err != nil {
		return fmt.Errorf("creating transfer: %w", err)
	}
	return nil
}

// GetTransfer returns a transfer by ID, or nil if it does not exist.
func GetTransfer(ctx context.Context, q Querier, id string) (*model.Transfer, error) {
	t, err := scanTransfer(q.QueryRowContext(ctx,
		`SELECT `+transferColumns+` FROM transfers WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting transfer: %w", err)
	}
	return t, nil
}

// ListTransfers returns transfers, optionally filtered by fowl or party.
func ListTransfers(ctx context.Context, db *sql.DB, fowlID, uid string) ([]model.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE 1=1`
	var args []any

	if fowlID != "" {
		query += ` AND fowl_id = ?`
		args = append(args, fowlID)
	}
	if uid != "" {
		query += ` AND (from_uid = ? OR to_uid = ?)`
		args = append(args, uid, uid)
	}

	query += ` ORDER BY timestamp DESC, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	defer rows.Close()

	var transfers []model.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}
		transfers = append(transfers, *t)
	}
	return transfers, rows.Err()
}

// SetTransferProof replaces the proof URLs of a pending transfer.
func SetTransferProof(ctx context.Context, db *sql.DB, id string, urls []string) error {
	encoded, err := encodeURLs(urls)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		`UPDATE transfers SET proof_urls = ? WHERE id = ? AND status = ?`,
		encoded, id, model.TransferPending,
	)
	if err != nil {
		return fmt.Errorf("setting transfer proof: %w", err)
	}
	return pendingResult(res)
}

// RejectTransfer moves a pending transfer to REJECTED and records t.ToUID,
// which may have been bound to the recipient after creation. It returns
// ErrNotPending if the transfer was already resolved.
func RejectTransfer(ctx context.Context, db *sql.DB, t *model.Transfer, reason string, at time.Time) error {
	res, err := db.ExecContext(ctx,
		`UPDATE transfers SET status = ?, verified = 0, to_uid = ?, reason = ?, resolved_at = ?
		 WHERE id = ? AND status = ?`,
		model.TransferRejected, t.ToUID, reason, at.UnixMilli(), t.ID, model.TransferPending,
	)
	if err != nil {
		return fmt.Errorf("rejecting transfer: %w", err)
	}
	return pendingResult(res)
}

// CompleteTransfer marks a pending transfer VERIFIED and moves the fowl to
// the recipient in one transaction. Nothing is written if the transfer is no
// longer pending (ErrNotPending) or the fowl owner is not t.FromUID
// (ErrOwnerConflict).
func CompleteTransfer(ctx context.Context, db *sql.DB, t *model.Transfer, signature string, at time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE transfers SET status = ?, verified = 1, signature = ?, to_uid = ?, resolved_at = ?
		 WHERE id = ? AND status = ?`,
		model.TransferVerified, signature, t.ToUID, at.UnixMilli(), t.ID, model.TransferPending,
	)
	if err != nil {
		return fmt.Errorf("verifying transfer: %w", err)
	}
	if err := pendingResult(res); err != nil {
		return err
	}

	if err := ConditionalOwnerUpdate(ctx, tx, t.FowlID, t.FromUID, t.ToUID, at); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transfer: %w", err)
	}
	return nil
}

func pendingResult(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking updated rows: %w", err)
	}
	if n == 0 {
		return ErrNotPending
	}
	return nil
}

func encodeURLs(urls []string) (string, error) {
	if urls == nil {
		urls = []string{}
	}
	b, err := json.Marshal(urls)
	if err != nil {
		return "", fmt.Errorf("encoding proof urls: %w", err)
	}
	return string(b), nil
}

func scanTransfer(row rowScanner) (*model.Transfer, error) {
	t := &model.Transfer{}
	var urls string
	var resolvedAt sql.NullInt64
	err := row.Scan(&t.ID, &t.FowlID, &t.FromUID, &t.ToUID, &t.Recipient, &t.ContactMethod,
		&t.Status, &t.Timestamp, &t.Verified, &t.Signature, &urls, &t.Reason, &resolvedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(urls), &t.ProofURLs); err != nil {
		return nil, fmt.Errorf("decoding proof urls: %w", err)
	}
	if t.ProofURLs == nil {
		t.ProofURLs = []string{}
	}
	t.ResolvedAt = resolvedAt.Int64
	return t, nil
}
