package store

import (
	"context"
	"database/sql"
	"fmt"
)

// AddPushToken registers a device token for a user. Re-registering a token
// moves it to the new user.
func AddPushToken(ctx context.Context, db *sql.DB, uid, token string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO push_tokens (token, uid) VALUES (?, ?)
		 ON CONFLICT (token) DO UPDATE SET uid = excluded.uid`,
		token, uid,
	)
	if err != nil {
		return fmt.Errorf("adding push token: %w", err)
	}
	return nil
}

// GetPushTokens returns the device tokens registered for a user.
func GetPushTokens(ctx context.Context, db *sql.DB, uid string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT token FROM push_tokens WHERE uid = ? ORDER BY created_at, token`, uid)
	if err != nil {
		return nil, fmt.Errorf("getting push tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning push token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// RemovePushToken deletes a device token.
func RemovePushToken(ctx context.Context, db *sql.DB, token string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM push_tokens WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("removing push token: %w", err)
	}
	return nil
}
