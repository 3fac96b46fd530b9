package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/perutnina/internal/model"
)

const userColumns = `id, uid, username, email, phone, password_hash, role, public_key, created_at, deleted_at`

// CreateUser creates a new user.
func CreateUser(ctx context.Context, db *sql.DB, u *model.User) (*model.User, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (uid, username, email, phone, password_hash, role) VALUES (?, ?, ?, ?, ?, ?)`,
		u.UID, u.Username, nullString(u.Email), nullString(u.Phone), u.PasswordHash, u.Role,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("creating user: %w", ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByUID returns an active user by identity.
func GetUserByUID(ctx context.Context, db *sql.DB, uid string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE uid = ? AND deleted_at IS NULL`, uid))
	if err != nil {
		return nil, fmt.Errorf("getting user by uid: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns a user by username (including soft-deleted for auth checks).
func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? ORDER BY deleted_at IS NULL DESC LIMIT 1`, username))
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// FindUserByContact returns the active user reachable at the given email or
// phone number.
func FindUserByContact(ctx context.Context, db *sql.DB, contactMethod, identifier string) (*model.User, error) {
	column, match := contactColumn(contactMethod)
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+match+` AND deleted_at IS NULL`,
		identifier))
	if err != nil {
		return nil, fmt.Errorf("finding user by %s: %w", column, err)
	}
	return u, nil
}

// ContactInUse reports whether an active user other than exceptID already
// has the given email or phone number.
func ContactInUse(ctx context.Context, db *sql.DB, contactMethod, identifier string, exceptID int64) (bool, error) {
	if identifier == "" {
		return false, nil
	}
	column, match := contactColumn(contactMethod)
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE `+match+` AND deleted_at IS NULL AND id != ?`,
		identifier, exceptID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", column, err)
	}
	return n > 0, nil
}

// contactColumn returns the column for a contact method and a predicate on
// it that matches the same rows as its unique index.
func contactColumn(contactMethod string) (column, match string) {
	if contactMethod == model.ContactPhone {
		return "phone", "phone = ?"
	}
	return "email", "lower(email) = lower(?)"
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUser updates a user's role and contact details.
func UpdateUser(ctx context.Context, db *sql.DB, id int64, role, email, phone string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET role = ?, email = ?, phone = ? WHERE id = ? AND deleted_at IS NULL`,
		role, nullString(email), nullString(phone), id,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("updating user: %w", ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// SetUserPublicKey stores the hex encoded key used to check proof signatures.
func SetUserPublicKey(ctx context.Context, db *sql.DB, uid, publicKey string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE users SET public_key = ? WHERE uid = ? AND deleted_at IS NULL`,
		nullString(publicKey), uid,
	)
	if err != nil {
		return fmt.Errorf("setting public key: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser soft-deletes a user.
func DeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser returns nil, nil when the row does not exist.
func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	var email, phone, publicKey sql.NullString
	err := row.Scan(&u.ID, &u.UID, &u.Username, &email, &phone, &u.PasswordHash,
		&u.Role, &publicKey, &u.CreatedAt, &u.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Email = email.String
	u.Phone = phone.String
	u.PublicKey = publicKey.String
	return u, nil
}
