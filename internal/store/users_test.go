package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/perutnina/internal/db"
	"github.com/erazemk/perutnina/internal/model"
)

func newUser(t *testing.T, uid, email, phone string) *model.User {
	t.Helper()
	return &model.User{UID: uid, Username: uid, Email: email, Phone: phone, PasswordHash: "hash", Role: model.RoleUser}
}

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, &model.User{
		UID: "u-1", Username: "testuser", Email: "test@example.com", PasswordHash: "hash123", Role: model.RoleUser,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %q", user.Username)
	}
	if user.Role != model.RoleUser {
		t.Errorf("expected role 'user', got %q", user.Role)
	}

	got, err := GetUserByUID(ctx, database, "u-1")
	if err != nil {
		t.Fatalf("GetUserByUID: %v", err)
	}
	if got == nil || got.Email != "test@example.com" {
		t.Errorf("expected email 'test@example.com', got %+v", got)
	}
}

func TestGetUserByUsername(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, newUser(t, "alice", "", ""))

	user, err := GetUserByUsername(ctx, database, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}

	missing, err := GetUserByUsername(ctx, database, "bob")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestFindUserByContact(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, newUser(t, "bob", "Bob@Example.com", "+38640111222"))

	byEmail, err := FindUserByContact(ctx, database, model.ContactEmail, "bob@example.com")
	if err != nil {
		t.Fatalf("FindUserByContact: %v", err)
	}
	if byEmail == nil || byEmail.UID != "bob" {
		t.Errorf("expected bob by email, got %+v", byEmail)
	}

	byPhone, _ := FindUserByContact(ctx, database, model.ContactPhone, "+38640111222")
	if byPhone == nil || byPhone.UID != "bob" {
		t.Errorf("expected bob by phone, got %+v", byPhone)
	}

	none, _ := FindUserByContact(ctx, database, model.ContactEmail, "nobody@example.com")
	if none != nil {
		t.Errorf("expected nil, got %+v", none)
	}
}

func TestContactsUniqueAmongActiveUsers(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	dave, err := CreateUser(ctx, database, newUser(t, "dave", "dave@example.com", "+38640111222"))
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	_, err = CreateUser(ctx, database, newUser(t, "eve", "Dave@Example.COM", ""))
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for email, got %v", err)
	}
	_, err = CreateUser(ctx, database, newUser(t, "eve", "", "+38640111222"))
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for phone, got %v", err)
	}

	eve, err := CreateUser(ctx, database, newUser(t, "eve", "eve@example.com", ""))
	if err != nil {
		t.Fatalf("CreateUser eve: %v", err)
	}
	if err := UpdateUser(ctx, database, eve.ID, model.RoleUser, "DAVE@example.com", ""); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate on update, got %v", err)
	}

	taken, err := ContactInUse(ctx, database, model.ContactEmail, "dave@EXAMPLE.com", eve.ID)
	if err != nil || !taken {
		t.Errorf("expected email in use, got %v, %v", taken, err)
	}
	taken, _ = ContactInUse(ctx, database, model.ContactEmail, "dave@example.com", dave.ID)
	if taken {
		t.Error("a user's own email should not count as taken")
	}

	// Deleting dave frees both contact details.
	if err := DeleteUser(ctx, database, dave.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if err := UpdateUser(ctx, database, eve.ID, model.RoleUser, "dave@example.com", "+38640111222"); err != nil {
		t.Errorf("UpdateUser after delete: %v", err)
	}
	found, _ := FindUserByContact(ctx, database, model.ContactEmail, "dave@example.com")
	if found == nil || found.UID != "eve" {
		t.Errorf("expected eve, got %+v", found)
	}
}

func TestListAndDeleteUsers(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	a, _ := CreateUser(ctx, database, newUser(t, "a", "", ""))
	CreateUser(ctx, database, newUser(t, "b", "", ""))

	users, err := ListUsers(ctx, database)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}

	DeleteUser(ctx, database, a.ID)

	users, _ = ListUsers(ctx, database)
	if len(users) != 1 {
		t.Errorf("expected 1 user after delete, got %d", len(users))
	}
}

func TestUpdateUserPasswordAndKey(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, newUser(t, "pwuser", "", ""))
	UpdateUserPassword(ctx, database, user.ID, "newhash")
	if err := SetUserPublicKey(ctx, database, "pwuser", "02abcdef"); err != nil {
		t.Fatalf("SetUserPublicKey: %v", err)
	}

	got, _ := GetUser(ctx, database, user.ID)
	if got.PasswordHash != "newhash" {
		t.Errorf("expected password hash 'newhash', got %q", got.PasswordHash)
	}
	if got.PublicKey != "02abcdef" {
		t.Errorf("expected public key '02abcdef', got %q", got.PublicKey)
	}

	if err := SetUserPublicKey(ctx, database, "ghost", "02"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for unknown uid, got %v", err)
	}
}
