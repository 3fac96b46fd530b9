package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/erazemk/perutnina/internal/model"
	"github.com/erazemk/perutnina/internal/store"
)

func TestGeneratePassword(t *testing.T) {
	a, err := generatePassword(16)
	if err != nil {
		t.Fatalf("generatePassword: %v", err)
	}
	if len(a) != 16 {
		t.Errorf("expected 16 characters, got %d", len(a))
	}
	b, _ := generatePassword(16)
	if a == b {
		t.Error("expected two passwords to differ")
	}
	if len(a) < model.MinPasswordLength {
		t.Error("generated password is shorter than the minimum")
	}
}

func TestInitDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perutnina.sqlite3")

	database, password, err := initDatabase(context.Background(), path, "root")
	if err != nil {
		t.Fatalf("initDatabase: %v", err)
	}
	defer database.Close()

	if strings.TrimSpace(password) == "" {
		t.Fatal("expected a generated password")
	}

	admin, err := store.GetUserByUsername(context.Background(), database, "root")
	if err != nil || admin == nil {
		t.Fatalf("expected admin user, got %v (%v)", admin, err)
	}
	if admin.Role != model.RoleAdmin || admin.UID == "" {
		t.Errorf("unexpected admin: %+v", admin)
	}

	secret, err := store.GetJWTSecret(context.Background(), database)
	if err != nil || secret == "" {
		t.Errorf("expected a JWT secret, got %q (%v)", secret, err)
	}
}
