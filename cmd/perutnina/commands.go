package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/perutnina/internal/analytics"
	"github.com/erazemk/perutnina/internal/db"
	"github.com/erazemk/perutnina/internal/model"
	"github.com/erazemk/perutnina/internal/proof"
	"github.com/erazemk/perutnina/internal/store"
)

func initCommand(ctx context.Context, cmd *cli.Command) error {
	cfg, closeLog, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	if _, err := os.Stat(cfg.DBPath); err == nil {
		return fmt.Errorf("database file %s already exists", cfg.DBPath)
	}

	database, password, err := initDatabase(ctx, cfg.DBPath, cfg.AdminUser)
	if err != nil {
		return err
	}
	database.Close()

	printInitResult(cfg.DBPath, cfg.AdminUser, password)
	return nil
}

func exportAnalytics(ctx context.Context, cmd *cli.Command) error {
	cfg, closeLog, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	day := time.Now().UTC().AddDate(0, 0, -1)
	if s := cmd.String("day"); s != "" {
		day, err = time.Parse(time.DateOnly, s)
		if err != nil {
			return fmt.Errorf("invalid day %q", s)
		}
	}

	database, err := openDatabase(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	sink, closeSink, err := newSink(cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	ctx, cancel := context.WithTimeout(ctx, cfg.ExportTimeout)
	defer cancel()

	n, err := (&analytics.Exporter{DB: database, Sink: sink}).Run(ctx, day)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d events for %s.\n", n, day.Format(time.DateOnly))
	return nil
}

func keygen(ctx context.Context, cmd *cli.Command) error {
	priv, pub, err := proof.GenerateKey()
	if err != nil {
		return fmt.Errorf("generating key: %w", err)
	}

	uid := cmd.String("uid")
	if uid == "" {
		printKeyPair(priv, pub)
		return nil
	}

	cfg, closeLog, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	database, err := openDatabase(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := store.SetUserPublicKey(ctx, database, uid, pub); err != nil {
		return fmt.Errorf("registering public key for %s: %w", uid, err)
	}
	slog.Info("public key registered", "uid", uid)
	printKeyPair(priv, pub)
	return nil
}

// openDatabase opens an existing database and brings its schema up to date.
func openDatabase(path string) (*sql.DB, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return database, nil
}

// initDatabase creates a new database, ensures the schema, and creates the admin user.
func initDatabase(ctx context.Context, path, adminUsername string) (*sql.DB, string, error) {
	database, err := openDatabase(path)
	if err != nil {
		os.Remove(path)
		return nil, "", err
	}

	fail := func(err error) (*sql.DB, string, error) {
		database.Close()
		os.Remove(path)
		return nil, "", err
	}

	password, err := generatePassword(16)
	if err != nil {
		return fail(fmt.Errorf("generating password: %w", err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fail(fmt.Errorf("hashing password: %w", err))
	}

	_, err = store.CreateUser(ctx, database, &model.User{
		UID:          uuid.NewString(),
		Username:     adminUsername,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
	})
	if err != nil {
		return fail(fmt.Errorf("creating admin user: %w", err))
	}

	return database, password, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, username, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
