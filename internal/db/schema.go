package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    uid           TEXT NOT NULL UNIQUE,
    username      TEXT NOT NULL,
    email         TEXT,
    phone         TEXT,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    public_key    TEXT,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;
DROP INDEX IF EXISTS idx_users_email;
DROP INDEX IF EXISTS idx_users_phone;
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_active
    ON users(lower(email)) WHERE deleted_at IS NULL AND email IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_phone_active
    ON users(phone) WHERE deleted_at IS NULL AND phone IS NOT NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS push_tokens (
    token      TEXT PRIMARY KEY,
    uid        TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_push_tokens_uid ON push_tokens(uid);

CREATE TABLE IF NOT EXISTS fowls (
    id                TEXT PRIMARY KEY,
    owner_id          TEXT NOT NULL,
    previous_owner_id TEXT,
    name              TEXT NOT NULL,
    breed             TEXT,
    gender            TEXT NOT NULL DEFAULT 'unknown' CHECK (gender IN ('male', 'female', 'unknown')),
    hatch_date        DATETIME,
    sire_id           TEXT REFERENCES fowls(id),
    dam_id            TEXT REFERENCES fowls(id),
    image             BLOB,
    image_mime        TEXT,
    transferred_at    INTEGER,
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_fowls_owner ON fowls(owner_id);
CREATE INDEX IF NOT EXISTS idx_fowls_sire ON fowls(sire_id);
CREATE INDEX IF NOT EXISTS idx_fowls_dam ON fowls(dam_id);

CREATE TABLE IF NOT EXISTS transfers (
    id             TEXT PRIMARY KEY,
    fowl_id        TEXT NOT NULL REFERENCES fowls(id),
    from_uid       TEXT NOT NULL,
    to_uid         TEXT NOT NULL DEFAULT '',
    recipient      TEXT NOT NULL,
    contact_method TEXT NOT NULL CHECK (contact_method IN ('EMAIL', 'PHONE')),
    status         TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING', 'VERIFIED', 'REJECTED')),
    timestamp      INTEGER NOT NULL,
    verified       INTEGER NOT NULL DEFAULT 0,
    signature      TEXT NOT NULL DEFAULT '',
    proof_urls     TEXT NOT NULL DEFAULT '[]',
    reason         TEXT NOT NULL DEFAULT '',
    resolved_at    INTEGER
);

CREATE INDEX IF NOT EXISTS idx_transfers_fowl ON transfers(fowl_id);
CREATE INDEX IF NOT EXISTS idx_transfers_from ON transfers(from_uid);
CREATE INDEX IF NOT EXISTS idx_transfers_to ON transfers(to_uid);

CREATE TABLE IF NOT EXISTS vaccinations (
    id             TEXT PRIMARY KEY,
    fowl_id        TEXT NOT NULL REFERENCES fowls(id),
    vaccine_name   TEXT NOT NULL,
    scheduled_date DATETIME NOT NULL,
    status         TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING', 'COMPLETED')),
    completed_date DATETIME,
    notes          TEXT
);

CREATE INDEX IF NOT EXISTS idx_vaccinations_fowl ON vaccinations(fowl_id);

CREATE TABLE IF NOT EXISTS breeding_records (
    id              INTEGER PRIMARY KEY,
    owner_id        TEXT NOT NULL,
    sire_id         TEXT,
    dam_id          TEXT,
    eggs_set        INTEGER NOT NULL CHECK (eggs_set >= 0),
    eggs_hatched    INTEGER NOT NULL CHECK (eggs_hatched >= 0),
    offspring_count INTEGER NOT NULL CHECK (offspring_count >= 0),
    recorded_at     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_breeding_owner ON breeding_records(owner_id, recorded_at);

CREATE TABLE IF NOT EXISTS analytics_events (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    params     TEXT NOT NULL DEFAULT '{}',
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analytics_events_created ON analytics_events(created_at);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
