package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one ordered schema upgrade step. Version uses the YYYYMMDDXX convention.
type Migration struct {
	Version int64
	Name    string
	SQL     string
}

// Migrations lists every upgrade step in ascending version order.
var Migrations = []Migration{
	{
		Version: 2025110100,
		Name:    "initial",
		SQL: `
CREATE TABLE IF NOT EXISTS users (
    id bigserial PRIMARY KEY,
    name text NOT NULL,
    display_name text,
    mail text NOT NULL DEFAULT '',
    email_verified boolean NOT NULL DEFAULT false,
    given_name text,
    family_name text,
    picture_uri text,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS users_name_unique ON users (name);

CREATE TABLE IF NOT EXISTS oauth2_token (
    id bigserial PRIMARY KEY,
    value text NOT NULL,
    auth_user_id bigint NOT NULL,
    client_id text NOT NULL DEFAULT '',
    scopes text NOT NULL DEFAULT '',
    expire bigint NOT NULL,
    created bigint NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::bigint
);

CREATE UNIQUE INDEX IF NOT EXISTS oauth2_token_value_unique ON oauth2_token (value);

CREATE TABLE IF NOT EXISTS oauth2_issuer (
    id bigserial PRIMARY KEY,
    name text NOT NULL,
    base_url text NOT NULL,
    client_id text NOT NULL,
    client_secret text,
    redirect_uri text NOT NULL,
    scopes text NOT NULL DEFAULT '',
    enabled boolean NOT NULL DEFAULT true,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS oauth2_issuer_name_unique ON oauth2_issuer (name);

CREATE TABLE IF NOT EXISTS config_settings (
    config_key text PRIMARY KEY,
    value jsonb NOT NULL,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);
`,
	},
	{
		Version: 2025110200,
		Name:    "token_user_index",
		SQL:     `CREATE INDEX IF NOT EXISTS oauth2_token_auth_user_id_idx ON oauth2_token (auth_user_id);`,
	},
}

// CurrentVersion returns the highest applied schema version, or 0 on a fresh database.
func CurrentVersion(ctx context.Context, db *DB) (int64, error) {
	if err := ensureVersionTable(ctx, db); err != nil {
		return 0, err
	}
	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version.Int64, nil
}

// Migrate applies every step newer than the recorded version, each in its own transaction.
// It returns the versions that were applied.
func Migrate(ctx context.Context, db *DB) ([]int64, error) {
	current, err := CurrentVersion(ctx, db)
	if err != nil {
		return nil, err
	}

	var applied []int64
	for _, m := range pending(Migrations, current) {
		if err := apply(ctx, db, m); err != nil {
			return applied, err
		}
		applied = append(applied, m.Version)
	}
	return applied, nil
}

// pending returns the steps newer than current, keeping their order.
func pending(steps []Migration, current int64) []Migration {
	var out []Migration
	for _, m := range steps {
		if m.Version > current {
			out = append(out, m)
		}
	}
	return out
}

func ensureVersionTable(ctx context.Context, db *DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version bigint PRIMARY KEY,
			name text NOT NULL,
			applied_at timestamptz NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}
	return nil
}

func apply(ctx context.Context, db *DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
	}
	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
	}
	return nil
}
