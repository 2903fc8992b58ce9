package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/opensocial-oauth/internal/models"
)

const issuerColumns = `id, name, base_url, client_id, client_secret, redirect_uri, scopes, enabled, created_at, updated_at`

// ErrIssuerNotFound is returned by mutations that target a missing issuer.
var ErrIssuerNotFound = errors.New("OAuth2 issuer not found")

// IssuerRepository handles OAuth2 issuer database operations
type IssuerRepository struct {
	db *DB
}

// NewIssuerRepository creates a new issuer repository
func NewIssuerRepository(db *DB) *IssuerRepository {
	return &IssuerRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssuer(row rowScanner) (*models.Issuer, error) {
	issuer := &models.Issuer{}
	err := row.Scan(
		&issuer.ID,
		&issuer.Name,
		&issuer.BaseURL,
		&issuer.ClientID,
		&issuer.ClientSecret,
		&issuer.RedirectURI,
		&issuer.Scopes,
		&issuer.Enabled,
		&issuer.CreatedAt,
		&issuer.UpdatedAt,
	)
	return issuer, err
}

// Create creates a new issuer and fills in its generated ID
func (r *IssuerRepository) Create(ctx context.Context, issuer *models.Issuer) error {
	query := `
		INSERT INTO oauth2_issuer (name, base_url, client_id, client_secret, redirect_uri, scopes, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		issuer.Name,
		issuer.BaseURL,
		issuer.ClientID,
		issuer.ClientSecret,
		issuer.RedirectURI,
		issuer.Scopes,
		issuer.Enabled,
		now,
		now,
	).Scan(&issuer.ID, &issuer.CreatedAt, &issuer.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create issuer: %w", err)
	}

	return nil
}

// GetByID retrieves an issuer by ID. It returns nil, nil when the issuer does not exist.
func (r *IssuerRepository) GetByID(ctx context.Context, id int64) (*models.Issuer, error) {
	query := `SELECT ` + issuerColumns + ` FROM oauth2_issuer WHERE id = $1`

	issuer, err := scanIssuer(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get issuer: %w", err)
	}

	return issuer, nil
}

// GetByName retrieves an issuer by name. It returns nil, nil when the issuer does not exist.
func (r *IssuerRepository) GetByName(ctx context.Context, name string) (*models.Issuer, error) {
	query := `SELECT ` + issuerColumns + ` FROM oauth2_issuer WHERE name = $1`

	issuer, err := scanIssuer(r.db.QueryRowContext(ctx, query, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get issuer %s: %w", name, err)
	}

	return issuer, nil
}

// GetAll retrieves all issuers ordered by ID
func (r *IssuerRepository) GetAll(ctx context.Context) ([]*models.Issuer, error) {
	query := `SELECT ` + issuerColumns + ` FROM oauth2_issuer ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query issuers: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var issuers []*models.Issuer
	for rows.Next() {
		issuer, err := scanIssuer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issuer: %w", err)
		}
		issuers = append(issuers, issuer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating issuers: %w", err)
	}

	return issuers, nil
}

// Update updates an existing issuer
func (r *IssuerRepository) Update(ctx context.Context, issuer *models.Issuer) error {
	query := `
		UPDATE oauth2_issuer
		SET name = $2, base_url = $3, client_id = $4, client_secret = $5, redirect_uri = $6, scopes = $7, enabled = $8, updated_at = $9
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		issuer.ID,
		issuer.Name,
		issuer.BaseURL,
		issuer.ClientID,
		issuer.ClientSecret,
		issuer.RedirectURI,
		issuer.Scopes,
		issuer.Enabled,
		time.Now(),
	).Scan(&issuer.UpdatedAt)

	if err == sql.ErrNoRows {
		return ErrIssuerNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update issuer: %w", err)
	}

	return nil
}

// SetEnabled enables or disables an issuer
func (r *IssuerRepository) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE oauth2_issuer SET enabled = $2, updated_at = $3 WHERE id = $1`,
		id, enabled, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update issuer: %w", err)
	}
	return requireAffected(result)
}

// Delete deletes an issuer by ID
func (r *IssuerRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM oauth2_issuer WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete issuer: %w", err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrIssuerNotFound
	}
	return nil
}
