package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/opensocial-oauth/internal/models"
)

// TokenRepository reads issued OAuth2 access tokens
type TokenRepository struct {
	db *DB
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db *DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// FindByValue returns the token whose value exactly equals value.
// It returns nil, nil when no token matches.
func (r *TokenRepository) FindByValue(ctx context.Context, value string) (*models.AccessToken, error) {
	query := `
		SELECT id, value, auth_user_id, client_id, scopes, expire, created
		FROM oauth2_token
		WHERE value = $1
		LIMIT 1
	`

	token := &models.AccessToken{}
	var scopes string
	var expire, created int64

	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&token.ID,
		&token.Value,
		&token.UserID,
		&token.ClientID,
		&scopes,
		&expire,
		&created,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	token.Scopes = strings.Fields(scopes)
	token.ExpiresAt = time.Unix(expire, 0).UTC()
	token.CreatedAt = time.Unix(created, 0).UTC()

	return token, nil
}
