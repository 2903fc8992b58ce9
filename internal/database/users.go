package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/benvon/opensocial-oauth/internal/models"
)

// UserRepository reads user records of the social CMS
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Load retrieves a user by ID. It returns nil, nil when the user does not exist.
func (r *UserRepository) Load(ctx context.Context, id int64) (*models.Identity, error) {
	identity := &models.Identity{}
	query := `
		SELECT id, name, display_name, mail, email_verified, given_name, family_name, picture_uri, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&identity.ID,
		&identity.AccountName,
		&identity.DisplayName,
		&identity.Email,
		&identity.EmailVerified,
		&identity.GivenName,
		&identity.FamilyName,
		&identity.PictureURI,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return identity, nil
}
