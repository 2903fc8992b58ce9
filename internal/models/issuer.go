package models

import (
	"strings"
	"time"
)

// DefaultIssuerScopes is requested when an issuer has no scopes configured.
const DefaultIssuerScopes = "openid email profile"

// Issuer describes an external OAuth2 issuer the LMS delegates login to
type Issuer struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name" validate:"required,max=255"`
	BaseURL      string    `json:"base_url" validate:"required,http_url"`
	ClientID     string    `json:"client_id" validate:"required"`
	ClientSecret *string   `json:"client_secret,omitempty"` // Optional for public clients
	RedirectURI  string    `json:"redirect_uri" validate:"required,http_url"`
	Scopes       string    `json:"scopes" validate:"omitempty,oauth_scopes"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ScopeList returns the configured scopes, or the default set when empty.
func (i *Issuer) ScopeList() []string {
	raw := i.Scopes
	if raw == "" {
		raw = DefaultIssuerScopes
	}
	return strings.Fields(raw)
}
