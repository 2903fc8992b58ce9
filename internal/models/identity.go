package models

import (
	"time"
)

// Identity represents a user record of the social CMS
type Identity struct {
	ID            int64     `json:"id"`
	AccountName   string    `json:"account_name"`
	DisplayName   *string   `json:"display_name,omitempty"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	GivenName     *string   `json:"given_name,omitempty"`
	FamilyName    *string   `json:"family_name,omitempty"`
	PictureURI    *string   `json:"picture_uri,omitempty"` // Stream URI or URL of the profile image
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Name returns the display name, falling back to the account name.
func (i *Identity) Name() string {
	if i.DisplayName != nil && *i.DisplayName != "" {
		return *i.DisplayName
	}
	return i.AccountName
}
