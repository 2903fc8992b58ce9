package models

// UserinfoClaims is the claim set returned by the userinfo endpoint.
// given_name and family_name are always present; picture is omitted when unset.
type UserinfoClaims struct {
	Sub               string `json:"sub"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	EmailVerified     bool   `json:"email_verified"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
	Picture           string `json:"picture,omitempty"`
}
