package issuer

import (
	"golang.org/x/oauth2"

	"github.com/benvon/opensocial-oauth/internal/models"
)

// Client wraps OAuth2 client functionality
type Client struct {
	config *oauth2.Config
}

// NewClient creates a new OAuth2 client for an issuer and its resolved endpoints
func NewClient(iss *models.Issuer, endpoints Endpoints) *Client {
	clientSecret := ""
	if iss.ClientSecret != nil {
		clientSecret = *iss.ClientSecret
	}

	config := &oauth2.Config{
		ClientID:     iss.ClientID,
		ClientSecret: clientSecret,
		RedirectURL:  iss.RedirectURI,
		Scopes:       iss.ScopeList(),
		Endpoint: oauth2.Endpoint{
			AuthURL:  endpoints.AuthorizationEndpoint,
			TokenURL: endpoints.TokenEndpoint,
		},
	}

	return &Client{config: config}
}

// AuthCodeURL returns the authorization URL
func (c *Client) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state)
}
