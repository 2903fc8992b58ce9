package issuer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/opensocial-oauth/internal/models"
)

const (
	discoveryPath         = "/.well-known/openid-configuration"
	fallbackAuthorizePath = "/oauth/authorize"
	fallbackTokenPath     = "/oauth/token"
	maxDiscoveryBytes     = 1 << 20
)

// Store loads issuer descriptors.
type Store interface {
	GetByID(ctx context.Context, id int64) (*models.Issuer, error)
}

// Endpoints are the resolved OAuth2 endpoints of an issuer
type Endpoints struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint,omitempty"`
	JWKSURI               string `json:"jwks_uri,omitempty"`
	Discovered            bool   `json:"discovered"`
}

// Provider manages issuer configuration and endpoint resolution
type Provider struct {
	store      Store
	httpClient *http.Client
}

// NewProvider creates a new issuer provider. Discovery requests are bounded by timeout.
func NewProvider(store Store, timeout time.Duration) *Provider {
	return &Provider{
		store:      store,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient replaces the client used for discovery.
func (p *Provider) WithHTTPClient(c *http.Client) *Provider {
	p.httpClient = c
	return p
}

// GetIssuer returns the issuer with the given ID, or nil when it does not exist.
func (p *Provider) GetIssuer(ctx context.Context, id int64) (*models.Issuer, error) {
	iss, err := p.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get issuer: %w", err)
	}
	return iss, nil
}

// Discover fetches the OpenID discovery document of baseURL.
func (p *Provider) Discover(ctx context.Context, baseURL string) (*models.DiscoveryDocument, error) {
	discoveryURL := strings.TrimRight(baseURL, "/") + discoveryPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discovery document: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery endpoint returned status %d", resp.StatusCode)
	}

	var doc models.DiscoveryDocument
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDiscoveryBytes)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document: %w", err)
	}

	return &doc, nil
}

// Endpoints resolves the issuer's endpoints from discovery, falling back to
// the CMS default paths for any endpoint the document does not provide.
func (p *Provider) Endpoints(ctx context.Context, iss *models.Issuer) Endpoints {
	doc, err := p.Discover(ctx, iss.BaseURL)
	if err != nil {
		doc = nil
	}
	return resolveEndpoints(iss.BaseURL, doc)
}

func resolveEndpoints(baseURL string, doc *models.DiscoveryDocument) Endpoints {
	base := strings.TrimRight(baseURL, "/")
	endpoints := Endpoints{
		AuthorizationEndpoint: base + fallbackAuthorizePath,
		TokenEndpoint:         base + fallbackTokenPath,
	}
	if doc == nil {
		return endpoints
	}

	if doc.AuthorizationEndpoint != "" {
		endpoints.AuthorizationEndpoint = doc.AuthorizationEndpoint
		endpoints.Discovered = true
	}
	if doc.TokenEndpoint != "" {
		endpoints.TokenEndpoint = doc.TokenEndpoint
		endpoints.Discovered = true
	}
	endpoints.UserinfoEndpoint = doc.UserinfoEndpoint
	endpoints.JWKSURI = doc.JWKSURI

	return endpoints
}
