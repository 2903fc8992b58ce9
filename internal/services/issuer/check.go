package issuer

import (
	"context"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/benvon/opensocial-oauth/internal/models"
)

// CheckResult reports what an issuer check could reach
type CheckResult struct {
	Endpoints Endpoints `json:"endpoints"`
	KeyCount  int       `json:"key_count"`
}

// Check verifies that an issuer's discovery document is reachable and, when a
// JWKS is advertised, that it parses as a key set.
func (p *Provider) Check(ctx context.Context, iss *models.Issuer) (*CheckResult, error) {
	if iss == nil {
		return nil, errors.New("issuer is nil")
	}

	doc, err := p.Discover(ctx, iss.BaseURL)
	if err != nil {
		return nil, err
	}

	result := &CheckResult{Endpoints: resolveEndpoints(iss.BaseURL, doc)}
	if result.Endpoints.JWKSURI == "" {
		return result, nil
	}

	keys, err := jwk.Fetch(ctx, result.Endpoints.JWKSURI, jwk.WithHTTPClient(p.httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	result.KeyCount = keys.Len()

	return result, nil
}
