package userinfo

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/benvon/opensocial-oauth/internal/models"
	"github.com/benvon/opensocial-oauth/internal/telemetry"
)

// IdentityStore loads user records. Load returns nil, nil when the user does not exist.
type IdentityStore interface {
	Load(ctx context.Context, userID int64) (*models.Identity, error)
}

// Service answers userinfo requests by chaining token resolution, identity
// lookup and claim projection. It holds no mutable state and is safe for
// concurrent use.
type Service struct {
	resolver   *Resolver
	identities IdentityStore
	projector  *Projector
}

// NewService creates a userinfo service
func NewService(resolver *Resolver, identities IdentityStore, projector *Projector) *Service {
	return &Service{
		resolver:   resolver,
		identities: identities,
		projector:  projector,
	}
}

// Lookup returns the claims for the bearer token carried in authHeader.
func (s *Service) Lookup(ctx context.Context, authHeader string) (claims *models.UserinfoClaims, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "userinfo.lookup")
	defer func() {
		switch {
		case err == nil:
			span.SetAttributes(attribute.String("userinfo.outcome", "ok"))
		case IsAuthError(err):
			span.SetAttributes(attribute.String("userinfo.outcome", err.Error()))
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "userinfo lookup failed")
		}
		span.End()
	}()

	token, err := BearerToken(authHeader)
	if err != nil {
		return nil, err
	}

	userID, err := s.resolver.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	identity, err := s.identities.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	// A live token pointing at a missing user is a store inconsistency; it is
	// reported as not found rather than as a server error.
	if identity == nil {
		return nil, ErrIdentityNotFound
	}

	projected := s.projector.Project(identity)
	return &projected, nil
}
