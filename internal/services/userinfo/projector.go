package userinfo

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/benvon/opensocial-oauth/internal/models"
)

// Projector maps identities to userinfo claims.
type Projector struct {
	// PublicFilesURL is the base URL that public:// picture URIs and relative
	// picture paths are resolved against.
	PublicFilesURL string
	// TrustEmailVerification asserts email_verified=true for every identity
	// instead of reporting the identity's own flag. The upstream identity
	// system is trusted to have verified addresses.
	TrustEmailVerification bool
}

// NewProjector creates a projector that trusts upstream email verification.
func NewProjector(publicFilesURL string) *Projector {
	return &Projector{
		PublicFilesURL:         publicFilesURL,
		TrustEmailVerification: true,
	}
}

// Project builds the claim set for identity. Missing optional attributes
// never fail the projection.
func (p *Projector) Project(identity *models.Identity) models.UserinfoClaims {
	claims := models.UserinfoClaims{
		Sub:               strconv.FormatInt(identity.ID, 10),
		Name:              identity.Name(),
		PreferredUsername: identity.AccountName,
		Email:             identity.Email,
		EmailVerified:     p.TrustEmailVerification || identity.EmailVerified,
		GivenName:         deref(identity.GivenName),
		FamilyName:        deref(identity.FamilyName),
	}

	if identity.PictureURI != nil {
		claims.Picture = p.pictureURL(*identity.PictureURI)
	}

	return claims
}

// pictureURL turns a stored picture reference into an absolute URL.
// It returns "" when there is no usable picture.
func (p *Projector) pictureURL(uri string) string {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return ""
	}

	if u, err := url.Parse(uri); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return uri
	}

	// Stream wrappers such as public://pictures/a.png map onto the public files directory.
	path := uri
	if i := strings.Index(uri, "://"); i >= 0 {
		path = uri[i+3:]
	}
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return ""
	}

	base := strings.TrimRight(p.PublicFilesURL, "/")
	if base == "" {
		return "/" + path
	}
	return base + "/" + path
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
