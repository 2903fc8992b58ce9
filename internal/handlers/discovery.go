package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/benvon/opensocial-oauth/internal/models"
)

// DiscoveryPath is where OpenID clients look for provider metadata.
const DiscoveryPath = "/.well-known/openid-configuration"

// DiscoveryHandler publishes the OAuth2 endpoints of the social CMS, so the
// LMS issuer can be configured from a single base URL.
type DiscoveryHandler struct {
	doc models.DiscoveryDocument
}

// NewDiscoveryHandler builds the discovery document for baseURL.
func NewDiscoveryHandler(baseURL, userinfoPath string) *DiscoveryHandler {
	return &DiscoveryHandler{doc: models.DiscoveryDocument{
		Issuer:                            baseURL,
		AuthorizationEndpoint:             baseURL + "/oauth/authorize",
		TokenEndpoint:                     baseURL + "/oauth/token",
		UserinfoEndpoint:                  baseURL + userinfoPath,
		ScopesSupported:                   []string{"openid", "email", "profile"},
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               []string{"authorization_code", "refresh_token"},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_basic", "client_secret_post"},
		ClaimsSupported: []string{
			"sub", "name", "preferred_username", "email", "email_verified",
			"given_name", "family_name", "picture",
		},
	}}
}

// RegisterRoutes registers the discovery endpoint
func (h *DiscoveryHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc(DiscoveryPath, h.GetConfiguration).Methods("GET")
}

// GetConfiguration serves the discovery document
func (h *DiscoveryHandler) GetConfiguration(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, http.StatusOK, h.doc)
}
