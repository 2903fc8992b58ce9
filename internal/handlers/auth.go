package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/opensocial-oauth/internal/authplugin"
	"github.com/benvon/opensocial-oauth/internal/logger"
	"github.com/benvon/opensocial-oauth/internal/models"
	"github.com/benvon/opensocial-oauth/internal/request"
)

const (
	// StateCookie carries the OAuth2 state to the LMS OAuth2 callback at the
	// issuer's redirect URI, which compares it with the returned state.
	StateCookie = "opensocial_oauth_state"
	// WantsURLCookie carries the page the user asked for before logging in.
	// The same callback sends the user there after the code exchange.
	WantsURLCookie = "opensocial_wantsurl"

	loginCookieTTL = 10 * time.Minute
)

// AuthPluginSettings loads the plugin configuration
type AuthPluginSettings interface {
	GetAuthPlugin(ctx context.Context) (*models.AuthPluginConfig, error)
}

// AuthHandler exposes the LMS auth plugin hooks over HTTP
type AuthHandler struct {
	plugin   *authplugin.Plugin
	settings AuthPluginSettings
	logger   *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(plugin *authplugin.Plugin, settings AuthPluginSettings, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{plugin: plugin, settings: settings, logger: logger}
}

// RegisterRoutes registers auth routes on the given router
// The router should already have the /auth/opensocial prefix
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetDescriptor).Methods("GET")
	r.HandleFunc("/login", h.GetLogin).Methods("GET")
	r.HandleFunc("/logout", h.GetLogout).Methods("GET")
}

// GetDescriptor returns the plugin descriptor
func (h *AuthHandler) GetDescriptor(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.plugin.Descriptor())
}

// GetLogin runs the login_page hooks: 302 to the issuer or 204 when the
// login page should render normally.
func (h *AuthHandler) GetLogin(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	snap.State = uuid.NewString()
	snap.WantsURL = localURL(r.URL.Query().Get("wantsurl"))

	action, err := h.plugin.LoginPage(r.Context(), snap)
	if err != nil {
		h.logger.Error("auth_login_hook_failed",
			zap.String("request_id", request.RequestID(r)),
			zap.String("error", logger.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to run login hook")
		return
	}

	if !action.IsRedirect() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	secure := r.TLS != nil
	http.SetCookie(w, loginCookie(StateCookie, snap.State, secure))
	if snap.WantsURL != "" {
		http.SetCookie(w, loginCookie(WantsURLCookie, snap.WantsURL, secure))
	}

	h.logger.Info("auth_login_redirect",
		zap.Int64("issuer_id", snap.Config.IssuerID),
		zap.String("request_id", request.RequestID(r)),
	)
	http.Redirect(w, r, action.URL, http.StatusFound)
}

// GetLogout runs the post_logout hooks: 302 to the social CMS logout page or 204.
func (h *AuthHandler) GetLogout(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	action, err := h.plugin.PostLogout(r.Context(), snap)
	if err != nil {
		h.logger.Error("auth_logout_hook_failed",
			zap.String("request_id", request.RequestID(r)),
			zap.String("error", logger.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to run logout hook")
		return
	}

	if !action.IsRedirect() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, action.URL, http.StatusFound)
}

func (h *AuthHandler) snapshot(w http.ResponseWriter, r *http.Request) (authplugin.Snapshot, bool) {
	cfg, err := h.settings.GetAuthPlugin(r.Context())
	if err != nil {
		h.logger.Error("auth_settings_load_failed",
			zap.String("request_id", request.RequestID(r)),
			zap.String("error", logger.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load plugin settings")
		return authplugin.Snapshot{}, false
	}
	return authplugin.Snapshot{Config: *cfg}, true
}

func loginCookie(name, value string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    url.QueryEscape(value),
		Path:     "/",
		MaxAge:   int(loginCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// localURL keeps wantsurl only when it is a path on this site.
func localURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return ""
	}
	return raw
}
