package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/opensocial-oauth/internal/logger"
	"github.com/benvon/opensocial-oauth/internal/models"
	"github.com/benvon/opensocial-oauth/internal/request"
	"github.com/benvon/opensocial-oauth/internal/services/userinfo"
)

// UserinfoLookup resolves an Authorization header to userinfo claims.
type UserinfoLookup interface {
	Lookup(ctx context.Context, authHeader string) (*models.UserinfoClaims, error)
}

// UserinfoHandler serves the OAuth2 userinfo endpoint
type UserinfoHandler struct {
	service UserinfoLookup
	logger  *zap.Logger
}

// NewUserinfoHandler creates a new userinfo handler
func NewUserinfoHandler(service UserinfoLookup, logger *zap.Logger) *UserinfoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserinfoHandler{service: service, logger: logger}
}

// RegisterRoutes registers the userinfo endpoint at path. POST is accepted as
// OpenID Connect clients may use either method.
func (h *UserinfoHandler) RegisterRoutes(r *mux.Router, path string) {
	r.HandleFunc(path, h.GetUserinfo).Methods("GET", "POST")
}

// GetUserinfo returns the claims of the user owning the bearer token
func (h *UserinfoHandler) GetUserinfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	authHeader := r.Header.Get("Authorization")
	claims, err := h.service.Lookup(r.Context(), authHeader)
	if err != nil {
		h.writeLookupError(w, r, authHeader, err)
		return
	}

	h.logger.Debug("userinfo_served",
		zap.String("sub", logger.SanitizeUserID(claims.Sub)),
		zap.String("request_id", request.RequestID(r)),
	)
	writeJSON(w, http.StatusOK, claims)
}

func (h *UserinfoHandler) writeLookupError(w http.ResponseWriter, r *http.Request, authHeader string, err error) {
	token, _ := userinfo.BearerToken(authHeader)
	fields := []zap.Field{
		zap.String("token", logger.SanitizeToken(token)),
		zap.String("client_ip", logger.SanitizeString(request.ClientIP(r), logger.MaxUserIDLength)),
		zap.String("request_id", request.RequestID(r)),
	}

	switch {
	case errors.Is(err, userinfo.ErrMissingToken):
		w.Header().Set("WWW-Authenticate", `Bearer realm="userinfo"`)
		writeError(w, http.StatusUnauthorized, "No access token provided")
	case errors.Is(err, userinfo.ErrInvalidToken):
		h.logger.Info("userinfo_token_invalid", fields...)
		w.Header().Set("WWW-Authenticate", bearerChallenge("The access token is invalid"))
		writeError(w, http.StatusUnauthorized, "Invalid access token")
	case errors.Is(err, userinfo.ErrExpiredToken):
		h.logger.Info("userinfo_token_expired", fields...)
		w.Header().Set("WWW-Authenticate", bearerChallenge("The access token expired"))
		writeError(w, http.StatusUnauthorized, "Access token expired")
	case errors.Is(err, userinfo.ErrIdentityNotFound):
		h.logger.Warn("userinfo_user_not_found", fields...)
		writeError(w, http.StatusNotFound, "User not found")
	default:
		h.logger.Error("userinfo_lookup_failed",
			append(fields, zap.String("error", logger.SanitizeError(err)))...,
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func bearerChallenge(description string) string {
	return `Bearer realm="userinfo", error="invalid_token", error_description=` + strconv.Quote(description)
}
