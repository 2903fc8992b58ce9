package models

// CorsConfig holds CORS configuration for browser clients of the userinfo endpoint.
type CorsConfig struct {
	AllowedOrigins   string `json:"allowed_origins" validate:"required"` // Comma-separated
	AllowCredentials bool   `json:"allow_credentials"`
	MaxAge           int    `json:"max_age" validate:"gte=0"`
}
