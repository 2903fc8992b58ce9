package models

// RatelimitConfig holds the per-client rate limit in limiter notation (e.g. "5-S", "100-M").
type RatelimitConfig struct {
	Rate string `json:"rate" validate:"required"`
}
