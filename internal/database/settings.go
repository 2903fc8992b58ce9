package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/opensocial-oauth/internal/models"
	"github.com/benvon/opensocial-oauth/internal/validation"
)

// Setting keys stored in config_settings.
const (
	CorsConfigKey       = "cors"
	RatelimitConfigKey  = "ratelimit"
	AuthPluginConfigKey = "auth_opensocial"
	ProviderSettingsKey = "opensocial_oauth_provider.settings"
)

// SettingsRepository persists JSON-encoded settings keyed by name.
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Load decodes the setting stored under key into dst. It reports false when the key is unset.
func (r *SettingsRepository) Load(ctx context.Context, key string, dst any) (bool, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM config_settings WHERE config_key = $1`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s settings: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s settings: %w", key, err)
	}
	return true, nil
}

// Save validates v and upserts it under key.
func (r *SettingsRepository) Save(ctx context.Context, key string, v any) error {
	if err := validation.Struct(v); err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s settings: %w", key, err)
	}
	now := time.Now()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO config_settings (config_key, value, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (config_key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, key, string(raw), now, now)
	if err != nil {
		return fmt.Errorf("set %s settings: %w", key, err)
	}
	return nil
}

// GetCors returns the CORS config, or nil when none is stored.
func (r *SettingsRepository) GetCors(ctx context.Context) (*models.CorsConfig, error) {
	c := &models.CorsConfig{}
	ok, err := r.Load(ctx, CorsConfigKey, c)
	if err != nil || !ok {
		return nil, err
	}
	return c, nil
}

// SetCors stores the CORS config. AllowedOrigins is comma-separated.
func (r *SettingsRepository) SetCors(ctx context.Context, c *models.CorsConfig) error {
	c.AllowedOrigins = strings.TrimSpace(c.AllowedOrigins)
	return r.Save(ctx, CorsConfigKey, c)
}

// GetRatelimit returns the rate limit config, or nil when none is stored.
func (r *SettingsRepository) GetRatelimit(ctx context.Context) (*models.RatelimitConfig, error) {
	c := &models.RatelimitConfig{}
	ok, err := r.Load(ctx, RatelimitConfigKey, c)
	if err != nil || !ok {
		return nil, err
	}
	return c, nil
}

// SetRatelimit stores the rate limit config. Rate format: e.g. "5-S", "100-M".
func (r *SettingsRepository) SetRatelimit(ctx context.Context, c *models.RatelimitConfig) error {
	c.Rate = strings.TrimSpace(c.Rate)
	return r.Save(ctx, RatelimitConfigKey, c)
}

// GetAuthPlugin returns the LMS auth plugin settings; unset settings yield the defaults.
func (r *SettingsRepository) GetAuthPlugin(ctx context.Context) (*models.AuthPluginConfig, error) {
	c := &models.AuthPluginConfig{}
	if _, err := r.Load(ctx, AuthPluginConfigKey, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetAuthPlugin normalizes and stores the LMS auth plugin settings.
func (r *SettingsRepository) SetAuthPlugin(ctx context.Context, c *models.AuthPluginConfig) error {
	c.Normalize()
	return r.Save(ctx, AuthPluginConfigKey, c)
}

// GetProviderSettings returns the provider settings; unset settings yield the defaults.
func (r *SettingsRepository) GetProviderSettings(ctx context.Context) (*models.ProviderSettings, error) {
	s := &models.ProviderSettings{}
	if _, err := r.Load(ctx, ProviderSettingsKey, s); err != nil {
		return nil, err
	}
	return s, nil
}

// SetProviderSettings stores the provider settings.
func (r *SettingsRepository) SetProviderSettings(ctx context.Context, s *models.ProviderSettings) error {
	s.MoodleURL = strings.TrimSpace(s.MoodleURL)
	return r.Save(ctx, ProviderSettingsKey, s)
}

// AllowedOriginsSlice returns allowed origins as a slice (split by comma).
func AllowedOriginsSlice(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	var out []string
	seen := make(map[string]bool)
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
