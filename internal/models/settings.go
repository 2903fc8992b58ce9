package models

import "strings"

// AuthPluginConfig holds the LMS auth plugin settings.
type AuthPluginConfig struct {
	OpenSocialURL string `json:"opensocial_url" validate:"omitempty,http_url"`
	AutoRedirect  bool   `json:"autoredirect"`
	IssuerID      int64  `json:"issuerid" validate:"gte=0"`
}

// Normalize applies the defaults and trimming done when the plugin settings are saved.
func (c *AuthPluginConfig) Normalize() {
	c.OpenSocialURL = strings.TrimSpace(c.OpenSocialURL)
	if c.IssuerID < 0 {
		c.IssuerID = 0
	}
}

// ProviderSettings holds the social CMS side settings for the LMS integration.
type ProviderSettings struct {
	MoodleURL              string `json:"moodle_url" validate:"omitempty,http_url"`
	EnableAutoProvisioning *bool  `json:"enable_auto_provisioning,omitempty"`
}

// AutoProvisioning reports whether LMS accounts are created on first login (default true).
func (s *ProviderSettings) AutoProvisioning() bool {
	if s.EnableAutoProvisioning == nil {
		return true
	}
	return *s.EnableAutoProvisioning
}
