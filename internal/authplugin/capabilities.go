package authplugin

const (
	Component   = "auth_opensocial"
	Name        = "OpenSocial OAuth2"
	Description = "Authenticate users via OpenSocial OAuth2 provider"
	Version     = 2025110100
	Release     = "1.0.0"
	// Requires is the oldest supported LMS version (4.0).
	Requires = 2022041900
)

// Capabilities describes what the plugin lets the LMS do with its accounts.
type Capabilities struct {
	PasswordLogin     bool   `json:"password_login"`
	CanChangePassword bool   `json:"can_change_password"`
	ChangePasswordURL string `json:"change_password_url,omitempty"`
	CanEditProfile    bool   `json:"can_edit_profile"`
	AcceptsUserUpdate bool   `json:"accepts_user_update"`
	AcceptsRoleSync   bool   `json:"accepts_role_sync"`
}

// Descriptor identifies the plugin to the LMS.
type Descriptor struct {
	Component    string       `json:"component"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Version      int64        `json:"version"`
	Release      string       `json:"release"`
	Requires     int64        `json:"requires"`
	Maturity     string       `json:"maturity"`
	Dependencies []string     `json:"dependencies"`
	Hooks        []string     `json:"hooks"`
	Capabilities Capabilities `json:"capabilities"`
}

// Capabilities returns the plugin's fixed capabilities. Accounts are managed by
// the social CMS, so the LMS can neither check nor change credentials. Profile
// updates and role syncs pushed by the LMS are accepted and ignored.
func (p *Plugin) Capabilities() Capabilities {
	return Capabilities{
		AcceptsUserUpdate: true,
		AcceptsRoleSync:   true,
	}
}

// Descriptor returns the plugin descriptor.
func (p *Plugin) Descriptor() Descriptor {
	hooks := make([]string, 0, len(p.hooks))
	seen := make(map[string]bool, len(p.hooks))
	for _, h := range p.hooks {
		if !seen[h.Name] {
			seen[h.Name] = true
			hooks = append(hooks, h.Name)
		}
	}

	return Descriptor{
		Component:    Component,
		Name:         Name,
		Description:  Description,
		Version:      Version,
		Release:      Release,
		Requires:     Requires,
		Maturity:     "stable",
		Dependencies: []string{"auth_oauth2"},
		Hooks:        hooks,
		Capabilities: p.Capabilities(),
	}
}
