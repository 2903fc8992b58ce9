package authplugin

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/benvon/opensocial-oauth/internal/models"
	"github.com/benvon/opensocial-oauth/internal/services/issuer"
)

type fakeIssuers struct {
	issuers map[int64]*models.Issuer
	err     error
}

func (f *fakeIssuers) GetIssuer(_ context.Context, id int64) (*models.Issuer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.issuers[id], nil
}

func (f *fakeIssuers) Endpoints(_ context.Context, iss *models.Issuer) issuer.Endpoints {
	return issuer.Endpoints{
		AuthorizationEndpoint: iss.BaseURL + "/oauth/authorize",
		TokenEndpoint:         iss.BaseURL + "/oauth/token",
	}
}

func newFakeIssuers() *fakeIssuers {
	return &fakeIssuers{issuers: map[int64]*models.Issuer{
		1: {ID: 1, Name: "OpenSocial", BaseURL: "https://social.example.com", ClientID: "moodle", RedirectURI: "https://lms.example.com/admin/oauth2callback.php", Enabled: true},
		2: {ID: 2, Name: "Disabled", BaseURL: "https://old.example.com", ClientID: "moodle", RedirectURI: "https://lms.example.com/admin/oauth2callback.php"},
	}}
}

func TestPlugin_LoginPage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		config       models.AuthPluginConfig
		wantRedirect bool
	}{
		{"autoredirect off", models.AuthPluginConfig{AutoRedirect: false, IssuerID: 1}, false},
		{"autoredirect with enabled issuer", models.AuthPluginConfig{AutoRedirect: true, IssuerID: 1}, true},
		{"autoredirect with disabled issuer", models.AuthPluginConfig{AutoRedirect: true, IssuerID: 2}, false},
		{"autoredirect with missing issuer", models.AuthPluginConfig{AutoRedirect: true, IssuerID: 42}, false},
		{"autoredirect with unset issuer", models.AuthPluginConfig{AutoRedirect: true}, false},
	}

	p := New(newFakeIssuers())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			action, err := p.LoginPage(context.Background(), Snapshot{Config: tt.config, State: "state-1"})
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if action.IsRedirect() != tt.wantRedirect {
				t.Fatalf("Expected redirect %v, got %+v", tt.wantRedirect, action)
			}
			if !tt.wantRedirect {
				return
			}

			u, err := url.Parse(action.URL)
			if err != nil {
				t.Fatalf("Invalid redirect URL: %v", err)
			}
			if u.Host != "social.example.com" || u.Path != "/oauth/authorize" {
				t.Errorf("Expected redirect to the issuer authorization endpoint, got %s", action.URL)
			}
			if u.Query().Get("state") != "state-1" {
				t.Errorf("Expected state 'state-1', got '%s'", u.Query().Get("state"))
			}
		})
	}
}

func TestPlugin_LoginPage_IssuerError(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("connection refused")
	p := New(&fakeIssuers{err: storeErr})

	action, err := p.LoginPage(context.Background(), Snapshot{Config: models.AuthPluginConfig{AutoRedirect: true, IssuerID: 1}})
	if !errors.Is(err, storeErr) {
		t.Errorf("Expected store error, got %v", err)
	}
	if action.IsRedirect() {
		t.Error("Expected no redirect on error")
	}

	// Without autoredirect the issuer is never loaded.
	if _, err := p.LoginPage(context.Background(), Snapshot{}); err != nil {
		t.Errorf("Expected no error without autoredirect, got %v", err)
	}
}

func TestPlugin_PostLogout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantURL string
	}{
		{"not configured", "", ""},
		{"plain", "https://social.example.com", "https://social.example.com/user/logout"},
		{"trailing slash", "https://social.example.com/", "https://social.example.com/user/logout"},
		{"many trailing slashes", "https://social.example.com/site//", "https://social.example.com/site/user/logout"},
	}

	p := New(newFakeIssuers())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			action, err := p.PostLogout(context.Background(), Snapshot{Config: models.AuthPluginConfig{OpenSocialURL: tt.url}})
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.wantURL == "" {
				if action.IsRedirect() {
					t.Errorf("Expected no redirect, got %s", action.URL)
				}
				return
			}
			if !action.IsRedirect() || action.URL != tt.wantURL {
				t.Errorf("Expected redirect to '%s', got %+v", tt.wantURL, action)
			}
		})
	}
}

func TestPlugin_HookOrder(t *testing.T) {
	t.Parallel()

	p := New(newFakeIssuers())
	var calls []string
	p.Register(HookPostLogout, func(_ context.Context, _ Snapshot) (Action, error) {
		calls = append(calls, "extra")
		return Redirect("https://elsewhere.example.com"), nil
	})

	hooks := p.Descriptor().Hooks
	if len(hooks) != 2 || hooks[0] != HookLoginPage || hooks[1] != HookPostLogout {
		t.Fatalf("Unexpected hook names: %v", hooks)
	}

	// The built-in hook redirects first and stops the chain.
	action, err := p.PostLogout(context.Background(), Snapshot{Config: models.AuthPluginConfig{OpenSocialURL: "https://social.example.com"}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if action.URL != "https://social.example.com/user/logout" {
		t.Errorf("Expected built-in logout redirect, got %s", action.URL)
	}
	if len(calls) != 0 {
		t.Errorf("Expected later hooks to be skipped, got %v", calls)
	}

	// With no URL configured the chain continues to the extra hook.
	action, err = p.PostLogout(context.Background(), Snapshot{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if action.URL != "https://elsewhere.example.com" || len(calls) != 1 {
		t.Errorf("Expected extra hook redirect, got %+v (calls %v)", action, calls)
	}
}

func TestPlugin_HookError(t *testing.T) {
	t.Parallel()

	p := &Plugin{}
	hookErr := errors.New("boom")
	p.Register("custom", func(_ context.Context, _ Snapshot) (Action, error) {
		return None(), hookErr
	})

	if _, err := p.Run(context.Background(), "custom", Snapshot{}); !errors.Is(err, hookErr) {
		t.Errorf("Expected hook error, got %v", err)
	}
	if action, err := p.Run(context.Background(), "unknown", Snapshot{}); err != nil || action.IsRedirect() {
		t.Errorf("Expected no-op for unknown hook, got %+v, %v", action, err)
	}
}

func TestPlugin_Capabilities(t *testing.T) {
	t.Parallel()

	p := New(newFakeIssuers())

	caps := p.Capabilities()
	if caps.PasswordLogin || caps.CanChangePassword || caps.CanEditProfile || caps.ChangePasswordURL != "" {
		t.Errorf("Expected no account capabilities, got %+v", caps)
	}
	if !caps.AcceptsUserUpdate || !caps.AcceptsRoleSync {
		t.Errorf("Expected user update and role sync to be accepted, got %+v", caps)
	}

	d := p.Descriptor()
	if d.Version != 2025110100 || d.Release != "1.0.0" || d.Name != "OpenSocial OAuth2" {
		t.Errorf("Unexpected descriptor: %+v", d)
	}
	if len(d.Hooks) != 2 || d.Hooks[0] != HookLoginPage || d.Hooks[1] != HookPostLogout {
		t.Errorf("Expected hooks [login_page post_logout], got %v", d.Hooks)
	}
	if d.Capabilities != caps {
		t.Errorf("Expected descriptor to carry capabilities %+v, got %+v", caps, d.Capabilities)
	}
}
