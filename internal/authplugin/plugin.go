// Package authplugin implements the LMS side of the OpenSocial login: lifecycle
// hooks that redirect to the social CMS, and the plugin's fixed capabilities.
package authplugin

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/opensocial-oauth/internal/models"
	"github.com/benvon/opensocial-oauth/internal/services/issuer"
)

// Hook names, in the order the LMS fires them.
const (
	HookLoginPage  = "login_page"
	HookPostLogout = "post_logout"
)

// ActionKind tells the caller what to do after a hook ran.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionRedirect
)

// Action is the result of a hook.
type Action struct {
	Kind ActionKind
	URL  string
}

// None is the no-op action.
func None() Action { return Action{Kind: ActionNone} }

// Redirect sends the browser to url.
func Redirect(url string) Action { return Action{Kind: ActionRedirect, URL: url} }

// IsRedirect reports whether the action redirects.
func (a Action) IsRedirect() bool { return a.Kind == ActionRedirect }

// Snapshot is the plugin configuration plus per-request inputs a hook sees.
// Hooks receive it by value.
type Snapshot struct {
	Config models.AuthPluginConfig
	// State is the OAuth2 state parameter for login redirects.
	State string
	// WantsURL is where the user was headed before login.
	WantsURL string
}

// HookFunc is a lifecycle callback.
type HookFunc func(ctx context.Context, snap Snapshot) (Action, error)

// Hook is a named lifecycle callback.
type Hook struct {
	Name string
	Fn   HookFunc
}

// IssuerResolver loads issuers and resolves their OAuth2 endpoints.
type IssuerResolver interface {
	GetIssuer(ctx context.Context, id int64) (*models.Issuer, error)
	Endpoints(ctx context.Context, iss *models.Issuer) issuer.Endpoints
}

// Plugin holds the ordered hooks of the OpenSocial auth plugin.
type Plugin struct {
	issuers IssuerResolver
	hooks   []Hook
}

// New creates the plugin with its login_page and post_logout hooks registered.
func New(issuers IssuerResolver) *Plugin {
	p := &Plugin{issuers: issuers}
	p.Register(HookLoginPage, p.loginPage)
	p.Register(HookPostLogout, p.postLogout)
	return p
}

// Register appends a hook. Hooks sharing a name run in registration order.
func (p *Plugin) Register(name string, fn HookFunc) {
	p.hooks = append(p.hooks, Hook{Name: name, Fn: fn})
}

// Run fires every hook registered under name. The first redirect wins and
// stops the chain, like a redirect ends the request in the LMS.
func (p *Plugin) Run(ctx context.Context, name string, snap Snapshot) (Action, error) {
	for _, h := range p.hooks {
		if h.Name != name {
			continue
		}
		action, err := h.Fn(ctx, snap)
		if err != nil {
			return None(), fmt.Errorf("hook %s failed: %w", name, err)
		}
		if action.IsRedirect() {
			return action, nil
		}
	}
	return None(), nil
}

// LoginPage runs the login_page hooks.
func (p *Plugin) LoginPage(ctx context.Context, snap Snapshot) (Action, error) {
	return p.Run(ctx, HookLoginPage, snap)
}

// PostLogout runs the post_logout hooks.
func (p *Plugin) PostLogout(ctx context.Context, snap Snapshot) (Action, error) {
	return p.Run(ctx, HookPostLogout, snap)
}

func (p *Plugin) loginPage(ctx context.Context, snap Snapshot) (Action, error) {
	if !snap.Config.AutoRedirect {
		return None(), nil
	}

	iss, err := p.issuers.GetIssuer(ctx, snap.Config.IssuerID)
	if err != nil {
		return None(), err
	}
	if iss == nil || !iss.Enabled {
		return None(), nil
	}

	client := issuer.NewClient(iss, p.issuers.Endpoints(ctx, iss))
	return Redirect(client.AuthCodeURL(snap.State)), nil
}

func (p *Plugin) postLogout(_ context.Context, snap Snapshot) (Action, error) {
	if snap.Config.OpenSocialURL == "" {
		return None(), nil
	}
	return Redirect(LogoutURL(snap.Config.OpenSocialURL)), nil
}

// LogoutURL returns the social CMS logout page for a site base URL.
func LogoutURL(openSocialURL string) string {
	return strings.TrimRight(openSocialURL, "/") + "/user/logout"
}
