package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var ErrUnverifiedEmail = errors.New("google account email is not verified")

// GoogleConfig holds OAuth2 client settings for Google sign-in.
type GoogleConfig struct {
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	AllowedDomain string
}

type GoogleUser struct {
	ID    string
	Email string
	Name  string
}

// Google signs users in with their Google account.
type Google struct {
	config  *oauth2.Config
	domain  string
	apiOpts []option.ClientOption
}

// NewGoogle returns nil when the client is not configured.
func NewGoogle(cfg GoogleConfig, apiOpts ...option.ClientOption) *Google {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil
	}
	return &Google{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				goauth2.OpenIDScope,
				goauth2.UserinfoEmailScope,
				goauth2.UserinfoProfileScope,
			},
			Endpoint: google.Endpoint,
		},
		domain:  strings.ToLower(cfg.AllowedDomain),
		apiOpts: apiOpts,
	}
}

// WithEndpoint points the token exchange at a different OAuth2 endpoint.
func (g *Google) WithEndpoint(ep oauth2.Endpoint) *Google {
	g.config.Endpoint = ep
	return g
}

func (g *Google) AuthURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades the callback code for the signed-in user's profile.
func (g *Google) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	opts := append([]option.ClientOption{option.WithTokenSource(g.config.TokenSource(ctx, tok))}, g.apiOpts...)
	srv, err := goauth2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create oauth2 service: %w", err)
	}

	info, err := srv.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get userinfo: %w", err)
	}
	if info.VerifiedEmail == nil || !*info.VerifiedEmail {
		return nil, ErrUnverifiedEmail
	}
	if g.domain != "" && !strings.HasSuffix(strings.ToLower(info.Email), "@"+g.domain) {
		return nil, fmt.Errorf("email %s outside allowed domain %s", info.Email, g.domain)
	}

	return &GoogleUser{ID: info.Id, Email: info.Email, Name: info.Name}, nil
}
