package mailbox

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// OAuthConfig is the subset of config.MailboxConfig used for token refresh.
type OAuthConfig interface {
	GetOAuthClientID() string
	GetOAuthClientSecret() string
	GetOAuthRedirectURI() string
	GetOAuthTokenURL() string
	GetOAuthScopes() []string
}

// OAuthRefresher refreshes the pair against the identity provider's token
// endpoint with the refresh_token grant.
type OAuthRefresher struct {
	config *oauth2.Config
}

// NewOAuthRefresher creates a refresher from mailbox config.
func NewOAuthRefresher(cfg OAuthConfig) *OAuthRefresher {
	return &OAuthRefresher{config: &oauth2.Config{
		ClientID:     cfg.GetOAuthClientID(),
		ClientSecret: cfg.GetOAuthClientSecret(),
		RedirectURL:  cfg.GetOAuthRedirectURI(),
		Scopes:       cfg.GetOAuthScopes(),
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.GetOAuthTokenURL(),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}}
}

// Refresh exchanges refreshToken for a new pair.
func (r *OAuthRefresher) Refresh(ctx context.Context, refreshToken string) (Credentials, error) {
	src := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return Credentials{}, fmt.Errorf("refresh token grant: %w", err)
	}
	return Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}, nil
}
