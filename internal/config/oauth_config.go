package config

import "time"

const (
	authSecretVar        = "FIDASH_AUTH_SECRET"
	oauthIssuerVar       = "OAUTH_ISSUER"
	oauthClientIDVar     = "OAUTH_CLIENT_ID"
	oauthClientSecretVar = "OAUTH_CLIENT_SECRET"
)

type OAuthConfig interface {
	GetOAuthIssuer() string
	GetOAuthClientID() string
	GetOAuthClientSecret() string
	GetOAuthScopes() []string
	GetAuthSecret() string
	GetAuthFlowTimeout() time.Duration
	GetIdentityTokenExpiry() time.Duration
	IsSignInEnabled() bool
}

type OAuth struct {
	values *Values
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetOAuthIssuer() string {
	return GetEnv(oauthIssuerVar, orDefault(o.values.OAuthIssuer, "https://accounts.google.com"))
}

func (o OAuth) GetOAuthClientID() string {
	return GetEnv(oauthClientIDVar, o.values.OAuthClientID)
}

func (o OAuth) GetOAuthClientSecret() string {
	return GetEnv(oauthClientSecretVar, o.values.OAuthClientSecret)
}

func (OAuth) GetOAuthScopes() []string {
	return []string{"openid", "profile", "email"}
}

// GetAuthSecret signs the dashboard identity cookie.
func (o OAuth) GetAuthSecret() string {
	return GetEnv(authSecretVar, o.values.AuthSecret)
}

// GetAuthFlowTimeout bounds the time between the provider redirect and the callback.
func (OAuth) GetAuthFlowTimeout() time.Duration {
	return 10 * time.Minute
}

func (OAuth) GetIdentityTokenExpiry() time.Duration {
	return 30 * 24 * time.Hour
}

// IsSignInEnabled reports whether the OAuth sign-in gate is configured.
func (o OAuth) IsSignInEnabled() bool {
	return o.GetOAuthClientID() != "" && o.GetAuthSecret() != ""
}
