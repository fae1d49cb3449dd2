package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const (
	discoveryAttempts = 3
	discoveryDelay    = 500 * time.Millisecond
)

// generateRandomString creates a random base64url string
func generateRandomString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (s *Server) setIdentityCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     identityCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.GetIdentityTokenExpiry().Seconds()),
	})
}

func (s *Server) clearIdentityCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     identityCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// getOidcConfig discovers the provider once and caches the result. Discovery
// is retried because the provider is usually reached over the internet.
func (s *Server) getOidcConfig(ctx context.Context) (OidcConfig, error) {
	s.oidcLock.RLock()
	cached := s.oidc
	s.oidcLock.RUnlock()
	if cached != nil {
		return *cached, nil
	}

	issuer := s.config.GetOAuthIssuer()
	var provider *oidc.Provider
	err := retry.Do(
		func() error {
			p, err := oidc.NewProvider(ctx, issuer)
			if err != nil {
				return err
			}
			provider = p
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(discoveryAttempts),
		retry.Delay(discoveryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn().Err(err).Uint("attempt", n+1).Str("issuer", issuer).Msg("OIDC discovery failed, retrying")
		}),
	)
	if err != nil {
		return OidcConfig{}, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	oidcConfig := OidcConfig{
		OAuth2Config: &oauth2.Config{
			ClientID:     s.config.GetOAuthClientID(),
			ClientSecret: s.config.GetOAuthClientSecret(),
			Endpoint:     provider.Endpoint(),
			RedirectURL:  s.config.GetBaseURL() + RouteCallback,
			Scopes:       s.config.GetOAuthScopes(),
		},
		OidcVerifier: provider.Verifier(&oidc.Config{
			ClientID: s.config.GetOAuthClientID(),
		}),
	}

	s.oidcLock.Lock()
	s.oidc = &oidcConfig
	s.oidcLock.Unlock()

	return oidcConfig, nil
}

// safeReturnURL keeps post sign-in redirects on this site.
func safeReturnURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return RouteRoot
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return RouteRoot
	}
	return raw
}

func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	http.Redirect(w, r, path+"?error="+url.QueryEscape(errorMsg), http.StatusSeeOther)
}
