package server_test

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/BharatiPatra/fi-dashboard/server"
	"github.com/BharatiPatra/fi-dashboard/server/authflowrepo"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testClientID = "dashboard-client"

// fakeProvider is a token endpoint issuing RS256 ID tokens.
type fakeProvider struct {
	server *httptest.Server
	key    *rsa.PrivateKey

	mu        sync.Mutex
	nonce     string
	challenge string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	p := &fakeProvider{key: key}
	p.server = httptest.NewServer(http.HandlerFunc(p.token))
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProvider) expect(nonce, challenge string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nonce, p.challenge = nonce, challenge
}

func (p *fakeProvider) token(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/token" || r.ParseForm() != nil || r.FormValue("code") != "good-code" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		return
	}

	p.mu.Lock()
	nonce, challenge := p.nonce, p.challenge
	p.mu.Unlock()

	sum := sha256.Sum256([]byte(r.FormValue("code_verifier")))
	if base64.RawURLEncoding.EncodeToString(sum[:]) != challenge {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "PKCE mismatch"})
		return
	}

	now := time.Now()
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   p.server.URL,
		"aud":   testClientID,
		"sub":   "google|42",
		"email": "asha@example.com",
		"name":  "Asha",
		"nonce": nonce,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}).SignedString(p.key)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": "access",
		"token_type":   "Bearer",
		"expires_in":   3600,
		"id_token":     idToken,
	})
}

func (p *fakeProvider) oidcConfig() server.OidcConfig {
	return server.OidcConfig{
		OAuth2Config: &oauth2.Config{
			ClientID:     testClientID,
			ClientSecret: "client-secret",
			Endpoint: oauth2.Endpoint{
				AuthURL:  p.server.URL + "/authorize",
				TokenURL: p.server.URL + "/token",
			},
			RedirectURL: "http://dashboard.test/callback",
			Scopes:      []string{oidc.ScopeOpenID, "profile", "email"},
		},
		OidcVerifier: oidc.NewVerifier(p.server.URL, &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&p.key.PublicKey}}, &oidc.Config{ClientID: testClientID}),
	}
}

func setupSignInFixture(t *testing.T) (*testFixture, *fakeProvider) {
	t.Helper()
	p := newFakeProvider(t)
	f := setupTestFixture(t, fixtureOptions{
		triple:     complete,
		signIn:     true,
		serverOpts: []server.Option{server.WithOidcConfig(p.oidcConfig())},
	})
	return f, p
}

// signIn follows the sign-in redirect and returns its query.
func signIn(t *testing.T, f *testFixture, returnURL string) url.Values {
	t.Helper()
	rec := f.do(t, http.MethodGet, "/auth/signin?returnUrl="+url.QueryEscape(returnURL), nil)
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/authorize", loc.Path)
	q := loc.Query()
	require.Equal(t, testClientID, q.Get("client_id"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.NotEmpty(t, q.Get("state"))
	require.NotEmpty(t, q.Get("nonce"))
	return q
}

func TestSignInCallback_IssuesIdentityCookie(t *testing.T) {
	f, p := setupSignInFixture(t)

	q := signIn(t, f, "/api/summary")
	p.expect(q.Get("nonce"), q.Get("code_challenge"))

	rec := f.do(t, http.MethodGet, "/callback?state="+url.QueryEscape(q.Get("state"))+"&code=good-code", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Equal(t, "/api/summary", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "fidash_identity", cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)

	session := f.do(t, http.MethodGet, "/api/session", nil, cookies[0])
	require.Equal(t, http.StatusOK, session.Code)
	body := decodeBody(t, session)
	require.Equal(t, "asha@example.com", body["email"])
	require.Equal(t, "Asha", body["name"])

	// states are single use
	replay := f.do(t, http.MethodGet, "/callback?state="+url.QueryEscape(q.Get("state"))+"&code=good-code", nil)
	require.Equal(t, http.StatusBadRequest, replay.Code)
}

func TestSignIn_OffSiteReturnURLFallsBackToRoot(t *testing.T) {
	f, p := setupSignInFixture(t)

	q := signIn(t, f, "https://evil.test/steal")
	p.expect(q.Get("nonce"), q.Get("code_challenge"))

	rec := f.do(t, http.MethodGet, "/callback?state="+url.QueryEscape(q.Get("state"))+"&code=good-code", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))
}

func TestCallback_Rejects(t *testing.T) {
	f, p := setupSignInFixture(t)

	t.Run("nonce mismatch", func(t *testing.T) {
		q := signIn(t, f, "/")
		p.expect("another-nonce", q.Get("code_challenge"))

		rec := f.do(t, http.MethodGet, "/callback?state="+url.QueryEscape(q.Get("state"))+"&code=good-code", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Empty(t, rec.Result().Cookies())
	})

	t.Run("bad code", func(t *testing.T) {
		q := signIn(t, f, "/")
		p.expect(q.Get("nonce"), q.Get("code_challenge"))

		rec := f.do(t, http.MethodGet, "/callback?state="+url.QueryEscape(q.Get("state"))+"&code=bad-code", nil)
		require.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("unknown state", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/callback?state=nope&code=good-code", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing code", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/callback?state=nope", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("provider error", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/callback?error=access_denied&error_description=user+declined", nil)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/login?error=access_denied%3A+user+declined", rec.Header().Get("Location"))
	})

	t.Run("expired state", func(t *testing.T) {
		require.NoError(t, f.authState.Upsert("stale", &authflowrepo.AuthFlowState{
			CodeVerifier: "v",
			Nonce:        "n",
			CreatedAt:    time.Now().Add(-time.Hour),
		}))

		rec := f.do(t, http.MethodGet, "/callback?state=stale&code=good-code", nil)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Contains(t, rec.Header().Get("Location"), "/login?error=")
	})
}

func TestLogout_ClearsIdentityCookie(t *testing.T) {
	f, _ := setupSignInFixture(t)

	rec := f.do(t, http.MethodGet, "/auth/logout", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, -1, cookies[0].MaxAge)

	// the MCP session survives a dashboard sign-out
	require.True(t, f.sessions.IsAuthenticated())
}
