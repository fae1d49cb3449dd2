package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/BharatiPatra/fi-dashboard/identity"
	"github.com/BharatiPatra/fi-dashboard/internal/errors"
	"github.com/BharatiPatra/fi-dashboard/server/authflowrepo"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// SignInHandler starts the authorization code flow with PKCE (GET /auth/signin).
func (s *Server) SignInHandler(w http.ResponseWriter, r *http.Request) {
	if s.identities == nil {
		http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
		return
	}

	oidcConfig, err := s.getOidcConfig(r.Context())
	if err != nil {
		s.logError(r, err, "OIDC configuration unavailable")
		http.Error(w, "Sign-in is temporarily unavailable", http.StatusServiceUnavailable)
		return
	}

	state, err := generateRandomString(32)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	verifier := oauth2.GenerateVerifier()

	now := time.Now()
	if n := s.authState.DeleteExpired(now.Add(-s.config.GetAuthFlowTimeout())); n > 0 {
		s.logger.Debug().Int("count", n).Msg("dropped expired sign-in states")
	}

	err = s.authState.Upsert(state, &authflowrepo.AuthFlowState{
		CodeVerifier: verifier,
		Nonce:        nonce,
		ReturnURL:    safeReturnURL(r.URL.Query().Get(returnURLParam)),
		CreatedAt:    now,
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to store sign-in state: %v", err), http.StatusInternalServerError)
		return
	}

	authURL := oidcConfig.OAuth2Config.AuthCodeURL(state, oidc.Nonce(nonce), oauth2.S256ChallengeOption(verifier))
	http.Redirect(w, r, authURL, http.StatusFound)
}

// CallbackHandler completes the sign-in (GET /callback) and sets the identity cookie.
func (s *Server) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	if s.identities == nil {
		http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
		return
	}

	// r.FormValue works for both query params and form_post responses
	state := r.FormValue("state")
	code := r.FormValue("code")
	errorParam := r.FormValue("error")
	errorDesc := r.FormValue("error_description")

	if errorParam != "" {
		redirectWithError(w, r, RouteLogin, fmt.Sprintf("%s: %s", errorParam, errorDesc))
		return
	}

	if code == "" || state == "" {
		http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
		return
	}

	authState, err := s.consumeAuthState(state)
	if errors.Is(err, errors.ErrInvalidState) {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.logError(r, err, "unable to consume sign-in state")
		http.Error(w, "Invalid state parameter", http.StatusInternalServerError)
		return
	}

	if time.Since(authState.CreatedAt) > s.config.GetAuthFlowTimeout() {
		redirectWithError(w, r, RouteLogin, "Sign-in took too long, please try again")
		return
	}

	oidcConfig, err := s.getOidcConfig(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to get OIDC config: %v", err), http.StatusInternalServerError)
		return
	}

	oauth2Token, err := oidcConfig.OAuth2Config.Exchange(r.Context(), code, oauth2.VerifierOption(authState.CodeVerifier))
	if err != nil {
		s.logError(r, err, "token exchange failed")
		http.Error(w, "Token exchange failed", http.StatusBadGateway)
		return
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "No ID token in response", http.StatusBadGateway)
		return
	}

	idToken, err := oidcConfig.OidcVerifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		s.logError(r, err, "ID token verification failed")
		http.Error(w, "ID token verification failed", http.StatusUnauthorized)
		return
	}

	var claims struct {
		Nonce string `json:"nonce"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		http.Error(w, fmt.Sprintf("Failed to extract claims: %v", err), http.StatusInternalServerError)
		return
	}

	// Validate nonce to prevent replay attacks
	if claims.Nonce != authState.Nonce {
		http.Error(w, "Invalid nonce", http.StatusUnauthorized)
		return
	}

	token, err := s.identities.Issue(identity.Identity{
		Subject: idToken.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to issue identity: %v", err), http.StatusInternalServerError)
		return
	}
	s.setIdentityCookie(w, r, token)

	s.logger.Info().Str("sub", idToken.Subject).Msg("signed in")
	http.Redirect(w, r, safeReturnURL(authState.ReturnURL), http.StatusSeeOther)
}

// consumeAuthState looks up and deletes a sign-in state; states are single use.
func (s *Server) consumeAuthState(state string) (*authflowrepo.AuthFlowState, error) {
	authState, err := s.authState.Get(state)
	if err != nil || authState == nil {
		return nil, errors.Wrapf(errors.ErrInvalidState, "[Server consumeAuthState] unknown state")
	}
	if err := s.authState.Delete(state); err != nil {
		return nil, fmt.Errorf("[Server consumeAuthState] %w", err)
	}
	return authState, nil
}
