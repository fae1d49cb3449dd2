package server

import (
	"net/http"
	"net/url"
)

type loginPage struct {
	AppName       string `json:"appName"`
	SignInEnabled bool   `json:"signInEnabled"`
	SignInURL     string `json:"signInUrl,omitempty"`
	Error         string `json:"error,omitempty"`
}

// LoginPageHandler describes how to sign in (GET /login).
func (s *Server) LoginPageHandler(w http.ResponseWriter, r *http.Request) {
	page := loginPage{
		AppName:       s.config.GetAppName(),
		SignInEnabled: s.identities != nil,
		Error:         r.URL.Query().Get("error"),
	}
	if page.SignInEnabled {
		page.SignInURL = RouteSignIn
		if ret := r.URL.Query().Get(returnURLParam); ret != "" {
			page.SignInURL += "?" + url.Values{returnURLParam: {safeReturnURL(ret)}}.Encode()
		}
	}
	writeJSON(w, http.StatusOK, page)
}

// LogoutHandler signs the user out of the dashboard (GET /auth/logout).
// The MCP session is left alone; POST /api/mcp/logout clears it.
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	s.clearIdentityCookie(w, r)
	http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
}
