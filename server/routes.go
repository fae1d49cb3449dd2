package server

import (
	"fmt"
	"net/http"
)

func (s *Server) initRoutes() {
	// Public
	s.RegisterRouteFunc(get(RouteLogin), ChainMiddleware(s.LoginPageHandler, s.PageMiddleware()...))
	s.RegisterRouteFunc(get(RouteSignIn), ChainMiddleware(s.SignInHandler, s.PageMiddleware()...))
	s.RegisterRouteFunc(get(RouteCallback), ChainMiddleware(s.CallbackHandler, s.PageMiddleware()...))
	s.RegisterRouteFunc(get(RouteLogout), ChainMiddleware(s.LogoutHandler, s.PageMiddleware()...))
	s.RegisterRouteFunc(get(RouteHealth), s.HealthHandler)
	s.RegisterRouteHandler(get(RouteMetrics), s.metrics.Handler())

	// Dashboard root, exact match only
	s.RegisterRouteFunc(get("/{$}"), ChainMiddleware(s.IndexHandler, s.PageMiddleware(s.RequireIdentity)...))

	// API
	s.RegisterRouteFunc(http.MethodOptions+" "+RouteAPI, ChainMiddleware(notFound, s.APIMiddleware()...))
	s.RegisterRouteFunc(get(RouteSession), ChainMiddleware(s.SessionHandler, s.APIMiddleware(s.RequireIdentity)...))
	s.RegisterRouteFunc(post(RouteMCPLogin), ChainMiddleware(s.StartLoginHandler, s.APIMiddleware(s.RequireIdentity, s.RateLimitMiddleware)...))
	s.RegisterRouteFunc(get(RouteMCPLogin), ChainMiddleware(s.LoginStatusHandler, s.APIMiddleware(s.RequireIdentity)...))
	s.RegisterRouteFunc(post(RouteMCPLoginAbandon), ChainMiddleware(s.AbandonLoginHandler, s.APIMiddleware(s.RequireIdentity)...))
	s.RegisterRouteFunc(post(RouteMCPLogout), ChainMiddleware(s.MCPLogoutHandler, s.APIMiddleware(s.RequireIdentity)...))
	s.RegisterRouteFunc(get(RouteSummary), ChainMiddleware(s.SummaryHandler, s.APIMiddleware(s.RequireIdentity)...))
	s.RegisterRouteFunc(get(RouteNetWorth), ChainMiddleware(s.NetWorthHandler, s.APIMiddleware(s.RequireIdentity)...))
	s.RegisterRouteFunc(get(RouteMutualFunds), ChainMiddleware(s.MutualFundsHandler, s.APIMiddleware(s.RequireIdentity)...))
	s.RegisterRouteFunc(post(RouteAgentQuery), ChainMiddleware(s.AgentQueryHandler, s.APIMiddleware(s.RequireIdentity)...))
}

func get(path string) string {
	return fmt.Sprintf("%s %s", http.MethodGet, path)
}

func post(path string) string {
	return fmt.Sprintf("%s %s", http.MethodPost, path)
}

// notFound terminates preflight chains; CorsMiddleware answers OPTIONS itself.
func notFound(w http.ResponseWriter, r *http.Request) {
	http.NotFound(w, r)
}

func (s *Server) logError(r *http.Request, err error, msg string) {
	s.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg(msg)
}
