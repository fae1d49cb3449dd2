package server

const (
	RouteRoot     = "/"
	RouteLogin    = "/login"
	RouteSignIn   = "/auth/signin"
	RouteCallback = "/callback"
	RouteLogout   = "/auth/logout"
	RouteHealth   = "/healthz"
	RouteMetrics  = "/metrics"

	RouteAPI             = "/api/"
	RouteSession         = "/api/session"
	RouteMCPLogin        = "/api/mcp/login"
	RouteMCPLoginAbandon = "/api/mcp/login/abandon"
	RouteMCPLogout       = "/api/mcp/logout"
	RouteSummary         = "/api/summary"
	RouteNetWorth        = "/api/networth"
	RouteMutualFunds     = "/api/mutualfunds"
	RouteAgentQuery      = "/api/agent/query"
)

const (
	identityCookieName = "fidash_identity"
	returnURLParam     = "returnUrl"
)
