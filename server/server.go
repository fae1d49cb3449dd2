package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/BharatiPatra/fi-dashboard/backend"
	"github.com/BharatiPatra/fi-dashboard/identity"
	"github.com/BharatiPatra/fi-dashboard/internal/config"
	"github.com/BharatiPatra/fi-dashboard/internal/metrics"
	"github.com/BharatiPatra/fi-dashboard/server/authflowrepo"
	"github.com/BharatiPatra/fi-dashboard/session"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

type OidcConfig struct {
	OAuth2Config *oauth2.Config
	OidcVerifier *oidc.IDTokenVerifier
}

type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	logger     zerolog.Logger
	sessions   *session.Context
	backend    *backend.Client
	metrics    *metrics.Registry
	authState  authflowrepo.Repo
	identities *identity.Creator
	logins     *loginManager
	limiter    *rate.Limiter

	// base outlives requests; acquisition flows run on it
	base       context.Context
	cancelBase context.CancelFunc

	oidc     *OidcConfig
	oidcLock sync.RWMutex
}

type Option func(*Server)

// WithOidcConfig skips provider discovery.
func WithOidcConfig(oc OidcConfig) Option {
	return func(s *Server) {
		s.oidc = &oc
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Registry) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

func New(config config.Config, sessions *session.Context, client *backend.Client, authStateRepo authflowrepo.Repo, opts ...Option) (*Server, error) {
	if sessions == nil || client == nil {
		return nil, fmt.Errorf("[Server New] session context and backend client are required")
	}

	s := &Server{
		env:       config.GetEnv(),
		mux:       http.NewServeMux(),
		config:    config,
		logger:    log.Logger,
		sessions:  sessions,
		backend:   client,
		authState: authStateRepo,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	if config.IsSignInEnabled() {
		signer, err := identity.NewHMACSigner(config.GetAuthSecret())
		if err != nil {
			return nil, fmt.Errorf("[Server New] %w", err)
		}
		s.identities = identity.NewCreator(signer, config.GetIdentityTokenExpiry())
	} else {
		s.logger.Warn().Msg("OAuth sign-in is not configured, the identity gate is disabled")
	}

	if config.GetEnableRateLimiting() {
		s.limiter = rate.NewLimiter(rate.Every(config.GetLoginRateInterval()), config.GetLoginRateBurst())
	}

	s.base, s.cancelBase = context.WithCancel(context.Background())
	s.logins = newLoginManager(s.base)

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Shutdown cancels the active acquisition flow and waits for it to stop.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelBase()
	return s.logins.wait(ctx)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	s.logger.Debug().Msgf("[%s%-7s%s] %s", color, method, ResetColor, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
