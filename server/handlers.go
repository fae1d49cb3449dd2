package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/BharatiPatra/fi-dashboard/acquisition"
	"github.com/BharatiPatra/fi-dashboard/backend"
	"github.com/BharatiPatra/fi-dashboard/internal/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxQueryBytes = 64 << 10

type sessionStatus struct {
	Authenticated bool   `json:"authenticated"`
	Adopted       bool   `json:"adopted,omitempty"`
	UserID        string `json:"userId,omitempty"`
	SessionID     string `json:"sessionId,omitempty"`
	MCPSessionID  string `json:"mcpSessionId,omitempty"`
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
}

func (s *Server) sessionStatus(r *http.Request) sessionStatus {
	t := s.sessions.Current()
	st := sessionStatus{
		Authenticated: t.IsComplete(),
		UserID:        t.UserID,
		SessionID:     t.SessionID,
		MCPSessionID:  t.MCPSessionID,
	}
	if id, ok := identityFromContext(r.Context()); ok {
		st.Email = id.Email
		st.Name = id.Name
	}
	return st
}

// IndexHandler is the dashboard landing route. A redirect carrying userId,
// sessionId and mcpSessionId in the query is adopted as the current session.
func (s *Server) IndexHandler(w http.ResponseWriter, r *http.Request) {
	adopted := s.sessions.AdoptFromQuery(r.URL.Query())
	st := s.sessionStatus(r)
	st.Adopted = adopted
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) SessionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessionStatus(r))
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginStatus struct {
	State        string `json:"state"`
	Message      string `json:"message"`
	MCPSessionID string `json:"mcpSessionId,omitempty"`
	LoginURL     string `json:"loginUrl,omitempty"`
	Attempts     int    `json:"attempts"`
	Redirect     string `json:"redirect,omitempty"`
}

// StartLoginHandler starts the acquisition flow (POST /api/mcp/login). Only
// one flow runs at a time; a second request gets the running one with 409.
func (s *Server) StartLoginHandler(w http.ResponseWriter, r *http.Request) {
	if s.sessions.IsAuthenticated() {
		writeJSON(w, http.StatusOK, loginStatus{State: "succeeded", Message: "Already logged in.", Redirect: RouteRoot})
		return
	}

	id := uuid.NewString()
	loginURL := s.config.GetLoginURL(id)

	flow, started := s.logins.start(func(window *acquisition.Window) *acquisition.Flow {
		return acquisition.NewFlow(s.sessions, s.backend, window,
			acquisition.WithCorrelationID(func() string { return id }),
			acquisition.WithLoginURL(s.config.GetLoginURL),
			acquisition.WithInterval(s.config.GetPollInterval()),
			acquisition.WithTimeout(s.config.GetLoginTimeout()),
			acquisition.WithLogger(s.logger),
			acquisition.WithMetrics(s.metrics.Acquisition),
		)
	})
	if !started {
		writeJSON(w, http.StatusConflict, toLoginStatus(flow.Status()))
		return
	}

	writeJSON(w, http.StatusAccepted, loginStatus{
		State:        acquisition.PollingBackend.String(),
		Message:      "Waiting for the login to complete in the browser.",
		MCPSessionID: id,
		LoginURL:     loginURL,
	})
}

// LoginStatusHandler reports the current flow (GET /api/mcp/login).
func (s *Server) LoginStatusHandler(w http.ResponseWriter, r *http.Request) {
	flow, _ := s.logins.current()
	// a success is only reported while its session is still held
	if flow == nil || (flow.Status().State == acquisition.Succeeded && !s.sessions.IsAuthenticated()) {
		st := loginStatus{State: acquisition.Idle.String()}
		if s.sessions.IsAuthenticated() {
			st = loginStatus{State: acquisition.Succeeded.String(), Message: "Already logged in.", Redirect: RouteRoot}
		}
		writeJSON(w, http.StatusOK, st)
		return
	}
	writeJSON(w, http.StatusOK, toLoginStatus(flow.Status()))
}

// AbandonLoginHandler is called when the login pop-up is closed.
func (s *Server) AbandonLoginHandler(w http.ResponseWriter, r *http.Request) {
	if !s.logins.abandon() {
		writeJSONError(w, "no_active_login", "no login is in progress", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MCPLogoutHandler forgets the MCP session (POST /api/mcp/logout).
func (s *Server) MCPLogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.ClearSession(); err != nil {
		s.logError(r, err, "failed to clear persisted session")
		writeJSONError(w, "server_error", "failed to clear session", http.StatusInternalServerError)
		return
	}
	s.logins.reset()
	w.WriteHeader(http.StatusNoContent)
}

func toLoginStatus(st acquisition.Status) loginStatus {
	out := loginStatus{
		State:        st.State.String(),
		Message:      st.Message,
		MCPSessionID: st.MCPSessionID,
		LoginURL:     st.LoginURL,
		Attempts:     st.Attempts,
	}
	if st.State == acquisition.Succeeded {
		out.Redirect = RouteRoot
	}
	return out
}

func (s *Server) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := s.backend.Summary(r.Context())
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) NetWorthHandler(w http.ResponseWriter, r *http.Request) {
	nw, err := s.backend.NetWorth(r.Context())
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nw)
}

type mutualFunds struct {
	Transactions  []backend.MutualFundTransaction `json:"transactions"`
	TotalInvested decimal.Decimal                 `json:"totalInvested"`
}

func (s *Server) MutualFundsHandler(w http.ResponseWriter, r *http.Request) {
	txs, err := s.backend.MutualFundTransactions(r.Context())
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutualFunds{Transactions: txs, TotalInvested: backend.TotalInvested(txs)})
}

type agentRequest struct {
	Message string `json:"message"`
}

// AgentQueryHandler relays a chat message to the AI agent (POST /api/agent/query).
func (s *Server) AgentQueryHandler(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBytes)).Decode(&req); err != nil {
		writeJSONError(w, "invalid_request", "body must be a JSON object with a message", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSONError(w, "invalid_request", "message is required", http.StatusBadRequest)
		return
	}

	reply, err := s.backend.AskAgent(r.Context(), req.Message)
	if err != nil {
		s.writeBackendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// writeBackendError maps backend client failures: a missing session is a
// 401, anything the backend or the network did wrong is a 502.
func (s *Server) writeBackendError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errors.ErrUnauthenticated) {
		writeJSONError(w, "unauthenticated", err.Error(), http.StatusUnauthorized)
		return
	}

	s.logError(r, err, "backend request failed")
	var httpErr *backend.HTTPError
	if errors.As(err, &httpErr) {
		writeJSONError(w, "backend_error", httpErr.Message, http.StatusBadGateway)
		return
	}
	writeJSONError(w, "backend_unavailable", "the backend could not be reached", http.StatusBadGateway)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes an error response in the OAuth2 error shape
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}
