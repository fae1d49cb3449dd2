package session

// Triple identifies an authenticated dashboard client. It is replaced
// wholesale, never merged field by field.
type Triple struct {
	UserID       string `json:"userId"`
	SessionID    string `json:"sessionId"`
	MCPSessionID string `json:"mcpSessionId"`
}

// IsComplete reports whether all three identifiers are set. Only complete
// triples count as authenticated.
func (t Triple) IsComplete() bool {
	return t.UserID != "" && t.SessionID != "" && t.MCPSessionID != ""
}

func (t Triple) IsEmpty() bool {
	return t == Triple{}
}

// Params returns the identifiers as backend query parameters.
func (t Triple) Params() Params {
	return Params{
		UserID:       t.UserID,
		SessionID:    t.SessionID,
		MCPSessionID: t.MCPSessionID,
	}
}

// Params is the query parameter form of a Triple, encoded with go-querystring.
type Params struct {
	UserID       string `url:"userId"`
	SessionID    string `url:"sessionId"`
	MCPSessionID string `url:"mcpSessionId"`
}

// Query parameter names carried by every authenticated backend request and by
// the login hand-off URL.
const (
	QueryUserID       = "userId"
	QuerySessionID    = "sessionId"
	QueryMCPSessionID = "mcpSessionId"
)
