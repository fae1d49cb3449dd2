package acquisition

// State is the position of a Flow in the login state machine.
type State int

const (
	Idle State = iota
	PollingBackend
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PollingBackend:
		return "polling"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a snapshot of a Flow for display.
type Status struct {
	State        State  `json:"state"`
	Message      string `json:"message"`
	MCPSessionID string `json:"mcpSessionId,omitempty"`
	LoginURL     string `json:"loginUrl,omitempty"`
	Attempts     int    `json:"attempts"`
	Err          error  `json:"-"`
}

// User facing messages.
const (
	msgPolling    = "Waiting for the login to complete in the browser."
	msgOpenFailed = "Could not open the login page. Allow pop-ups or open %s manually."
	msgSucceeded  = "Login successful."
	msgAlreadyIn  = "Already logged in."
	msgDenied     = "Login failed, please try to reload."
	msgNetwork    = "Could not reach the login service, reload to retry."
	msgTimeout    = "Login timed out, please try again."
	msgAbandoned  = "Login cancelled."
)

// Metric labels.
const (
	outcomeSuccess = "succeeded"
	outcomeAlready = "already_authenticated"
	outcomeDenied  = "denied"
	outcomeNetwork = "network_error"
	outcomeTimeout = "timeout"
	outcomeAbandon = "abandoned"

	pollSuccess    = "success"
	pollPending    = "pending"
	pollIncomplete = "incomplete"
	pollError      = "error"
)
