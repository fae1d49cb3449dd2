package authflowrepo

import "time"

// AuthFlowState is what the sign-in redirect must remember until the
// provider calls back with the same state parameter.
type AuthFlowState struct {
	CodeVerifier string
	Nonce        string
	ReturnURL    string
	CreatedAt    time.Time
}

type Repo interface {
	Upsert(state string, authState *AuthFlowState) error
	Get(state string) (*AuthFlowState, error)
	Delete(state string) error

	// DeleteExpired removes states created before cutoff.
	DeleteExpired(cutoff time.Time) int
}
