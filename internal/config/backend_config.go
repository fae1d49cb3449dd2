package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

const (
	backendURLVar   = "FIDASH_BACKEND_URL"
	loginURLVar     = "FIDASH_LOGIN_URL"
	pollIntervalVar = "FIDASH_POLL_INTERVAL"
	loginTimeoutVar = "FIDASH_LOGIN_TIMEOUT"
	sessionFileVar  = "FIDASH_SESSION_FILE"
	sessionKeyVar   = "FIDASH_SESSION_KEY"

	// LoginURLPlaceholder is replaced by the url-escaped MCP session id.
	LoginURLPlaceholder = "{id}"

	sessionFileName = "userSession.json"
	sessionKeySize  = 32
)

type BackendConfig interface {
	GetBackendURL() string
	GetLoginURL(mcpSessionID string) string
	GetPollInterval() time.Duration
	GetLoginTimeout() time.Duration
	GetSessionFile() (string, error)
	GetSessionKey() (*[32]byte, error)
}

type Backend struct {
	values *Values
}

var _ BackendConfig = Backend{}

func (b Backend) GetBackendURL() string {
	return strings.TrimRight(GetEnv(backendURLVar, orDefault(b.values.BackendURL, "http://127.0.0.1:8000")), "/")
}

// GetLoginURL returns the external login page for the given MCP session id.
// Templates without the placeholder get the id appended as a sessionId query parameter.
func (b Backend) GetLoginURL(mcpSessionID string) string {
	template := GetEnv(loginURLVar, orDefault(b.values.LoginURL, "http://localhost:8080/mockWebPage?sessionId="+LoginURLPlaceholder))
	if strings.Contains(template, LoginURLPlaceholder) {
		return strings.ReplaceAll(template, LoginURLPlaceholder, url.QueryEscape(mcpSessionID))
	}

	u, err := url.Parse(template)
	if err != nil {
		return template
	}
	q := u.Query()
	q.Set("sessionId", mcpSessionID)
	u.RawQuery = q.Encode()
	return u.String()
}

func (b Backend) GetPollInterval() time.Duration {
	d := getDuration(pollIntervalVar, b.values.PollInterval, 2*time.Second)
	if d == 0 {
		return 2 * time.Second
	}
	return d
}

// GetLoginTimeout bounds a single acquisition flow. Zero disables the bound.
func (b Backend) GetLoginTimeout() time.Duration {
	return getDuration(loginTimeoutVar, b.values.LoginTimeout, 10*time.Minute)
}

func (b Backend) GetSessionFile() (string, error) {
	if file := GetEnv(sessionFileVar, b.values.SessionFile); file != "" {
		return file, nil
	}
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, sessionFileName), nil
}

// GetSessionKey returns the key sealing the persisted session record, or nil
// when the record is stored in clear.
func (b Backend) GetSessionKey() (*[32]byte, error) {
	raw := GetEnv(sessionKeyVar, b.values.SessionKey)
	if raw == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", sessionKeyVar, err)
	}
	if len(decoded) != sessionKeySize {
		return nil, fmt.Errorf("%s must decode to %d bytes, got %d", sessionKeyVar, sessionKeySize, len(decoded))
	}

	var key [32]byte
	copy(key[:], decoded)
	return &key, nil
}
