package backend

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// HTTPError is a non-2xx answer from the backend.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// newHTTPError extracts a message from the usual error fields of a JSON body,
// falling back to the raw body and then to the status text.
func newHTTPError(status int, body []byte) *HTTPError {
	msg := ""
	if gjson.ValidBytes(body) {
		for _, field := range []string{"error", "detail", "message"} {
			if r := gjson.GetBytes(body, field); r.Exists() && r.String() != "" {
				msg = r.String()
				break
			}
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &HTTPError{StatusCode: status, Message: msg}
}
