package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/BharatiPatra/fi-dashboard/acquisition"
	"github.com/BharatiPatra/fi-dashboard/session"
)

type loginPollRequest struct {
	MCPSessionID string `json:"mcp_session_id"`
}

type loginPollResponse struct {
	IsSuccess    bool   `json:"is_success"`
	UserID       string `json:"user_id"`
	SessionID    string `json:"session_id"`
	MCPSessionID string `json:"mcp_session_id"`
}

var _ acquisition.Poller = (*Client)(nil)

// PollLogin asks the backend whether the external login for mcpSessionID has
// completed. It is the one call that does not need a session. Non-2xx answers
// are returned as *HTTPError.
func (c *Client) PollLogin(ctx context.Context, mcpSessionID string) (acquisition.PollResult, error) {
	body, err := json.Marshal(loginPollRequest{MCPSessionID: mcpSessionID})
	if err != nil {
		return acquisition.PollResult{}, fmt.Errorf("unable to encode login poll: %w", err)
	}

	u, err := c.resolve(SecurityLoginPath)
	if err != nil {
		return acquisition.PollResult{}, err
	}

	resp, err := c.send(ctx, u, RequestOptions{Method: http.MethodPost, Body: bytes.NewReader(body)})
	if err != nil {
		c.metrics.Request("security_login", "error")
		return acquisition.PollResult{}, err
	}
	defer resp.Body.Close()
	c.metrics.Request("security_login", statusClass(resp.StatusCode))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return acquisition.PollResult{}, fmt.Errorf("failed to read login poll response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return acquisition.PollResult{}, newHTTPError(resp.StatusCode, raw)
	}

	var lr loginPollResponse
	if err := json.Unmarshal(raw, &lr); err != nil {
		return acquisition.PollResult{}, fmt.Errorf("unable to decode login poll response: %w", err)
	}

	result := acquisition.PollResult{Success: lr.IsSuccess}
	if lr.IsSuccess {
		result.Session = session.Triple{
			UserID:       lr.UserID,
			SessionID:    lr.SessionID,
			MCPSessionID: lr.MCPSessionID,
		}
	}
	return result, nil
}
