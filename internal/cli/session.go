package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/BharatiPatra/fi-dashboard/acquisition"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the Fi MCP backend",
		Long: `Log in to the Fi MCP backend. The login page opens in your browser and
fidash waits until the backend reports the login as complete. The session is
saved and reused by every other command until you log out.

Press Enter to give up waiting.

Examples:
  fidash login
  fidash login --no-browser --timeout 2m`,
		RunE: a.runLogin,
	}

	cmd.Flags().Bool("no-browser", false, "Print the login URL instead of opening a browser")
	cmd.Flags().Duration("timeout", 0, "Give up after this long (default from config)")
	cmd.Flags().Duration("interval", 0, "Delay between login polls (default from config)")
	return cmd
}

func (a *app) runLogin(cmd *cobra.Command, args []string) error {
	noBrowser, _ := cmd.Flags().GetBool("no-browser")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	interval, _ := cmd.Flags().GetDuration("interval")
	if timeout == 0 {
		timeout = a.cfg.GetLoginTimeout()
	}
	if interval == 0 {
		interval = a.cfg.GetPollInterval()
	}

	var opener acquisition.BrowserOpener
	if !noBrowser {
		opener = a.opener
	}
	window := acquisition.NewWindow(opener)
	out := cmd.OutOrStdout()

	var announce sync.Once
	flow := acquisition.NewFlow(a.sessions, a.client, window,
		acquisition.WithLoginURL(a.cfg.GetLoginURL),
		acquisition.WithInterval(interval),
		acquisition.WithTimeout(timeout),
		acquisition.WithLogger(log.Logger),
		acquisition.WithOnChange(func(st acquisition.Status) {
			if st.State != acquisition.PollingBackend || a.jsonOutput {
				return
			}
			announce.Do(func() {
				fmt.Fprintf(out, "%s\n  %s\n", st.Message, st.LoginURL)
				fmt.Fprintln(out, "Press Enter to cancel.")
			})
		}),
	)

	ctx, stop := commandContext(cmd)
	defer stop()

	go func() {
		if _, err := bufio.NewReader(a.stdin).ReadString('\n'); err == nil {
			window.Abandon()
		}
	}()

	t, err := flow.Run(ctx)
	status := flow.Status()
	if a.jsonOutput {
		printJSON(out, map[string]any{
			"state":         status.State,
			"message":       status.Message,
			"authenticated": err == nil,
			"userId":        t.UserID,
		})
		if err != nil {
			return errors.Join(ErrAlreadyHandled, err)
		}
		return nil
	}

	if err != nil {
		errorLabel.Fprintln(cmd.ErrOrStderr(), status.Message)
		return errors.Join(ErrAlreadyHandled, err)
	}
	okLabel.Fprintf(out, "✓ %s\n", status.Message)
	printField(out, "User ID", t.UserID)
	return nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.sessions.ClearSession(); err != nil {
				return err
			}
			if a.jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]any{"authenticated": false})
				return nil
			}
			okLabel.Fprintln(cmd.OutOrStdout(), "✓ Logged out")
			return nil
		},
	}
}

type statusView struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId,omitempty"`
	SessionID     string `json:"sessionId,omitempty"`
	MCPSessionID  string `json:"mcpSessionId,omitempty"`
	Backend       string `json:"backend"`
}

func newStatusCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a session is saved",
		Long: `Show whether a session is saved and which ids it holds. Ids are masked
unless --show is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			show, _ := cmd.Flags().GetBool("show")
			t := a.sessions.Current()

			view := statusView{
				Authenticated: t.IsComplete(),
				Backend:       a.client.BaseURL(),
			}
			if !t.IsEmpty() {
				view.UserID = maskID(t.UserID, show)
				view.SessionID = maskID(t.SessionID, show)
				view.MCPSessionID = maskID(t.MCPSessionID, show)
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput {
				printJSON(out, view)
				return nil
			}

			if view.Authenticated {
				okLabel.Fprintln(out, "✓ Logged in")
			} else {
				errorLabel.Fprintln(out, "✗ Not logged in")
			}
			printField(out, "Backend", view.Backend)
			if !t.IsEmpty() {
				printField(out, "User ID", view.UserID)
				printField(out, "Session ID", view.SessionID)
				printField(out, "MCP session ID", view.MCPSessionID)
			}
			return nil
		},
	}
	cmd.Flags().Bool("show", false, "Print ids in full")
	return cmd
}

// maskID keeps the first four characters of id.
func maskID(id string, show bool) string {
	if show || id == "" {
		return id
	}
	if len(id) <= 4 {
		return strings.Repeat("*", len(id))
	}
	return id[:4] + strings.Repeat("*", len(id)-4)
}

// requireSession is the pre-run check of the commands that call the backend.
func (a *app) requireSession(cmd *cobra.Command) error {
	if !a.sessions.IsAuthenticated() {
		return a.notLoggedIn(cmd)
	}
	return nil
}

// commandContext is cancelled on Ctrl-C.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}
