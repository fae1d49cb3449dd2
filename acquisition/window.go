package acquisition

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
)

// BrowserOpener shows url to the user, typically in a browser tab.
type BrowserOpener func(ctx context.Context, url string) error

var _ Surface = (*Window)(nil)

// Window is a Surface whose closing is reported by its host: the CLI when
// the user gives up, the dashboard page when the pop-up is closed.
type Window struct {
	opener BrowserOpener

	mu     sync.RWMutex
	url    string
	closed bool
}

// NewWindow returns a Window. A nil opener leaves showing the URL to the host.
func NewWindow(opener BrowserOpener) *Window {
	return &Window{opener: opener}
}

func (w *Window) Open(ctx context.Context, loginURL string) error {
	w.mu.Lock()
	w.url = loginURL
	w.mu.Unlock()

	if w.opener == nil {
		return nil
	}
	return w.opener(ctx, loginURL)
}

// Abandon marks the window closed by the user.
func (w *Window) Abandon() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

func (w *Window) Closed() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.closed
}

// URL returns the address the window was opened with.
func (w *Window) URL() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.url
}

// OpenBrowser launches the platform URL handler.
func OpenBrowser(ctx context.Context, url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("unable to open browser: %w", err)
	}
	return nil
}
