package server

import (
	"context"
	"sync"

	"github.com/BharatiPatra/fi-dashboard/acquisition"
)

// loginManager holds the dashboard's single active acquisition flow.
type loginManager struct {
	base context.Context

	mu     sync.Mutex
	flow   *acquisition.Flow
	window *acquisition.Window
}

func newLoginManager(base context.Context) *loginManager {
	return &loginManager{base: base}
}

// start runs the flow built by newFlow unless one is still polling, in which
// case the running flow is returned and started is false.
func (m *loginManager) start(newFlow func(*acquisition.Window) *acquisition.Flow) (flow *acquisition.Flow, started bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.flow != nil && !m.flow.Status().State.Terminal() {
		return m.flow, false
	}

	window := acquisition.NewWindow(nil)
	flow = newFlow(window)
	m.flow, m.window = flow, window

	go func() {
		_, _ = flow.Run(m.base)
	}()
	return flow, true
}

func (m *loginManager) current() (*acquisition.Flow, *acquisition.Window) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flow, m.window
}

// abandon reports the login page as closed. The flow fails on its next
// unsuccessful poll.
func (m *loginManager) abandon() bool {
	flow, window := m.current()
	if flow == nil || flow.Status().State.Terminal() {
		return false
	}
	window.Abandon()
	return true
}

// reset forgets a finished flow so its outcome is no longer reported. A flow
// still polling is kept.
func (m *loginManager) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.flow != nil && m.flow.Status().State.Terminal() {
		m.flow, m.window = nil, nil
	}
}

// wait blocks until the current flow has finished or ctx is done.
func (m *loginManager) wait(ctx context.Context) error {
	flow, _ := m.current()
	if flow == nil {
		return nil
	}
	select {
	case <-flow.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
