// Package acquisition turns a login completed on an external page into a
// local session. The external page cannot report back directly, so the flow
// polls the backend with a correlation id until the login succeeds, fails or
// is abandoned.
package acquisition

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BharatiPatra/fi-dashboard/internal/errors"
	"github.com/BharatiPatra/fi-dashboard/internal/metrics"
	"github.com/BharatiPatra/fi-dashboard/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PollResult is the backend's answer to a login poll. Session is only
// meaningful when Success is set.
type PollResult struct {
	Success bool
	Session session.Triple
}

// Poller asks the backend whether the login for mcpSessionID has completed.
// Transport failures and non-2xx answers are returned as errors.
type Poller interface {
	PollLogin(ctx context.Context, mcpSessionID string) (PollResult, error)
}

// Surface is the detached login page. Open may fail when the surface cannot
// be shown; Closed reports whether the user has dismissed it.
type Surface interface {
	Open(ctx context.Context, loginURL string) error
	Closed() bool
}

// Sessions is the part of session.Context the flow reads and writes.
type Sessions interface {
	Current() session.Triple
	IsAuthenticated() bool
	SetSession(t session.Triple) error
}

// Flow is a single-use login acquisition.
type Flow struct {
	sessions Sessions
	poller   Poller
	surface  Surface

	interval      time.Duration
	timeout       time.Duration
	maxAttempts   int
	loginURL      func(string) string
	correlationID func() string
	onSuccess     func(session.Triple)
	onChange      func(Status)
	logger        zerolog.Logger
	metrics       *metrics.Acquisition

	mu        sync.Mutex
	status    Status
	started   bool
	abandoned bool
	cancel    context.CancelCauseFunc
	ticker    *time.Ticker
	result    session.Triple
	done      chan struct{}
}

func NewFlow(sessions Sessions, poller Poller, surface Surface, opts ...Option) *Flow {
	f := &Flow{
		sessions:      sessions,
		poller:        poller,
		surface:       surface,
		interval:      DefaultInterval,
		timeout:       DefaultTimeout,
		loginURL:      defaultLoginURLFor,
		correlationID: defaultCorrelationID,
		logger:        log.Logger,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Status returns a snapshot of the flow.
func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Done is closed once the flow has reached a terminal state.
func (f *Flow) Done() <-chan struct{} {
	return f.done
}

// Cancel tears the flow down. Polling stops and nothing is persisted.
// Cancelling a finished flow has no effect.
func (f *Flow) Cancel() {
	f.mu.Lock()
	f.abandoned = true
	cancel := f.cancel
	f.mu.Unlock()

	if cancel != nil {
		cancel(errors.ErrLoginAbandoned)
	}
}

// Run drives the flow until it reaches a terminal state and returns the
// acquired session. It blocks; cancelling ctx has the same effect as Cancel.
func (f *Flow) Run(ctx context.Context) (session.Triple, error) {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return session.Triple{}, errors.ErrFlowStarted
	}
	f.started = true

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if f.timeout > 0 {
		var stopTimer context.CancelFunc
		ctx, stopTimer = context.WithTimeoutCause(ctx, f.timeout, errors.ErrLoginTimeout)
		defer stopTimer()
	}
	f.cancel = cancel
	abandoned := f.abandoned
	f.mu.Unlock()

	if abandoned {
		f.fail(outcomeAbandon, msgAbandoned, errors.ErrLoginAbandoned)
		return f.outcome()
	}

	if f.sessions.IsAuthenticated() {
		t := f.sessions.Current()
		f.finish(Succeeded, msgAlreadyIn, nil, t)
		f.metrics.Outcome(outcomeAlready)
		f.logger.Debug().Str("userId", t.UserID).Msg("session already available, skipping login")
		return f.outcome()
	}

	id := f.correlationID()
	loginURL := f.loginURL(id)
	logger := f.logger.With().Str("mcpSessionId", id).Logger()

	message := msgPolling
	if err := f.surface.Open(ctx, loginURL); err != nil {
		logger.Warn().Err(err).Str("loginUrl", loginURL).Msg("unable to open login surface, polling anyway")
		message = fmt.Sprintf(msgOpenFailed, loginURL)
	}

	f.mu.Lock()
	f.ticker = time.NewTicker(f.interval)
	ticker := f.ticker
	f.mu.Unlock()
	defer ticker.Stop()

	f.update(func(s *Status) {
		s.State = PollingBackend
		s.Message = message
		s.MCPSessionID = id
		s.LoginURL = loginURL
	})
	logger.Info().Str("loginUrl", loginURL).Dur("interval", f.interval).Msg("polling for login")

	for {
		select {
		case <-ctx.Done():
			f.stopped(ctx)
			return f.outcome()
		case <-ticker.C:
		}

		res, err := f.poller.PollLogin(ctx, id)
		if ctx.Err() != nil {
			f.stopped(ctx)
			return f.outcome()
		}
		if f.handle(res, err) {
			return f.outcome()
		}
	}
}

// handle applies one poll outcome and reports whether the flow is finished.
// Outcomes arriving after a terminal state are ignored.
func (f *Flow) handle(res PollResult, pollErr error) bool {
	f.mu.Lock()
	if f.status.State.Terminal() {
		f.mu.Unlock()
		f.logger.Debug().Msg("ignoring poll result after the flow finished")
		return true
	}
	f.status.Attempts++
	attempts := f.status.Attempts
	f.mu.Unlock()

	if pollErr != nil {
		f.metrics.Poll(pollError)
		f.logger.Error().Err(pollErr).Int("attempt", attempts).Msg("login poll failed")
		f.stop()
		f.fail(outcomeNetwork, msgNetwork, fmt.Errorf("%w: %w", errors.ErrLoginNetwork, pollErr))
		return true
	}

	if res.Success && res.Session.IsComplete() {
		f.metrics.Poll(pollSuccess)
		f.stop()
		f.succeed(res.Session)
		return true
	}

	if res.Success {
		f.metrics.Poll(pollIncomplete)
		f.logger.Warn().Int("attempt", attempts).Msg("login reported success without a complete session")
	} else {
		f.metrics.Poll(pollPending)
	}

	if f.surface.Closed() {
		f.stop()
		f.fail(outcomeDenied, msgDenied, errors.ErrLoginDenied)
		return true
	}

	if f.maxAttempts > 0 && attempts >= f.maxAttempts {
		f.stop()
		f.fail(outcomeTimeout, msgTimeout, errors.ErrLoginTimeout)
		return true
	}

	f.notify(f.Status())
	return false
}

func (f *Flow) succeed(t session.Triple) {
	if err := f.sessions.SetSession(t); err != nil {
		f.logger.Warn().Err(err).Str("userId", t.UserID).Msg("session acquired but could not be persisted")
	}
	f.finish(Succeeded, msgSucceeded, nil, t)
	f.metrics.Outcome(outcomeSuccess)
	f.logger.Info().Str("userId", t.UserID).Msg("login succeeded")

	if f.onSuccess != nil {
		f.onSuccess(t)
	}
}

func (f *Flow) fail(outcome, message string, err error) {
	f.finish(Failed, message, err, session.Triple{})
	f.metrics.Outcome(outcome)
	f.logger.Info().Str("outcome", outcome).Err(err).Msg("login flow ended")
}

// stopped finishes a flow whose context ended, by timeout or by teardown.
func (f *Flow) stopped(ctx context.Context) {
	f.stop()
	if errors.Is(context.Cause(ctx), errors.ErrLoginTimeout) {
		f.fail(outcomeTimeout, msgTimeout, errors.ErrLoginTimeout)
		return
	}
	f.fail(outcomeAbandon, msgAbandoned, errors.ErrLoginAbandoned)
}

// stop halts the ticker and cancels in-flight polls.
func (f *Flow) stop() {
	f.mu.Lock()
	ticker, cancel := f.ticker, f.cancel
	f.mu.Unlock()

	if ticker != nil {
		ticker.Stop()
	}
	if cancel != nil {
		cancel(nil)
	}
}

func (f *Flow) finish(state State, message string, err error, t session.Triple) {
	f.mu.Lock()
	if f.status.State.Terminal() {
		f.mu.Unlock()
		return
	}
	f.status.State = state
	f.status.Message = message
	f.status.Err = err
	f.result = t
	close(f.done)
	status := f.status
	f.mu.Unlock()

	f.notify(status)
}

func (f *Flow) update(fn func(s *Status)) {
	f.mu.Lock()
	fn(&f.status)
	status := f.status
	f.mu.Unlock()

	f.notify(status)
}

func (f *Flow) notify(s Status) {
	if f.onChange != nil {
		f.onChange(s)
	}
}

func (f *Flow) outcome() (session.Triple, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.status.Err
}
