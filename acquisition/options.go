package acquisition

import (
	"net/url"
	"time"

	"github.com/BharatiPatra/fi-dashboard/internal/metrics"
	"github.com/BharatiPatra/fi-dashboard/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultInterval = 2 * time.Second
	DefaultTimeout  = 10 * time.Minute

	defaultLoginURL = "http://localhost:8080/mockWebPage"
)

type Option func(*Flow)

// WithInterval sets the fixed delay between polls.
func WithInterval(d time.Duration) Option {
	return func(f *Flow) {
		if d > 0 {
			f.interval = d
		}
	}
}

// WithTimeout bounds the whole flow. Zero leaves it unbounded.
func WithTimeout(d time.Duration) Option {
	return func(f *Flow) {
		if d >= 0 {
			f.timeout = d
		}
	}
}

// WithMaxAttempts caps the number of polls. Zero leaves it unbounded.
func WithMaxAttempts(n int) Option {
	return func(f *Flow) {
		if n >= 0 {
			f.maxAttempts = n
		}
	}
}

// WithLoginURL builds the external login page address for a correlation id.
func WithLoginURL(fn func(mcpSessionID string) string) Option {
	return func(f *Flow) {
		if fn != nil {
			f.loginURL = fn
		}
	}
}

// WithCorrelationID replaces the MCP session id generator.
func WithCorrelationID(fn func() string) Option {
	return func(f *Flow) {
		if fn != nil {
			f.correlationID = fn
		}
	}
}

// WithOnSuccess is called once, after the session has been applied.
func WithOnSuccess(fn func(session.Triple)) Option {
	return func(f *Flow) {
		f.onSuccess = fn
	}
}

// WithOnChange is called after every status change, from the polling goroutine.
func WithOnChange(fn func(Status)) Option {
	return func(f *Flow) {
		f.onChange = fn
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(f *Flow) {
		f.logger = logger
	}
}

func WithMetrics(m *metrics.Acquisition) Option {
	return func(f *Flow) {
		f.metrics = m
	}
}

func defaultLoginURLFor(mcpSessionID string) string {
	return defaultLoginURL + "?" + url.Values{session.QuerySessionID: {mcpSessionID}}.Encode()
}

func defaultCorrelationID() string {
	return uuid.NewString()
}
