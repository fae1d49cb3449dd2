package session

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/rs/zerolog/log"
)

// Context holds the process-wide session triple. It is created once by the
// composition root and shared by pointer. Only the acquisition flow and an
// explicit logout write to it.
type Context struct {
	mu      sync.RWMutex
	current Triple
	store   Store

	// writeMu orders whole writes: the in-memory update and the store call
	// that follows it.
	writeMu sync.Mutex
}

// NewContext adopts the persisted triple, if any, without writing it back.
func NewContext(store Store) *Context {
	c := &Context{store: store}
	if t, ok := store.Load(); ok {
		c.current = t
	}
	return c
}

func (c *Context) Current() Triple {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *Context) IsAuthenticated() bool {
	return c.Current().IsComplete()
}

// SetSession replaces the in-memory triple and then persists it when it is
// complete. The in-memory value stays updated if persistence fails.
func (c *Context) SetSession(t Triple) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.set(t)
	if !t.IsComplete() {
		return nil
	}
	return c.persist(t)
}

// ClearSession resets the triple to empty and removes the persisted record.
func (c *Context) ClearSession() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.set(Triple{})
	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("[Context ClearSession] unable to clear persisted session: %w", err)
	}
	return nil
}

// AdoptFromQuery takes over a triple handed off in the query string of a
// redirect. All three parameters must be present; it reports whether the
// triple was adopted.
func (c *Context) AdoptFromQuery(q url.Values) bool {
	t := Triple{
		UserID:       q.Get(QueryUserID),
		SessionID:    q.Get(QuerySessionID),
		MCPSessionID: q.Get(QueryMCPSessionID),
	}
	if !t.IsComplete() {
		return false
	}

	if err := c.SetSession(t); err != nil {
		log.Warn().Err(err).Str("userId", t.UserID).Msg("adopted session could not be persisted")
	}
	return true
}

func (c *Context) set(t Triple) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

func (c *Context) persist(t Triple) error {
	if err := c.store.Save(t); err != nil {
		return fmt.Errorf("[Context SetSession] unable to persist session: %w", err)
	}
	return nil
}
