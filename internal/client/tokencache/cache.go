// Package tokencache keeps the client's single authentication session.
//
// The session is sealed with AES-256-GCM before it reaches the local
// SQLite store. Subscribers are told whenever the cache moves between
// Unauthenticated and Authenticated.
package tokencache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/catalogkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/catalogkeeper/internal/common"
	"github.com/dmitrijs2005/catalogkeeper/internal/cryptox"
)

const sessionKey = "auth_session"

var (
	ErrEmptyToken     = errors.New("token is empty")
	ErrSessionExpired = errors.New("session already expired")
)

type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "Authenticated"
	}
	return "Unauthenticated"
}

// Session is what a successful login leaves behind.
type Session struct {
	Token      string    `json:"token"`
	Expiration time.Time `json:"expiration"`
	Username   string    `json:"username"`
	Role       string    `json:"role"`
}

// Valid reports whether s holds a token that has not expired at now.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.Token != "" && now.Before(s.Expiration)
}

type Option func(*Cache)

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

type Cache struct {
	repo metadata.Repository
	key  []byte
	now  func() time.Time

	// writeMu orders disk writes with the in-memory swap that follows them.
	writeMu sync.Mutex

	mu      sync.Mutex
	session *Session
	state   State
	subs    map[int]func(State)
	nextSub int
}

// New builds an empty, Unauthenticated cache. key must be cryptox.KeySize
// bytes long.
func New(repo metadata.Repository, key []byte, opts ...Option) (*Cache, error) {
	if len(key) != cryptox.KeySize {
		return nil, fmt.Errorf("cache key must be %d bytes, got %d", cryptox.KeySize, len(key))
	}
	c := &Cache{
		repo: repo,
		key:  key,
		now:  time.Now,
		subs: make(map[int]func(State)),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Store persists s and makes it the current session. Concurrent calls are
// serialized, so the session on disk is always the one held in memory.
func (c *Cache) Store(ctx context.Context, s Session) error {
	if s.Token == "" {
		return ErrEmptyToken
	}
	if !s.Valid(c.now()) {
		return ErrSessionExpired
	}

	sealed, err := cryptox.SealJSON(c.key, s)
	if err != nil {
		return fmt.Errorf("seal session: %w", err)
	}

	return c.write(func() (*Session, error) {
		return &s, c.repo.Set(ctx, sessionKey, sealed)
	})
}

// Load restores a persisted session at startup. Expired or undecryptable
// data is deleted and the cache stays Unauthenticated without an error.
func (c *Cache) Load(ctx context.Context) error {
	return c.write(func() (*Session, error) {
		sealed, err := c.repo.Get(ctx, sessionKey)
		if err != nil || sealed == nil {
			return nil, err
		}

		var s Session
		if err := cryptox.OpenJSON(c.key, sealed, &s); err != nil || !s.Valid(c.now()) {
			_, derr := c.repo.Delete(ctx, sessionKey)
			return nil, derr
		}
		return &s, nil
	})
}

// Clear forgets the session both in memory and on disk.
func (c *Cache) Clear(ctx context.Context) error {
	return c.write(func() (*Session, error) {
		_, err := c.repo.Delete(ctx, sessionKey)
		return nil, err
	})
}

// Attach adds the bearer header to req when a live session is cached.
func (c *Cache) Attach(req *http.Request) {
	if s, ok := c.Session(); ok {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+s.Token)
	}
}

// Session returns a copy of the current session. A session that expired
// while the process was running counts as absent and flips the state.
func (c *Cache) Session() (Session, bool) {
	c.mu.Lock()
	s := c.session
	if s != nil && !s.Valid(c.now()) {
		notify := c.swapLocked(nil)
		c.mu.Unlock()
		notify()
		return Session{}, false
	}
	c.mu.Unlock()

	if s == nil {
		return Session{}, false
	}
	return *s, true
}

func (c *Cache) State() State {
	if _, ok := c.Session(); ok {
		return Authenticated
	}
	return Unauthenticated
}

// Subscribe registers fn for state flips. fn runs synchronously on the
// goroutine that caused the flip, after the cache lock is released.
func (c *Cache) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// write runs persist and, if it succeeds, swaps in the session it returns
// while still holding writeMu. Subscribers are notified after both locks
// are released.
func (c *Cache) write(persist func() (*Session, error)) error {
	c.writeMu.Lock()
	s, err := persist()
	if err != nil {
		c.writeMu.Unlock()
		return err
	}
	c.mu.Lock()
	notify := c.swapLocked(s)
	c.mu.Unlock()
	c.writeMu.Unlock()

	notify()
	return nil
}

// swapLocked replaces the session and returns a func that notifies the
// subscribers if the state flipped. c.mu must be held; the returned func
// must be called without it.
func (c *Cache) swapLocked(s *Session) func() {
	next := Unauthenticated
	if s != nil {
		next = Authenticated
	}

	c.session = s
	if c.state == next {
		return func() {}
	}
	c.state = next

	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return func() {
		for _, fn := range subs {
			fn(next)
		}
	}
}
