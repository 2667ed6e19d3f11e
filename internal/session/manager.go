// Package session derives the player's identity from the stored bearer
// token and keeps that derivation fresh: on login/logout, on external
// token-store changes, and on a periodic expiry recheck.
package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fiverow/lobby-client/internal/tokenstore"
	"github.com/fiverow/lobby-client/pkg/types"
)

const defaultRecheckInterval = 2 * time.Minute

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithRecheckInterval overrides the periodic expiry recheck interval.
func WithRecheckInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// Manager owns the process-wide session state: the current user (nil when
// logged out) and a loading flag that is true only until the first
// validation pass completes.
//
// Two independent triggers feed one idempotent Revalidate: the store's
// change notifications and a wall-clock ticker. Whichever fires first, an
// unchanged outcome causes no downstream churn.
type Manager struct {
	store    tokenstore.Store
	log      *zap.Logger
	interval time.Duration

	mu       sync.Mutex
	user     *types.User
	loading  bool
	onChange []func(*types.User)

	events    chan tokenstore.Event
	ticker    *time.Ticker
	done      chan struct{}
	closeOnce sync.Once
}

// NewManager builds a manager bound to the store, runs the initial
// validation pass, and starts the revalidation triggers. Call Close when
// done to release the ticker and the store subscription.
func NewManager(store tokenstore.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		log:      zap.NewNop(),
		interval: defaultRecheckInterval,
		loading:  true,
		events:   make(chan tokenstore.Event, 4),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.store.Subscribe(m.events)
	m.ticker = time.NewTicker(m.interval)
	go m.loop()

	// Initial pass; this is the only place loading flips to false.
	m.Revalidate()
	return m
}

// Snapshot returns the current user (nil when logged out) and the loading
// flag.
func (m *Manager) Snapshot() (*types.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user, m.loading
}

// User returns the current user, nil when logged out.
func (m *Manager) User() *types.User {
	u, _ := m.Snapshot()
	return u
}

// OnChange registers a callback fired whenever the derived user changes
// (including to nil). Callbacks run on whichever goroutine triggered the
// revalidation, one at a time.
func (m *Manager) OnChange(fn func(*types.User)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// Login persists the token and derives the user synchronously. Same-process
// writes are not guaranteed to come back as store events, so waiting for
// one would hang a single-process client.
func (m *Manager) Login(token string) *types.User {
	if err := m.store.Set(token); err != nil {
		m.log.Warn("persist token", zap.Error(err))
	}
	m.Revalidate()
	return m.User()
}

// Logout clears the stored token and the current user. Safe to call twice;
// the second call observes an already-empty store and changes nothing.
func (m *Manager) Logout() {
	if err := m.store.Clear(); err != nil {
		m.log.Warn("clear token", zap.Error(err))
	}
	m.Revalidate()
}

// Revalidate re-derives the user from whatever the store currently holds.
// If the outcome matches the last known user, nothing fires.
func (m *Manager) Revalidate() {
	user := ParseUser(m.store.Get())

	m.mu.Lock()
	changed := !sameUser(m.user, user)
	m.user = user
	m.loading = false
	handlers := append(([]func(*types.User))(nil), m.onChange...)
	m.mu.Unlock()

	if !changed {
		return
	}
	m.log.Debug("session user changed", zap.Bool("loggedIn", user != nil))
	for _, fn := range handlers {
		fn(user)
	}
}

// Close stops the ticker and the store subscription. The last derived user
// stays readable.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.ticker.Stop()
		m.store.Unsubscribe(m.events)
		close(m.done)
	})
}

func (m *Manager) loop() {
	for {
		select {
		case <-m.done:
			return
		case <-m.events:
			// Another process touched the token slot.
			m.Revalidate()
		case <-m.ticker.C:
			m.Revalidate()
		}
	}
}

func sameUser(a, b *types.User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
