package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/model"
)

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, creds model.Credentials) (*model.LoginResponse, error)
}

// Manager owns the operator's session. It is the only writer of the token;
// everything else reads it through Token.
type Manager struct {
	mu    sync.RWMutex
	state State

	store Store
	auth  Authenticator
	now   func() time.Time
	log   zerolog.Logger
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log.With().Str("component", "session").Logger() }
}

// NewManager creates an empty manager. Call Hydrate to restore a persisted session.
func NewManager(store Store, auth Authenticator, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		auth:  auth,
		now:   time.Now,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Hydrate loads the persisted session. An expired session is discarded from
// both memory and the store.
func (m *Manager) Hydrate(ctx context.Context) error {
	st, err := m.store.Load(ctx)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("hydrate session: %w", err)
	}

	if st.Expired(m.now()) {
		m.log.Debug().Str("user", st.User).Msg("Discarding expired session")
		return m.store.Clear(ctx)
	}

	m.mu.Lock()
	m.state = st
	m.mu.Unlock()
	return nil
}

// Login authenticates against the backend and persists the new session.
func (m *Manager) Login(ctx context.Context, creds model.Credentials) (State, error) {
	resp, err := m.auth.Login(ctx, creds)
	if err != nil {
		return State{}, err
	}

	exp, err := TokenExpiry(resp.JWT)
	if err != nil {
		return State{}, err
	}
	if exp.IsZero() && resp.ExpiresIn > 0 {
		exp = m.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	user := TokenSubject(resp.JWT)
	if user == "" {
		user = creds.Name
	}
	st := State{Token: resp.JWT, User: user, ExpiresAt: exp}
	if st.Expired(m.now()) {
		return State{}, ErrTokenExpired
	}

	if err := m.store.Save(ctx, st); err != nil {
		return State{}, err
	}

	m.mu.Lock()
	m.state = st
	m.mu.Unlock()

	m.log.Info().Str("user", st.User).Time("expires_at", st.ExpiresAt).Msg("Signed in")
	return st, nil
}

// Logout clears the in-memory session and the store.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	user := m.state.User
	m.state = State{}
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		return err
	}
	if user != "" {
		m.log.Info().Str("user", user).Msg("Signed out")
	}
	return nil
}

// Token returns the bearer token, or "" once the session has expired.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state.Expired(m.now()) {
		return ""
	}
	return m.state.Token
}

func (m *Manager) User() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.User
}

func (m *Manager) ExpiresAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.ExpiresAt
}

// IsLoggedIn reports whether a non-expired session is held.
func (m *Manager) IsLoggedIn() bool {
	return m.Token() != ""
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}
