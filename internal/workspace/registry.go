package workspace

import (
	"context"
	"sync"

	"github.com/stemsi/qbank-console/internal/session"
)

// Session is one signed-in operator: the upstream session and the
// workspace acting on its behalf.
type Session struct {
	ID        string
	Manager   *session.Manager
	Workspace *Workspace
}

// Factory builds the session for id. Implementations hydrate the manager
// from its store; a manager that is not logged in is still returned.
type Factory func(ctx context.Context, id string) (*Session, error)

// Registry keeps one Session per console session id.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	build    Factory
}

func NewRegistry(build Factory) *Registry {
	return &Registry{sessions: make(map[string]*Session), build: build}
}

// Open returns the session for id, building it on first use.
func (r *Registry) Open(ctx context.Context, id string) (*Session, error) {
	r.mu.Lock()
	if s, ok := r.sessions[id]; ok {
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	s, err := r.build(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another request may have built it meanwhile.
	if existing, ok := r.sessions[id]; ok {
		s.Workspace.Close()
		return existing, nil
	}
	r.sessions[id] = s
	return s, nil
}

// Put registers a session built elsewhere, e.g. right after login.
func (r *Registry) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[s.ID]; ok && old != s {
		old.Workspace.Close()
	}
	r.sessions[s.ID] = s
}

// Drop forgets id and closes its workspace.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Workspace.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll closes every workspace, ending their subscriptions. Sessions
// stay persisted in their stores.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	open := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range open {
		s.Workspace.Close()
	}
}
