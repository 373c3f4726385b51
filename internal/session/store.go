package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned by Store.Load when nothing is persisted.
var ErrNoSession = errors.New("no session")

// State is the persisted part of a session.
type State struct {
	Token     string    `json:"token"`
	User      string    `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is unusable at now.
func (s State) Expired(now time.Time) bool {
	return s.Token == "" || !now.Before(s.ExpiresAt)
}

// Store persists a single session.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, st State) error
	Clear(ctx context.Context) error
}

// ─── File ─────────────────────────────────────────────────────

// FileStore keeps the session as a JSON file readable only by its owner.
type FileStore struct {
	path string
}

// NewFileStore stores the session at dir/name.
func NewFileStore(dir, name string) *FileStore {
	return &FileStore{path: filepath.Join(dir, name)}
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load(_ context.Context) (State, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, ErrNoSession
	}
	if err != nil {
		return State{}, fmt.Errorf("read session file: %w", err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("decode session file: %w", err)
	}
	return st, nil
}

func (f *FileStore) Save(_ context.Context, st State) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// ─── Redis ────────────────────────────────────────────────────

// RedisStore keeps one session under key with a TTL equal to the token's
// remaining lifetime.
type RedisStore struct {
	rdb redis.Cmdable
	key string
}

func NewRedisStore(rdb redis.Cmdable, key string) *RedisStore {
	return &RedisStore{rdb: rdb, key: key}
}

func (r *RedisStore) Load(ctx context.Context) (State, error) {
	raw, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, ErrNoSession
	}
	if err != nil {
		return State{}, fmt.Errorf("get session: %w", err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("decode session: %w", err)
	}
	return st, nil
}

func (r *RedisStore) Save(ctx context.Context, st State) error {
	ttl := time.Until(st.ExpiresAt)
	if ttl <= 0 {
		return r.Clear(ctx)
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ─── Memory ───────────────────────────────────────────────────

// MemoryStore is a process-local store.
type MemoryStore struct {
	mu sync.Mutex
	st *State
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(_ context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.st == nil {
		return State{}, ErrNoSession
	}
	return *m.st, nil
}

func (m *MemoryStore) Save(_ context.Context, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = &st
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = nil
	return nil
}
