package workspace

import (
	"context"
	"slices"

	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/client"
	"github.com/stemsi/qbank-console/internal/service"
	"github.com/stemsi/qbank-console/internal/session"
)

// StoreFunc returns where the session with the given id is persisted.
type StoreFunc func(id string) session.Store

// UpstreamFactory builds sessions that talk to the backend at baseURL. Each
// session gets its own manager, and its workspace authenticates with that
// manager's token.
func UpstreamFactory(baseURL string, stores StoreFunc, cfg Config, log zerolog.Logger, opts ...client.Option) Factory {
	return func(ctx context.Context, id string) (*Session, error) {
		slog := log.With().Str("session", shortID(id)).Logger()

		anon := client.New(baseURL, slices.Concat(opts, []client.Option{client.WithLogger(slog)})...)
		mgr := session.NewManager(stores(id), service.NewAuthService(anon), session.WithLogger(slog))
		if err := mgr.Hydrate(ctx); err != nil {
			return nil, err
		}

		api := client.New(baseURL, slices.Concat(opts, []client.Option{client.WithTokenSource(mgr), client.WithLogger(slog)})...)
		return &Session{
			ID:        id,
			Manager:   mgr,
			Workspace: New(NewServices(api), cfg, slog),
		}, nil
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
