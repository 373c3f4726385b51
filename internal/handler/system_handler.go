package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/response"
	"github.com/stemsi/qbank-console/internal/workspace"
)

const probeTimeout = 2 * time.Second

// SystemHandler reports the console's own health and that of its
// dependencies.
type SystemHandler struct {
	rdb       redis.Cmdable
	sessions  *workspace.Registry
	upstream  string
	probe     *http.Client
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a SystemHandler. rdb may be nil when sessions
// are not kept in Redis.
func NewSystemHandler(rdb redis.Cmdable, sessions *workspace.Registry, upstream string, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		rdb:       rdb,
		sessions:  sessions,
		upstream:  upstream,
		probe:     &http.Client{Timeout: probeTimeout},
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type dependencyStatus struct {
	Redis    string `json:"redis"`
	Upstream string `json:"upstream"`
}

// Health godoc
// GET /health
// Reports uptime, open sessions and whether Redis and the question bank
// answer. Any dependency down turns the status to "degraded" with 503.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	deps := dependencyStatus{Redis: "disabled", Upstream: h.checkUpstream(ctx)}
	if h.rdb != nil {
		deps.Redis = "ok"
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			h.log.Warn().Err(err).Msg("Redis ping failed")
			deps.Redis = "down"
		}
	}

	status, code := "ok", http.StatusOK
	if deps.Redis == "down" || deps.Upstream == "down" {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	response.Success(c, code, gin.H{
		"status":       status,
		"uptime":       time.Since(h.startTime).Round(time.Second).String(),
		"sessions":     h.sessions.Len(),
		"goroutines":   runtime.NumGoroutine(),
		"go_version":   runtime.Version(),
		"dependencies": deps,
	})
}

// checkUpstream counts any HTTP answer as reachable.
func (h *SystemHandler) checkUpstream(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, h.upstream, nil)
	if err != nil {
		return "down"
	}
	resp, err := h.probe.Do(req)
	if err != nil {
		h.log.Warn().Err(err).Msg("Upstream probe failed")
		return "down"
	}
	resp.Body.Close()
	return "ok"
}
