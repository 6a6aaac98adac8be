package handlers

import (
	"context"
	"net/http"
	"time"

	"animrender/internal/httpkit"
)

// Health reports liveness and the number of renders in flight. With
// ?deep=true it also probes the renderer, storage and optional backends.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	health := map[string]any{
		"status":           "healthy",
		"jobs_in_progress": h.registry.InFlight(),
		"manim_version":    h.rendererVersion,
	}

	if r.URL.Query().Get("deep") == "true" {
		checks := h.deepHealthCheck(ctx)
		health["checks"] = checks

		for _, check := range checks {
			if check["status"] != "ok" {
				health["status"] = "degraded"
				h.log.FromContext(ctx).Warn("health check degraded", "checks", checks)
				break
			}
		}
	}

	httpkit.WriteJSON(w, http.StatusOK, health)
}

func (h *Handler) deepHealthCheck(ctx context.Context) map[string]map[string]any {
	checks := make(map[string]map[string]any)

	checks["storage"] = h.check(ctx, h.sp.Check)
	checks["storage"]["provider"] = h.sp.Provider()

	checks["renderer"] = h.check(ctx, func(ctx context.Context) error {
		_, err := h.renderer.Version(ctx)
		return err
	})

	if h.postgres != nil {
		checks["postgres"] = h.check(ctx, h.postgres.Ping)
	}
	if h.redis != nil {
		checks["redis"] = h.check(ctx, h.redis.Ping)
	}
	return checks
}

func (h *Handler) check(ctx context.Context, probe func(context.Context) error) map[string]any {
	start := time.Now()
	result := map[string]any{"status": "ok"}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := probe(checkCtx); err != nil {
		result["status"] = "error"
		result["error"] = err.Error()
	}

	result["latency_ms"] = time.Since(start).Milliseconds()
	return result
}
