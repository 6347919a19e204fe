package handlers

import (
	"context"
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/showroom/pkg/http"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports database and cache reachability.
type HealthHandler struct {
	database HealthCheck
	cache    HealthCheck
}

// NewHealthHandler creates a HealthHandler. cache may be nil when Redis is not configured.
func NewHealthHandler(database, cache HealthCheck) *HealthHandler {
	return &HealthHandler{database: database, cache: cache}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Database: "up", Redis: "disabled"}
	status := http.StatusOK

	if err := h.database(ctx); err != nil {
		resp.Status, resp.Database = "unhealthy", "down"
		status = http.StatusServiceUnavailable
	}

	// the velocity counter falls back to postgres, so a redis outage degrades but does not fail
	if h.cache != nil {
		resp.Redis = "up"
		if err := h.cache(ctx); err != nil {
			resp.Redis = "down"
			if status == http.StatusOK {
				resp.Status = "degraded"
			}
		}
	}

	pkghttp.WriteJSON(w, status, resp)
}
