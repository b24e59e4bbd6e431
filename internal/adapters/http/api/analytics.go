package api

import (
	"context"
	"net/http"

	"github.com/okian/arena/internal/domain/analytics"
)

// AnalyticsDependencies defines the interface for timeline rebuilds.
type AnalyticsDependencies interface {
	Analytics(ctx context.Context) (analytics.Timelines, error)
}

// AnalyticsHandler handles analytics requests.
type AnalyticsHandler struct {
	deps AnalyticsDependencies
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(deps AnalyticsDependencies) *AnalyticsHandler {
	return &AnalyticsHandler{deps: deps}
}

// HandleGetAnalytics handles GET /analytics requests.
func (h *AnalyticsHandler) HandleGetAnalytics(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_analytics"
	tl, err := h.deps.Analytics(r.Context())
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, tl)
}
