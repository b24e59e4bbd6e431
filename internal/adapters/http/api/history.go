package api

import (
	"context"
	"net/http"

	"github.com/okian/arena/internal/domain/model"
)

// HistoryDependencies defines the interface for recent vote reads.
type HistoryDependencies interface {
	RecentVotes(ctx context.Context, n int) ([]model.VoteEvent, error)
	Outcomes(n int) ([]model.Outcome, error)
}

// HistoryHandler serves the durable vote tail and the in-memory outcomes.
type HistoryHandler struct {
	deps       HistoryDependencies
	defaultLim int
	maxLimit   int
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies, defaultLimit, maxLimit int) *HistoryHandler {
	return &HistoryHandler{deps: deps, defaultLim: defaultLimit, maxLimit: maxLimit}
}

// HandleGetHistory handles GET /history?limit=N requests.
func (h *HistoryHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_history"
	n, err := parseLimit(r, h.defaultLim, h.maxLimit)
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	votes, err := h.deps.RecentVotes(r.Context(), n)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	if votes == nil {
		votes = []model.VoteEvent{}
	}
	writeJSON(w, http.StatusOK, votes)
}

// HandleGetOutcomes handles GET /outcomes?limit=N requests.
func (h *HistoryHandler) HandleGetOutcomes(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_outcomes"
	n, err := parseLimit(r, h.defaultLim, h.maxLimit)
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	outs, err := h.deps.Outcomes(n)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	if outs == nil {
		outs = []model.Outcome{}
	}
	writeJSON(w, http.StatusOK, outs)
}
