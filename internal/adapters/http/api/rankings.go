package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/arena/internal/domain/rating"
)

// RankingsDependencies defines the interface for ranking reads.
type RankingsDependencies interface {
	Rankings(n int) ([]rating.Standing, error)
	Standing(name string) (rating.Standing, error)
	Suggest(name string) string
}

// RankingsHandler handles ranking requests.
type RankingsHandler struct {
	deps RankingsDependencies
}

// NewRankingsHandler creates a new rankings handler.
func NewRankingsHandler(deps RankingsDependencies) *RankingsHandler {
	return &RankingsHandler{deps: deps}
}

// rankingEntry is one row of GET /rankings. Score is the rating rounded
// half to even for display.
type rankingEntry struct {
	Rank   int     `json:"rank"`
	Name   string  `json:"name"`
	Score  int     `json:"score"`
	Rating float64 `json:"rating"`
	Change int     `json:"change"`
}

func toEntry(s rating.Standing) rankingEntry {
	return rankingEntry{
		Rank:   s.Rank,
		Name:   s.Name,
		Score:  rating.RoundDelta(s.Rating),
		Rating: s.Rating,
		Change: s.Change,
	}
}

// HandleGetRankings handles GET /rankings[?limit=N] requests.
func (h *RankingsHandler) HandleGetRankings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rankings"
	n, err := parseLimit(r, 0, 0)
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	standings, err := h.deps.Rankings(n)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	out := make([]rankingEntry, len(standings))
	for i, s := range standings {
		out[i] = toEntry(s)
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetStanding handles GET /rankings/{name} requests.
func (h *RankingsHandler) HandleGetStanding(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_standing"
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		fail(w, NewKind(op, ErrBadRequest))
		return
	}
	st, err := h.deps.Standing(name)
	if err != nil {
		if errors.Is(err, rating.ErrUnknownItem) {
			fail(w, WrapKind(op, ErrNotFound, withSuggestion(err, name, h.deps.Suggest)))
			return
		}
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toEntry(st))
}

// withSuggestion appends a "did you mean" hint to err when suggest knows a
// close name.
func withSuggestion(err error, name string, suggest func(string) string) error {
	if s := suggest(name); s != "" && s != name {
		return fmt.Errorf("%w; did you mean %q?", err, s)
	}
	return err
}
