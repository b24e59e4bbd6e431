package api

import "net/http"

// MatchupDependencies defines the interface for pairing.
type MatchupDependencies interface {
	Matchup() (string, string, error)
}

// MatchupHandler handles pairing requests.
type MatchupHandler struct {
	deps MatchupDependencies
}

// NewMatchupHandler creates a new matchup handler.
func NewMatchupHandler(deps MatchupDependencies) *MatchupHandler {
	return &MatchupHandler{deps: deps}
}

type matchupResponse struct {
	A string `json:"a"`
	B string `json:"b"`
}

// HandleGetMatchup handles GET /matchup requests.
func (h *MatchupHandler) HandleGetMatchup(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_matchup"
	a, b, err := h.deps.Matchup()
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, matchupResponse{A: a, B: b})
}
