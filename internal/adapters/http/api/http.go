// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/okian/arena/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CatalogDependencies
	RankingsDependencies
	MatchupDependencies
	VoteDependencies
	HistoryDependencies
	AnalyticsDependencies
	StatsProvider
}

// Server wires HTTP routes for the arena API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	catalogHandler   *CatalogHandler
	rankingsHandler  *RankingsHandler
	matchupHandler   *MatchupHandler
	voteHandler      *VoteHandler
	historyHandler   *HistoryHandler
	analyticsHandler *AnalyticsHandler

	voteLimiter *rate.Limiter
	corsOrigin  string
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("api")
	}

	s := &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(deps),
		catalogHandler:   NewCatalogHandler(deps),
		rankingsHandler:  NewRankingsHandler(deps),
		matchupHandler:   NewMatchupHandler(deps),
		voteHandler:      NewVoteHandler(deps, cfg.logger),
		historyHandler:   NewHistoryHandler(deps, cfg.defaultHistory, cfg.maxLimit),
		analyticsHandler: NewAnalyticsHandler(deps),
		corsOrigin:       cfg.corsOrigin,
	}
	if cfg.voteRate > 0 {
		s.voteLimiter = rate.NewLimiter(rate.Limit(cfg.voteRate), cfg.voteBurst)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", MetricsMiddleware(s.healthHandler.HandleHealth, "metrics"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /llms", MetricsMiddleware(s.catalogHandler.HandleListItems, "llms"))
	mux.HandleFunc("GET /rankings", MetricsMiddleware(s.rankingsHandler.HandleGetRankings, "rankings"))
	mux.HandleFunc("GET /rankings/{name}", MetricsMiddleware(s.rankingsHandler.HandleGetStanding, "ranking"))
	mux.HandleFunc("GET /matchup", MetricsMiddleware(s.matchupHandler.HandleGetMatchup, "matchup"))
	mux.HandleFunc("POST /vote", MetricsMiddleware(
		RateLimitMiddleware(s.voteHandler.HandlePostVote, "vote", s.voteLimiter), "vote"))
	mux.HandleFunc("GET /history", MetricsMiddleware(s.historyHandler.HandleGetHistory, "history"))
	mux.HandleFunc("GET /outcomes", MetricsMiddleware(s.historyHandler.HandleGetOutcomes, "outcomes"))
	mux.HandleFunc("GET /analytics", MetricsMiddleware(s.analyticsHandler.HandleGetAnalytics, "analytics"))
}

// Handler wraps h with the server's CORS policy.
func (s *Server) Handler(h http.Handler) http.Handler {
	return CORSMiddleware(h, s.corsOrigin)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail writes err with the status its kind maps to.
func fail(w http.ResponseWriter, err *Error) {
	status, code := statusOf(err.Kind)
	writeError(w, status, code, err)
}

var errBadLimit = errors.New("limit must be a positive integer")

// parseLimit reads ?limit. An absent value yields def. Values above max are
// rejected.
func parseLimit(r *http.Request, def, maxN int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errBadLimit
	}
	if maxN > 0 && n > maxN {
		return 0, errors.New("limit exceeds " + strconv.Itoa(maxN))
	}
	return n, nil
}
