package api

import "github.com/okian/arena/pkg/logger"

type settings struct {
	maxLimit       int
	defaultHistory int
	voteRate       float64
	voteBurst      int
	corsOrigin     string
	logger         logger.Logger
}

func defaultSettings() settings {
	return settings{
		maxLimit:       100,
		defaultHistory: 5,
		corsOrigin:     "*",
	}
}

// Option configures a Server.
type Option func(*settings)

// WithMaxLimit caps ?limit on list endpoints.
func WithMaxLimit(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithDefaultHistory sets the number of votes GET /history returns without
// a limit.
func WithDefaultHistory(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.defaultHistory = n
		}
	}
}

// WithVoteRateLimit limits POST /vote to perSecond requests with the given
// burst. Zero disables limiting.
func WithVoteRateLimit(perSecond float64, burst int) Option {
	return func(s *settings) {
		if perSecond < 0 {
			return
		}
		s.voteRate = perSecond
		s.voteBurst = max(burst, 1)
	}
}

// WithCORSOrigin sets Access-Control-Allow-Origin. Empty disables CORS headers.
func WithCORSOrigin(origin string) Option {
	return func(s *settings) {
		s.corsOrigin = origin
	}
}

// WithLogger sets the logger used by handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
