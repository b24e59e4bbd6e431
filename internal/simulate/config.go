// Package simulate drives a running arena over HTTP with votes drawn from
// hidden item strengths and checks that the resulting ranking recovers them.
package simulate

import (
	"errors"
	"runtime"
	"time"
)

// Errors returned by Run.
var (
	ErrUnhealthy      = errors.New("service is not healthy")
	ErrTooFewItems    = errors.New("catalog has fewer than two items")
	ErrLowConcordance = errors.New("ranking does not follow hidden strengths")
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL string        // Base URL of the service
	Votes   int           // Number of votes to submit
	Workers int           // Number of concurrent submitters
	Timeout time.Duration // HTTP request timeout
	Seed    int64         // Seed for hidden strengths and outcomes

	// Spread is the distance in rating points between the weakest and the
	// strongest hidden strength.
	Spread float64

	// Resubmit is the fraction of votes sent a second time with the same
	// vote id. Every resubmission must come back as a duplicate.
	Resubmit float64

	// MinConcordance fails the run when the share of item pairs ordered
	// the same way by rating and by hidden strength is lower. Zero skips
	// the check.
	MinConcordance float64
}

// DefaultConfig returns a configuration for a local server.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://localhost:8000",
		Votes:          2000,
		Workers:        runtime.NumCPU() * 2,
		Timeout:        10 * time.Second,
		Seed:           1,
		Spread:         600,
		Resubmit:       0.05,
		MinConcordance: 0.7,
	}
}

// Stats holds run statistics.
type Stats struct {
	Submitted   int64
	Applied     int64
	Duplicate   int64
	Resubmitted int64
	Throttled   int64
	Failed      int64
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
}

// Standing is one row of GET /rankings.
type Standing struct {
	Rank   int     `json:"rank"`
	Name   string  `json:"name"`
	Score  int     `json:"score"`
	Rating float64 `json:"rating"`
	Change int     `json:"change"`
}

// Report is the result of a run.
type Report struct {
	Stats       Stats
	Strengths   map[string]float64
	Rankings    []Standing
	Concordance float64
}
