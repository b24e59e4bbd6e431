package simulate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/arena/pkg/logger"
)

// Run executes a complete simulation against cfg.BaseURL.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	log := logger.Get().Named("simulate")
	stats := Stats{StartTime: time.Now()}
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting arena simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("votes", cfg.Votes),
		logger.Int("workers", cfg.Workers),
		logger.Int64("seed", cfg.Seed),
	)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}

	// Step 2: Assign hidden strengths
	names, err := client.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	if len(names) < 2 {
		return nil, ErrTooFewItems
	}
	strengths := Strengths(names, cfg.Spread, cfg.Seed)

	// Step 3: Submit votes concurrently
	if err := submitVotes(ctx, client, cfg, strengths, &stats); err != nil {
		return nil, err
	}

	// Step 4: Compare the ranking with the hidden strengths
	rankings, err := client.Rankings(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch rankings: %w", err)
	}
	ratings := make(map[string]float64, len(rankings))
	for _, r := range rankings {
		ratings[r.Name] = r.Rating
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	report := &Report{
		Stats:       stats,
		Strengths:   strengths,
		Rankings:    rankings,
		Concordance: Concordance(strengths, ratings),
	}

	log.Info(ctx, "simulation finished",
		logger.Int64("submitted", stats.Submitted),
		logger.Int64("applied", stats.Applied),
		logger.Int64("duplicate", stats.Duplicate),
		logger.Int64("throttled", stats.Throttled),
		logger.Int64("failed", stats.Failed),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("concordance", report.Concordance),
	)

	if cfg.MinConcordance > 0 && report.Concordance < cfg.MinConcordance {
		return report, fmt.Errorf("%w: %.2f < %.2f", ErrLowConcordance, report.Concordance, cfg.MinConcordance)
	}
	return report, nil
}

// submitVotes sends cfg.Votes votes through at most cfg.Workers goroutines.
// Each vote draws its own generator from the seed and its index, so the
// outcome of a given pairing does not depend on scheduling.
func submitVotes(ctx context.Context, client *Client, cfg Config, strengths map[string]float64, stats *Stats) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))

	for i := 0; i < cfg.Votes; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r := rand.New(rand.NewSource(cfg.Seed*1_000_003 + int64(i))) //nolint:gosec // simulation only

			a, b, err := client.Matchup(gctx)
			if err != nil {
				atomic.AddInt64(&stats.Failed, 1)
				return nil
			}
			winner, loser := a, b
			if r.Float64() >= WinProbability(strengths[a], strengths[b]) {
				winner, loser = b, a
			}

			id := uuid.NewString()
			atomic.AddInt64(&stats.Submitted, 1)
			res, err := client.Vote(gctx, winner, loser, id)
			if err != nil {
				countFailure(stats, err)
				return nil
			}
			if res.Duplicate {
				atomic.AddInt64(&stats.Duplicate, 1)
				return nil
			}
			atomic.AddInt64(&stats.Applied, 1)

			if r.Float64() < cfg.Resubmit {
				atomic.AddInt64(&stats.Resubmitted, 1)
				again, err := client.Vote(gctx, winner, loser, id)
				if err != nil {
					countFailure(stats, err)
					return nil
				}
				if !again.Duplicate {
					return fmt.Errorf("vote %s applied twice", id)
				}
				atomic.AddInt64(&stats.Duplicate, 1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("submit votes: %w", err)
	}
	return ctx.Err()
}

func countFailure(stats *Stats, err error) {
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusTooManyRequests {
		atomic.AddInt64(&stats.Throttled, 1)
		return
	}
	atomic.AddInt64(&stats.Failed, 1)
}
