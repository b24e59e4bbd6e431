// Package service wires the catalog, the live rating engine, the vote log and
// the single writer together and implements the dependencies required by the
// HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/arena/internal/adapters/mq/queue"
	"github.com/okian/arena/internal/adapters/mq/worker"
	"github.com/okian/arena/internal/adapters/repository"
	"github.com/okian/arena/internal/domain/analytics"
	"github.com/okian/arena/internal/domain/catalog"
	"github.com/okian/arena/internal/domain/dedupe"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/pairing"
	"github.com/okian/arena/internal/domain/rating"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

const (
	analyticsKey = "timelines"
	stopTimeout  = 10 * time.Second
)

// Service implements the API dependencies for the arena.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	catalog  *catalog.Catalog
	engine   *rating.Engine
	selector *pairing.Selector
	deduper  dedupe.Deduper
	queue    *queue.InMemoryQueue
	writer   *worker.InMemoryWorker

	inflight  *inflight
	analytics singleflight.Group

	// Configuration
	queueSize     int
	dedupeSize    int
	kFactor       float64
	initialRating float64
	historyLimit  int
	catalogFile   string
	seedCatalog   bool
	now           func() time.Time

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// New constructs a Service over store with default configuration. The store
// is owned by the caller.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		queueSize:     queue.DefaultCapacity,
		dedupeSize:    dedupe.DefaultMaxSize,
		kFactor:       rating.DefaultKFactor,
		initialRating: rating.DefaultInitialRating,
		historyLimit:  rating.DefaultHistoryLimit,
		seedCatalog:   true,
		now:           time.Now,
		inflight:      newInflight(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.selector == nil {
		s.selector = pairing.New()
	}
	return s
}

func (s *Service) engineOptions() []rating.Option {
	return []rating.Option{
		rating.WithKFactor(s.kFactor),
		rating.WithInitialRating(s.initialRating),
		rating.WithHistoryLimit(s.historyLimit),
	}
}

// Start loads the catalog, replays the vote log into a fresh engine and
// starts the writer. The writer outlives ctx and is stopped by Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		return ErrNoStore
	}

	s.logger.Info(ctx, "starting arena service...")

	cat, err := s.loadCatalog(ctx)
	if err != nil {
		return err
	}

	events, err := s.store.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read vote log: %w", err)
	}

	begin := time.Now()
	engine := rating.New(cat.Names(), s.engineOptions()...)
	if err := rating.Replay(ctx, engine, events); err != nil {
		return fmt.Errorf("replay vote log: %w", err)
	}
	elapsed := time.Since(begin)
	metrics.RecordReplay(float64(elapsed.Microseconds())/1000, len(events))

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	from := 0
	if len(events) > s.dedupeSize {
		from = len(events) - s.dedupeSize
	}
	for _, ev := range events[from:] {
		if ev.ID != "" {
			s.deduper.SeenAndRecord(ctx, ev.ID)
		}
	}

	s.catalog = cat
	s.engine = engine
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.writer = worker.NewInMemoryWorker(s.queue, engine, s.store, worker.WithLogger(s.logger.Named("writer")))
	go s.writer.Run(context.WithoutCancel(ctx))

	metrics.UpdateCatalogItems(cat.Len())
	metrics.UpdateQueueCapacity(s.queue.Cap())
	for name, r := range engine.Ratings() {
		metrics.UpdateRating(name, r)
	}

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "arena service started",
		logger.Int("items", cat.Len()),
		logger.Int("replayed", len(events)),
		logger.Float64("replay_ms", float64(elapsed.Microseconds())/1000),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// loadCatalog reads the stored catalog, seeding it first when allowed. An
// explicit catalog file is upserted on every start so edits to it take
// effect; the built-in seed only fills an empty catalog.
func (s *Service) loadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}

	if s.seedCatalog && (len(items) == 0 || s.catalogFile != "") {
		seed, err := catalog.LoadSeed(s.catalogFile)
		if err != nil {
			return nil, err
		}
		if err := s.store.UpsertItems(ctx, seed); err != nil {
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
		if items, err = s.store.ListItems(ctx); err != nil {
			return nil, fmt.Errorf("list catalog: %w", err)
		}
		s.logger.Info(ctx, "catalog seeded", logger.Int("items", len(seed)))
	}

	return catalog.New(items)
}

// Stop drains the write queue and stops the writer. Votes still queued when
// the drain times out get no reply; their callers return when their
// contexts end.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping arena service...")

	_ = s.queue.Close()

	ctx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	select {
	case <-s.writer.Done():
	case <-ctx.Done():
		_ = s.writer.Shutdown(ctx)
	}

	s.started = false
	s.logger.Info(ctx, "arena service stopped")
}

// live returns the engine and catalog, or ErrNotStarted.
func (s *Service) live() (*rating.Engine, *catalog.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.engine, s.catalog, nil
}

// Items returns the catalog in stored order.
func (s *Service) Items() ([]model.Item, error) {
	_, cat, err := s.live()
	if err != nil {
		return nil, err
	}
	return cat.Items(), nil
}

// Suggest returns the closest catalog name to name, or "".
func (s *Service) Suggest(name string) string {
	_, cat, err := s.live()
	if err != nil {
		return ""
	}
	return cat.Suggest(name)
}

// Rankings returns every item ordered by rating. n > 0 limits the result to
// the top n.
func (s *Service) Rankings(n int) ([]rating.Standing, error) {
	engine, _, err := s.live()
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return engine.Top(n), nil
	}
	return engine.Rankings(), nil
}

// Standing returns one item's rank, rating and last change.
func (s *Service) Standing(name string) (rating.Standing, error) {
	engine, _, err := s.live()
	if err != nil {
		return rating.Standing{}, err
	}
	return engine.Standing(name)
}

// Matchup returns two distinct items chosen uniformly at random.
func (s *Service) Matchup() (string, string, error) {
	_, cat, err := s.live()
	if err != nil {
		return "", "", err
	}
	a, b, err := s.selector.RandomPair(cat.Names())
	if err != nil {
		return "", "", err
	}
	metrics.RecordMatchup()
	return a, b, nil
}

// SubmitVote validates a vote, hands it to the writer and waits for the
// result. A vote id that is already persisted yields a duplicate receipt and
// no change. A resubmission while the first attempt is still pending waits
// for it and shares its outcome, error included. If ctx ends while the vote
// is queued the vote may still be applied.
func (s *Service) SubmitVote(ctx context.Context, winner, loser, voteID string) (model.VoteReceipt, error) {
	s.mu.RLock()
	if !s.started {
		s.mu.RUnlock()
		return model.VoteReceipt{}, ErrNotStarted
	}
	engine, q, dd := s.engine, s.queue, s.deduper
	s.mu.RUnlock()

	if err := engine.Validate(winner, loser); err != nil {
		metrics.RecordVoteRejected("invalid")
		return model.VoteReceipt{}, err
	}

	ev := model.VoteEvent{
		ID:     voteID,
		Winner: winner,
		Loser:  loser,
		Time:   s.now().UTC().Format(time.RFC3339),
	}

	var pending *pendingVote
	if voteID != "" {
		p, owner, duplicate := s.inflight.begin(ctx, dd, voteID)
		switch {
		case duplicate:
			metrics.RecordVoteDuplicate()
			s.logger.Debug(ctx, "duplicate vote skipped", logger.String("vote_id", voteID))
			return model.VoteReceipt{Event: ev, Duplicate: true}, nil
		case !owner:
			rec, err := p.wait(ctx)
			if err == nil {
				metrics.RecordVoteDuplicate()
			}
			return rec, err
		}
		pending = p
	}
	settle := func(ctx context.Context, rec model.VoteReceipt, err error) {
		if pending != nil {
			s.inflight.finish(ctx, dd, voteID, pending, rec, err)
		}
	}

	cmd := queue.NewCommand(ev)
	if !q.Enqueue(ctx, cmd) {
		err := ErrBackpressure
		if q.IsClosed() {
			err = ErrNotStarted
		} else {
			metrics.RecordVoteRejected("backpressure")
		}
		settle(ctx, model.VoteReceipt{}, err)
		return model.VoteReceipt{}, err
	}
	metrics.UpdateQueueSize(q.Len(ctx))

	select {
	case res := <-cmd.Reply:
		rec, err := receiptOf(ev, res)
		settle(ctx, rec, err)
		return rec, err
	case <-ctx.Done():
		// The writer still answers; resubmissions wait for that answer.
		go func() {
			rec, err := receiptOf(ev, <-cmd.Reply)
			settle(context.WithoutCancel(ctx), rec, err)
		}()
		return model.VoteReceipt{}, ctx.Err()
	}
}

// receiptOf turns the writer's result into a receipt. A vote id the log
// already holds is a duplicate, not a failure.
func receiptOf(ev model.VoteEvent, res queue.Result) (model.VoteReceipt, error) {
	if res.Err != nil {
		if errors.Is(res.Err, repository.ErrDuplicate) {
			return model.VoteReceipt{Event: ev, Duplicate: true}, nil
		}
		return model.VoteReceipt{}, res.Err
	}
	return model.VoteReceipt{Event: res.Event, Outcome: res.Outcome}, nil
}

// RecentVotes returns the last n durable votes, oldest first.
func (s *Service) RecentVotes(ctx context.Context, n int) ([]model.VoteEvent, error) {
	if _, _, err := s.live(); err != nil {
		return nil, err
	}
	return s.store.ReadRecent(ctx, n)
}

// Outcomes returns up to n of the most recent applied outcomes, oldest first.
func (s *Service) Outcomes(n int) ([]model.Outcome, error) {
	engine, _, err := s.live()
	if err != nil {
		return nil, err
	}
	return engine.Recent(n), nil
}

// Analytics rebuilds every item's rating timeline from the vote log.
// Concurrent calls share one rebuild. A shared rebuild that started before
// this call and misses a vote applied before it is discarded and rebuilt,
// so every vote acknowledged before the call is included. The result is
// shared and must not be modified.
func (s *Service) Analytics(ctx context.Context) (analytics.Timelines, error) {
	engine, cat, err := s.live()
	if err != nil {
		return nil, err
	}
	applied := engine.Applied()

	tl, shared, err := s.buildTimelines(ctx, cat)
	if err == nil && shared && eventsIn(tl) < applied {
		tl, _, err = s.buildTimelines(ctx, cat)
	}
	if err != nil {
		s.logger.Error(ctx, "analytics rebuild failed", logger.Error(err))
		return nil, err
	}
	return tl, nil
}

func (s *Service) buildTimelines(ctx context.Context, cat *catalog.Catalog) (analytics.Timelines, bool, error) {
	v, err, shared := s.analytics.Do(analyticsKey, func() (interface{}, error) {
		bctx := context.WithoutCancel(ctx)
		begin := time.Now()
		events, err := s.store.ReadAll(bctx)
		if err != nil {
			return nil, err
		}
		tl, err := analytics.BuildTimelines(bctx, cat.Names(), events, s.engineOptions()...)
		if err != nil {
			return nil, err
		}
		metrics.RecordAnalyticsBuild(float64(time.Since(begin).Microseconds()) / 1000)
		return tl, nil
	})
	if shared {
		metrics.RecordAnalyticsShared()
	}
	if err != nil {
		return nil, shared, err
	}
	return v.(analytics.Timelines), shared, nil
}

// eventsIn returns how many events tl was built from.
func eventsIn(tl analytics.Timelines) int64 {
	for _, points := range tl {
		return int64(len(points) - 1)
	}
	return 0
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":    s.started,
		"queueSize":  s.queueSize,
		"dedupeSize": s.dedupeSize,
		"kFactor":    s.kFactor,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["items"] = s.catalog.Len()
		stats["applied"] = s.engine.Applied()
		stats["historyLength"] = s.engine.HistoryLen()
		stats["queueLength"] = queueLen
		stats["dedupeEntries"] = s.deduper.Size()
		stats["uptimeSeconds"] = int64(s.now().Sub(s.startedAt).Seconds())
		if votes, err := s.store.Count(ctx); err == nil {
			stats["votes"] = votes
		}

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateCatalogItems(s.catalog.Len())
	}

	return stats
}
