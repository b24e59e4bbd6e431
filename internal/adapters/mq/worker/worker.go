// Package worker runs the single writer that persists and applies votes.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/arena/internal/adapters/mq/queue"
	"github.com/okian/arena/internal/adapters/repository"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

// Engine is the live rating state the writer mutates.
type Engine interface {
	Validate(winner, loser string) error
	Apply(winner, loser, time string) (model.Outcome, error)
}

// Log is the durable vote log.
type Log interface {
	Append(ctx context.Context, ev model.VoteEvent) (model.VoteEvent, error)
}

// Queue defines how the writer receives commands.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Command
	Len(ctx context.Context) int
}

// Worker processes commands until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after the command in hand is finished.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker is the only goroutine that writes votes. Each command is
// validated, appended to the log and applied to the engine before the next
// one is read, so log order and apply order are the same.
type InMemoryWorker struct {
	queue  Queue
	engine Engine
	log    Log
	name   string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new writer with configuration options.
func NewInMemoryWorker(q Queue, engine Engine, log Log, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		engine:   engine,
		log:      log,
		name:     "writer",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	commands := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case cmd, ok := <-commands:
			if !ok {
				return
			}
			metrics.UpdateQueueSize(w.queue.Len(ctx))
			cmd.Reply <- w.process(ctx, cmd.Event)
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process handles a single vote. A failed append leaves the engine untouched.
func (w *InMemoryWorker) process(ctx context.Context, ev model.VoteEvent) queue.Result {
	start := time.Now()
	defer func() {
		metrics.RecordVoteApplyLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.engine.Validate(ev.Winner, ev.Loser); err != nil {
		metrics.RecordVoteRejected("invalid")
		return queue.Result{Err: err}
	}

	stored, err := w.log.Append(ctx, ev)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			metrics.RecordVoteDuplicate()
			return queue.Result{Err: err}
		}
		metrics.RecordPersistenceFailure()
		metrics.RecordVoteRejected("persistence")
		w.logger.Error(ctx, "vote append failed",
			logger.String("vote_id", ev.ID),
			logger.Error(err),
		)
		return queue.Result{Err: err}
	}

	out, err := w.engine.Apply(stored.Winner, stored.Loser, stored.Time)
	if err != nil {
		// Only reachable if something besides this writer mutates the
		// engine. The log is now ahead of memory.
		w.logger.Error(ctx, "apply failed after append",
			logger.Int64("seq", stored.Seq),
			logger.Error(err),
		)
		return queue.Result{Event: stored, Err: err}
	}

	metrics.RecordVoteApplied()
	metrics.UpdateRating(stored.Winner, out.After[stored.Winner])
	metrics.UpdateRating(stored.Loser, out.After[stored.Loser])
	w.logger.Debug(ctx, "vote applied",
		logger.Int64("seq", stored.Seq),
		logger.String("winner", stored.Winner),
		logger.String("loser", stored.Loser),
	)
	return queue.Result{Event: stored, Outcome: out}
}
