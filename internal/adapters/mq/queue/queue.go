// Package queue carries vote commands from request handlers to the single
// writer.
package queue

import (
	"context"
	"sync"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/metrics"
)

// DefaultCapacity is the queue capacity when none is configured.
const DefaultCapacity = 1024

// Result is what the writer reports back for one command.
type Result struct {
	Event   model.VoteEvent // as persisted, with Seq assigned
	Outcome model.Outcome
	Err     error
}

// Command asks the writer to persist and apply one vote. Reply must be
// buffered so the writer never blocks on a caller that gave up waiting.
type Command struct {
	Event model.VoteEvent
	Reply chan Result
}

// NewCommand builds a command with a one-slot reply channel.
func NewCommand(ev model.VoteEvent) Command {
	return Command{Event: ev, Reply: make(chan Result, 1)}
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a command. Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, c Command) bool

	// Dequeue returns the channel commands arrive on. It is closed by Close.
	Dequeue(ctx context.Context) <-chan Command

	Len(ctx context.Context) int
	Cap() int

	// Close stops intake. Commands already queued remain readable.
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	commands chan Command
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.commands = make(chan Command, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a command without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, c Command) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	select {
	case <-ctx.Done():
		return false
	default:
	}

	select {
	case q.commands <- c:
		metrics.UpdateQueueSize(len(q.commands))
		return true
	default:
		return false
	}
}

// Dequeue returns the command channel.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Command {
	return q.commands
}

// Len returns the number of commands waiting.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.commands)
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int { return q.capacity }

// Close stops intake and closes the command channel once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.commands)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
