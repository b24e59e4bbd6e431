package service

import (
	"context"
	"sync"

	"github.com/okian/arena/internal/domain/dedupe"
	"github.com/okian/arena/internal/domain/model"
)

// pendingVote is the first submission of a vote id that has not been
// answered by the writer yet.
type pendingVote struct {
	done chan struct{}
	rec  model.VoteReceipt
	err  error
}

// inflight tracks vote ids between acceptance and the writer's reply. An id
// is only reported as a duplicate once its first submission has been
// persisted; until then a resubmission waits for that result.
type inflight struct {
	mu    sync.Mutex
	votes map[string]*pendingVote
}

func newInflight() *inflight {
	return &inflight{votes: make(map[string]*pendingVote)}
}

// begin claims id. It returns the pending first submission to wait on, or
// reports that id is already persisted, or registers a new pending entry
// owned by the caller.
func (f *inflight) begin(ctx context.Context, dd dedupe.Deduper, id string) (p *pendingVote, owner, duplicate bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.votes[id]; ok {
		return p, false, false
	}
	if dd.SeenAndRecord(ctx, id) {
		return nil, false, true
	}
	p = &pendingVote{done: make(chan struct{})}
	f.votes[id] = p
	return p, true, false
}

// finish publishes the result of the owner's submission. A failed
// submission releases id so it can be retried.
func (f *inflight) finish(ctx context.Context, dd dedupe.Deduper, id string, p *pendingVote, rec model.VoteReceipt, err error) {
	f.mu.Lock()
	if err != nil {
		dd.Unrecord(ctx, id)
	}
	delete(f.votes, id)
	f.mu.Unlock()

	p.rec, p.err = rec, err
	close(p.done)
}

// wait blocks until the first submission of an id is answered and returns
// its result as seen by a resubmission.
func (p *pendingVote) wait(ctx context.Context) (model.VoteReceipt, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		return model.VoteReceipt{}, ctx.Err()
	}
	if p.err != nil {
		return model.VoteReceipt{}, p.err
	}
	return model.VoteReceipt{Event: p.rec.Event, Duplicate: true}, nil
}
