// Package rating implements the Elo rating engine and log replay.
//
// Every item starts at the initial rating. A vote moves the winner up and the
// loser down by K times the surprise of the result, where the expected score
// of a against b is 1 / (1 + 10^((r(b)-r(a))/400)). Both expectations are
// taken from the ratings before the vote.
package rating

import (
	"math"
	"sync"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/ranking"
)

// Standing is one item's place in the rankings.
type Standing struct {
	Rank   int
	Name   string
	Rating float64
	Change int
}

// Engine holds the live rating state. It is safe for concurrent use: writes
// take the exclusive lock, reads the shared one.
type Engine struct {
	mu sync.RWMutex

	k            float64
	initial      float64
	historyLimit int

	ratings map[string]float64
	deltas  map[string]int
	index   *ranking.Index
	history []model.Outcome
	applied int64
}

// New creates an engine with every name at the initial rating and a zero
// delta. Duplicate names are collapsed.
func New(names []string, opts ...Option) *Engine {
	e := &Engine{
		k:            DefaultKFactor,
		initial:      DefaultInitialRating,
		historyLimit: DefaultHistoryLimit,
		ratings:      make(map[string]float64, len(names)),
		deltas:       make(map[string]int, len(names)),
		index:        ranking.New(),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, name := range names {
		if _, ok := e.ratings[name]; ok {
			continue
		}
		e.ratings[name] = e.initial
		e.deltas[name] = 0
		e.index.Set(name, e.initial)
	}
	return e
}

// expected is the logistic win probability of a rated ra against rb.
func expected(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(10, (rb-ra)/400))
}

// ExpectedScore returns the probability that a beats b at current ratings.
func (e *Engine) ExpectedScore(a, b string) (float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ra, ok := e.ratings[a]
	if !ok {
		return 0, &UnknownItemError{Name: a}
	}
	rb, ok := e.ratings[b]
	if !ok {
		return 0, &UnknownItemError{Name: b}
	}
	return expected(ra, rb), nil
}

// Validate checks that a vote can be applied without mutating anything.
func (e *Engine) Validate(winner, loser string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.validateLocked(winner, loser)
}

func (e *Engine) validateLocked(winner, loser string) error {
	if _, ok := e.ratings[winner]; !ok {
		return &UnknownItemError{Name: winner}
	}
	if _, ok := e.ratings[loser]; !ok {
		return &UnknownItemError{Name: loser}
	}
	if winner == loser {
		return ErrSameItem
	}
	return nil
}

// Apply records winner beating loser. The returned outcome carries full
// before/after snapshots and is also kept in the bounded history. On error
// nothing is mutated.
func (e *Engine) Apply(winner, loser, time string) (model.Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.validateLocked(winner, loser); err != nil {
		return model.Outcome{}, err
	}

	before := e.snapshotLocked()
	e.applyLocked(winner, loser)

	out := model.Outcome{
		Winner: winner,
		Loser:  loser,
		Before: before,
		After:  e.snapshotLocked(),
		Time:   time,
	}
	e.recordLocked(out)
	return out, nil
}

// apply is the replay path: no snapshots, no history.
func (e *Engine) apply(winner, loser string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.validateLocked(winner, loser); err != nil {
		return err
	}
	e.applyLocked(winner, loser)
	return nil
}

func (e *Engine) applyLocked(winner, loser string) {
	rw, rl := e.ratings[winner], e.ratings[loser]
	ew := expected(rw, rl)
	el := expected(rl, rw)

	nw := rw + e.k*(1-ew)
	nl := rl + e.k*(0-el)

	e.ratings[winner] = nw
	e.ratings[loser] = nl
	e.deltas[winner] = RoundDelta(nw - rw)
	e.deltas[loser] = RoundDelta(nl - rl)
	e.index.Set(winner, nw)
	e.index.Set(loser, nl)
	e.applied++
}

func (e *Engine) recordLocked(out model.Outcome) {
	if e.historyLimit == 0 {
		return
	}
	e.history = append(e.history, out)
	if over := len(e.history) - e.historyLimit; over > 0 {
		e.history = e.history[over:]
	}
}

func (e *Engine) snapshotLocked() map[string]float64 {
	out := make(map[string]float64, len(e.ratings))
	for k, v := range e.ratings {
		out[k] = v
	}
	return out
}

// RoundDelta rounds a rating change to the nearest integer, halves to even.
func RoundDelta(d float64) int {
	return int(math.RoundToEven(d))
}

// Rankings returns every item ordered by rating descending, then name
// ascending, with dense ranks and the last delta.
func (e *Engine) Rankings() []Standing {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.standingsLocked(e.index.All())
}

// Top returns the best n standings.
func (e *Engine) Top(n int) []Standing {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.standingsLocked(e.index.TopN(n))
}

func (e *Engine) standingsLocked(entries []ranking.Entry) []Standing {
	out := make([]Standing, len(entries))
	for i, en := range entries {
		out[i] = Standing{Rank: en.Rank, Name: en.Name, Rating: en.Rating, Change: e.deltas[en.Name]}
	}
	return out
}

// Standing returns the rank, rating and last delta of one item.
func (e *Engine) Standing(name string) (Standing, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	en, err := e.index.Lookup(name)
	if err != nil {
		return Standing{}, &UnknownItemError{Name: name}
	}
	return Standing{Rank: en.Rank, Name: en.Name, Rating: en.Rating, Change: e.deltas[name]}, nil
}

// Ratings returns a copy of the current ratings.
func (e *Engine) Ratings() map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

// Changes returns a copy of the last delta per item.
func (e *Engine) Changes() map[string]int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]int, len(e.deltas))
	for k, v := range e.deltas {
		out[k] = v
	}
	return out
}

// Recent returns up to n of the latest outcomes, oldest first. The maps in
// the returned outcomes are shared and must not be modified.
func (e *Engine) Recent(n int) []model.Outcome {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if n <= 0 {
		return []model.Outcome{}
	}
	if n > len(e.history) {
		n = len(e.history)
	}
	out := make([]model.Outcome, n)
	copy(out, e.history[len(e.history)-n:])
	return out
}

// Contains reports whether the engine rates name.
func (e *Engine) Contains(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.ratings[name]
	return ok
}

// Len returns the number of rated items.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.ratings)
}

// Applied returns the number of votes applied since creation.
func (e *Engine) Applied() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.applied
}

// HistoryLen returns the number of outcomes held in memory.
func (e *Engine) HistoryLen() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.history)
}
