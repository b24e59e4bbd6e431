package queue

import "errors"

// ErrFull is returned by callers that could not enqueue because the queue
// is at capacity.
var ErrFull = errors.New("queue is full")
