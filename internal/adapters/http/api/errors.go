package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/arena/internal/adapters/mq/queue"
	"github.com/okian/arena/internal/adapters/repository"
	service "github.com/okian/arena/internal/app"
	"github.com/okian/arena/internal/domain/pairing"
	"github.com/okian/arena/internal/domain/rating"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrBackpressure = errors.New("backpressure")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnavailable  = errors.New("service unavailable")
	ErrInternal     = errors.New("internal error")
)

// Error is an API failure: the operation that failed, the kind that selects
// the status code and the underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewKind returns an error of kind with no further cause.
func NewKind(op string, kind error) *Error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind returns err tagged with an explicit kind.
func WrapKind(op string, kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap tags err with the kind its cause implies.
func Wrap(op string, err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &Error{Op: op, Kind: kindOf(err), Err: err}
}

func kindOf(err error) error {
	switch {
	case errors.Is(err, rating.ErrUnknownItem), errors.Is(err, rating.ErrSameItem):
		return ErrBadRequest
	case errors.Is(err, queue.ErrFull):
		return ErrBackpressure
	case errors.Is(err, pairing.ErrInsufficientCatalog),
		errors.Is(err, repository.ErrPersistence),
		errors.Is(err, service.ErrNotStarted),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return ErrUnavailable
	default:
		return ErrInternal
	}
}

// statusOf maps a kind to its status code and the short code in the body.
func statusOf(kind error) (int, string) {
	switch {
	case errors.Is(kind, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(kind, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(kind, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(kind, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(kind, ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
