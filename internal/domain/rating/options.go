package rating

// Default engine parameters.
const (
	DefaultKFactor       = 32.0
	DefaultInitialRating = 1500.0
	DefaultHistoryLimit  = 1000
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithKFactor sets the maximum rating movement per vote.
func WithKFactor(k float64) Option {
	return func(e *Engine) {
		if k > 0 {
			e.k = k
		}
	}
}

// WithInitialRating sets the rating every item starts from.
func WithInitialRating(r float64) Option {
	return func(e *Engine) {
		e.initial = r
	}
}

// WithHistoryLimit bounds the in-memory outcome history. Zero disables it.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.historyLimit = n
		}
	}
}
