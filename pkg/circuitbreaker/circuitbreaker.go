package circuitbreaker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrOpen is returned instead of calling the protected function while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

type Options struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before letting a probe through.
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of probes allowed while half-open.
	HalfOpenRequests uint32
	// IsSuccessful reports errors that should not count as failures (e.g. a 404).
	IsSuccessful func(err error) bool
}

func DefaultOptions() Options {
	return Options{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

func New[T any](name string, opts Options, log *slog.Logger) *Breaker[T] {
	if opts.ConsecutiveFailures == 0 {
		opts.ConsecutiveFailures = DefaultOptions().ConsecutiveFailures
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = DefaultOptions().OpenTimeout
	}
	if opts.HalfOpenRequests == 0 {
		opts.HalfOpenRequests = 1
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: opts.HalfOpenRequests,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if log != nil {
				log.Warn("circuit breaker state changed",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			}
		},
	}
	if opts.IsSuccessful != nil {
		isSuccessful := opts.IsSuccessful
		st.IsSuccessful = func(err error) bool {
			return err == nil || isSuccessful(err)
		}
	}

	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](st)}
}

// Execute runs fn through the breaker. Rejections are reported as ErrOpen.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	v, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, fmt.Errorf("%s: %w", b.cb.Name(), ErrOpen)
	}
	return v, err
}

func (b *Breaker[T]) State() string {
	return b.cb.State().String()
}
