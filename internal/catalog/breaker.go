package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// BreakerSearcher wraps a Searcher with a circuit breaker. Not-found answers
// count as successes; only failures to reach the catalog trip the breaker.
// While the breaker is open, searches wait for the next trial instead of
// failing, so an outage delays packages rather than marking them not found.
type BreakerSearcher struct {
	name    string
	next    Searcher
	breaker *circuit.Breaker
	poll    time.Duration
}

// BreakerOption configures a BreakerSearcher.
type BreakerOption func(*breakerConfig)

type breakerConfig struct {
	threshold       int64
	initialInterval time.Duration
	maxInterval     time.Duration
}

// WithTripThreshold sets the number of failures that open the breaker.
func WithTripThreshold(n int64) BreakerOption {
	return func(c *breakerConfig) {
		c.threshold = n
	}
}

// WithResetInterval sets the backoff bounds before a tripped breaker lets a
// trial query through.
func WithResetInterval(initial, max time.Duration) BreakerOption {
	return func(c *breakerConfig) {
		c.initialInterval = initial
		c.maxInterval = max
	}
}

// NewBreakerSearcher wraps next. name identifies the catalog in errors.
func NewBreakerSearcher(name string, next Searcher, opts ...BreakerOption) *BreakerSearcher {
	cfg := breakerConfig{
		threshold:       5,
		initialInterval: time.Second,
		maxInterval:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = cfg.initialInterval
	expBackoff.MaxInterval = cfg.maxInterval
	expBackoff.Multiplier = 2.0
	// Never stop offering trials.
	expBackoff.MaxElapsedTime = 0
	expBackoff.Reset()

	poll := cfg.initialInterval / 4
	if poll < time.Millisecond {
		poll = time.Millisecond
	}

	return &BreakerSearcher{
		name: name,
		next: next,
		breaker: circuit.NewBreakerWithOptions(&circuit.Options{
			BackOff:    expBackoff,
			ShouldTrip: circuit.ThresholdTripFunc(cfg.threshold),
		}),
		poll: poll,
	}
}

// Search runs the wrapped search, waiting while the breaker is open. It only
// gives up without calling the catalog when ctx ends during that wait; the
// error then wraps ErrUnavailable and the context error.
func (b *BreakerSearcher) Search(ctx context.Context, name string) ([]byte, error) {
	if err := b.wait(ctx); err != nil {
		return nil, &QueryError{Name: name, Err: fmt.Errorf("circuit breaker open for %s: %w: %w", b.name, ErrUnavailable, err)}
	}

	body, err := b.next.Search(ctx, name)
	switch {
	case err == nil, errors.Is(err, ErrNotFound):
		b.breaker.Success()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), ctx.Err() != nil:
		// The query ran out of time; that says nothing about the catalog.
	default:
		b.breaker.Fail()
	}

	if err != nil {
		var qe *QueryError
		if errors.As(err, &qe) {
			return nil, err
		}
		return nil, &QueryError{Name: name, Err: err}
	}
	return body, nil
}

func (b *BreakerSearcher) wait(ctx context.Context) error {
	if b.breaker.Ready() {
		return nil
	}
	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if b.breaker.Ready() {
				return nil
			}
		}
	}
}

// WithIndexCache forwards to the wrapped searcher when it supports index
// caching. The returned searcher shares this breaker.
func (b *BreakerSearcher) WithIndexCache(use bool) Searcher {
	ics, ok := b.next.(IndexCacheSearcher)
	if !ok {
		return b
	}
	return &BreakerSearcher{name: b.name, next: ics.WithIndexCache(use), breaker: b.breaker, poll: b.poll}
}

// State returns "open" when the breaker is tripped and "closed" otherwise.
func (b *BreakerSearcher) State() string {
	if b.breaker.Tripped() {
		return "open"
	}
	return "closed"
}
