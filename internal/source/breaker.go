package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"ideagraph/semnet/internal/network"
)

// ErrBreakerOpen is returned without calling the store while the breaker is open.
var ErrBreakerOpen = errors.New("similarity source unavailable: circuit open")

// BreakerConfig controls when the similarity source is taken out of rotation.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32        // probes allowed while half-open
	Interval         time.Duration // closed-state counter reset period
	Timeout          time.Duration // open-state duration before probing
	FailureThreshold float64       // failure ratio that trips the breaker
	MinRequests      uint32        // requests needed before the ratio counts
}

// DefaultBreakerConfig returns a breaker that trips at 80% failures over at
// least five requests and probes again after 30s.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// BreakerSource guards a SimilaritySource with a circuit breaker. Rejected
// calls surface as ordinary query failures, so the expander abandons the
// branch and carries on.
type BreakerSource struct {
	next   network.SimilaritySource
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// WithBreaker wraps next.
func WithBreaker(next network.SimilaritySource, cfg BreakerConfig, logger *zap.Logger) *BreakerSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &BreakerSource{next: next, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("similarity source breaker changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// A caller abandoning its build says nothing about the store.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return b
}

// Query implements network.SimilaritySource.
func (b *BreakerSource) Query(ctx context.Context, q network.Query) ([]network.Candidate, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Query(ctx, q)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w (%v)", ErrBreakerOpen, err)
	}
	if err != nil {
		return nil, err
	}
	cands, _ := out.([]network.Candidate)
	return cands, nil
}

// State reports the breaker state: closed, half-open or open.
func (b *BreakerSource) State() string {
	return b.cb.State().String()
}
