package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Circuit breaker (Closed → Open → Half-Open) guarding calls to one peer
// service. Prevents the retry budget of every caller from being burned
// against a peer that is known to be down: while open, calls fast-fail.
//
//   - Closed:    normal operation, requests pass through
//   - Open:      all requests fail immediately
//   - Half-Open: one probe request allowed through to test recovery

// BreakerState represents the current circuit breaker state.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // normal — requests flow
	BreakerOpen                         // tripped — fast-fail all requests
	BreakerHalfOpen                     // probing — one request allowed
)

// String returns a human-readable state name (for health endpoints / logs).
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when Do is called while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig holds tunable parameters.
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures to trip open (default: 5)
	SuccessThreshold int           // consecutive successes in half-open to close (default: 2)
	OpenTimeout      time.Duration // how long to stay open before probing (default: 30s)
}

// DefaultBreakerConfig returns sensible defaults for a peer-service breaker.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
	}
}

// Breaker is a thread-safe circuit breaker named after the peer it guards.
type Breaker struct {
	name string
	cfg  BreakerConfig

	mu          sync.Mutex
	state       BreakerState
	failures    int
	successes   int
	lastFailure time.Time
}

// NewBreaker creates a breaker in Closed state. The name appears in logs and
// health output ("products", "categories", ...).
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	return &Breaker{name: name, cfg: cfg, state: BreakerClosed}
}

// State returns the current state, auto-transitioning open → half-open once
// the open timeout has elapsed.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && time.Since(b.lastFailure) >= b.cfg.OpenTimeout {
		b.transition(BreakerHalfOpen)
		b.successes = 0
	}
	return b.state
}

// Do runs fn through the breaker. Returns ErrCircuitOpen immediately if the
// breaker is open; otherwise fn's error is returned unchanged.
func (b *Breaker) Do(fn func() error) error {
	if b.State() == BreakerOpen {
		return ErrCircuitOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}

// onFailure must be called under lock.
func (b *Breaker) onFailure() {
	b.failures++
	b.lastFailure = time.Now()

	switch b.state {
	case BreakerClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(BreakerOpen)
			b.successes = 0
		}
	case BreakerHalfOpen:
		// Probe failed — back to open
		b.transition(BreakerOpen)
		b.failures = 0
	}
}

// onSuccess must be called under lock.
func (b *Breaker) onSuccess() {
	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.transition(BreakerClosed)
			b.failures = 0
			b.successes = 0
		}
	}
}

// transition must be called under lock.
func (b *Breaker) transition(to BreakerState) {
	if b.state == to {
		return
	}
	log.Warn().
		Str("peer", b.name).
		Str("from", b.state.String()).
		Str("to", to.String()).
		Msg("circuit breaker state change")
	b.state = to
}
