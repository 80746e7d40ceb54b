package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"payment-reconciler/internal/models"
)

// State represents the state of the circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// ErrOpenState is returned while the breaker is rejecting lookups.
var ErrOpenState = errors.New("circuit breaker: open state")

// Config holds breaker configuration.
type Config struct {
	// FailureThreshold is the number of consecutive lookup failures
	// that trips the breaker.
	FailureThreshold uint32
	// Cooldown is how long the breaker stays open before letting a
	// single probe lookup through.
	Cooldown time.Duration
}

// Breaker guards the status-lookup call. A run of consecutive failures
// trips it open; while open, lookups are rejected immediately and the
// poll schedule keeps running without hitting the backend. After the
// cooldown one probe is allowed: success closes the breaker, failure
// reopens it.
type Breaker struct {
	threshold uint32
	cooldown  time.Duration

	mu                  sync.Mutex
	state               State
	consecutiveFailures uint32
	openedAt            time.Time
}

// New creates a closed breaker.
func New(config Config) *Breaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 3
	}
	if config.Cooldown == 0 {
		config.Cooldown = 30 * time.Second
	}

	return &Breaker{
		threshold: config.FailureThreshold,
		cooldown:  config.Cooldown,
		state:     StateClosed,
	}
}

// Execute runs the lookup if the breaker accepts it, and records the
// outcome. While open it returns ErrOpenState without calling req.
func (b *Breaker) Execute(ctx context.Context, req func(context.Context) (*models.RawStatusReport, error)) (*models.RawStatusReport, error) {
	if err := b.beforeRequest(); err != nil {
		return nil, err
	}

	report, err := req(ctx)
	b.afterRequest(err == nil)
	return report, err
}

// State returns the current breaker state, applying the cooldown
// transition first.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshLocked(time.Now())
	return b.state
}

func (b *Breaker) beforeRequest() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refreshLocked(time.Now())
	if b.state == StateOpen {
		return ErrOpenState
	}
	return nil
}

func (b *Breaker) afterRequest(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.state = StateClosed
		b.consecutiveFailures = 0
		return
	}

	b.consecutiveFailures++
	if b.state == StateHalfOpen || b.consecutiveFailures >= b.threshold {
		b.state = StateOpen
		b.openedAt = time.Now()
	}
}

// refreshLocked moves Open -> HalfOpen once the cooldown has elapsed.
// Caller holds the mutex.
func (b *Breaker) refreshLocked(now time.Time) {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.cooldown {
		b.state = StateHalfOpen
	}
}
