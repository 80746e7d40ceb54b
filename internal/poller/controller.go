package poller

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"payment-reconciler/internal/models"
)

// State is the lifecycle of a poll controller.
type State int

const (
	StateIdle State = iota
	StatePolling
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StatePolling:
		return "POLLING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("poller: already started")

// FetchFunc performs one status lookup.
type FetchFunc func(ctx context.Context) (*models.RawStatusReport, error)

// ResultFunc receives every fetch outcome, success or failure. A true
// return means the snapshot is terminal-locked and polling must stop.
type ResultFunc func(report *models.RawStatusReport, err error) bool

// Config holds poll controller configuration.
type Config struct {
	// Interval between scheduled fetches.
	Interval time.Duration
	// Timeout is the wall-clock ceiling on the whole polling run,
	// independent of the interval.
	Timeout time.Duration
	// FetchTimeout bounds a single lookup.
	FetchTimeout time.Duration
}

// Controller schedules repeated status fetches for one order. It keeps
// at most one fetch outstanding: a tick that fires while the previous
// fetch is still pending is skipped rather than piled up.
type Controller struct {
	interval     time.Duration
	timeout      time.Duration
	fetchTimeout time.Duration

	mu     sync.Mutex
	state  State
	ctx    context.Context
	cancel context.CancelFunc

	wg       sync.WaitGroup
	inFlight atomic.Bool
}

// NewController creates an idle controller.
func NewController(config Config) *Controller {
	if config.Interval == 0 {
		config.Interval = 4 * time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 3 * time.Minute
	}
	if config.FetchTimeout == 0 {
		config.FetchTimeout = 10 * time.Second
	}

	return &Controller{
		interval:     config.Interval,
		timeout:      config.Timeout,
		fetchTimeout: config.FetchTimeout,
		state:        StateIdle,
	}
}

// Start transitions Idle -> Polling, performs one immediate fetch and
// then schedules repeated fetches. onTimeout fires if the wall-clock
// ceiling elapses before a terminal status stopped the run; it may be
// nil.
func (c *Controller) Start(fetch FetchFunc, onResult ResultFunc, onTimeout func()) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.state = StatePolling
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.mu.Unlock()

	c.wg.Add(1)
	go c.loop(fetch, onResult, onTimeout)
	return nil
}

// Stop cancels the pending timer and renders any in-flight fetch's
// result a no-op on arrival. Idempotent, callable from any goroutine.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	if c.state == StateStopped {
		return
	}
	c.state = StateStopped
	if c.cancel != nil {
		c.cancel()
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Wait blocks until the polling goroutines have exited. Useful in
// shutdown paths and tests; not required for Stop to take effect.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) loop(fetch FetchFunc, onResult ResultFunc, onTimeout func()) {
	defer c.wg.Done()

	deadline := time.NewTimer(c.timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.dispatch(fetch, onResult)

	for {
		select {
		case <-ticker.C:
			c.dispatch(fetch, onResult)
		case <-deadline.C:
			if c.timeoutStop() {
				log.Printf("Status polling timed out after %s", c.timeout)
				if onTimeout != nil {
					onTimeout()
				}
			}
			return
		case <-c.ctx.Done():
			return
		}
	}
}

// timeoutStop transitions Polling -> Stopped for the timeout path. A
// false return means something else stopped the run first.
func (c *Controller) timeoutStop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePolling {
		return false
	}
	c.stopLocked()
	return true
}

func (c *Controller) dispatch(fetch FetchFunc, onResult ResultFunc) {
	// Previous fetch still pending: skip this tick.
	if !c.inFlight.CompareAndSwap(false, true) {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.inFlight.Store(false)

		ctx, cancel := context.WithTimeout(c.ctx, c.fetchTimeout)
		defer cancel()

		report, err := fetch(ctx)

		// The controller may have been stopped while the fetch was in
		// flight; its result must not be applied.
		if c.State() != StatePolling {
			return
		}

		if onResult(report, err) {
			c.Stop()
		}
	}()
}
