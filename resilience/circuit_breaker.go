package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "github.com/kbukum/restkit/errors"
)

// State is the position of a circuit.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the open timeout elapses.
	StateOpen
	// StateHalfOpen admits a limited number of trial calls.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned, without running the call, while the circuit
// rejects traffic.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Outcome is how one call result affects the circuit.
type Outcome int

const (
	// OutcomeSuccess resets the failure streak.
	OutcomeSuccess Outcome = iota
	// OutcomeFailure extends the failure streak.
	OutcomeFailure
	// OutcomeNeutral leaves the circuit untouched. A trial slot taken by a
	// neutral call is handed back.
	OutcomeNeutral
)

// ClassifyError is the default outcome mapping. Cancellation and errors the
// caller caused (bad input, content negotiation, consumed bodies) say nothing
// about the remote service and are neutral. Connection, timeout, transfer
// and internal errors count as failures, as does any error outside the
// application taxonomy.
func ClassifyError(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	if errors.Is(err, context.Canceled) {
		return OutcomeNeutral
	}
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		return OutcomeFailure
	}
	switch appErr.Code {
	case apperrors.ErrCodeConnectionFailed, apperrors.ErrCodeTimeout,
		apperrors.ErrCodeTransferFailed, apperrors.ErrCodeInternal:
		return OutcomeFailure
	default:
		return OutcomeNeutral
	}
}

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the circuit in logs and callbacks.
	Name string
	// MaxFailures consecutive failures open the circuit.
	MaxFailures int
	// Timeout is how long the circuit stays open before trial calls are
	// admitted.
	Timeout time.Duration
	// HalfOpenMaxCalls is the number of concurrent trial calls while
	// half-open. That many successes close the circuit.
	HalfOpenMaxCalls int
	// Classify maps a call result to an outcome. Nil uses ClassifyError.
	Classify func(error) Outcome
	// OnStateChange is called on every transition, under the breaker lock.
	OnStateChange func(name string, from, to State)
}

// DefaultCircuitBreakerConfig returns the client defaults: five failures,
// thirty seconds open and a single trial call.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// Counts are running totals since the breaker was created or reset.
type Counts struct {
	Admitted  uint64
	Rejected  uint64
	Successes uint64
	Failures  uint64
	Neutral   uint64
}

// CircuitBreaker fails calls fast while a remote service keeps failing.
//
// Every admitted call carries the generation it was admitted in. A result
// from an earlier generation, such as a slow call that finishes after the
// circuit opened, is counted but does not move the circuit.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	now    func() time.Time

	mu         sync.Mutex
	state      State
	generation uint64
	failures   int
	trials     int
	trialOK    int
	openedAt   time.Time
	counts     Counts
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 1
	}
	if config.Classify == nil {
		config.Classify = ClassifyError
	}
	return &CircuitBreaker{config: config, now: time.Now}
}

// Execute runs fn unless the circuit rejects it, in which case it returns
// ErrCircuitOpen. fn's error is returned unchanged.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	gen, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.record(gen, cb.config.Classify(err))
	return err
}

// State returns the current state. An open circuit whose timeout elapsed
// reports half-open.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.advance()
	return cb.state
}

// Failures returns the current run of consecutive failures.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Counts returns a snapshot of the running totals.
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.counts
}

// Reset closes the circuit and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.toState(StateClosed)
	cb.failures = 0
	cb.counts = Counts{}
}

func (cb *CircuitBreaker) admit() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.advance()

	switch cb.state {
	case StateOpen:
		cb.counts.Rejected++
		return 0, ErrCircuitOpen
	case StateHalfOpen:
		if cb.trials >= cb.config.HalfOpenMaxCalls {
			cb.counts.Rejected++
			return 0, ErrCircuitOpen
		}
		cb.trials++
	}
	cb.counts.Admitted++
	return cb.generation, nil
}

func (cb *CircuitBreaker) record(gen uint64, outcome Outcome) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch outcome {
	case OutcomeSuccess:
		cb.counts.Successes++
	case OutcomeFailure:
		cb.counts.Failures++
	default:
		cb.counts.Neutral++
	}

	cb.advance()
	if gen != cb.generation {
		return
	}

	switch outcome {
	case OutcomeSuccess:
		if cb.state == StateHalfOpen {
			cb.trialOK++
			if cb.trialOK >= cb.config.HalfOpenMaxCalls {
				cb.toState(StateClosed)
			}
			return
		}
		cb.failures = 0
	case OutcomeFailure:
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.config.MaxFailures {
			cb.toState(StateOpen)
		}
	default:
		if cb.state == StateHalfOpen {
			cb.trials--
		}
	}
}

// advance moves an expired open circuit to half-open.
func (cb *CircuitBreaker) advance() {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.config.Timeout {
		cb.toState(StateHalfOpen)
	}
}

func (cb *CircuitBreaker) toState(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	cb.generation++
	cb.trials = 0
	cb.trialOK = 0
	switch to {
	case StateOpen:
		cb.openedAt = cb.now()
	case StateClosed:
		cb.failures = 0
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
