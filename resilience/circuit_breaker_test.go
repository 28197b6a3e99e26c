package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "github.com/kbukum/restkit/errors"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(cfg CircuitBreakerConfig) (*CircuitBreaker, *fakeClock) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(cfg)
	cb.now = clock.Now
	return cb, clock
}

var errRefused = apperrors.ConnectionFailed("billing-api", errors.New("connection refused"))

func fail(err error) func() error { return func() error { return err } }

func ok() error { return nil }

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"nil", nil, OutcomeSuccess},
		{"connection refused", errRefused, OutcomeFailure},
		{"timeout", apperrors.Timeout("GET /invoices"), OutcomeFailure},
		{"short body", apperrors.TransferFailed(512, errors.New("unexpected EOF")), OutcomeFailure},
		{"caller cancelled", apperrors.Cancelled(0, context.Canceled), OutcomeNeutral},
		{"bare cancellation", fmt.Errorf("send: %w", context.Canceled), OutcomeNeutral},
		{"undecodable payload", apperrors.DecodeFailed("application/json", nil, errors.New("bad")), OutcomeNeutral},
		{"no codec", apperrors.NoCodec("application/yaml", nil), OutcomeNeutral},
		{"invalid input", apperrors.Validation("missing base url"), OutcomeNeutral},
		{"deadline", context.DeadlineExceeded, OutcomeFailure},
		{"foreign error", errors.New("server error status"), OutcomeFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute})

	for i := 0; i < 2; i++ {
		_ = cb.Execute(fail(errRefused))
	}
	_ = cb.Execute(ok)
	if cb.Failures() != 0 {
		t.Fatalf("a success should end the streak, failures = %d", cb.Failures())
	}

	for i := 0; i < 3; i++ {
		if err := cb.Execute(fail(errRefused)); !errors.Is(err, errRefused) {
			t.Fatalf("call error should pass through unchanged, got %v", err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("open circuit should reject without calling, got %v called=%v", err, called)
	}

	c := cb.Counts()
	if c.Admitted != 6 || c.Rejected != 1 || c.Failures != 5 || c.Successes != 1 {
		t.Errorf("counts = %+v", c)
	}
}

func TestCircuitBreaker_CancellationsDoNotTrip(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Minute})

	for i := 0; i < 10; i++ {
		_ = cb.Execute(fail(apperrors.Cancelled(int64(i), context.Canceled)))
		_ = cb.Execute(fail(apperrors.Validation("bad request body")))
	}
	if cb.State() != StateClosed || cb.Failures() != 0 {
		t.Fatalf("caller-side errors moved the circuit: %s, %d failures", cb.State(), cb.Failures())
	}
	if cb.Counts().Neutral != 20 {
		t.Errorf("neutral = %d", cb.Counts().Neutral)
	}
}

func TestCircuitBreaker_CustomClassify(t *testing.T) {
	errTooMany := errors.New("429")
	cb, _ := newTestBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		Classify: func(err error) Outcome {
			if errors.Is(err, errTooMany) {
				return OutcomeFailure
			}
			return OutcomeNeutral
		},
	})

	_ = cb.Execute(fail(errRefused))
	if cb.State() != StateClosed {
		t.Fatal("classifier marked refusals neutral")
	}
	_ = cb.Execute(fail(errTooMany))
	if cb.State() != StateOpen {
		t.Fatal("classifier marked 429 as a failure")
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	var transitions []string
	cb, clock := newTestBreaker(CircuitBreakerConfig{
		Name:             "billing-api",
		MaxFailures:      1,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 2,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, fmt.Sprintf("%s:%s->%s", name, from, to))
		},
	})

	_ = cb.Execute(fail(errRefused))
	clock.Advance(29 * time.Second)
	if cb.State() != StateOpen {
		t.Fatal("circuit left open state early")
	}
	clock.Advance(time.Second)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half-open, got %s", cb.State())
	}

	_ = cb.Execute(ok)
	if cb.State() != StateHalfOpen {
		t.Fatal("one trial success should not close a circuit that needs two")
	}
	_ = cb.Execute(ok)
	if cb.State() != StateClosed {
		t.Fatalf("expected closed, got %s", cb.State())
	}

	want := []string{
		"billing-api:closed->open",
		"billing-api:open->half-open",
		"billing-api:half-open->closed",
	}
	if fmt.Sprint(transitions) != fmt.Sprint(want) {
		t.Errorf("transitions = %v, want %v", transitions, want)
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Second})
	for i := 0; i < 3; i++ {
		_ = cb.Execute(fail(errRefused))
	}
	clock.Advance(time.Second)

	_ = cb.Execute(fail(apperrors.Timeout("GET /invoices")))
	if cb.State() != StateOpen {
		t.Fatalf("a failed trial should reopen, got %s", cb.State())
	}
	clock.Advance(500 * time.Millisecond)
	if err := cb.Execute(ok); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("reopened circuit should restart its timeout, got %v", err)
	}
}

func TestCircuitBreaker_TrialSlots(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Second})
	_ = cb.Execute(fail(errRefused))
	clock.Advance(time.Second)

	inTrial := make(chan struct{})
	finish := make(chan error)
	done := make(chan error)
	go func() {
		done <- cb.Execute(func() error {
			close(inTrial)
			return <-finish
		})
	}()
	<-inTrial

	if err := cb.Execute(ok); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("second trial should be rejected, got %v", err)
	}

	finish <- apperrors.Cancelled(0, context.Canceled)
	<-done
	if cb.State() != StateHalfOpen {
		t.Fatalf("a cancelled trial should not decide the circuit, got %s", cb.State())
	}
	if err := cb.Execute(ok); err != nil {
		t.Fatalf("the cancelled trial's slot should be free again, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected closed, got %s", cb.State())
	}
}

func TestCircuitBreaker_StaleResultsIgnored(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute})

	slowStarted := make(chan struct{})
	slowFinish := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- cb.Execute(func() error {
			close(slowStarted)
			<-slowFinish
			return nil
		})
	}()
	<-slowStarted

	_ = cb.Execute(fail(errRefused))
	if cb.State() != StateOpen {
		t.Fatal("expected open")
	}

	close(slowFinish)
	<-done
	if cb.State() != StateOpen {
		t.Error("a success admitted before the circuit opened closed it")
	}
	if cb.Counts().Successes != 1 {
		t.Errorf("stale success should still be counted, counts = %+v", cb.Counts())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1})
	_ = cb.Execute(fail(errRefused))
	_ = cb.Execute(ok)

	cb.Reset()
	if cb.State() != StateClosed || cb.Failures() != 0 || cb.Counts() != (Counts{}) {
		t.Errorf("reset left %s, %d failures, %+v", cb.State(), cb.Failures(), cb.Counts())
	}
	if err := cb.Execute(ok); err != nil {
		t.Errorf("reset circuit rejected a call: %v", err)
	}
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	if cb.config.MaxFailures != 5 || cb.config.Timeout != 30*time.Second || cb.config.HalfOpenMaxCalls != 1 {
		t.Errorf("defaults = %+v", cb.config)
	}
	if got := DefaultCircuitBreakerConfig("api"); got.Name != "api" || got.MaxFailures != 5 {
		t.Errorf("DefaultCircuitBreakerConfig = %+v", got)
	}
	for s, want := range map[State]string{StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open", State(9): "unknown"} {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q", s, s.String())
		}
	}
}
