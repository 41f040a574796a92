package resilience

import (
	"errors"
	"testing"
	"time"
)

// errStartFailed stands in for a failed streaming session start, the call the
// breaker most often guards.
var errStartFailed = errors.New("streaming session could not be opened")

func TestNewCircuitBreaker_DictationDefaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "asr/whisper"})
	if cb.maxFailures != 3 {
		t.Errorf("maxFailures = %d, want 3", cb.maxFailures)
	}
	if cb.resetTimeout != 20*time.Second {
		t.Errorf("resetTimeout = %v, want 20s", cb.resetTimeout)
	}
	if cb.halfOpenMax != 2 {
		t.Errorf("halfOpenMax = %d, want 2", cb.halfOpenMax)
	}
	if cb.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_HealthyProviderPassesThrough(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "asr/whisper"})
	starts := 0
	if err := cb.Execute(func() error { starts++; return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if starts != 1 {
		t.Fatal("session start was not attempted")
	}
}

func TestCircuitBreaker_RepeatedStartFailuresTrip(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "asr/whisper",
		ResetTimeout: time.Hour, // keep it open for the assertion
	})

	// Three consecutive failed session starts hit the default trip point.
	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errStartFailed })
	}
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open after 3 failed starts", cb.State())
	}

	// Further starts are rejected without touching the provider.
	starts := 0
	err := cb.Execute(func() error { starts++; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if starts != 0 {
		t.Error("open breaker must not attempt the session start")
	}
}

func TestCircuitBreaker_SuccessfulSessionResetsCount(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "asr/whisper"})

	// Two failures, then a working session: the streak is broken.
	_ = cb.Execute(func() error { return errStartFailed })
	_ = cb.Execute(func() error { return errStartFailed })
	_ = cb.Execute(func() error { return nil })
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed after a successful session", cb.State())
	}

	_ = cb.Execute(func() error { return errStartFailed })
	_ = cb.Execute(func() error { return errStartFailed })
	if cb.State() != StateClosed {
		t.Fatal("streak must restart from zero after a success")
	}
}

func TestCircuitBreaker_ProbesAfterResetTimeout(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "asr/deepgram",
		MaxFailures:  2,
		ResetTimeout: 10 * time.Millisecond,
	})

	_ = cb.Execute(func() error { return errStartFailed })
	_ = cb.Execute(func() error { return errStartFailed })
	if cb.State() != StateOpen {
		t.Fatal("expected open")
	}

	time.Sleep(15 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open after the reset timeout", cb.State())
	}
}

func TestCircuitBreaker_RecoveredProviderCloses(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "asr/deepgram",
		MaxFailures:  2,
		ResetTimeout: 10 * time.Millisecond,
		HalfOpenMax:  2,
	})

	_ = cb.Execute(func() error { return errStartFailed })
	_ = cb.Execute(func() error { return errStartFailed })
	time.Sleep(15 * time.Millisecond)

	// Two working probe sessions close the breaker again.
	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatalf("probe %d: unexpected error: %v", i, err)
		}
	}
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed after successful probes", cb.State())
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "asr/deepgram",
		MaxFailures:  2,
		ResetTimeout: 10 * time.Millisecond,
	})

	_ = cb.Execute(func() error { return errStartFailed })
	_ = cb.Execute(func() error { return errStartFailed })
	time.Sleep(15 * time.Millisecond)

	if err := cb.Execute(func() error { return errStartFailed }); err == nil {
		t.Fatal("expected error from failing probe")
	}

	// Raw state, not State(): lastFailure was just refreshed so the breaker
	// must sit fully open again.
	cb.mu.Lock()
	s := cb.state
	cb.mu.Unlock()
	if s != StateOpen {
		t.Fatalf("state = %v, want open after failed probe", s)
	}
}

func TestCircuitBreaker_ManualReset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "correction/ollama",
		MaxFailures:  2,
		ResetTimeout: time.Hour,
	})

	_ = cb.Execute(func() error { return errStartFailed })
	_ = cb.Execute(func() error { return errStartFailed })
	if cb.State() != StateOpen {
		t.Fatal("expected open")
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed after reset", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("unexpected error after reset: %v", err)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
