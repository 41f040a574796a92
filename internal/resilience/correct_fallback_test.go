package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/voxd/voxd/pkg/provider/correct"
	correctmock "github.com/voxd/voxd/pkg/provider/correct/mock"
)

func TestCorrectFallback_PrimarySuccess(t *testing.T) {
	primary := correctmock.NewProvider()
	primary.ProviderID = "primary"
	primary.Result = &correct.Result{OriginalText: "helo", CorrectedText: "hello"}
	secondary := correctmock.NewProvider()
	secondary.ProviderID = "secondary"

	fb := NewCorrectFallback(primary, FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback(secondary)

	res, err := fb.Correct(context.Background(), correct.Request{Text: "helo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.CorrectedText != "hello" {
		t.Errorf("CorrectedText = %q, want %q", res.CorrectedText, "hello")
	}
	if secondary.CallCount() != 0 {
		t.Errorf("secondary calls = %d, want 0", secondary.CallCount())
	}
}

func TestCorrectFallback_Failover(t *testing.T) {
	primary := correctmock.NewProvider()
	primary.ProviderID = "primary"
	primary.Err = errors.New("rate limited")
	secondary := correctmock.NewProvider()
	secondary.ProviderID = "secondary"
	secondary.Result = &correct.Result{OriginalText: "helo", CorrectedText: "hello"}

	fb := NewCorrectFallback(primary, FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback(secondary)

	res, err := fb.Correct(context.Background(), correct.Request{Text: "helo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.CorrectedText != "hello" {
		t.Errorf("CorrectedText = %q, want %q", res.CorrectedText, "hello")
	}
	if primary.CallCount() != 1 || secondary.CallCount() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", primary.CallCount(), secondary.CallCount())
	}
}

func TestCorrectFallback_AllFail(t *testing.T) {
	primary := correctmock.NewProvider()
	primary.Err = errors.New("down")
	secondary := correctmock.NewProvider()
	secondary.Err = errors.New("also down")

	fb := NewCorrectFallback(primary, FallbackConfig{})
	fb.AddFallback(secondary)

	_, err := fb.Correct(context.Background(), correct.Request{Text: "helo"})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestCorrectFallback_ID(t *testing.T) {
	primary := correctmock.NewProvider()
	primary.ProviderID = "openai"

	fb := NewCorrectFallback(primary, FallbackConfig{})
	if fb.ID() != "openai" {
		t.Errorf("ID = %q, want %q", fb.ID(), "openai")
	}
}
