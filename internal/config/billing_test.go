package config

import (
	"testing"
	"time"
)

func TestDunningPolicyBackoff(t *testing.T) {
	policy := DunningPolicy{
		MaxAttempts:    4,
		InitialBackoff: 24 * time.Hour,
		MaxBackoff:     72 * time.Hour,
		Multiplier:     2,
	}

	cases := []struct {
		failures int
		want     time.Duration
	}{
		{failures: 0, want: 0},
		{failures: 1, want: 24 * time.Hour},
		{failures: 2, want: 48 * time.Hour},
		{failures: 3, want: 72 * time.Hour},
		{failures: 10, want: 72 * time.Hour},
	}

	for _, tc := range cases {
		if got := policy.Backoff(tc.failures); got != tc.want {
			t.Fatalf("failures=%d: expected %v, got %v", tc.failures, tc.want, got)
		}
	}
}

func TestDunningPolicyExhausted(t *testing.T) {
	policy := DefaultBillingConfig().Dunning
	if policy.Exhausted(policy.MaxAttempts - 1) {
		t.Fatalf("expected not exhausted below max attempts")
	}
	if !policy.Exhausted(policy.MaxAttempts) {
		t.Fatalf("expected exhausted at max attempts")
	}
	if !policy.CancelOnExhaustion() {
		t.Fatalf("expected default policy to cancel on exhaustion")
	}

	unlimited := DunningPolicy{MaxAttempts: 0}
	if unlimited.Exhausted(1000) {
		t.Fatalf("expected zero max attempts to never exhaust")
	}
}

func TestValidateBillingConfig(t *testing.T) {
	cfg := DefaultBillingConfig()
	if err := validateBillingConfig(cfg); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}

	cfg.Dunning.ExhaustedAction = "suspend"
	if err := validateBillingConfig(cfg); err == nil {
		t.Fatalf("expected unknown exhausted action to be rejected")
	}
}

func TestBillingConfigHolderNilFallsBackToDefaults(t *testing.T) {
	var holder *BillingConfigHolder
	if got := holder.Get().Dunning.MaxAttempts; got != DefaultBillingConfig().Dunning.MaxAttempts {
		t.Fatalf("expected default max attempts, got %d", got)
	}
}
