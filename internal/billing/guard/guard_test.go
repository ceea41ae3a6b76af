package guard

import (
	"errors"
	"testing"
	"time"

	membershipdomain "github.com/smallbiznis/planbilling/internal/membership/domain"
)

func TestEnsureMembershipBillable(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		status membershipdomain.Status
		next   time.Time
		want   error
	}{
		{"active and due", membershipdomain.StatusActive, now, nil},
		{"past due and overdue", membershipdomain.StatusPastDue, now.Add(-time.Hour), nil},
		{"paused", membershipdomain.StatusPaused, now, ErrMembershipNotBillable},
		{"cancelled", membershipdomain.StatusCancelled, now, ErrMembershipNotBillable},
		{"not yet due", membershipdomain.StatusActive, now.Add(time.Second), ErrMembershipNotDue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := EnsureMembershipBillable(tc.status, tc.next, now); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestEnsureRetryWindow(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	if err := EnsureRetryWindow(nil, now); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := EnsureRetryWindow(&past, now); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := EnsureRetryWindow(&now, now); err != nil {
		t.Fatalf("expected retry at the boundary, got %v", err)
	}
	if err := EnsureRetryWindow(&future, now); !errors.Is(err, ErrRetryDeferred) {
		t.Fatalf("expected ErrRetryDeferred, got %v", err)
	}
}
