package guard

import (
	"errors"
	"time"

	membershipdomain "github.com/smallbiznis/planbilling/internal/membership/domain"
)

var (
	ErrMembershipNotBillable = errors.New("membership_not_billable")
	ErrMembershipNotDue      = errors.New("membership_not_due")
	ErrRetryDeferred         = errors.New("membership_retry_deferred")
)

// EnsureMembershipBillable re-checks, under the row lock, what the due query
// saw before the lock was taken.
func EnsureMembershipBillable(status membershipdomain.Status, nextBillingAt time.Time, now time.Time) error {
	if !status.Billable() {
		return ErrMembershipNotBillable
	}
	if nextBillingAt.After(now) {
		return ErrMembershipNotDue
	}
	return nil
}

// EnsureRetryWindow gates dunning retries on retry_after.
func EnsureRetryWindow(retryAfter *time.Time, now time.Time) error {
	if retryAfter != nil && retryAfter.After(now) {
		return ErrRetryDeferred
	}
	return nil
}
