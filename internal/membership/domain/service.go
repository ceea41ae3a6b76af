package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/planbilling/internal/config"
	"gorm.io/gorm"
)

type Service interface {
	Subscribe(ctx context.Context, req SubscribeRequest) (*Membership, error)
	Cancel(ctx context.Context, id int64, reason string) (*Membership, error)
	Pause(ctx context.Context, id int64) (*Membership, error)
	Resume(ctx context.Context, id int64) (*Membership, error)

	Get(ctx context.Context, id int64) (*Membership, error)
	ListByMember(ctx context.Context, memberID int64) ([]Membership, error)

	// DueForBilling returns ACTIVE and PAST_DUE memberships whose next
	// billing time is at or before asOf, ordered by next_billing_at then id.
	DueForBilling(ctx context.Context, asOf time.Time) ([]Membership, error)

	// LockForBilling loads the membership with a row lock held by tx.
	LockForBilling(ctx context.Context, tx *gorm.DB, id int64) (*Membership, error)
	RecordSuccess(ctx context.Context, tx *gorm.DB, m *Membership, at time.Time) error
	RecordFailure(ctx context.Context, tx *gorm.DB, m *Membership, at time.Time, policy config.DunningPolicy) (FailureOutcome, error)
}

type SubscribeRequest struct {
	MemberID    int64
	PlanID      int64
	TermMonths  int
	BillingMode string
}

// FailureOutcome describes what a failed charge did to the membership.
type FailureOutcome struct {
	FailedAttempts int
	RetryAfter     *time.Time
	Cancelled      bool
}

var (
	ErrMembershipNotFound = errors.New("membership_not_found")
	ErrAlreadySubscribed  = errors.New("already_subscribed")
	ErrInvalidTransition  = errors.New("invalid_membership_transition")
	ErrInvalidTerm        = errors.New("invalid_term")
	ErrPlanInactive       = errors.New("plan_inactive")
)
