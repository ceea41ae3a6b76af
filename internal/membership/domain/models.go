package domain

import (
	"time"
)

type Status string

var (
	StatusActive    Status = "ACTIVE"
	StatusPaused    Status = "PAUSED"
	StatusPastDue   Status = "PAST_DUE"
	StatusCancelled Status = "CANCELLED"
)

// Billable reports whether the billing pass may charge a membership in this status.
func (s Status) Billable() bool {
	return s == StatusActive || s == StatusPastDue
}

// Cancel reasons recorded on the membership.
const (
	CancelReasonDunningExhausted = "DUNNING_EXHAUSTED"
	CancelReasonRequested        = "REQUESTED"
)

type Membership struct {
	ID             int64      `json:"id" gorm:"primaryKey"`
	MemberID       int64      `json:"member_id" gorm:"not null;index:idx_plan_members_member"`
	PlanID         int64      `json:"plan_id" gorm:"not null;index:idx_plan_members_plan"`
	TermID         int64      `json:"term_id" gorm:"not null"`
	TermMonths     int        `json:"term_months" gorm:"not null"`
	BillingMode    string     `json:"billing_mode" gorm:"type:text;not null"`
	Status         Status     `json:"status" gorm:"type:text;not null;index:idx_plan_members_due,priority:1"`
	NextBillingAt  time.Time  `json:"next_billing_at" gorm:"not null;index:idx_plan_members_due,priority:2"`
	FailedAttempts int        `json:"failed_attempts" gorm:"not null;default:0"`
	RetryAfter     *time.Time `json:"retry_after,omitempty"`
	LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`
	CanceledAt     *time.Time `json:"canceled_at,omitempty"`
	CancelReason   *string    `json:"cancel_reason,omitempty" gorm:"type:text"`
	CreatedAt      time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"not null"`
}

func (Membership) TableName() string { return "plan_members" }

// AddMonths moves t forward by whole calendar months, clamping the day to the
// end of the target month (Jan 31 + 1 month is Feb 28 or 29).
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := target.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(target.Year(), target.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
