package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Message is one notification on its way to the sinks. ID is a ulid shared by
// every sink so downstream consumers can dedupe.
type Message struct {
	ID        string    `json:"id"`
	MemberID  int64     `json:"member_id"`
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Sink delivers messages to one destination. Accepts lets a sink ignore
// types it does not care about.
type Sink interface {
	Name() string
	Accepts(t Type) bool
	Deliver(ctx context.Context, msg Message) error
}

// Notifier is what billing code depends on. Notify never blocks; it reports
// false when the message was dropped.
type Notifier interface {
	Notify(ctx context.Context, memberID int64, t Type, title, content string) bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, n *Notification) error
	ListByMember(ctx context.Context, db *gorm.DB, memberID int64, limit int) ([]Notification, error)
	DeleteCreatedBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error)
}

type Service interface {
	Save(ctx context.Context, msg Message) (*Notification, error)
	ListByMember(ctx context.Context, memberID int64, limit int) ([]Notification, error)
	// Cleanup deletes notifications older than retention and returns how many
	// rows went away.
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

var (
	ErrInvalidMember    = errors.New("invalid_member")
	ErrInvalidType      = errors.New("invalid_notification_type")
	ErrInvalidRetention = errors.New("invalid_retention")
)

func (t Type) Valid() bool {
	switch t {
	case TypePaymentSucceeded, TypePaymentFailed, TypeMembershipCancelled:
		return true
	}
	return false
}

// IsFailure reports whether the notification is about something going wrong.
func (t Type) IsFailure() bool {
	return t == TypePaymentFailed || t == TypeMembershipCancelled
}
