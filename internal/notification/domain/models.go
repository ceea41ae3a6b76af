package domain

import "time"

type Type string

const (
	TypePaymentSucceeded    Type = "PAYMENT_SUCCEEDED"
	TypePaymentFailed       Type = "PAYMENT_FAILED"
	TypeMembershipCancelled Type = "MEMBERSHIP_CANCELLED"
)

// Notification is the persisted copy of a dispatched member notification.
type Notification struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	MemberID  int64     `json:"member_id" gorm:"not null;index:idx_notifications_member"`
	Type      Type      `json:"type" gorm:"type:text;not null"`
	Title     string    `json:"title" gorm:"type:text;not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index:idx_notifications_created"`
}

func (Notification) TableName() string { return "notifications" }
