package domain

import "time"

type MemberStatus string

var (
	MemberStatusActive    MemberStatus = "ACTIVE"
	MemberStatusDormant   MemberStatus = "DORMANT"
	MemberStatusWithdrawn MemberStatus = "WITHDRAWN"
)

// Member is the shop member as seen by billing. Signup and login live elsewhere.
type Member struct {
	ID          int64        `json:"id" gorm:"primaryKey"`
	DisplayName string       `json:"display_name" gorm:"type:text;not null"`
	Email       string       `json:"email" gorm:"type:text;not null;index:idx_members_email"`
	Status      MemberStatus `json:"status" gorm:"type:text;not null"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null"`
}

func (Member) TableName() string { return "members" }
