package domain

import "time"

// PaymentMethod is a tokenized card stored with the gateway.
type PaymentMethod struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	MemberID     int64     `json:"member_id" gorm:"not null;uniqueIndex:ux_plan_payments_member_ref,priority:1"`
	CustomerRef  string    `json:"customer_ref" gorm:"type:text;not null;uniqueIndex:ux_plan_payments_member_ref,priority:2"`
	GatewayToken string    `json:"-" gorm:"type:text;not null"`
	CardBrand    string    `json:"card_brand" gorm:"type:text"`
	CardBIN      string    `json:"card_bin" gorm:"column:card_bin;type:text"`
	CardLast4    string    `json:"card_last4" gorm:"column:card_last4;type:text"`
	Active       bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null"`
}

func (PaymentMethod) TableName() string { return "plan_payments" }

type CardMeta struct {
	Brand string
	BIN   string
	Last4 string
}
