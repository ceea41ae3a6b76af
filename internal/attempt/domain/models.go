package domain

import "time"

type Result string

const (
	ResultSuccess Result = "SUCCESS"
	ResultFailure Result = "FAILURE"
	ResultPending Result = "PENDING"
)

// Failure reasons produced locally. Gateway declines carry the gateway's own
// code (for example CARD_DECLINED).
const (
	ReasonNoPaymentMethod   = "NO_PAYMENT_METHOD"
	ReasonGatewayTimeout    = "GATEWAY_TIMEOUT"
	ReasonGatewayError      = "GATEWAY_ERROR"
	ReasonMalformedResponse = "MALFORMED_RESPONSE"
)

// Attempt is one append-only charge record against an invoice.
type Attempt struct {
	ID                int64     `json:"id" gorm:"primaryKey"`
	InvoiceID         int64     `json:"invoice_id" gorm:"not null;index:idx_plan_attempts_invoice"`
	AttemptedAt       time.Time `json:"attempted_at" gorm:"not null"`
	Result            Result    `json:"result" gorm:"type:text;not null"`
	FailureReason     *string   `json:"failure_reason,omitempty" gorm:"type:text"`
	FailureMessage    *string   `json:"failure_message,omitempty" gorm:"type:text"`
	ExternalAttemptID string    `json:"external_attempt_id" gorm:"type:text;not null;default:''"`
	ReceiptURL        *string   `json:"receipt_url,omitempty" gorm:"type:text"`
	RawResponse       []byte    `json:"-"`
	CreatedAt         time.Time `json:"created_at" gorm:"not null"`
}

func (Attempt) TableName() string { return "plan_attempts" }
