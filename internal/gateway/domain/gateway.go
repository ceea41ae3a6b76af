package domain

import (
	"context"
	"errors"
	"net"
	"net/http"
)

type ChargeStatus string

const (
	ChargeStatusSucceeded ChargeStatus = "SUCCEEDED"
	ChargeStatusFailed    ChargeStatus = "FAILED"
	ChargeStatusPending   ChargeStatus = "PENDING"
)

type ChargeRequest struct {
	Token          string
	CustomerRef    string
	Amount         int64
	Currency       string
	IdempotencyKey string
	OrderID        string
	OrderName      string
}

// ChargeResult is the gateway's answer. RawBody is the response body exactly
// as received.
type ChargeResult struct {
	Status                ChargeStatus
	ExternalTransactionID string
	ReceiptURL            string
	FailureCode           string
	FailureMessage        string
	RawBody               []byte
}

//go:generate mockgen -source=gateway.go -destination=../mocks/mock_gateway.go -package=mocks

// Gateway charges a stored payment method. A decline is a FAILED result with a
// nil error; transport problems and unreadable responses return *Error.
type Gateway interface {
	Provider() string
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

type AdapterConfig struct {
	SecretKey  string
	AccountID  string
	BaseURL    string
	HTTPClient *http.Client
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (Gateway, error)
}

const (
	CodeTimeout           = "GATEWAY_TIMEOUT"
	CodeTransport         = "GATEWAY_ERROR"
	CodeMalformedResponse = "MALFORMED_RESPONSE"
)

var (
	ErrProviderNotFound = errors.New("gateway_provider_not_found")
	ErrInvalidConfig    = errors.New("gateway_invalid_config")
	ErrInvalidRequest   = errors.New("gateway_invalid_request")
)

type Error struct {
	Code      string
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "gateway: " + e.Code
	}
	return "gateway: " + e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Temporary reports whether a later attempt may succeed.
func (e *Error) Temporary() bool { return e.Retryable }

// TransportError wraps a failed round trip, separating timeouts from other
// network failures.
func TransportError(err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Code: CodeTimeout, Message: "gateway call timed out", Retryable: true, Err: err}
	}
	return &Error{Code: CodeTransport, Message: err.Error(), Retryable: true, Err: err}
}

func MalformedResponse(message string) *Error {
	return &Error{Code: CodeMalformedResponse, Message: message}
}
