// Package sandbox is an offline gateway for local runs and demos. The outcome
// is picked from the payment token prefix:
//
//	tok_decline_*    FAILED with CARD_DECLINED
//	tok_timeout_*    GATEWAY_TIMEOUT error
//	tok_error_*      GATEWAY_ERROR error
//	tok_malformed_*  MALFORMED_RESPONSE error
//	tok_pending_*    PENDING
//
// Any other token succeeds.
package sandbox

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/smallbiznis/planbilling/internal/gateway/domain"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "sandbox"
}

func (f *Factory) NewAdapter(cfg domain.AdapterConfig) (domain.Gateway, error) {
	return &Adapter{}, nil
}

type Adapter struct{}

func (a *Adapter) Provider() string { return "sandbox" }

type response struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	OrderID     string `json:"order_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	FailureCode string `json:"failure_code,omitempty"`
	ReceiptURL  string `json:"receipt_url,omitempty"`
}

func (a *Adapter) Charge(ctx context.Context, req domain.ChargeRequest) (domain.ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ChargeResult{}, domain.TransportError(err)
	}
	if strings.TrimSpace(req.Token) == "" || req.Amount <= 0 {
		return domain.ChargeResult{}, domain.ErrInvalidRequest
	}

	resp := response{
		ID:       "sbx_" + req.IdempotencyKey,
		OrderID:  req.OrderID,
		Amount:   req.Amount,
		Currency: strings.ToUpper(req.Currency),
	}
	result := domain.ChargeResult{ExternalTransactionID: resp.ID}

	switch {
	case strings.HasPrefix(req.Token, "tok_timeout_"):
		return domain.ChargeResult{}, domain.TransportError(context.DeadlineExceeded)
	case strings.HasPrefix(req.Token, "tok_error_"):
		return domain.ChargeResult{}, &domain.Error{Code: domain.CodeTransport, Message: "sandbox upstream unavailable", Retryable: true}
	case strings.HasPrefix(req.Token, "tok_malformed_"):
		return domain.ChargeResult{RawBody: []byte("<html>bad gateway</html>")}, domain.MalformedResponse("sandbox returned html")
	case strings.HasPrefix(req.Token, "tok_decline_"):
		resp.Status = "declined"
		resp.FailureCode = "CARD_DECLINED"
		result.Status = domain.ChargeStatusFailed
		result.FailureCode = resp.FailureCode
		result.FailureMessage = "card declined by sandbox"
	case strings.HasPrefix(req.Token, "tok_pending_"):
		resp.Status = "pending"
		result.Status = domain.ChargeStatusPending
	default:
		resp.Status = "succeeded"
		resp.ReceiptURL = "https://sandbox.invalid/receipts/" + resp.ID
		result.Status = domain.ChargeStatusSucceeded
		result.ReceiptURL = resp.ReceiptURL
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return domain.ChargeResult{}, err
	}
	result.RawBody = raw
	return result, nil
}
