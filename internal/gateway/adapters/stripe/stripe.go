// Package stripe charges saved cards off-session with PaymentIntents.
package stripe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/planbilling/internal/gateway/domain"
)

const defaultBaseURL = "https://api.stripe.com"

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "stripe"
}

func (f *Factory) NewAdapter(cfg domain.AdapterConfig) (domain.Gateway, error) {
	apiKey := strings.TrimSpace(cfg.SecretKey)
	if apiKey == "" {
		return nil, domain.ErrInvalidConfig
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Adapter{
		apiKey:    apiKey,
		accountID: strings.TrimSpace(cfg.AccountID),
		baseURL:   baseURL,
		client:    client,
	}, nil
}

type Adapter struct {
	apiKey    string
	accountID string
	baseURL   string
	client    *http.Client
}

func (a *Adapter) Provider() string { return "stripe" }

type paymentIntent struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	LatestCharge     any    `json:"latest_charge"`
	LastPaymentError *struct {
		Code        string `json:"code"`
		DeclineCode string `json:"decline_code"`
		Message     string `json:"message"`
	} `json:"last_payment_error"`
}

type errorResponse struct {
	Error struct {
		Type          string         `json:"type"`
		Code          string         `json:"code"`
		DeclineCode   string         `json:"decline_code"`
		Message       string         `json:"message"`
		PaymentIntent *paymentIntent `json:"payment_intent"`
	} `json:"error"`
}

// Charge creates and confirms an off-session PaymentIntent.
func (a *Adapter) Charge(ctx context.Context, req domain.ChargeRequest) (domain.ChargeResult, error) {
	if strings.TrimSpace(req.Token) == "" || req.Amount <= 0 {
		return domain.ChargeResult{}, domain.ErrInvalidRequest
	}

	values := url.Values{}
	values.Set("amount", strconv.FormatInt(req.Amount, 10))
	values.Set("currency", strings.ToLower(req.Currency))
	values.Set("customer", req.CustomerRef)
	values.Set("payment_method", req.Token)
	values.Set("confirm", "true")
	values.Set("off_session", "true")
	values.Set("description", req.OrderName)
	values.Set("metadata[order_id]", req.OrderID)
	values.Add("expand[]", "latest_charge")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/payment_intents", strings.NewReader(values.Encode()))
	if err != nil {
		return domain.ChargeResult{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}
	if a.accountID != "" {
		httpReq.Header.Set("Stripe-Account", a.accountID)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return domain.ChargeResult{}, domain.TransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ChargeResult{}, domain.TransportError(err)
	}
	result := domain.ChargeResult{RawBody: body}

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return result, &domain.Error{
			Code:      domain.CodeTransport,
			Message:   "stripe responded " + resp.Status,
			Retryable: true,
		}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr errorResponse
		if err := json.Unmarshal(body, &stripeErr); err != nil || stripeErr.Error.Type == "" {
			return result, domain.MalformedResponse("stripe error body unreadable")
		}
		if stripeErr.Error.Type != "card_error" {
			return result, &domain.Error{
				Code:    domain.CodeTransport,
				Message: strings.TrimSpace(stripeErr.Error.Message),
			}
		}
		result.Status = domain.ChargeStatusFailed
		result.FailureCode = failureCode(stripeErr.Error.Code)
		result.FailureMessage = strings.TrimSpace(stripeErr.Error.Message)
		if stripeErr.Error.PaymentIntent != nil {
			result.ExternalTransactionID = stripeErr.Error.PaymentIntent.ID
		}
		return result, nil
	}

	var intent paymentIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		return result, domain.MalformedResponse("stripe payment intent unreadable")
	}
	if strings.TrimSpace(intent.ID) == "" {
		return result, domain.MalformedResponse("stripe payment intent missing id")
	}

	result.ExternalTransactionID = intent.ID
	result.ReceiptURL = receiptURL(intent.LatestCharge)
	switch intent.Status {
	case "succeeded":
		result.Status = domain.ChargeStatusSucceeded
	case "processing":
		result.Status = domain.ChargeStatusPending
	default:
		result.Status = domain.ChargeStatusFailed
		result.FailureCode = failureCode(intent.Status)
		if intent.LastPaymentError != nil {
			result.FailureCode = failureCode(intent.LastPaymentError.Code)
			result.FailureMessage = intent.LastPaymentError.Message
		}
	}
	return result, nil
}

func failureCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "PAYMENT_FAILED"
	}
	return code
}

// receiptURL reads the receipt link when latest_charge came back expanded.
func receiptURL(latestCharge any) string {
	charge, ok := latestCharge.(map[string]any)
	if !ok {
		return ""
	}
	value, _ := charge["receipt_url"].(string)
	return value
}
