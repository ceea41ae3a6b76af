// Package toss charges billing keys through the Toss Payments API.
package toss

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/planbilling/internal/gateway/domain"
)

const defaultBaseURL = "https://api.tosspayments.com"

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "toss"
}

func (f *Factory) NewAdapter(cfg domain.AdapterConfig) (domain.Gateway, error) {
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
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
		baseURL:   baseURL,
		secretKey: secret,
		client:    client,
	}, nil
}

type Adapter struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func (a *Adapter) Provider() string { return "toss" }

type billingChargeRequest struct {
	CustomerKey string `json:"customerKey"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderName   string `json:"orderName"`
}

type paymentResponse struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Status     string `json:"status"`
	Receipt    *struct {
		URL string `json:"url"`
	} `json:"receipt"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Charge confirms an automatic payment with the member's billing key.
func (a *Adapter) Charge(ctx context.Context, req domain.ChargeRequest) (domain.ChargeResult, error) {
	billingKey := strings.TrimSpace(req.Token)
	if billingKey == "" || req.Amount <= 0 {
		return domain.ChargeResult{}, domain.ErrInvalidRequest
	}

	payload, err := json.Marshal(billingChargeRequest{
		CustomerKey: req.CustomerRef,
		Amount:      req.Amount,
		OrderID:     req.OrderID,
		OrderName:   req.OrderName,
	})
	if err != nil {
		return domain.ChargeResult{}, err
	}

	endpoint := a.baseURL + "/v1/billing/" + url.PathEscape(billingKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.ChargeResult{}, err
	}
	auth := base64.StdEncoding.EncodeToString([]byte(a.secretKey + ":"))
	httpReq.Header.Set("Authorization", "Basic "+auth)
	httpReq.Header.Set("Content-Type", "application/json")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
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

	if resp.StatusCode >= http.StatusInternalServerError {
		return result, &domain.Error{
			Code:      domain.CodeTransport,
			Message:   "toss responded " + resp.Status,
			Retryable: true,
		}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var tossErr errorResponse
		if err := json.Unmarshal(body, &tossErr); err != nil || strings.TrimSpace(tossErr.Code) == "" {
			return result, domain.MalformedResponse("toss error body unreadable")
		}
		result.Status = domain.ChargeStatusFailed
		result.FailureCode = strings.TrimSpace(tossErr.Code)
		result.FailureMessage = strings.TrimSpace(tossErr.Message)
		return result, nil
	}

	var payment paymentResponse
	if err := json.Unmarshal(body, &payment); err != nil {
		return result, domain.MalformedResponse("toss payment body unreadable")
	}
	if strings.TrimSpace(payment.PaymentKey) == "" {
		return result, domain.MalformedResponse("toss payment missing paymentKey")
	}

	result.ExternalTransactionID = payment.PaymentKey
	if payment.Receipt != nil {
		result.ReceiptURL = payment.Receipt.URL
	}
	switch strings.ToUpper(strings.TrimSpace(payment.Status)) {
	case "DONE":
		result.Status = domain.ChargeStatusSucceeded
	case "ABORTED", "EXPIRED", "CANCELED":
		result.Status = domain.ChargeStatusFailed
		result.FailureCode = strings.ToUpper(payment.Status)
	default:
		result.Status = domain.ChargeStatusPending
	}
	return result, nil
}
