package stripe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smallbiznis/planbilling/internal/gateway/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) domain.Gateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gw, err := NewFactory().NewAdapter(domain.AdapterConfig{
		SecretKey:  "sk_test",
		AccountID:  "acct_1",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
	require.NoError(t, err)
	return gw
}

func chargeRequest() domain.ChargeRequest {
	return domain.ChargeRequest{
		Token:          "pm_123",
		CustomerRef:    "cus_1",
		Amount:         9900,
		Currency:       "KRW",
		IdempotencyKey: "plan-invoice-abc",
		OrderID:        "abc",
		OrderName:      "Standard 1 month",
	}
}

func TestChargeSucceeded(t *testing.T) {
	gw := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "plan-invoice-abc", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "acct_1", r.Header.Get("Stripe-Account"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "9900", r.PostForm.Get("amount"))
		assert.Equal(t, "krw", r.PostForm.Get("currency"))
		assert.Equal(t, "true", r.PostForm.Get("off_session"))
		assert.Equal(t, "pm_123", r.PostForm.Get("payment_method"))

		_, _ = w.Write([]byte(`{"id":"pi_1","status":"succeeded","latest_charge":{"id":"ch_1","receipt_url":"https://pay.stripe.com/receipts/ch_1"}}`))
	})

	result, err := gw.Charge(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.ChargeStatusSucceeded, result.Status)
	assert.Equal(t, "pi_1", result.ExternalTransactionID)
	assert.Equal(t, "https://pay.stripe.com/receipts/ch_1", result.ReceiptURL)
}

func TestChargeCardDeclined(t *testing.T) {
	gw := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":{"type":"card_error","code":"card_declined","decline_code":"insufficient_funds","message":"Your card has insufficient funds.","payment_intent":{"id":"pi_2","status":"requires_payment_method"}}}`))
	})

	result, err := gw.Charge(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.ChargeStatusFailed, result.Status)
	assert.Equal(t, "CARD_DECLINED", result.FailureCode)
	assert.Equal(t, "pi_2", result.ExternalTransactionID)
}

func TestChargeInvalidRequestIsGatewayError(t *testing.T) {
	gw := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such customer"}}`))
	})

	_, err := gw.Charge(context.Background(), chargeRequest())
	var gwErr *domain.Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, domain.CodeTransport, gwErr.Code)
	assert.False(t, gwErr.Temporary())
}

func TestChargeMalformed(t *testing.T) {
	gw := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"succeeded"}`))
	})

	_, err := gw.Charge(context.Background(), chargeRequest())
	var gwErr *domain.Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, domain.CodeMalformedResponse, gwErr.Code)
}
