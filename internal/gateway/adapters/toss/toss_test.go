package toss

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smallbiznis/planbilling/internal/gateway/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) domain.Gateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gw, err := NewFactory().NewAdapter(domain.AdapterConfig{
		SecretKey:  "test_sk",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
	require.NoError(t, err)
	return gw
}

func chargeRequest() domain.ChargeRequest {
	return domain.ChargeRequest{
		Token:          "bk_123",
		CustomerRef:    "cust-1",
		Amount:         9900,
		Currency:       "KRW",
		IdempotencyKey: "plan-invoice-abc",
		OrderID:        "abc",
		OrderName:      "Standard 1 month",
	}
}

func TestChargeSuccess(t *testing.T) {
	body := `{"paymentKey":"pk_1","orderId":"abc","status":"DONE","receipt":{"url":"https://r.example/pk_1"}}`
	gw := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/billing/bk_123", r.URL.Path)
		assert.Equal(t, "plan-invoice-abc", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("test_sk:")), r.Header.Get("Authorization"))

		raw, _ := io.ReadAll(r.Body)
		var payload billingChargeRequest
		require.NoError(t, json.Unmarshal(raw, &payload))
		assert.Equal(t, int64(9900), payload.Amount)
		assert.Equal(t, "cust-1", payload.CustomerKey)

		_, _ = w.Write([]byte(body))
	})

	result, err := gw.Charge(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.ChargeStatusSucceeded, result.Status)
	assert.Equal(t, "pk_1", result.ExternalTransactionID)
	assert.Equal(t, "https://r.example/pk_1", result.ReceiptURL)
	assert.Equal(t, []byte(body), result.RawBody)
}

func TestChargeDecline(t *testing.T) {
	gw := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"CARD_DECLINED","message":"card declined"}`))
	})

	result, err := gw.Charge(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.ChargeStatusFailed, result.Status)
	assert.Equal(t, "CARD_DECLINED", result.FailureCode)
	assert.Equal(t, "card declined", result.FailureMessage)
}

func TestChargeMalformed(t *testing.T) {
	gw := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})

	result, err := gw.Charge(context.Background(), chargeRequest())
	var gwErr *domain.Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, domain.CodeMalformedResponse, gwErr.Code)
	assert.Equal(t, []byte(`<html>oops</html>`), result.RawBody)
}

func TestChargeServerError(t *testing.T) {
	gw := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := gw.Charge(context.Background(), chargeRequest())
	var gwErr *domain.Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, domain.CodeTransport, gwErr.Code)
	assert.True(t, gwErr.Temporary())
}

func TestChargeTimeout(t *testing.T) {
	release := make(chan struct{})
	gw := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := gw.Charge(ctx, chargeRequest())
	var gwErr *domain.Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, domain.CodeTimeout, gwErr.Code)
}

func TestNewAdapterRequiresSecret(t *testing.T) {
	_, err := NewFactory().NewAdapter(domain.AdapterConfig{})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
