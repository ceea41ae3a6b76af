package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	attemptdomain "github.com/smallbiznis/planbilling/internal/attempt/domain"
	"github.com/smallbiznis/planbilling/internal/billing"
	invoicedomain "github.com/smallbiznis/planbilling/internal/invoice/domain"
	"github.com/smallbiznis/planbilling/internal/receipt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeBilling struct {
	result billing.TickResult
	err    error
	called bool
}

func (f *fakeBilling) RunTick(ctx context.Context) (billing.TickResult, error) {
	f.called = true
	return f.result, f.err
}

type fakeAttempts struct {
	byUID map[string][]attemptdomain.Attempt
}

func (f *fakeAttempts) RecordAttempt(ctx context.Context, tx *gorm.DB, req attemptdomain.RecordRequest) (*attemptdomain.Attempt, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAttempts) History(ctx context.Context, invoiceID int64) ([]attemptdomain.Attempt, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAttempts) HistoryByInvoiceUID(ctx context.Context, uid string) ([]attemptdomain.Attempt, error) {
	attempts, ok := f.byUID[uid]
	if !ok {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	return attempts, nil
}

type fakeReceipts struct {
	docs map[string][]byte
	err  error
}

func (f *fakeReceipts) Render(ctx context.Context, uid string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.docs[uid]
	if !ok {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	return doc, nil
}

func newTestRouter(s *Server) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	s.RegisterRoutes(router)
	return router
}

func newTestServer(b BillingRunner, a attemptdomain.Service, r ReceiptRenderer) *Server {
	return &Server{log: zap.NewNop(), billing: b, attempts: a, receipts: r}
}

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthWithoutDatabase(t *testing.T) {
	router := newTestRouter(newTestServer(&fakeBilling{}, &fakeAttempts{}, &fakeReceipts{}))
	resp := serve(router, http.MethodGet, "/healthz")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
}

func TestRunBillingReturnsTickResult(t *testing.T) {
	b := &fakeBilling{
		result: billing.TickResult{Due: 2, Charged: 1, Errors: 1},
		err:    fmt.Errorf("membership 9: %w", errors.New("price_not_found")),
	}
	router := newTestRouter(newTestServer(b, &fakeAttempts{}, &fakeReceipts{}))

	resp := serve(router, http.MethodPost, "/internal/billing/run")
	require.Equal(t, http.StatusOK, resp.Code)
	require.True(t, b.called)

	var body runBillingResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, b.result, body.Result)
	assert.Contains(t, body.Error, "price_not_found")
}

func TestRunBillingFailsWhenTickCannotStart(t *testing.T) {
	b := &fakeBilling{err: errors.New("due for billing: connection refused")}
	router := newTestRouter(newTestServer(b, &fakeAttempts{}, &fakeReceipts{}))

	resp := serve(router, http.MethodPost, "/internal/billing/run")
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", resp.Code)
	}
}

func TestListAttempts(t *testing.T) {
	reason := "CARD_DECLINED"
	attempts := &fakeAttempts{byUID: map[string][]attemptdomain.Attempt{
		"inv-1": {
			{ID: 2, InvoiceID: 1, AttemptedAt: time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC), Result: attemptdomain.ResultSuccess},
			{ID: 1, InvoiceID: 1, AttemptedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Result: attemptdomain.ResultFailure, FailureReason: &reason, RawResponse: []byte("secret")},
		},
		"inv-empty": nil,
	}}
	router := newTestRouter(newTestServer(&fakeBilling{}, attempts, &fakeReceipts{}))

	resp := serve(router, http.MethodGet, "/internal/invoices/inv-1/attempts")
	require.Equal(t, http.StatusOK, resp.Code)
	var body listAttemptsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Attempts, 2)
	assert.Equal(t, attemptdomain.ResultSuccess, body.Attempts[0].Result)
	require.NotNil(t, body.Attempts[1].FailureReason)
	assert.Equal(t, reason, *body.Attempts[1].FailureReason)
	assert.NotContains(t, resp.Body.String(), "secret")

	resp = serve(router, http.MethodGet, "/internal/invoices/inv-empty/attempts")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"attempts":[]`)

	resp = serve(router, http.MethodGet, "/internal/invoices/missing/attempts")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDownloadReceipt(t *testing.T) {
	receipts := &fakeReceipts{docs: map[string][]byte{"inv-1": []byte("%PDF-1.3 test")}}
	router := newTestRouter(newTestServer(&fakeBilling{}, &fakeAttempts{}, receipts))

	resp := serve(router, http.MethodGet, "/internal/invoices/inv-1/receipt.pdf")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/pdf", resp.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.3 test", resp.Body.String())

	resp = serve(router, http.MethodGet, "/internal/invoices/other/receipt.pdf")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDownloadReceiptForUnpaidInvoiceConflicts(t *testing.T) {
	router := newTestRouter(newTestServer(&fakeBilling{}, &fakeAttempts{}, &fakeReceipts{err: receipt.ErrInvoiceNotPaid}))

	resp := serve(router, http.MethodGet, "/internal/invoices/inv-1/receipt.pdf")
	require.Equal(t, http.StatusConflict, resp.Code)

	var body errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "conflict", body.Error.Type)
	assert.Equal(t, receipt.ErrInvoiceNotPaid.Error(), body.Error.Message)
}

func TestClassifyErrorForLog(t *testing.T) {
	errorType, code := classifyErrorForLog(invoicedomain.ErrInvoiceNotFound)
	assert.Equal(t, "client", errorType)
	assert.Equal(t, "not_found", code)

	errorType, code = classifyErrorForLog(errors.New("boom"))
	assert.Equal(t, "internal", errorType)
	assert.Equal(t, "internal_error", code)
}
