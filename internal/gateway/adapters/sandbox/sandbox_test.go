package sandbox

import (
	"context"
	"errors"
	"testing"

	"github.com/smallbiznis/planbilling/internal/gateway/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandboxOutcomes(t *testing.T) {
	gw, err := NewFactory().NewAdapter(domain.AdapterConfig{})
	require.NoError(t, err)

	tests := []struct {
		name       string
		token      string
		wantStatus domain.ChargeStatus
		wantCode   string
		wantErr    string
	}{
		{name: "success", token: "tok_visa", wantStatus: domain.ChargeStatusSucceeded},
		{name: "decline", token: "tok_decline_1", wantStatus: domain.ChargeStatusFailed, wantCode: "CARD_DECLINED"},
		{name: "pending", token: "tok_pending_1", wantStatus: domain.ChargeStatusPending},
		{name: "timeout", token: "tok_timeout_1", wantErr: domain.CodeTimeout},
		{name: "error", token: "tok_error_1", wantErr: domain.CodeTransport},
		{name: "malformed", token: "tok_malformed_1", wantErr: domain.CodeMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := gw.Charge(context.Background(), domain.ChargeRequest{
				Token:          tt.token,
				Amount:         9900,
				Currency:       "krw",
				IdempotencyKey: "plan-invoice-x",
				OrderID:        "x",
			})
			if tt.wantErr != "" {
				var gwErr *domain.Error
				require.True(t, errors.As(err, &gwErr))
				assert.Equal(t, tt.wantErr, gwErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantCode, result.FailureCode)
			assert.NotEmpty(t, result.RawBody)
		})
	}
}

func TestSandboxRejectsEmptyToken(t *testing.T) {
	gw, err := NewFactory().NewAdapter(domain.AdapterConfig{})
	require.NoError(t, err)

	_, err = gw.Charge(context.Background(), domain.ChargeRequest{Amount: 100})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}
