package billing

import (
	"context"
	"errors"
	"strings"

	attemptdomain "github.com/smallbiznis/planbilling/internal/attempt/domain"
	gatewaydomain "github.com/smallbiznis/planbilling/internal/gateway/domain"
)

// chargeOutcome is a gateway answer reduced to what the attempt ledger keeps.
type chargeOutcome struct {
	result     attemptdomain.Result
	reason     string
	message    string
	externalID string
	receiptURL string
	raw        []byte
}

func noPaymentMethod() chargeOutcome {
	return chargeOutcome{
		result:  attemptdomain.ResultFailure,
		reason:  attemptdomain.ReasonNoPaymentMethod,
		message: "member has no active payment method",
	}
}

// classifyCharge maps a Charge return into an attempt. Errors never escape:
// every gateway problem becomes a FAILURE with a reason code.
func classifyCharge(res gatewaydomain.ChargeResult, err error) chargeOutcome {
	out := chargeOutcome{
		externalID: res.ExternalTransactionID,
		receiptURL: res.ReceiptURL,
		raw:        res.RawBody,
	}

	if err != nil {
		out.result = attemptdomain.ResultFailure
		out.message = err.Error()

		var gwErr *gatewaydomain.Error
		switch {
		case errors.As(err, &gwErr):
			out.reason = reasonForCode(gwErr.Code)
		case errors.Is(err, context.DeadlineExceeded):
			out.reason = attemptdomain.ReasonGatewayTimeout
		default:
			out.reason = attemptdomain.ReasonGatewayError
		}
		return out
	}

	switch res.Status {
	case gatewaydomain.ChargeStatusSucceeded:
		out.result = attemptdomain.ResultSuccess
	case gatewaydomain.ChargeStatusPending:
		out.result = attemptdomain.ResultPending
	case gatewaydomain.ChargeStatusFailed:
		out.result = attemptdomain.ResultFailure
		out.reason = strings.TrimSpace(res.FailureCode)
		if out.reason == "" {
			out.reason = attemptdomain.ReasonGatewayError
		}
		out.message = res.FailureMessage
	default:
		out.result = attemptdomain.ResultFailure
		out.reason = attemptdomain.ReasonMalformedResponse
		out.message = "unknown charge status " + string(res.Status)
	}
	return out
}

func reasonForCode(code string) string {
	switch code {
	case gatewaydomain.CodeTimeout:
		return attemptdomain.ReasonGatewayTimeout
	case gatewaydomain.CodeMalformedResponse:
		return attemptdomain.ReasonMalformedResponse
	default:
		return attemptdomain.ReasonGatewayError
	}
}
