package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("result", "FAILURE"),
		attribute.String("membership_id", "456"),
		attribute.String("reason", "CARD_DECLINED"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "membership_id" {
			t.Fatalf("expected membership_id to be dropped")
		}
	}
}

func TestRecordPaymentAttemptCounts(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := New(Config{ServiceName: "planbilling-test"}, provider)
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}

	ctx := context.Background()
	m.RecordPaymentAttempt(ctx, "sandbox", "FAILURE", "CARD_DECLINED")
	m.RecordPaymentAttempt(ctx, "sandbox", "FAILURE", "CARD_DECLINED")
	m.RecordPaymentAttempt(ctx, "sandbox", "SUCCESS", "")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	var total int64
	found := false
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			if metric.Name != "planbilling_payment_attempts_total" {
				continue
			}
			found = true
			sum, ok := metric.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", metric.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			if len(sum.DataPoints) != 2 {
				t.Fatalf("expected 2 series, got %d", len(sum.DataPoints))
			}
		}
	}
	if !found {
		t.Fatalf("payment attempts counter not exported")
	}
	if total != 3 {
		t.Fatalf("expected 3 attempts, got %d", total)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordInvoiceCreated(context.Background(), "AUTO")
	m.RecordNotification(context.Background(), "email", "sent")
}
