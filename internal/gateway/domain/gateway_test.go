package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestTransportErrorClassifiesTimeouts(t *testing.T) {
	timeout := TransportError(fmt.Errorf("post: %w", context.DeadlineExceeded))
	if timeout.Code != CodeTimeout || !timeout.Temporary() {
		t.Fatalf("expected retryable timeout, got %+v", timeout)
	}
	if !errors.Is(timeout, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped deadline")
	}

	transport := TransportError(errors.New("connection refused"))
	if transport.Code != CodeTransport {
		t.Fatalf("expected transport code, got %s", transport.Code)
	}

	var gwErr *Error
	if !errors.As(fmt.Errorf("charge: %w", MalformedResponse("bad json")), &gwErr) || gwErr.Temporary() {
		t.Fatalf("malformed responses are not retryable")
	}
}
