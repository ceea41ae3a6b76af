// Package context carries request and billing identifiers used to enrich logs.
package context

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type actorKey struct{}
type membershipIDKey struct{}
type memberIDKey struct{}
type invoiceUIDKey struct{}

type actor struct {
	Type string
	ID   string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor{
		Type: strings.TrimSpace(actorType),
		ID:   strings.TrimSpace(actorID),
	})
}

func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	value, ok := ctx.Value(actorKey{}).(actor)
	if !ok {
		return "", ""
	}
	return value.Type, value.ID
}

func WithMembershipID(ctx context.Context, membershipID string) context.Context {
	if membershipID == "" {
		return ctx
	}
	return context.WithValue(ctx, membershipIDKey{}, membershipID)
}

func MembershipIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(membershipIDKey{}).(string)
	return value
}

func WithMemberID(ctx context.Context, memberID string) context.Context {
	if memberID == "" {
		return ctx
	}
	return context.WithValue(ctx, memberIDKey{}, memberID)
}

func MemberIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(memberIDKey{}).(string)
	return value
}

// WithInvoiceUID tags the context with the plan invoice being charged.
func WithInvoiceUID(ctx context.Context, uid string) context.Context {
	if uid == "" {
		return ctx
	}
	return context.WithValue(ctx, invoiceUIDKey{}, uid)
}

func InvoiceUIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(invoiceUIDKey{}).(string)
	return value
}
