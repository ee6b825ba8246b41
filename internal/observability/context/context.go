// Package context carries request-scoped identifiers used by logs and spans.
package context

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type callerIDKey struct{}
type opportunityIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey{})
}

func WithCallerID(ctx context.Context, callerID string) context.Context {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return ctx
	}
	return context.WithValue(ctx, callerIDKey{}, callerID)
}

func CallerIDFromContext(ctx context.Context) string {
	return stringValue(ctx, callerIDKey{})
}

// WithOpportunityID tags the context with the opportunity a unit of work is scoped to.
func WithOpportunityID(ctx context.Context, opportunityID string) context.Context {
	opportunityID = strings.TrimSpace(opportunityID)
	if opportunityID == "" {
		return ctx
	}
	return context.WithValue(ctx, opportunityIDKey{}, opportunityID)
}

func OpportunityIDFromContext(ctx context.Context) string {
	return stringValue(ctx, opportunityIDKey{})
}

func stringValue(ctx context.Context, key any) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}
