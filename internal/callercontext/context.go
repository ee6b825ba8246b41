package callercontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Caller is the identity resolved by the upstream identity provider.
type Caller struct {
	ID      snowflake.ID
	IsAdmin bool
}

type callerKey struct{}

// WithCaller stores the resolved caller in the context.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// FromContext returns the caller, if one was resolved.
func FromContext(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return Caller{}, false
	}
	caller, ok := ctx.Value(callerKey{}).(Caller)
	if !ok || caller.ID == 0 {
		return Caller{}, false
	}
	return caller, true
}
