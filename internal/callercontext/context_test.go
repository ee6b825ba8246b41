package callercontext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	_, ok = FromContext(WithCaller(context.Background(), Caller{}))
	assert.False(t, ok, "zero caller id is not an identity")

	caller, ok := FromContext(WithCaller(context.Background(), Caller{ID: 42, IsAdmin: true}))
	assert.True(t, ok)
	assert.Equal(t, Caller{ID: 42, IsAdmin: true}, caller)
}
