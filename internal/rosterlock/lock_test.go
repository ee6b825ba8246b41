package rosterlock

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/dealroster/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLockerGrantsEveryLock(t *testing.T) {
	var l *Locker
	assert.Nil(t, NewLocker(nil))

	release, err := l.Acquire(context.Background(), 42, time.Second)
	require.NoError(t, err)
	assert.NoError(t, release(context.Background()))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "dealroster:roster-lock:42", Key(42))
}

func TestDialWithoutAddressDisablesLock(t *testing.T) {
	client := Dial(config.Config{})
	assert.Nil(t, client)
	assert.Nil(t, NewLocker(client))
}
