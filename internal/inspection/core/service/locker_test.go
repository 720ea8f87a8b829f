package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	ctx := context.Background()
	k := newKeyedMutex()

	unlock, err := k.Lock(ctx, "REG-001")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		unlock2, err := k.Lock(ctx, "REG-001")
		if assert.NoError(t, err) {
			close(acquired)
			unlock2()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock acquired a held key")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Lock never acquired the released key")
	}

	assert.Eventually(t, func() bool { return k.size() == 0 }, time.Second, 10*time.Millisecond)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	ctx := context.Background()
	k := newKeyedMutex()

	unlockA, err := k.Lock(ctx, "A")
	require.NoError(t, err)
	unlockB, err := k.Lock(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, 2, k.size())

	unlockA()
	unlockB()
	unlockA() // idempotent
	assert.Zero(t, k.size())
}

func TestKeyedMutexHonoursContext(t *testing.T) {
	k := newKeyedMutex()
	unlock, err := k.Lock(context.Background(), "REG-001")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = k.Lock(ctx, "REG-001")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, k.size())
}
