package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelayDoubles(t *testing.T) {
	base := 2 * time.Second
	assert.Equal(t, 2*time.Second, backoffDelay(base, 1))
	assert.Equal(t, 4*time.Second, backoffDelay(base, 2))
	assert.Equal(t, 8*time.Second, backoffDelay(base, 3))
}

func TestBackoffDelayDefaultsBase(t *testing.T) {
	assert.Equal(t, 2*time.Second, backoffDelay(0, 2))
}

func TestSleepBackoffCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sleepBackoff(ctx, time.Hour, 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleepBackoffCompletes(t *testing.T) {
	err := sleepBackoff(context.Background(), time.Millisecond, 1)
	assert.NoError(t, err)
}
