package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurgeOnce(t *testing.T) {
	p := &fakePurger{n: 3}
	assert.Equal(t, 3, purgeOnce(context.Background(), testLogger, p, fixedNow))
	assert.Equal(t, fixedNow, p.last)

	p.err = errBoom
	assert.Equal(t, 0, purgeOnce(context.Background(), testLogger, p, fixedNow))
}

func TestRunJanitor_StopsWithContext(t *testing.T) {
	p := &fakePurger{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunJanitor(ctx, testLogger, p, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return p.callCount() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
