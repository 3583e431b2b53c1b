package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRun_InvalidSpec(t *testing.T) {
	s := New("not a cron spec", func(context.Context, time.Time) error { return nil })
	err := s.Run(context.Background())
	assert.Error(t, err)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	s := New("30 17 * * 1-5", func(context.Context, time.Time) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on cancellation")
	}
}
