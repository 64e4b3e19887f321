package taskpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := New(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx, 2)

	var completed atomic.Int64
	for i := 0; i < 10; i++ {
		p.Submit(func(context.Context) { completed.Add(1) })
	}

	assert.Eventually(t, func() bool { return completed.Load() == 10 }, time.Second, time.Millisecond,
		"expected all submitted tasks to complete")
}

func TestPool_StopsWorkersOnContextCancel(t *testing.T) {
	p := New(4)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx, 2)
	cancel()

	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected workers to exit after context cancellation")
	}
}

func TestPool_RecoversPanicInTask(t *testing.T) {
	p := New(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx, 1)

	p.Submit(func(context.Context) { panic("boom") })

	var ran atomic.Bool
	p.Submit(func(context.Context) { ran.Store(true) })

	assert.Eventually(t, func() bool { return ran.Load() }, time.Second, time.Millisecond,
		"expected worker to keep processing tasks after a panic")
}
