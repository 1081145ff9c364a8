package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testMsg struct {
	n int
}

func (m *testMsg) NewMessage() Message { return &testMsg{} }

func TestLoopRunOnce(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	loop := NewLoop()
	loop.Clock = clock

	var seen []int
	var times []time.Time
	loop.AddController(ControlFunc(func(cc ControlContext) error {
		times = append(times, cc.Time())
		// Take at most one message per iteration.
		if msg, ok := cc.TakeMessage(); ok {
			seen = append(seen, msg.(*testMsg).n)
		}
		return nil
	}))

	loop.PostMessage(&testMsg{n: 1})
	loop.PostMessage(&testMsg{n: 2})
	loop.RunOnce(context.Background())
	require.Equal(t, []int{1}, seen)

	clock.Advance(time.Second)
	loop.PostMessage(&testMsg{n: 3})
	loop.RunOnce(context.Background())
	loop.RunOnce(context.Background())
	loop.RunOnce(context.Background())
	require.Equal(t, []int{1, 2, 3}, seen)
	require.Equal(t, time.Unix(1000, 0), times[0])
	require.Equal(t, time.Unix(1001, 0), times[1])
}

func TestLoopRunAndTrigger(t *testing.T) {
	loop := NewLoop()
	loop.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan int, 1)
	loop.AddController(ControlFunc(func(cc ControlContext) error {
		if msg, ok := cc.TakeMessage(); ok {
			got <- msg.(*testMsg).n
		}
		return nil
	}))
	loop.AddRunnable(RunFunc(func(ctx context.Context) error {
		ctl := LoopCtlFrom(ctx)
		ctl.PostMessage(&testMsg{n: 7})
		ctl.TriggerNext()
		<-ctx.Done()
		return ctx.Err()
	}))

	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	select {
	case n := <-got:
		require.Equal(t, 7, n)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	errs.Add(errors.New("a"))
	require.EqualError(t, errs.Aggregate(), "a")
	errs.Add(errors.New("b"))
	require.EqualError(t, errs.Aggregate(), "multiple errors:\na\nb")
}
