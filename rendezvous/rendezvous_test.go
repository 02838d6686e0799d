package rendezvous_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normcode/orchestrator/hooks"
	"github.com/normcode/orchestrator/rendezvous"
)

func TestAwaitInput_SubmitUnblocksWithValue(t *testing.T) {
	bus := hooks.NewBus()
	sub := bus.Subscribe(10)
	defer sub.Close()

	rz := rendezvous.New(bus)

	var requestID string
	done := make(chan struct{})
	go func() {
		defer close(done)
		e, ok := sub.Next(nil)
		require.True(t, ok)
		req := e.(*hooks.InputRequestEvent)
		requestID = req.RequestID
		require.True(t, rz.Submit(requestID, "yes"))
	}()

	value, err := rz.AwaitInput(context.Background(), "run-1", "1.0", "continue?", string(hooks.InputConfirm), nil)
	<-done
	require.NoError(t, err)
	assert.Equal(t, "yes", value)
	assert.NotEmpty(t, requestID)
}

func TestAwaitInput_CancelUnblocksWithError(t *testing.T) {
	bus := hooks.NewBus()
	sub := bus.Subscribe(10)
	defer sub.Close()

	rz := rendezvous.New(bus)

	go func() {
		e, ok := sub.Next(nil)
		require.True(t, ok)
		req := e.(*hooks.InputRequestEvent)
		require.True(t, rz.Cancel(req.RequestID))
	}()

	_, err := rz.AwaitInput(context.Background(), "run-1", "1.0", "continue?", string(hooks.InputConfirm), nil)
	require.Error(t, err)
}

func TestAwaitInput_ContextCancelledPublishesInputCancelled(t *testing.T) {
	bus := hooks.NewBus()
	sub := bus.Subscribe(10)
	defer sub.Close()

	rz := rendezvous.New(bus)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		_, ok := sub.Next(nil) // InputRequestEvent
		require.True(t, ok)
		cancel()
	}()

	_, err := rz.AwaitInput(ctx, "run-1", "1.0", "continue?", string(hooks.InputConfirm), nil)
	require.Error(t, err)

	var sawCancelled bool
	for i := 0; i < 5; i++ {
		e, ok := sub.Next(closedAfter(100 * time.Millisecond))
		if !ok {
			break
		}
		if e.Type() == hooks.InputCancelled {
			sawCancelled = true
			break
		}
	}
	assert.True(t, sawCancelled)
}

func TestSubmit_UnknownRequestIDReturnsFalse(t *testing.T) {
	rz := rendezvous.New(hooks.NewBus())
	assert.False(t, rz.Submit("unknown", "value"))
}

func TestCancel_UnknownRequestIDReturnsFalse(t *testing.T) {
	rz := rendezvous.New(hooks.NewBus())
	assert.False(t, rz.Cancel("unknown"))
}

func TestPending_ListsUnansweredRequests(t *testing.T) {
	bus := hooks.NewBus()
	sub := bus.Subscribe(10)
	defer sub.Close()

	rz := rendezvous.New(bus)
	go func() {
		_, _ = rz.AwaitInput(context.Background(), "run-1", "1.0", "continue?", string(hooks.InputConfirm), nil)
	}()

	e, ok := sub.Next(closedAfter(time.Second))
	require.True(t, ok)
	requestID := e.(*hooks.InputRequestEvent).RequestID

	pending := rz.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, requestID, pending[0].RequestID)

	require.True(t, rz.Submit(requestID, "ok"))
	assert.Eventually(t, func() bool { return len(rz.Pending()) == 0 }, time.Second, 5*time.Millisecond)
}

func closedAfter(d time.Duration) <-chan struct{} {
	ch := make(chan struct{})
	time.AfterFunc(d, func() { close(ch) })
	return ch
}
