package inmem_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/normcode/orchestrator/engine"
	"github.com/normcode/orchestrator/engine/inmem"
)

type countingRunner struct {
	steps    int32
	failAt   int32
	cancelled atomic.Bool
}

func (r *countingRunner) Step(ctx context.Context) (terminal bool, failed bool, err error) {
	n := atomic.AddInt32(&r.steps, 1)
	if r.cancelled.Load() {
		return true, true, errors.New("cancelled")
	}
	if r.failAt != 0 && n >= r.failAt {
		return true, true, errors.New("boom")
	}
	if n >= 3 {
		return true, false, nil
	}
	return false, false, nil
}

func (r *countingRunner) Cancel() { r.cancelled.Store(true) }

func waitDone(t *testing.T, h engine.Handle) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return h.Wait(ctx)
}

func TestStartRun_RunsStepsToCompletion(t *testing.T) {
	e := inmem.New(nil)
	r := &countingRunner{}
	h, err := e.StartRun(context.Background(), "run-1", r)
	require.NoError(t, err)

	require.NoError(t, waitDone(t, h))
	require.EqualValues(t, 3, atomic.LoadInt32(&r.steps))
}

func TestStartRun_PropagatesStepFailure(t *testing.T) {
	e := inmem.New(nil)
	r := &countingRunner{failAt: 2}
	h, err := e.StartRun(context.Background(), "run-1", r)
	require.NoError(t, err)

	err = waitDone(t, h)
	require.Error(t, err)
}

func TestStartRun_DuplicateRunIDRejected(t *testing.T) {
	e := inmem.New(nil)
	r := &countingRunner{}
	h, err := e.StartRun(context.Background(), "dup", r)
	require.NoError(t, err)

	_, err = e.StartRun(context.Background(), "dup", &countingRunner{})
	require.Error(t, err)

	require.NoError(t, waitDone(t, h))
}

func TestHandleCancel_StopsTheRunnerCooperatively(t *testing.T) {
	e := inmem.New(nil)
	r := &countingRunner{}
	h, err := e.StartRun(context.Background(), "run-1", r)
	require.NoError(t, err)

	require.NoError(t, h.Cancel(context.Background()))
	err = waitDone(t, h)
	require.Error(t, err)
	require.True(t, r.cancelled.Load())
}
