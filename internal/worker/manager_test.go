package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWorker struct {
	name     string
	startErr error

	started bool
	stopped bool
}

func (w *fakeWorker) Start(ctx context.Context) error {
	if w.startErr != nil {
		return w.startErr
	}
	w.started = true
	return nil
}

func (w *fakeWorker) Stop() {
	w.stopped = true
}

func (w *fakeWorker) Name() string { return w.name }

func TestManagerStartsAndStopsAll(t *testing.T) {
	m := NewManager(zap.NewNop())

	a := &fakeWorker{name: "a"}
	b := &fakeWorker{name: "b"}
	m.Register(a)
	m.Register(b)
	assert.Equal(t, 2, m.Count())

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, a.started)
	assert.True(t, b.started)

	m.StopAll()
	assert.True(t, a.stopped)
	assert.True(t, b.stopped)
}

func TestManagerStartFailureStopsEarlierWorkers(t *testing.T) {
	m := NewManager(zap.NewNop())

	a := &fakeWorker{name: "a"}
	b := &fakeWorker{name: "b", startErr: errors.New("boom")}
	c := &fakeWorker{name: "c"}
	m.Register(a)
	m.Register(b)
	m.Register(c)

	err := m.StartAll(context.Background())
	require.Error(t, err)

	assert.True(t, a.started)
	assert.True(t, a.stopped, "workers started before the failure are stopped")
	assert.False(t, c.started, "workers after the failure are never started")
}
