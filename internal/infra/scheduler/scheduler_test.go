package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	calls atomic.Int32
}

func (r *countingRunner) RunCycle(_ context.Context) {
	r.calls.Add(1)
}

func testEntry() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func TestMonitorScheduler_InvalidSpec(t *testing.T) {
	s := NewMonitorScheduler(&countingRunner{}, testEntry(), "not a cron spec", time.Minute)

	assert.Error(t, s.Start())
}

func TestMonitorScheduler_TriggersCycles(t *testing.T) {
	runner := &countingRunner{}
	s := NewMonitorScheduler(runner, testEntry(), "@every 10ms", time.Minute)

	require.NoError(t, s.Start())
	defer s.Stop()

	require.Eventually(t, func() bool {
		return runner.calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
}
