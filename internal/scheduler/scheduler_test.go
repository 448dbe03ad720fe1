package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldops/workorder-service/internal/config"
)

type recordingLocker struct {
	granted  bool
	acquired []string
	released int
}

func (l *recordingLocker) Acquire(_ context.Context, name string, _ time.Duration) (func(), bool) {
	if !l.granted {
		return nil, false
	}
	l.acquired = append(l.acquired, name)
	return func() { l.released++ }, true
}

func testConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:              true,
		AlertIntervalMinutes: 60,
		ExpireIntervalHours:  24,
		RetentionIntervalHrs: 168,
		ReportIntervalHours:  24,
	}
}

func TestRunLockedExecutesJobAndReleases(t *testing.T) {
	locker := &recordingLocker{granted: true}
	m, err := NewManager(testConfig(), locker, zap.NewNop())
	require.NoError(t, err)
	defer m.Shutdown() //nolint:errcheck

	ran := 0
	m.runLocked(context.Background(), "test-job", BatchJobFunc(func(context.Context) (int, error) {
		ran++
		return 3, nil
	}))

	assert.Equal(t, 1, ran)
	assert.Equal(t, []string{"test-job"}, locker.acquired)
	assert.Equal(t, 1, locker.released)
}

func TestRunLockedSkipsWhenLockHeld(t *testing.T) {
	locker := &recordingLocker{granted: false}
	m, err := NewManager(testConfig(), locker, zap.NewNop())
	require.NoError(t, err)
	defer m.Shutdown() //nolint:errcheck

	ran := 0
	m.runLocked(context.Background(), "test-job", BatchJobFunc(func(context.Context) (int, error) {
		ran++
		return 0, nil
	}))

	assert.Zero(t, ran)
}

func TestRunLockedReleasesOnJobError(t *testing.T) {
	locker := &recordingLocker{granted: true}
	m, err := NewManager(testConfig(), locker, zap.NewNop())
	require.NoError(t, err)
	defer m.Shutdown() //nolint:errcheck

	m.runLocked(context.Background(), "test-job", BatchJobFunc(func(context.Context) (int, error) {
		return 1, errors.New("sweep broke")
	}))

	assert.Equal(t, 1, locker.released)
}

func TestRegisterSweepsCreatesFourJobs(t *testing.T) {
	m, err := NewManager(testConfig(), NoopLocker{}, zap.NewNop())
	require.NoError(t, err)
	defer m.Shutdown() //nolint:errcheck

	noop := BatchJobFunc(func(context.Context) (int, error) { return 0, nil })
	require.NoError(t, m.RegisterSweeps(noop, noop, noop, noop))
}
