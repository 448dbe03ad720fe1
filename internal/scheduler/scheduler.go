// Package scheduler runs the periodic maintenance sweeps: expiration alerts,
// auto-expiry of overdue tickets, audit-log retention and the daily ticket
// report. Jobs run in
// singleton mode so a slow sweep is never overlapped by its next tick, and a
// distributed lock keeps multi-instance deployments to one runner per sweep.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/fieldops/workorder-service/internal/config"
)

// BatchJob is one sweep: it processes a batch and reports how many items it
// touched.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

// BatchJobFunc adapts a function to BatchJob.
type BatchJobFunc func(ctx context.Context) (int, error)

func (f BatchJobFunc) Execute(ctx context.Context) (int, error) { return f(ctx) }

const jobTimeout = 10 * time.Minute

// Manager owns the gocron scheduler and the registered sweeps.
type Manager struct {
	scheduler gocron.Scheduler
	locker    Locker
	logger    *zap.Logger
	cfg       config.SchedulerConfig
}

// NewManager creates a Manager; the locker may be a NoopLocker for
// single-instance deployments.
func NewManager(cfg config.SchedulerConfig, locker Locker, logger *zap.Logger) (*Manager, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	if locker == nil {
		locker = NoopLocker{}
	}
	return &Manager{scheduler: s, locker: locker, logger: logger, cfg: cfg}, nil
}

// RegisterSweeps wires the maintenance jobs at their configured cadences:
// alerts hourly, auto-expire and reports daily, log retention weekly by
// default.
func (m *Manager) RegisterSweeps(alerts, autoExpire, retention, reports BatchJob) error {
	jobs := []struct {
		name     string
		interval time.Duration
		job      BatchJob
	}{
		{"expiration-alerts", m.cfg.AlertInterval(), alerts},
		{"auto-expire", m.cfg.ExpireInterval(), autoExpire},
		{"log-retention", m.cfg.RetentionInterval(), retention},
		{"ticket-reports", m.cfg.ReportInterval(), reports},
	}

	for _, j := range jobs {
		name, job := j.name, j.job
		_, err := m.scheduler.NewJob(
			gocron.DurationJob(j.interval),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
				defer cancel()
				m.runLocked(ctx, name, job)
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithName(name),
		)
		if err != nil {
			return err
		}
		m.logger.Info("registered sweep job",
			zap.String("job", name),
			zap.Duration("interval", j.interval))
	}
	return nil
}

// runLocked executes one sweep under the distributed lock. The lock TTL
// matches the job timeout so a crashed holder frees the slot for the next
// tick.
func (m *Manager) runLocked(ctx context.Context, name string, job BatchJob) {
	release, ok := m.locker.Acquire(ctx, name, jobTimeout)
	if !ok {
		m.logger.Debug("sweep skipped, lock held elsewhere", zap.String("job", name))
		return
	}
	defer release()

	started := time.Now()
	processed, err := job.Execute(ctx)
	if err != nil {
		m.logger.Error("sweep failed",
			zap.String("job", name),
			zap.Int("processed", processed),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return
	}
	m.logger.Info("sweep finished",
		zap.String("job", name),
		zap.Int("processed", processed),
		zap.Duration("elapsed", time.Since(started)))
}

// Start begins executing registered jobs.
func (m *Manager) Start() {
	m.scheduler.Start()
	m.logger.Info("scheduler started")
}

// Shutdown stops the scheduler and waits for running jobs.
func (m *Manager) Shutdown() error {
	return m.scheduler.Shutdown()
}
