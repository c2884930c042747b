package job

import (
	"context"
	"log/slog"
	"time"
)

type OrphanCleaner interface {
	CleanupOrphans(ctx context.Context) (int, error)
}

type MediaCleanupJob struct {
	mc      OrphanCleaner
	timeout time.Duration
}

func NewMediaCleanupJob(mc OrphanCleaner, timeout time.Duration) *MediaCleanupJob {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &MediaCleanupJob{mc: mc, timeout: timeout}
}

// Run removes media rows whose file disappeared from disk.
func (j *MediaCleanupJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	removed, err := j.mc.CleanupOrphans(ctx)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	slog.Info("media cleanup finished", "removed", removed)
}

// Schedule registers the job on c. The schedule uses the cron
// package syntax, e.g. "@every 24h".
func (j *MediaCleanupJob) Schedule(c CronScheduler, schedule string) error {
	return c.AddFunc(schedule, j.Run)
}

type CronScheduler interface {
	AddFunc(schedule string, cmd func()) error
}
