package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"omnilead-server/models"
)

// Syncer replays fallback records into the networked store.
type Syncer interface {
	SyncAll(ctx context.Context) (map[models.Kind]int, error)
}

// SyncJob periodically moves records written to the local fallback files
// during an outage back into the networked store.
type SyncJob struct {
	syncer   Syncer
	interval time.Duration
	logger   *zap.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewSyncJob creates a new sync job
func NewSyncJob(syncer Syncer, interval time.Duration, logger *zap.Logger) *SyncJob {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncJob{
		syncer:   syncer,
		interval: interval,
		logger:   logger.Named("sync_job"),
		stopChan: make(chan struct{}),
	}
}

// Start begins the sync loop
func (j *SyncJob) Start(ctx context.Context) {
	j.wg.Add(1)
	go j.run(ctx)
	j.logger.Info("sync job started", zap.Duration("interval", j.interval))
}

// Stop stops the loop and waits for an in-flight pass to finish
func (j *SyncJob) Stop() {
	j.once.Do(func() { close(j.stopChan) })
	j.wg.Wait()
	j.logger.Info("sync job stopped")
}

func (j *SyncJob) run(ctx context.Context) {
	defer j.wg.Done()
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.RunOnce(ctx)
		case <-j.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce performs a single sync pass and returns the total moved.
func (j *SyncJob) RunOnce(ctx context.Context) int {
	counts, err := j.syncer.SyncAll(ctx)
	total := 0
	for kind, n := range counts {
		if n > 0 {
			j.logger.Info("synced fallback records", zap.String("kind", string(kind)), zap.Int("count", n))
		}
		total += n
	}
	if err != nil {
		j.logger.Warn("sync pass incomplete", zap.Error(err))
	}
	return total
}
