package jobs

import (
	"context"

	"github.com/wonny/finlab/internal/thresholds"
	"github.com/wonny/finlab/pkg/logger"
)

// ThresholdReloadJob re-reads the threshold table file into the store.
// A file that fails validation leaves the active table in place.
type ThresholdReloadJob struct {
	store    *thresholds.Store
	schedule string
	logger   *logger.Logger
}

// NewThresholdReloadJob creates a new threshold reload job
func NewThresholdReloadJob(store *thresholds.Store, schedule string, log *logger.Logger) *ThresholdReloadJob {
	return &ThresholdReloadJob{
		store:    store,
		schedule: schedule,
		logger:   log.Component("jobs.threshold_reload"),
	}
}

// Name returns the job name
func (j *ThresholdReloadJob) Name() string {
	return "threshold_reload"
}

// Schedule returns the cron schedule
func (j *ThresholdReloadJob) Schedule() string {
	return j.schedule
}

// Run reloads the table and logs when its hash changed
func (j *ThresholdReloadJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	before := j.store.Hash()
	if err := j.store.Reload(); err != nil {
		return err
	}

	after := j.store.Hash()
	if after != before {
		j.logger.WithFields(map[string]interface{}{
			"path":     j.store.Path(),
			"old_hash": before,
			"new_hash": after,
		}).Info("Threshold table reloaded")
	}
	return nil
}
