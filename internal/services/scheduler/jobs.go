package scheduler

import (
	"context"

	"github.com/ternarybob/maestro/internal/common"
	"github.com/ternarybob/maestro/internal/interfaces"
)

// GCJobName is the name of the value-log garbage collection job
const GCJobName = "badger_gc"

// RegisterMaintenanceJobs registers the storage maintenance jobs
func RegisterMaintenanceJobs(scheduler interfaces.SchedulerService, storage interfaces.StorageManager, config *common.SchedulerConfig) error {
	schedule := config.GCSchedule
	if schedule == "" {
		schedule = "@every 1h"
	}
	ratio := config.GCDiscardRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}

	return scheduler.RegisterJob(GCJobName, schedule, "Reclaim Badger value-log space", func(ctx context.Context) error {
		return storage.RunGarbageCollection(ratio)
	})
}
