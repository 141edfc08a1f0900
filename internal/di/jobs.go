package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/pricecast/internal/clientdata"
	"github.com/aristath/pricecast/internal/config"
	"github.com/aristath/pricecast/internal/database"
	"github.com/aristath/pricecast/internal/scheduler"
)

// WALCheckpointSchedule runs the cache WAL checkpoint every 30 minutes
const WALCheckpointSchedule = "0 */30 * * * *"

// JobInstances holds the registered jobs for manual triggering
type JobInstances struct {
	CacheCleanup  scheduler.Job
	WALCheckpoint scheduler.Job
}

// RegisterJobs registers the cache maintenance jobs with the scheduler.
// Nothing is registered when the cache is disabled.
func RegisterJobs(container *Container, sched *scheduler.Scheduler, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	instances := &JobInstances{}
	if container.CacheDB == nil {
		return instances, nil
	}

	instances.CacheCleanup = clientdata.NewCleanupJob(container.SeriesRepo, log)
	if err := sched.AddJob(cfg.CacheCleanupSchedule, instances.CacheCleanup); err != nil {
		return nil, fmt.Errorf("failed to register cache cleanup job: %w", err)
	}

	instances.WALCheckpoint = database.NewCheckpointJob(container.CacheDB, log)
	if err := sched.AddJob(WALCheckpointSchedule, instances.WALCheckpoint); err != nil {
		return nil, fmt.Errorf("failed to register WAL checkpoint job: %w", err)
	}

	return instances, nil
}
