package database

import (
	"github.com/rs/zerolog"
)

// CheckpointJob truncates the WAL file of a database on a schedule.
type CheckpointJob struct {
	db  *DB
	log zerolog.Logger
}

// NewCheckpointJob creates a WAL checkpoint job for db.
func NewCheckpointJob(db *DB, log zerolog.Logger) *CheckpointJob {
	return &CheckpointJob{
		db:  db,
		log: log.With().Str("job", "wal_checkpoint").Str("database", db.Name()).Logger(),
	}
}

// Run executes the checkpoint and logs the resulting file sizes.
func (j *CheckpointJob) Run() error {
	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		j.log.Error().Err(err).Msg("WAL checkpoint failed")
		return err
	}

	if stats, err := j.db.GetStats(); err == nil {
		j.log.Debug().
			Int64("size_bytes", stats.SizeBytes).
			Int64("wal_size_bytes", stats.WALSizeBytes).
			Msg("WAL checkpoint completed")
	}

	return nil
}

// Name returns the job name
func (j *CheckpointJob) Name() string {
	return j.db.Name() + "_wal_checkpoint"
}
