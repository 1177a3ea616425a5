package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quantfolio/pulse/internal/database"
)

// IntegrityJob runs SQLite integrity and WAL checkpoint checks against
// the output database. Corruption here is not auto-recovered; the next
// ETL run rebuilds every table anyway, so the job only reports.
type IntegrityJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewIntegrityJob creates a new integrity check job.
func NewIntegrityJob(db *database.DB, log zerolog.Logger) *IntegrityJob {
	return &IntegrityJob{
		db:  db,
		log: log.With().Str("job", "integrity_check").Logger(),
	}
}

// Name returns the job name
func (j *IntegrityJob) Name() string {
	return "integrity_check"
}

// Run executes the integrity check
func (j *IntegrityJob) Run() error {
	var result string
	if err := j.db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check returned: %s", result)
	}

	var mode, busy, walFrames, checkpointed int
	if err := j.db.QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&mode, &busy, &walFrames, &checkpointed); err != nil {
		j.log.Warn().Err(err).Msg("Failed to check WAL checkpoint")
		return nil
	}

	if walFrames > 1000 {
		j.log.Warn().
			Int("wal_frames", walFrames).
			Int("checkpointed", checkpointed).
			Msg("WAL file is large, checkpoint may be needed")
	} else {
		j.log.Debug().Int("wal_frames", walFrames).Msg("Database integrity OK")
	}

	return nil
}
