package scheduler

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Pipeline is the ETL entry point the refresh job drives.
type Pipeline interface {
	RunAll() error
}

// RefreshJob re-runs the full ETL pipeline on a cron schedule, so a
// long-running server keeps serving fresh data. Overlapping runs are
// skipped rather than queued; a second full replace mid-replace would
// only fight the first one.
type RefreshJob struct {
	pipeline Pipeline
	running  atomic.Bool
	log      zerolog.Logger
}

// NewRefreshJob creates a new ETL refresh job.
func NewRefreshJob(pipeline Pipeline, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		pipeline: pipeline,
		log:      log.With().Str("job", "etl_refresh").Logger(),
	}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "etl_refresh"
}

// Run executes one ETL refresh.
func (j *RefreshJob) Run() error {
	if !j.running.CompareAndSwap(false, true) {
		j.log.Warn().Msg("Previous refresh still running, skipping")
		return nil
	}
	defer j.running.Store(false)

	return j.pipeline.RunAll()
}
