package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/cyclone-climatology/internal/domain"
)

// Status is a point-in-time view of a running job.
type Status struct {
	Job      string    `json:"job"`
	RunID    string    `json:"run_id"`
	Started  time.Time `json:"started"`
	Units    int64     `json:"units"`
	Failed   int64     `json:"failed"`
	Finished bool      `json:"finished"`
}

// Progress tracks how many units of work a job has completed. A job is
// ready once its first unit is done.
type Progress struct {
	job      string
	runID    string
	started  time.Time
	units    atomic.Int64
	failed   atomic.Int64
	finished atomic.Bool
}

// NewProgress starts tracking a job.
func NewProgress(job, runID string) *Progress {
	return &Progress{job: job, runID: runID, started: domain.Now()}
}

// Done records a completed unit.
func (p *Progress) Done() { p.units.Add(1) }

// Fail records a skipped or failed unit.
func (p *Progress) Fail() { p.failed.Add(1) }

// Finish marks the job complete.
func (p *Progress) Finish() { p.finished.Store(true) }

// CheckReadiness returns nil once the job has completed a unit of work.
func (p *Progress) CheckReadiness(_ context.Context) error {
	if p.units.Load() == 0 {
		return errors.New("job has not completed any work yet")
	}
	return nil
}

// Status returns a snapshot of the job.
func (p *Progress) Status() Status {
	return Status{
		Job:      p.job,
		RunID:    p.runID,
		Started:  p.started,
		Units:    p.units.Load(),
		Failed:   p.failed.Load(),
		Finished: p.finished.Load(),
	}
}
