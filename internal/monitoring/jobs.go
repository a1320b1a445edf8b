package monitoring

import (
	"sort"
	"sync"
	"time"
)

// JobRun summarises the recent history of one background job.
type JobRun struct {
	Job                 string    `json:"job"`
	LastRunAt           time.Time `json:"last_run_at"`
	LastSuccessAt       time.Time `json:"last_success_at"`
	LastError           string    `json:"last_error,omitempty"`
	LastAffected        int64     `json:"last_affected"`
	TotalRuns           uint64    `json:"total_runs"`
	ConsecutiveFailures uint64    `json:"consecutive_failures"`
}

// JobTracker records maintenance job outcomes for the readiness probe.
// The zero value is ready to use.
type JobTracker struct {
	mu   sync.Mutex
	jobs map[string]*JobRun
	now  func() time.Time
}

// NewJobTracker constructs an empty tracker.
func NewJobTracker() *JobTracker {
	return &JobTracker{}
}

// RecordRun stores the outcome of one run of job.
func (t *JobTracker) RecordRun(job string, affected int64, err error) {
	if t == nil || job == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.jobs == nil {
		t.jobs = make(map[string]*JobRun)
	}
	run, ok := t.jobs[job]
	if !ok {
		run = &JobRun{Job: job}
		t.jobs[job] = run
	}

	now := time.Now()
	if t.now != nil {
		now = t.now()
	}
	run.LastRunAt = now
	run.LastAffected = affected
	run.TotalRuns++
	if err != nil {
		run.LastError = err.Error()
		run.ConsecutiveFailures++
		return
	}
	run.LastError = ""
	run.ConsecutiveFailures = 0
	run.LastSuccessAt = now
}

// Snapshot returns the tracked jobs ordered by name.
func (t *JobTracker) Snapshot() []JobRun {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	runs := make([]JobRun, 0, len(t.jobs))
	for _, run := range t.jobs {
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Job < runs[j].Job })
	return runs
}
