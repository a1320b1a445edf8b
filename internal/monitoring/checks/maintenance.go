package checks

import (
	"context"
	"strings"
	"time"

	"github.com/charlesng35/authcore/internal/monitoring"
)

const (
	defaultMaintenanceMaxAge = 48 * time.Hour
	// failureThreshold consecutive failures turn a job from degraded to down.
	failureThreshold = 3
)

// Maintenance reports on the cleanup jobs recorded by tracker. A job that
// keeps failing or has not succeeded within maxAge degrades the probe.
func Maintenance(tracker *monitoring.JobTracker, maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}

	return monitoring.NewCheck("maintenance", func(ctx context.Context) monitoring.ProbeResult {
		jobs := tracker.Snapshot()
		if len(jobs) == 0 {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "no maintenance runs recorded"}
		}

		now := time.Now()
		status := monitoring.StatusUp
		var problems []string

		for _, job := range jobs {
			switch {
			case job.ConsecutiveFailures >= failureThreshold:
				status = monitoring.StatusDown
				problems = append(problems, job.Job+": "+job.LastError)
			case job.ConsecutiveFailures > 0:
				if status != monitoring.StatusDown {
					status = monitoring.StatusDegraded
				}
				problems = append(problems, job.Job+": "+job.LastError)
			case !job.LastSuccessAt.IsZero() && now.Sub(job.LastSuccessAt) > maxAge:
				if status != monitoring.StatusDown {
					status = monitoring.StatusDegraded
				}
				problems = append(problems, job.Job+": stale since "+job.LastSuccessAt.UTC().Format(time.RFC3339))
			}
		}

		return monitoring.ProbeResult{Status: status, Details: strings.Join(problems, "; ")}
	})
}
