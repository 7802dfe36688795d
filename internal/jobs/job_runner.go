package jobs

import (
	"fmt"
	"sort"
	"time"

	"moneylink-backend/internal/config"
	"moneylink-backend/internal/logger"
	"moneylink-backend/internal/metrics"
	"moneylink-backend/internal/repository"
	"moneylink-backend/internal/service"
)

// Job names accepted by RunJob.
const (
	JobStalePendingReport = "stale-pending-report"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	txRepo repository.TransactionRepository
	email  service.EmailService
	config *config.Config
	now    func() time.Time
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(txRepo repository.TransactionRepository, email service.EmailService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		txRepo: txRepo,
		email:  email,
		config: cfg,
		now:    time.Now,
	}
}

// Config exposes the configuration the scheduler reads its cron specs from
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery and records the outcome
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func() error) (err error) {
	start := jr.now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
			metrics.JobRuns.WithLabelValues(jobName, "panic").Inc()
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	if err = jobFunc(); err != nil {
		logger.Error("Job failed", "job", jobName, "error", err)
		metrics.JobRuns.WithLabelValues(jobName, "failure").Inc()
		return err
	}
	metrics.JobRuns.WithLabelValues(jobName, "success").Inc()
	logger.Info("Job completed", "job", jobName, "duration", jr.now().Sub(start))
	return nil
}

func (jr *JobRunner) registry() map[string]func() error {
	return map[string]func() error{
		JobStalePendingReport: jr.ReportStalePending,
	}
}

// JobNames lists the jobs RunJob accepts, sorted
func (jr *JobRunner) JobNames() []string {
	names := make([]string, 0, len(jr.registry()))
	for name := range jr.registry() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunJob runs one job by name (for manual execution)
func (jr *JobRunner) RunJob(name string) error {
	job, ok := jr.registry()[name]
	if !ok {
		return fmt.Errorf("unknown job %q, expected one of %v", name, jr.JobNames())
	}
	return job()
}
