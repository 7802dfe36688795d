package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneylink-backend/internal/config"
	"moneylink-backend/internal/jobs"
)

func runnerWithSpec(spec string) *jobs.JobRunner {
	cfg := &config.Config{Scheduler: config.SchedulerConfig{StalePendingReport: spec}}
	return jobs.NewJobRunner(nil, nil, cfg)
}

func TestNewScheduler_RegistersJobs(t *testing.T) {
	s, err := NewScheduler(runnerWithSpec("0 0 * * * *"))
	require.NoError(t, err)
	assert.True(t, s.IsRunning())
	assert.Len(t, s.cron.Entries(), 1)
}

func TestNewScheduler_RejectsBadSpec(t *testing.T) {
	_, err := NewScheduler(runnerWithSpec("every hour"))
	assert.Error(t, err)
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := NewScheduler(runnerWithSpec("0 0 * * * *"))
	require.NoError(t, err)

	s.Start()
	s.Stop()
}
