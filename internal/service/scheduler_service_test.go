package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trs-ewc-import/internal/models"
)

type scheduledRunnerStub struct {
	calls chan string
}

func (s *scheduledRunnerStub) Run(ctx context.Context, trigger string) (*models.ImportRunSummary, error) {
	s.calls <- trigger
	return &models.ImportRunSummary{}, nil
}

func TestSchedulerRejectsInvalidSchedule(t *testing.T) {
	svc := NewSchedulerService(&scheduledRunnerStub{}, "not a cron expression", nil)
	err := svc.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid import schedule")
}

func TestSchedulerFiresRunner(t *testing.T) {
	runner := &scheduledRunnerStub{calls: make(chan string, 4)}
	svc := NewSchedulerService(runner, "@every 1s", nil)
	require.NoError(t, svc.Start(context.Background()))

	select {
	case trigger := <-runner.calls:
		assert.Equal(t, "schedule", trigger)
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled import did not fire")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	svc.Stop(ctx)
}

func TestSchedulerDefaultsSchedule(t *testing.T) {
	svc := NewSchedulerService(&scheduledRunnerStub{}, "", nil)
	assert.Equal(t, DefaultImportSchedule, svc.schedule)
}
