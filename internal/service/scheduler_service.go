package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/trs-ewc-import/internal/models"
)

// DefaultImportSchedule runs the import daily at 08:00.
const DefaultImportSchedule = "0 8 * * *"

type scheduledRunner interface {
	Run(ctx context.Context, trigger string) (*models.ImportRunSummary, error)
}

// SchedulerService fires the EWC Wales import on a cron schedule.
type SchedulerService struct {
	cron     *cron.Cron
	runner   scheduledRunner
	schedule string
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewSchedulerService constructs the scheduler with a standard five field spec.
func NewSchedulerService(runner scheduledRunner, schedule string, logger *zap.Logger) *SchedulerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = DefaultImportSchedule
	}
	cronLogger := cronZapLogger{logger: logger.Named("cron")}
	return &SchedulerService{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(
				cron.SkipIfStillRunning(cronLogger),
				cron.Recover(cronLogger),
			),
		),
		runner:   runner,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the import entry and starts the cron loop.
func (s *SchedulerService) Start(ctx context.Context) error {
	sched, err := cron.ParseStandard(s.schedule)
	if err != nil {
		return fmt.Errorf("invalid import schedule %q: %w", s.schedule, err)
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Schedule(sched, cron.FuncJob(func() {
		if _, err := s.runner.Run(s.ctx, "schedule"); err != nil {
			s.logger.Warn("scheduled import did not complete", zap.Error(err))
		}
	}))
	s.cron.Start()
	s.logger.Info("import scheduler started", zap.String("schedule", s.schedule), zap.Time("next_run", sched.Next(time.Now())))
	return nil
}

// Stop halts the cron loop and waits for a running import to return. When ctx
// expires first the running import is cancelled.
func (s *SchedulerService) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("cancelling running scheduled import")
		if s.cancel != nil {
			s.cancel()
		}
		<-done
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("import scheduler stopped")
}

// cronZapLogger adapts zap to cron.Logger.
type cronZapLogger struct {
	logger *zap.Logger
}

func (l cronZapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronZapLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
