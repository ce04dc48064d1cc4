package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"

	"MarketDigest/internal/model"
	"MarketDigest/internal/notifier"
	"MarketDigest/internal/pipeline"
	"MarketDigest/internal/recorder"
)

// ReportRunner executes one report run.
type ReportRunner interface {
	Run(ctx context.Context, trigger string) (model.RunSummary, error)
}

// Sender reaches the operator chat. It may be nil.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages the cron-driven report task and chat commands.
type Scheduler struct {
	Cron         *cron.Cron
	Runner       ReportRunner
	Notifier     Sender
	Recorder     recorder.Recorder
	Ctx          context.Context
	SkipWeekends bool

	now func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, runner ReportRunner, n Sender, rec recorder.Recorder, skipWeekends bool) *Scheduler {
	return &Scheduler{
		Cron:         cron.New(cron.WithSeconds()),
		Runner:       runner,
		Notifier:     n,
		Recorder:     rec,
		Ctx:          ctx,
		SkipWeekends: skipWeekends,
		now:          time.Now,
	}
}

// RegisterAll registers the report task. The expression is a six-field cron
// line with seconds first.
func (s *Scheduler) RegisterAll(reportCron string) error {
	if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes a report immediately, ignoring the trading-day gate.
func (s *Scheduler) RunNow(trigger string) (model.RunSummary, error) {
	return s.Runner.Run(s.Ctx, trigger)
}

// tradingDay reports whether scheduled runs are allowed on t.
func (s *Scheduler) tradingDay(t time.Time) bool {
	if !s.SkipWeekends {
		return true
	}
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func (s *Scheduler) reportTask() {
	now := s.now()
	if !s.tradingDay(now) {
		log.Info().Str("weekday", now.Weekday().String()).Msg("weekend, scheduled report skipped")
		return
	}
	log.Info().Msg("running scheduled report")
	if _, err := s.Runner.Run(s.Ctx, pipeline.TriggerSchedule); err != nil {
		log.Error().Err(err).Msg("scheduled report")
		s.trySend(notifier.FormatAlert("定时报告未执行", err))
	}
}

// HandleCommand processes a chat command and returns a reply. /run starts a
// report in the background; its summary is pushed when it finishes.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	switch command {
	case "/run", "生成报告":
		go func() {
			if _, err := s.Runner.Run(s.Ctx, pipeline.TriggerChat); err != nil {
				if errors.Is(err, pipeline.ErrRunInProgress) {
					s.trySend("⏳ 已有报告正在生成，请稍后")
					return
				}
				s.trySend(notifier.FormatAlert("报告生成失败", err))
			}
		}()
		return "⏳ 报告生成中，完成后推送摘要"
	case "/last", "最近运行":
		run, err := s.Recorder.LastRun()
		if err != nil {
			log.Error().Err(err).Msg("load last run")
			return notifier.FormatAlert("读取运行记录失败", err)
		}
		if run == nil {
			return "暂无运行记录"
		}
		return notifier.FormatRunSummary(*run)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
