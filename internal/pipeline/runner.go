package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"MarketDigest/internal/analyzer"
	"MarketDigest/internal/collector"
	"MarketDigest/internal/config"
	"MarketDigest/internal/model"
	"MarketDigest/internal/notifier"
	"MarketDigest/internal/recorder"
	"MarketDigest/internal/report"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("a report run is already in progress")

// Trigger values recorded with each run.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerChat     = "telegram"
)

// Mailer hands the finished document to the delivery transport.
type Mailer interface {
	Send(ctx context.Context, subject, body string) error
}

// Alerter reaches the operator. It may be nil.
type Alerter interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Runner executes one report run end to end. Instruments are processed one
// after another in configured order; only one run executes at a time.
type Runner struct {
	Collector      *collector.Collector
	Analyzer       *analyzer.Analyzer
	Mailer         Mailer
	Alerts         Alerter
	Recorder       recorder.Recorder
	Instruments    []model.Instrument
	Industries     []string
	IndustrySecIDs map[string]string
	HistoryDays    int
	SectorTopK     int
	ReportsDir     string

	now func() time.Time
	mu  sync.Mutex
}

// NewRunner wires a Runner from configuration.
func NewRunner(cfg *config.Config, col *collector.Collector, an *analyzer.Analyzer, mailer Mailer, rec recorder.Recorder) *Runner {
	return &Runner{
		Collector:      col,
		Analyzer:       an,
		Mailer:         mailer,
		Recorder:       rec,
		Instruments:    cfg.Instruments,
		Industries:     cfg.CyclicalIndustries,
		IndustrySecIDs: cfg.IndustrySecIDs,
		HistoryDays:    cfg.DataSource.HistoryDays,
		SectorTopK:     cfg.DataSource.SectorTopK,
		ReportsDir:     cfg.ReportsDir,
	}
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

// Run produces, saves, records and delivers one report. Fetch and oracle
// failures are absorbed into the document; the returned error is only
// ErrRunInProgress.
func (r *Runner) Run(ctx context.Context, trigger string) (model.RunSummary, error) {
	if !r.mu.TryLock() {
		return model.RunSummary{}, ErrRunInProgress
	}
	defer r.mu.Unlock()

	start := r.clock()
	run := model.RunSummary{
		ID:          uuid.NewString(),
		Trigger:     trigger,
		StartedAt:   start,
		Instruments: len(r.Instruments),
	}
	log.Info().Str("run", run.ID).Str("trigger", trigger).Int("instruments", len(r.Instruments)).Msg("report run started")

	reports := make([]model.InstrumentReport, 0, len(r.Instruments))
	for _, in := range r.Instruments {
		facts := r.Collector.CollectInstrument(ctx, in)
		section := report.RenderSection(facts, r.HistoryDays, start)
		analysis := r.Analyzer.AnalyzeInstrument(ctx, facts, section)
		reports = append(reports, model.InstrumentReport{Facts: facts, Section: section, Analysis: analysis})
	}

	sectors, sectorErr := r.Collector.CollectSectors(ctx, r.SectorTopK)

	industries := make([]model.AnalysisResult, 0, len(r.Industries))
	for _, name := range r.Industries {
		ind := r.Collector.CollectIndustry(ctx, name, r.IndustrySecIDs[name])
		industries = append(industries, r.Analyzer.AnalyzeIndustry(ctx, ind))
	}

	agg := report.Aggregate(ctx, reports, sectors, sectorErr, industries, r.Analyzer, start)
	doc := report.Render(agg)
	run.HasUsableData = agg.HasUsableData

	if path, err := report.Save(r.ReportsDir, doc, start); err != nil {
		log.Error().Str("run", run.ID).Err(err).Msg("save report failed")
		r.alert(ctx, "报告保存失败", err)
	} else {
		run.ReportPath = path
		log.Info().Str("run", run.ID).Str("path", path).Msg("report saved")
	}

	r.deliver(ctx, &run, report.Title(start), doc)

	results := make([]model.AnalysisResult, 0, len(reports)+len(industries)+1)
	for _, ir := range reports {
		results = append(results, ir.Analysis)
	}
	results = append(results, industries...)
	results = append(results, agg.Summary)
	run.Tally(results...)
	run.FinishedAt = r.clock()

	r.record(&run, results)
	r.notify(ctx, run)

	log.Info().
		Str("run", run.ID).
		Int("oracle", run.OracleCount).
		Int("fallback", run.FallbackCount).
		Int("sentinel", run.SentinelCount).
		Bool("delivered", run.Delivered).
		Dur("elapsed", run.FinishedAt.Sub(run.StartedAt)).
		Msg("report run finished")
	return run, nil
}

// deliver sends the document exactly once. Failures are noted, never retried.
func (r *Runner) deliver(ctx context.Context, run *model.RunSummary, subject, doc string) {
	if r.Mailer == nil {
		run.DeliveryNote = notifier.ErrNotConfigured.Error()
		return
	}
	err := r.Mailer.Send(ctx, subject, doc)
	switch {
	case err == nil:
		run.Delivered = true
	case errors.Is(err, notifier.ErrNotConfigured):
		run.DeliveryNote = err.Error()
	default:
		run.DeliveryNote = err.Error()
		log.Error().Str("run", run.ID).Err(err).Msg("report delivery failed")
		r.alert(ctx, "报告邮件发送失败", err)
	}
}

func (r *Runner) record(run *model.RunSummary, results []model.AnalysisResult) {
	if r.Recorder == nil {
		return
	}
	if err := r.Recorder.RecordRun(run); err != nil {
		log.Error().Str("run", run.ID).Err(err).Msg("record run failed")
		return
	}
	if err := r.Recorder.RecordAnalyses(run.ID, results); err != nil {
		log.Error().Str("run", run.ID).Err(err).Msg("record analyses failed")
	}
}

func (r *Runner) alert(ctx context.Context, title string, err error) {
	if r.Alerts == nil {
		return
	}
	if sendErr := r.Alerts.SendWithRetry(ctx, notifier.FormatAlert(title, err), 3); sendErr != nil {
		log.Error().Err(sendErr).Msg("send operator alert")
	}
}

func (r *Runner) notify(ctx context.Context, run model.RunSummary) {
	if r.Alerts == nil {
		return
	}
	if err := r.Alerts.SendWithRetry(ctx, notifier.FormatRunSummary(run), 3); err != nil {
		log.Error().Err(err).Msg("send run summary")
	}
}
