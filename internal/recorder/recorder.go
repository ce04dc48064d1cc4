package recorder

import "MarketDigest/internal/model"

// Recorder persists run history for later review.
type Recorder interface {
	RecordRun(run *model.RunSummary) error
	RecordAnalyses(runID string, results []model.AnalysisResult) error
	// LastRun returns the most recent run, or nil when none was recorded.
	LastRun() (*model.RunSummary, error)
	Close() error
}
