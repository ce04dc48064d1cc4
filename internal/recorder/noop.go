package recorder

import "MarketDigest/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *model.RunSummary) error                  { return nil }
func (n *NoopRecorder) RecordAnalyses(_ string, _ []model.AnalysisResult) error { return nil }
func (n *NoopRecorder) LastRun() (*model.RunSummary, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                          { return nil }
