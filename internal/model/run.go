package model

import "time"

// RunSummary is the bookkeeping record of one report run.
type RunSummary struct {
	ID            string
	Trigger       string // schedule, manual, telegram
	StartedAt     time.Time
	FinishedAt    time.Time
	ReportPath    string
	Instruments   int
	OracleCount   int
	FallbackCount int
	SentinelCount int
	HasUsableData bool
	Delivered     bool
	DeliveryNote  string
}

// Tally counts analyses by provenance into the summary.
func (s *RunSummary) Tally(results ...AnalysisResult) {
	for _, r := range results {
		switch r.Provenance {
		case ProvenanceOracle:
			s.OracleCount++
		case ProvenanceFallback:
			s.FallbackCount++
		case ProvenanceSentinel:
			s.SentinelCount++
		}
	}
}
