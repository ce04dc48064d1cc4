package model

import "time"

// InstrumentFacts is everything fetched for one instrument. A nil Quote or an
// empty slice means that fetch failed; the matching error is kept for logging
// and for the run history.
type InstrumentFacts struct {
	Instrument Instrument
	Quote      *Quote
	History    []HistoricalBar   // newest first
	MoneyFlow  []MoneyFlowRecord // newest first
	Technical  *TechnicalLevels
	QuoteErr   error
	HistoryErr error
	FlowErr    error
}

// HasUsableData reports whether history or money flow was obtained.
func (f InstrumentFacts) HasUsableData() bool {
	return len(f.History) > 0 || len(f.MoneyFlow) > 0
}

// InstrumentReport is one assembled instrument section.
type InstrumentReport struct {
	Facts    InstrumentFacts
	Section  string // rendered fact tables
	Analysis AnalysisResult
}

// IndustryFacts is the realtime data available for a cyclical industry.
type IndustryFacts struct {
	Name  string
	SecID string
	Quote *Quote
	Err   error
}

// AggregateReport is the composite document before rendering.
type AggregateReport struct {
	GeneratedAt   time.Time
	Instruments   []InstrumentReport
	Sectors       []SectorSnapshot
	SectorErr     error
	Industries    []AnalysisResult
	Summary       AnalysisResult
	HasUsableData bool
}
