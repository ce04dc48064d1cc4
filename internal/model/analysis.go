package model

// Unknown is what an absent structured field renders as.
const Unknown = "未知"

// Provenance records which path produced an analysis text.
type Provenance string

const (
	ProvenanceOracle   Provenance = "oracle"
	ProvenanceFallback Provenance = "fallback"
	// ProvenanceSentinel marks a fixed placeholder written without consulting
	// either the oracle or the fallback engine.
	ProvenanceSentinel Provenance = "sentinel"
)

// CycleFields is the four-label structured extraction. A nil pointer means
// the label was absent from the source text.
type CycleFields struct {
	Phase    *string
	Position *string
	Duration *string
	Body     string
}

func orUnknown(s *string) string {
	if s == nil {
		return Unknown
	}
	return *s
}

// PhaseText returns the current cycle phase or Unknown.
func (c CycleFields) PhaseText() string { return orUnknown(c.Phase) }

// PositionText returns the cycle position or Unknown.
func (c CycleFields) PositionText() string { return orUnknown(c.Position) }

// DurationText returns the phase duration or Unknown.
func (c CycleFields) DurationText() string { return orUnknown(c.Duration) }

// AnalysisResult is the output of one orchestrated analysis.
type AnalysisResult struct {
	Topic      string
	Text       string
	Structured *CycleFields // nil for free-form analyses
	Provenance Provenance
	Outcome    string // oracle outcome kind that led here, empty for sentinels
}
