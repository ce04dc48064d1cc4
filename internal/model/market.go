package model

import "time"

// DateLayout is the trading-day format used by the data source and the report.
const DateLayout = "2006-01-02"

// InstrumentType classifies a configured instrument.
type InstrumentType string

const (
	InstrumentIndex InstrumentType = "index"
	InstrumentFund  InstrumentType = "fund"
	InstrumentStock InstrumentType = "stock"
)

// Instrument is one configured tradeable entity.
type Instrument struct {
	Code      string         `yaml:"code" validate:"required"`
	Name      string         `yaml:"name" validate:"required"`
	SecID     string         `yaml:"secid" validate:"required"` // exchange-scoped id, e.g. 1.000300
	Type      InstrumentType `yaml:"type" validate:"omitempty,oneof=index fund stock"`
	Technical bool           `yaml:"technical"`
}

// Quote is a realtime snapshot. Prices are already scaled to major units,
// Volume and Turnover are as reported by the source.
type Quote struct {
	SecID         string
	Name          string
	Price         float64
	ChangePercent float64
	ChangeAmount  float64
	Open          float64
	High          float64
	Low           float64
	PrevClose     float64
	Volume        float64
	Turnover      float64 // yuan
}

// HistoricalBar is one daily candle.
type HistoricalBar struct {
	Date          time.Time
	Open          float64
	Close         float64
	High          float64
	Low           float64
	Volume        float64
	Turnover      float64 // yuan
	Amplitude     float64 // percent
	ChangePercent float64
	ChangeAmount  float64
	TurnoverRate  float64 // percent
}

// MoneyFlowRecord holds the daily net inflow buckets, all in yuan.
type MoneyFlowRecord struct {
	Date       time.Time
	MainNet    float64
	SmallNet   float64
	MediumNet  float64
	LargeNet   float64
	SuperLarge float64
}

// SectorSnapshot is one row of the hot sector ranking.
type SectorSnapshot struct {
	Code          string
	Name          string
	ChangePercent float64
	NetFlow       float64 // 亿
	RankType      int
}

// TechnicalLevels are long-horizon indicators derived from history.
type TechnicalLevels struct {
	MA250      float64
	High20     float64
	Low20      float64
	RSI14      float64
	SampleSize int
}
