package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MarketDigest/internal/model"
)

// MockGateway returns controllable fixed data for development and testing.
// Errors keyed by secid override the data maps; HistoryFailures makes the
// first N history calls for a secid fail before succeeding.
type MockGateway struct {
	Quotes          map[string]*model.Quote
	History         map[string][]model.HistoricalBar
	Flow            map[string][]model.MoneyFlowRecord
	Sectors         []model.SectorSnapshot
	QuoteErr        map[string]error
	HistoryErr      map[string]error
	FlowErr         map[string]error
	SectorErr       error
	HistoryFailures map[string]int

	mu           sync.Mutex
	historyCalls map[string]int
}

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) FetchQuote(_ context.Context, secID string) (*model.Quote, error) {
	if err := m.QuoteErr[secID]; err != nil {
		return nil, err
	}
	q, ok := m.Quotes[secID]
	if !ok {
		return nil, fmt.Errorf("quote %s: %w", secID, ErrEmptyResponse)
	}
	return q, nil
}

func (m *MockGateway) FetchHistory(_ context.Context, secID string, days int) ([]model.HistoricalBar, error) {
	m.mu.Lock()
	if m.historyCalls == nil {
		m.historyCalls = make(map[string]int)
	}
	m.historyCalls[secID]++
	calls := m.historyCalls[secID]
	m.mu.Unlock()

	if calls <= m.HistoryFailures[secID] {
		return nil, fmt.Errorf("history %s attempt %d: %w", secID, calls, ErrEmptyResponse)
	}
	if err := m.HistoryErr[secID]; err != nil {
		return nil, err
	}
	bars, ok := m.History[secID]
	if !ok {
		return nil, fmt.Errorf("history %s: %w", secID, ErrEmptyResponse)
	}
	return lastN(bars, days), nil
}

func (m *MockGateway) FetchMoneyFlow(_ context.Context, secID string, days int) ([]model.MoneyFlowRecord, error) {
	if err := m.FlowErr[secID]; err != nil {
		return nil, err
	}
	recs, ok := m.Flow[secID]
	if !ok {
		return nil, fmt.Errorf("money flow %s: %w", secID, ErrEmptyResponse)
	}
	return lastN(recs, days), nil
}

func (m *MockGateway) FetchTopSectors(_ context.Context, k int) ([]model.SectorSnapshot, error) {
	if m.SectorErr != nil {
		return nil, m.SectorErr
	}
	if len(m.Sectors) == 0 {
		return nil, ErrEmptyResponse
	}
	if k > 0 && len(m.Sectors) > k {
		return m.Sectors[:k], nil
	}
	return m.Sectors, nil
}

// HistoryCalls reports how many history fetches were made for secID.
func (m *MockGateway) HistoryCalls(secID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historyCalls[secID]
}

// MockBars builds count daily bars ending on end, oldest first, with a gentle
// upward drift around basePrice.
func MockBars(basePrice float64, count int, end time.Time) []model.HistoricalBar {
	bars := make([]model.HistoricalBar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.HistoricalBar{
			Date:          end.AddDate(0, 0, -(count - 1 - i)),
			Open:          p * 0.999,
			High:          p * 1.005,
			Low:           p * 0.995,
			Close:         p,
			Volume:        1000000,
			Turnover:      p * 1000000,
			Amplitude:     1.0,
			ChangePercent: 0.1,
			ChangeAmount:  p * 0.001,
		}
	}
	return bars
}
