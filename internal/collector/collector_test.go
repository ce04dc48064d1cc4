package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketDigest/internal/model"
)

var testEnd = time.Date(2025, 3, 14, 0, 0, 0, 0, time.Local)

func testInstrument() model.Instrument {
	return model.Instrument{Code: "600036", Name: "招商银行", SecID: "1.600036", Type: model.InstrumentStock}
}

func TestCollectInstrument_AllFields(t *testing.T) {
	in := testInstrument()
	gw := &MockGateway{
		Quotes:  map[string]*model.Quote{in.SecID: {SecID: in.SecID, Price: 35.2}},
		History: map[string][]model.HistoricalBar{in.SecID: MockBars(35, 5, testEnd)},
		Flow: map[string][]model.MoneyFlowRecord{in.SecID: {
			{Date: testEnd.AddDate(0, 0, -1), MainNet: 1},
			{Date: testEnd, MainNet: 2},
		}},
	}
	c := NewCollector(gw, 3, 365, 3, 0)

	facts := c.CollectInstrument(context.Background(), in)
	require.NotNil(t, facts.Quote)
	require.Len(t, facts.History, 3)
	assert.Equal(t, testEnd, facts.History[0].Date, "history is newest first")
	assert.Equal(t, 2.0, facts.MoneyFlow[0].MainNet, "flow is newest first")
	assert.Nil(t, facts.Technical)
	assert.True(t, facts.HasUsableData())
	assert.Equal(t, testEnd, gw.History[in.SecID][4].Date, "gateway data is not reordered in place")
}

func TestCollectInstrument_PartialFailure(t *testing.T) {
	in := testInstrument()
	boom := errors.New("boom")
	gw := &MockGateway{
		QuoteErr: map[string]error{in.SecID: boom},
		Flow:     map[string][]model.MoneyFlowRecord{in.SecID: {{Date: testEnd, MainNet: 5}}},
	}
	c := NewCollector(gw, 3, 365, 3, 0)

	facts := c.CollectInstrument(context.Background(), in)
	assert.Nil(t, facts.Quote)
	assert.ErrorIs(t, facts.QuoteErr, boom)
	assert.Empty(t, facts.History)
	assert.Error(t, facts.HistoryErr)
	assert.Len(t, facts.MoneyFlow, 1)
	assert.True(t, facts.HasUsableData())
}

func TestCollectInstrument_NothingAvailable(t *testing.T) {
	c := NewCollector(&MockGateway{}, 3, 365, 3, 0)
	facts := c.CollectInstrument(context.Background(), testInstrument())
	assert.False(t, facts.HasUsableData())
}

func TestFetchHistory_Retry(t *testing.T) {
	in := testInstrument()

	t.Run("recovers within budget", func(t *testing.T) {
		gw := &MockGateway{
			History:         map[string][]model.HistoricalBar{in.SecID: MockBars(35, 3, testEnd)},
			HistoryFailures: map[string]int{in.SecID: 2},
		}
		c := NewCollector(gw, 3, 365, 3, 0)
		facts := c.CollectInstrument(context.Background(), in)
		assert.Len(t, facts.History, 3)
		assert.Equal(t, 3, gw.HistoryCalls(in.SecID))
	})

	t.Run("gives up after budget", func(t *testing.T) {
		gw := &MockGateway{
			History:         map[string][]model.HistoricalBar{in.SecID: MockBars(35, 3, testEnd)},
			HistoryFailures: map[string]int{in.SecID: 5},
		}
		c := NewCollector(gw, 3, 365, 3, 0)
		facts := c.CollectInstrument(context.Background(), in)
		assert.Empty(t, facts.History)
		assert.ErrorIs(t, facts.HistoryErr, ErrEmptyResponse)
		assert.Equal(t, 3, gw.HistoryCalls(in.SecID))
	})

	t.Run("context cancel stops waiting", func(t *testing.T) {
		gw := &MockGateway{HistoryFailures: map[string]int{in.SecID: 5}}
		c := NewCollector(gw, 3, 365, 3, time.Hour)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.fetchHistory(ctx, in.SecID, 3)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, gw.HistoryCalls(in.SecID))
	})
}

func TestCollectInstrument_Technical(t *testing.T) {
	in := testInstrument()
	in.Technical = true
	gw := &MockGateway{
		History: map[string][]model.HistoricalBar{in.SecID: MockBars(20, 300, testEnd)},
	}
	c := NewCollector(gw, 3, 365, 3, 0)

	facts := c.CollectInstrument(context.Background(), in)
	require.NotNil(t, facts.Technical)
	assert.Equal(t, 300, facts.Technical.SampleSize)
	assert.Greater(t, facts.Technical.High20, facts.Technical.Low20)
	assert.Equal(t, 100.0, facts.Technical.RSI14)
}

func TestCollectIndustry(t *testing.T) {
	gw := &MockGateway{Quotes: map[string]*model.Quote{"90.BK0424": {Name: "军工", ChangePercent: 2.5}}}
	c := NewCollector(gw, 3, 365, 3, 0)

	facts := c.CollectIndustry(context.Background(), "军工", "90.BK0424")
	require.NoError(t, facts.Err)
	assert.Equal(t, 2.5, facts.Quote.ChangePercent)

	facts = c.CollectIndustry(context.Background(), "稀土", "")
	assert.Error(t, facts.Err)
	assert.Nil(t, facts.Quote)
}

func TestCollectSectors(t *testing.T) {
	gw := &MockGateway{Sectors: []model.SectorSnapshot{{Name: "a"}, {Name: "b"}, {Name: "c"}}}
	c := NewCollector(gw, 3, 365, 3, 0)

	sectors, err := c.CollectSectors(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, sectors, 2)

	_, err = NewCollector(&MockGateway{}, 3, 365, 3, 0).CollectSectors(context.Background(), 5)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
