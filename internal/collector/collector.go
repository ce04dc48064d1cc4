package collector

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/phuslu/log"

	"MarketDigest/internal/calculator"
	"MarketDigest/internal/model"
)

// Collector turns gateway calls into per-instrument fact bundles. A failing
// fetch never aborts collection; the error is kept next to the empty field.
type Collector struct {
	Gateway       Gateway
	HistoryDays   int
	TechnicalDays int
	Retries       int
	Backoff       time.Duration
}

// NewCollector creates a Collector with the usual windows and retry policy.
func NewCollector(gw Gateway, historyDays, technicalDays, retries int, backoff time.Duration) *Collector {
	return &Collector{
		Gateway:       gw,
		HistoryDays:   historyDays,
		TechnicalDays: technicalDays,
		Retries:       retries,
		Backoff:       backoff,
	}
}

// CollectInstrument fetches quote, recent history and money flow for one
// instrument, plus technical levels when the instrument asks for them.
func (c *Collector) CollectInstrument(ctx context.Context, in model.Instrument) model.InstrumentFacts {
	facts := model.InstrumentFacts{Instrument: in}

	if q, err := c.Gateway.FetchQuote(ctx, in.SecID); err != nil {
		log.Warn().Str("instrument", in.Name).Err(err).Msg("quote fetch failed")
		facts.QuoteErr = err
	} else {
		facts.Quote = q
	}

	if bars, err := c.fetchHistory(ctx, in.SecID, c.HistoryDays); err != nil {
		log.Warn().Str("instrument", in.Name).Err(err).Msg("history fetch failed")
		facts.HistoryErr = err
	} else {
		slices.Reverse(bars)
		facts.History = bars
	}

	if recs, err := c.Gateway.FetchMoneyFlow(ctx, in.SecID, c.HistoryDays); err != nil {
		log.Warn().Str("instrument", in.Name).Err(err).Msg("money flow fetch failed")
		facts.FlowErr = err
	} else {
		recs = slices.Clone(recs)
		slices.Reverse(recs)
		facts.MoneyFlow = recs
	}

	if in.Technical {
		facts.Technical = c.technicalLevels(ctx, in)
	}

	log.Info().
		Str("instrument", in.Name).
		Bool("quote", facts.Quote != nil).
		Int("history", len(facts.History)).
		Int("flow", len(facts.MoneyFlow)).
		Msg("instrument collected")
	return facts
}

// CollectIndustry fetches the board quote for a cyclical industry.
func (c *Collector) CollectIndustry(ctx context.Context, name, secID string) model.IndustryFacts {
	facts := model.IndustryFacts{Name: name, SecID: secID}
	if secID == "" {
		facts.Err = fmt.Errorf("no board configured for industry %s", name)
		return facts
	}
	q, err := c.Gateway.FetchQuote(ctx, secID)
	if err != nil {
		log.Warn().Str("industry", name).Err(err).Msg("industry quote fetch failed")
		facts.Err = err
		return facts
	}
	facts.Quote = q
	return facts
}

// CollectSectors returns the top k sectors by change percent.
func (c *Collector) CollectSectors(ctx context.Context, k int) ([]model.SectorSnapshot, error) {
	sectors, err := c.Gateway.FetchTopSectors(ctx, k)
	if err != nil {
		log.Warn().Err(err).Msg("sector ranking fetch failed")
		return nil, err
	}
	return sectors, nil
}

func (c *Collector) technicalLevels(ctx context.Context, in model.Instrument) *model.TechnicalLevels {
	bars, err := c.fetchHistory(ctx, in.SecID, c.TechnicalDays)
	if err != nil {
		log.Warn().Str("instrument", in.Name).Err(err).Msg("technical history fetch failed")
		return nil
	}
	lv, err := calculator.Levels(bars)
	if err != nil {
		log.Warn().Str("instrument", in.Name).Err(err).Msg("technical levels failed")
		return nil
	}
	return lv
}

// fetchHistory retries the series fetch with a fixed pause between attempts.
// The returned slice is a copy, oldest first.
func (c *Collector) fetchHistory(ctx context.Context, secID string, days int) ([]model.HistoricalBar, error) {
	attempts := max(c.Retries, 1)
	var lastErr error
	for i := 1; i <= attempts; i++ {
		bars, err := c.Gateway.FetchHistory(ctx, secID, days)
		if err == nil && len(bars) > 0 {
			return slices.Clone(bars), nil
		}
		if err == nil {
			err = ErrEmptyResponse
		}
		lastErr = err
		if i == attempts {
			break
		}
		log.Debug().Str("secid", secID).Int("attempt", i).Err(err).Msg("history fetch retry")
		if c.Backoff > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.Backoff):
			}
		}
	}
	return nil, fmt.Errorf("history %s after %d attempts: %w", secID, attempts, lastErr)
}
