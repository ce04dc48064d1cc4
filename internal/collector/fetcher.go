package collector

import (
	"context"
	"errors"

	"MarketDigest/internal/model"
)

// ErrEmptyResponse is returned when the source answers without usable data.
var ErrEmptyResponse = errors.New("empty response from data source")

// Gateway is the market-data contract the pipeline depends on. Every call
// may fail independently; bars and flow records are returned oldest first.
type Gateway interface {
	FetchQuote(ctx context.Context, secID string) (*model.Quote, error)
	FetchHistory(ctx context.Context, secID string, days int) ([]model.HistoricalBar, error)
	FetchMoneyFlow(ctx context.Context, secID string, days int) ([]model.MoneyFlowRecord, error)
	FetchTopSectors(ctx context.Context, k int) ([]model.SectorSnapshot, error)
	Name() string
}
