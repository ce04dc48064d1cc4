package calculator

import (
	"errors"

	"MarketDigest/internal/model"
)

// ErrInsufficientData is returned when a window needs more bars than given.
var ErrInsufficientData = errors.New("not enough data")

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, ErrInsufficientData
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// CalculateMA250 returns the 250-day average of closes. Bars are oldest first.
func CalculateMA250(bars []model.HistoricalBar) (float64, error) {
	return CalculateSMA(extractCloses(bars), 250)
}

func extractCloses(bars []model.HistoricalBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
