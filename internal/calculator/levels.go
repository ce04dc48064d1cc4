package calculator

import (
	"errors"

	"github.com/phuslu/log"

	"MarketDigest/internal/model"
)

// Levels derives the long-horizon indicators used by technical instruments.
// Bars are oldest first. When fewer than 250 bars exist the average falls
// back to all available closes.
func Levels(bars []model.HistoricalBar) (*model.TechnicalLevels, error) {
	if len(bars) == 0 {
		return nil, errors.New("no bars provided")
	}
	lv := &model.TechnicalLevels{SampleSize: len(bars)}

	if ma, err := CalculateMA250(bars); err != nil {
		log.Warn().Int("bars", len(bars)).Msg("MA250 short of data, averaging all closes")
		lv.MA250, _ = CalculateSMA(extractCloses(bars), len(bars))
	} else {
		lv.MA250 = ma
	}

	high, low, err := RecentRange(bars, 20)
	if err != nil {
		return nil, err
	}
	lv.High20, lv.Low20 = high, low

	if rsi, err := CalculateRSI(bars, 14); err != nil {
		lv.RSI14 = 50
	} else {
		lv.RSI14 = rsi
	}
	return lv, nil
}
