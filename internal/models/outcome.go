package models

import "time"

// PredictionOutcomeRecord is one graded prediction in an expert's history
type PredictionOutcomeRecord struct {
	GameID          string    `json:"game_id"`
	WasCorrect      bool      `json:"was_correct"`
	Confidence      float64   `json:"confidence" validate:"gte=0,lte=1"`
	PredictedMargin *float64  `json:"predicted_margin,omitempty"`
	ActualMargin    *float64  `json:"actual_margin,omitempty"`
	RecordedAt      time.Time `json:"recorded_at"`
}

// HasMargins reports whether both margins are known.
func (r PredictionOutcomeRecord) HasMargins() bool {
	return r.PredictedMargin != nil && r.ActualMargin != nil
}

// Accuracy returns the fraction of correct outcomes, or 0 for an empty slice.
func Accuracy(records []PredictionOutcomeRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	correct := 0
	for _, r := range records {
		if r.WasCorrect {
			correct++
		}
	}
	return float64(correct) / float64(len(records))
}
