package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/montanaflynn/stats"

	"github.com/yourusername/expert-revision/internal/models"
)

// GameResult is one expert's graded predictions for one finished game.
// Predictions and Gradings are paired by index. Outcome overrides the
// record derived for the rolling history.
type GameResult struct {
	ExpertID    string                          `json:"expert_id" validate:"required"`
	GameID      string                          `json:"game_id" validate:"required"`
	Predictions []models.Prediction             `json:"predictions" validate:"dive"`
	Gradings    []models.GradingResult          `json:"gradings" validate:"dive"`
	Outcome     *models.PredictionOutcomeRecord `json:"outcome,omitempty"`
	PlayedAt    time.Time                       `json:"played_at"`
}

// GameValidator checks incoming game results
type GameValidator struct {
	validate *validator.Validate
}

// NewGameValidator creates a new game validator
func NewGameValidator() *GameValidator {
	return &GameValidator{validate: validator.New()}
}

// Validate returns the game-level problems that reject the whole game,
// empty when valid. Count mismatches and unusable predictions are left to
// the learning orchestrator, which counts them as failed pairs.
func (v *GameValidator) Validate(game *GameResult) []string {
	var problems []string

	if err := v.validate.Struct(game); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s failed %s validation", fe.Namespace(), fe.Tag()))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	return problems
}

// PairProblems describes predictions that no updater can learn from. They
// do not reject the game.
func (v *GameValidator) PairProblems(game *GameResult) []string {
	var problems []string
	for i, p := range game.Predictions {
		switch {
		case p.Category == "":
			problems = append(problems, fmt.Sprintf("predictions[%d]: empty category", i))
		case !p.Type.Valid():
			problems = append(problems, fmt.Sprintf("predictions[%d]: unknown pred_type %q", i, p.Type))
		}
	}
	return problems
}

// OutcomeRecord returns the history record for the game. Without an explicit
// Outcome the record is derived from the gradable pairs: the game counts as
// correct when their mean grading score reaches 0.5, confidence is their mean
// prediction confidence, and margins come from the first numeric "margin"
// category with a numeric actual value. It reports false when there is no
// explicit Outcome and no gradable pair.
func (g *GameResult) OutcomeRecord(now time.Time) (models.PredictionOutcomeRecord, bool) {
	if g.Outcome != nil {
		rec := *g.Outcome
		if rec.GameID == "" {
			rec.GameID = g.GameID
		}
		if rec.RecordedAt.IsZero() {
			rec.RecordedAt = g.recordedAt(now)
		}
		return rec, true
	}

	rec := models.PredictionOutcomeRecord{
		GameID:     g.GameID,
		RecordedAt: g.recordedAt(now),
	}

	pairs := len(g.Predictions)
	if len(g.Gradings) < pairs {
		pairs = len(g.Gradings)
	}

	scores := make([]float64, 0, pairs)
	confidences := make([]float64, 0, pairs)
	for i := 0; i < pairs; i++ {
		pred := g.Predictions[i]
		if !pred.Gradable() {
			continue
		}
		scores = append(scores, g.Gradings[i].FinalScore)
		confidences = append(confidences, pred.Confidence)

		if rec.PredictedMargin != nil || pred.Type != models.PredictionTypeNumeric ||
			!strings.Contains(strings.ToLower(pred.Category), "margin") {
			continue
		}
		predicted, perr := models.NumericValue(pred.Value)
		actual, aerr := models.NumericValue(g.Gradings[i].ActualValue)
		if perr == nil && aerr == nil {
			rec.PredictedMargin = &predicted
			rec.ActualMargin = &actual
		}
	}
	if len(scores) == 0 {
		return rec, false
	}

	meanScore, _ := stats.Mean(scores)
	rec.WasCorrect = meanScore >= 0.5
	rec.Confidence, _ = stats.Mean(confidences)
	return rec, true
}

func (g *GameResult) recordedAt(now time.Time) time.Time {
	if !g.PlayedAt.IsZero() {
		return g.PlayedAt.UTC()
	}
	return now.UTC()
}
