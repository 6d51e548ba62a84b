package revision

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/yourusername/expert-revision/internal/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func outcome(correct bool, confidence float64) models.PredictionOutcomeRecord {
	return models.PredictionOutcomeRecord{
		GameID:     uuid.NewString(),
		WasCorrect: correct,
		Confidence: confidence,
	}
}

func withMargins(rec models.PredictionOutcomeRecord, predicted, actual float64) models.PredictionOutcomeRecord {
	rec.PredictedMargin = &predicted
	rec.ActualMargin = &actual
	return rec
}

func incorrectWithConfidences(confidences ...float64) []models.PredictionOutcomeRecord {
	out := make([]models.PredictionOutcomeRecord, 0, len(confidences))
	for _, c := range confidences {
		out = append(out, outcome(false, c))
	}
	return out
}

func findTrigger(triggers []models.RevisionTrigger, tt models.TriggerType) (models.RevisionTrigger, bool) {
	for _, t := range triggers {
		if t.Type == tt {
			return t, true
		}
	}
	return models.RevisionTrigger{}, false
}

func ptr(v float64) *float64 { return &v }

// MockRevisionStore is a mock implementation of RevisionStore
type MockRevisionStore struct {
	mock.Mock
}

func (m *MockRevisionStore) Store(ctx context.Context, record *models.BeliefRevisionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRevisionStore) Retrieve(ctx context.Context, expertID string, limit int) ([]*models.BeliefRevisionRecord, error) {
	args := m.Called(ctx, expertID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BeliefRevisionRecord), args.Error(1)
}

func (m *MockRevisionStore) GetByID(ctx context.Context, id uuid.UUID) (*models.BeliefRevisionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BeliefRevisionRecord), args.Error(1)
}

func (m *MockRevisionStore) UpdateEffectiveness(ctx context.Context, id uuid.UUID, score float64, measuredAt time.Time) error {
	args := m.Called(ctx, id, score, measuredAt)
	return args.Error(0)
}

// memoryStore is a minimal thread-safe RevisionStore for concurrency tests.
type memoryStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*models.BeliefRevisionRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[uuid.UUID]*models.BeliefRevisionRecord)}
}

func (s *memoryStore) Store(_ context.Context, record *models.BeliefRevisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.RevisionID]; !ok {
		s.records[record.RevisionID] = record.Clone()
	}
	return nil
}

func (s *memoryStore) Retrieve(_ context.Context, expertID string, limit int) ([]*models.BeliefRevisionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.BeliefRevisionRecord
	for _, r := range s.records {
		if r.ExpertID == expertID {
			out = append(out, r.Clone())
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.BeliefRevisionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *memoryStore) UpdateEffectiveness(_ context.Context, id uuid.UUID, score float64, measuredAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return models.ErrNotFound
	}
	if r.IsMeasured() {
		return models.ErrEffectivenessAlreadyRecorded
	}
	r.EffectivenessScore = &score
	r.EffectivenessMeasuredAt = &measuredAt
	return nil
}
