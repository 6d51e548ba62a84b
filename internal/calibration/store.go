// Package calibration maintains per-expert calibration state and applies
// graded predictions to it.
package calibration

import (
	"sort"
	"sync"

	"github.com/yourusername/expert-revision/internal/keylock"
	"github.com/yourusername/expert-revision/internal/models"
)

// StateStore owns all calibration state. Every mutation of a Beta or EMA state
// is serialised per (expert, category) and every factor mutation per expert.
type StateStore struct {
	mu           sync.RWMutex
	beta         map[models.StateKey]*models.BetaCalibrationState
	ema          map[models.StateKey]*models.EMAState
	factors      map[string]*models.FactorWeightVector
	factorPriors map[models.Factor]float64
	locks        *keylock.Locker
}

// NewStateStore creates an empty store. Nil priors select DefaultFactorPriors.
func NewStateStore(factorPriors map[models.Factor]float64) *StateStore {
	if factorPriors == nil {
		factorPriors = models.DefaultFactorPriors()
	}
	return &StateStore{
		beta:         make(map[models.StateKey]*models.BetaCalibrationState),
		ema:          make(map[models.StateKey]*models.EMAState),
		factors:      make(map[string]*models.FactorWeightVector),
		factorPriors: factorPriors,
		locks:        keylock.New(),
	}
}

func betaLockKey(key models.StateKey) string { return "beta:" + key.String() }
func emaLockKey(key models.StateKey) string  { return "ema:" + key.String() }
func factorLockKey(expertID string) string   { return "factor:" + expertID }

// WithBeta runs fn with exclusive access to the Beta state for key, creating
// it at the prior on first use.
func (s *StateStore) WithBeta(key models.StateKey, fn func(*models.BetaCalibrationState) error) error {
	unlock := s.locks.Lock(betaLockKey(key))
	defer unlock()

	s.mu.Lock()
	state, ok := s.beta[key]
	if !ok {
		state = models.NewBetaCalibrationState(key)
		s.beta[key] = state
	}
	s.mu.Unlock()

	return fn(state)
}

// WithEMA runs fn with exclusive access to the EMA state for key. A state
// created here takes the supplied alpha.
func (s *StateStore) WithEMA(key models.StateKey, alpha float64, fn func(*models.EMAState) error) error {
	unlock := s.locks.Lock(emaLockKey(key))
	defer unlock()

	s.mu.Lock()
	state, ok := s.ema[key]
	if !ok {
		state = models.NewEMAState(key, alpha)
		s.ema[key] = state
	}
	s.mu.Unlock()

	return fn(state)
}

// WithFactors runs fn with exclusive access to an expert's factor weights.
func (s *StateStore) WithFactors(expertID string, fn func(*models.FactorWeightVector) error) error {
	unlock := s.locks.Lock(factorLockKey(expertID))
	defer unlock()

	s.mu.Lock()
	vec, ok := s.factors[expertID]
	if !ok {
		vec = models.NewFactorWeightVector(expertID, s.factorPriors)
		s.factors[expertID] = vec
	}
	s.mu.Unlock()

	return fn(vec)
}

// BetaState returns a copy of the Beta state for key.
func (s *StateStore) BetaState(key models.StateKey) (models.BetaCalibrationState, bool) {
	unlock := s.locks.Lock(betaLockKey(key))
	defer unlock()

	s.mu.RLock()
	state, ok := s.beta[key]
	s.mu.RUnlock()
	if !ok {
		return models.BetaCalibrationState{}, false
	}
	return *state, true
}

// EMAState returns a copy of the EMA state for key.
func (s *StateStore) EMAState(key models.StateKey) (models.EMAState, bool) {
	unlock := s.locks.Lock(emaLockKey(key))
	defer unlock()

	s.mu.RLock()
	state, ok := s.ema[key]
	s.mu.RUnlock()
	if !ok {
		return models.EMAState{}, false
	}
	return *state, true
}

// FactorWeights returns a copy of an expert's factor weights.
func (s *StateStore) FactorWeights(expertID string) (models.FactorWeightVector, bool) {
	unlock := s.locks.Lock(factorLockKey(expertID))
	defer unlock()

	s.mu.RLock()
	vec, ok := s.factors[expertID]
	s.mu.RUnlock()
	if !ok {
		return models.FactorWeightVector{}, false
	}
	return vec.Clone(), true
}

// Categories returns the sorted Beta and EMA categories known for an expert.
func (s *StateStore) Categories(expertID string) (beta, ema []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for key := range s.beta {
		if key.ExpertID == expertID {
			beta = append(beta, key.Category)
		}
	}
	for key := range s.ema {
		if key.ExpertID == expertID {
			ema = append(ema, key.Category)
		}
	}
	sort.Strings(beta)
	sort.Strings(ema)
	return beta, ema
}

// Experts returns the sorted IDs of every expert with any state.
func (s *StateStore) Experts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for key := range s.beta {
		seen[key.ExpertID] = struct{}{}
	}
	for key := range s.ema {
		seen[key.ExpertID] = struct{}{}
	}
	for id := range s.factors {
		seen[id] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
