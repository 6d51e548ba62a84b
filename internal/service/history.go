package service

import (
	"sync"

	"github.com/yourusername/expert-revision/internal/models"
)

// DefaultHistorySize bounds each expert's rolling outcome history
const DefaultHistorySize = 50

// OutcomeHistory keeps a bounded, per-expert rolling window of graded
// outcomes for trigger detection. Reads return copies.
type OutcomeHistory struct {
	mu       sync.RWMutex
	capacity int
	entries  map[string][]models.PredictionOutcomeRecord
}

// NewOutcomeHistory creates a history holding at most capacity outcomes per
// expert
func NewOutcomeHistory(capacity int) *OutcomeHistory {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &OutcomeHistory{
		capacity: capacity,
		entries:  make(map[string][]models.PredictionOutcomeRecord),
	}
}

// Append adds an outcome, evicting the expert's oldest when full
func (h *OutcomeHistory) Append(expertID string, record models.PredictionOutcomeRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := append(h.entries[expertID], record)
	if over := len(list) - h.capacity; over > 0 {
		list = append([]models.PredictionOutcomeRecord(nil), list[over:]...)
	}
	h.entries[expertID] = list
}

// Window returns the expert's last n outcomes in arrival order. A
// non-positive n returns the whole history.
func (h *OutcomeHistory) Window(expertID string, n int) []models.PredictionOutcomeRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	list := h.entries[expertID]
	if n > 0 && len(list) > n {
		list = list[len(list)-n:]
	}
	if len(list) == 0 {
		return nil
	}
	return append([]models.PredictionOutcomeRecord(nil), list...)
}

// Len returns the number of outcomes held for an expert
func (h *OutcomeHistory) Len(expertID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries[expertID])
}
