package revision

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/expert-revision/internal/keylock"
	"github.com/yourusername/expert-revision/internal/logger"
	"github.com/yourusername/expert-revision/internal/metrics"
	"github.com/yourusername/expert-revision/internal/models"
)

// RevisionStore persists belief revisions. Store must be idempotent on
// revision_id. UpdateEffectiveness returns
// models.ErrEffectivenessAlreadyRecorded once a score exists.
type RevisionStore interface {
	Store(ctx context.Context, record *models.BeliefRevisionRecord) error
	Retrieve(ctx context.Context, expertID string, limit int) ([]*models.BeliefRevisionRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.BeliefRevisionRecord, error)
	UpdateEffectiveness(ctx context.Context, id uuid.UUID, score float64, measuredAt time.Time) error
}

// Recorder receives a copy of every revision for the audit trail
type Recorder interface {
	AppendRevision(record *models.BeliefRevisionRecord)
}

// RevisionOutcome pairs a revision with the result of persisting it. Record
// is usable even when Stored is false.
type RevisionOutcome struct {
	Record   *models.BeliefRevisionRecord `json:"record"`
	Stored   bool                         `json:"stored"`
	StoreErr error                        `json:"-"`
}

// Orchestrator runs detection, planning, persistence and effectiveness
// measurement for belief revisions.
type Orchestrator struct {
	detector *TriggerDetector
	planner  *ActionPlanner
	tracker  *EffectivenessTracker
	store    RevisionStore
	recorder Recorder
	locks    *keylock.Locker
	revLog   *logger.RevisionLogger
	auditLog *logger.AuditLogger
	now      func() time.Time
}

// NewOrchestrator creates a revision orchestrator. store and recorder may be
// nil, in which case revisions are reported as not stored.
func NewOrchestrator(
	detector *TriggerDetector,
	planner *ActionPlanner,
	tracker *EffectivenessTracker,
	store RevisionStore,
	recorder Recorder,
	log *logrus.Logger,
) *Orchestrator {
	return &Orchestrator{
		detector: detector,
		planner:  planner,
		tracker:  tracker,
		store:    store,
		recorder: recorder,
		locks:    keylock.New(),
		revLog:   logger.NewRevisionLogger(log),
		auditLog: logger.NewAuditLogger(log),
		now:      time.Now,
	}
}

// Tracker returns the effectiveness tracker
func (o *Orchestrator) Tracker() *EffectivenessTracker {
	return o.tracker
}

// CheckRevisionTriggers detects triggers over the expert's recent outcomes.
func (o *Orchestrator) CheckRevisionTriggers(expertID string, outcomes []models.PredictionOutcomeRecord) []models.RevisionTrigger {
	triggers := o.detector.Detect(expertID, outcomes)
	for _, t := range triggers {
		metrics.RecordTrigger(t.Type.String(), t.Severity)
	}
	o.revLog.LogTriggers(expertID, len(outcomes), triggers)
	return triggers
}

// GenerateRevisionActions plans actions for triggers against state.
func (o *Orchestrator) GenerateRevisionActions(triggers []models.RevisionTrigger, state models.CurrentExpertState) ([]models.RevisionActionPlan, error) {
	plans, err := o.planner.GenerateActions(triggers, state)
	if err != nil {
		return nil, err
	}
	for _, plan := range plans {
		metrics.RecordAction(plan.Action.String(), strconv.Itoa(plan.Priority))
	}
	return plans, nil
}

// ProcessRevisions detects triggers and produces one stored revision per
// trigger. Storage failures are reported per outcome and never drop the
// revision.
func (o *Orchestrator) ProcessRevisions(ctx context.Context, expertID string, outcomes []models.PredictionOutcomeRecord, state models.CurrentExpertState) []*RevisionOutcome {
	triggers := o.CheckRevisionTriggers(expertID, outcomes)
	if len(triggers) == 0 {
		return nil
	}

	results := make([]*RevisionOutcome, 0, len(triggers))
	for _, trigger := range triggers {
		plans, err := o.GenerateRevisionActions([]models.RevisionTrigger{trigger}, state)
		if err != nil {
			o.revLog.WithError(err).WithField("expert_id", expertID).Error("Failed to plan revision actions")
			continue
		}
		for _, plan := range plans {
			o.revLog.LogActionPlan(expertID, plan)
		}

		record := &models.BeliefRevisionRecord{
			RevisionID:        uuid.New(),
			ExpertID:          expertID,
			Trigger:           trigger,
			Actions:           plans,
			PreRevisionState:  state.Snapshot(),
			PostRevisionState: ApplyPlans(state, plans).Snapshot(),
			Timestamp:         o.now().UTC(),
		}
		results = append(results, o.persist(ctx, record))
	}
	return results
}

func (o *Orchestrator) persist(ctx context.Context, record *models.BeliefRevisionRecord) *RevisionOutcome {
	outcome := &RevisionOutcome{Record: record}

	switch {
	case o.store == nil:
		outcome.StoreErr = errors.New("no revision store configured")
	default:
		if err := o.store.Store(ctx, record); err != nil {
			outcome.StoreErr = err
			metrics.RecordStoreFailure()
			o.auditLog.LogPersistenceFailure("store_revision", record.RevisionID.String(), err)
		} else {
			outcome.Stored = true
		}
	}

	if o.recorder != nil {
		o.recorder.AppendRevision(record)
	}
	o.auditLog.LogRevision(record, outcome.Stored)
	return outcome
}

// MeasureEffectiveness scores a revision from the outcomes that followed it
// and writes the score onto the stored record. Scores are written once; a
// repeat measurement returns the recomputed score together with
// models.ErrEffectivenessAlreadyRecorded. An unmeasurable window returns 0
// and writes nothing.
func (o *Orchestrator) MeasureEffectiveness(ctx context.Context, revisionID uuid.UUID, outcomes []models.PredictionOutcomeRecord, windowSize int) (float64, error) {
	snapshot := append([]models.PredictionOutcomeRecord(nil), outcomes...)
	score := o.tracker.Measure(snapshot, windowSize)
	if !o.tracker.Measurable(snapshot, windowSize) || o.store == nil {
		return score, nil
	}

	unlock := o.locks.Lock(revisionID.String())
	defer unlock()

	record, err := o.store.GetByID(ctx, revisionID)
	if err != nil {
		return score, fmt.Errorf("failed to load revision %s: %w", revisionID, err)
	}
	if record.IsMeasured() {
		return score, fmt.Errorf("revision %s: %w", revisionID, models.ErrEffectivenessAlreadyRecorded)
	}

	if err := o.store.UpdateEffectiveness(ctx, revisionID, score, o.now().UTC()); err != nil {
		if !errors.Is(err, models.ErrEffectivenessAlreadyRecorded) {
			o.auditLog.LogPersistenceFailure("update_effectiveness", revisionID.String(), err)
		}
		return score, fmt.Errorf("failed to record effectiveness for %s: %w", revisionID, err)
	}

	metrics.RecordEffectiveness(score)
	o.auditLog.LogEffectiveness(revisionID.String(), record.ExpertID, score, true)
	return score, nil
}

// RetrieveRevisions returns the expert's stored revisions, newest first.
func (o *Orchestrator) RetrieveRevisions(ctx context.Context, expertID string, limit int) ([]*models.BeliefRevisionRecord, error) {
	if o.store == nil {
		return nil, nil
	}
	records, err := o.store.Retrieve(ctx, expertID, limit)
	if err != nil {
		o.auditLog.LogPersistenceFailure("retrieve_revisions", expertID, err)
		return nil, fmt.Errorf("failed to retrieve revisions: %w", err)
	}
	return records, nil
}
