package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/expert-revision/internal/audit"
	"github.com/yourusername/expert-revision/internal/calibration"
	"github.com/yourusername/expert-revision/internal/config"
	"github.com/yourusername/expert-revision/internal/keylock"
	"github.com/yourusername/expert-revision/internal/logger"
	"github.com/yourusername/expert-revision/internal/metrics"
	"github.com/yourusername/expert-revision/internal/models"
	"github.com/yourusername/expert-revision/internal/repository"
	"github.com/yourusername/expert-revision/internal/revision"
)

const (
	defaultPersistenceTimeout = 5 * time.Second
	recentRevisionLimit       = 5
)

// ErrInvalidGame is returned for a game result that fails validation
var ErrInvalidGame = errors.New("invalid game result")

// GameReport is the result of processing one game for one expert
type GameReport struct {
	ExpertID  string                      `json:"expert_id"`
	GameID    string                      `json:"game_id"`
	Session   *models.LearningSession     `json:"session,omitempty"`
	Revisions []*revision.RevisionOutcome `json:"revisions,omitempty"`
	State     models.CurrentExpertState   `json:"state"`
	Problems  []string                    `json:"problems,omitempty"`
}

// ExpertSummary is a point-in-time view of one expert's calibration
type ExpertSummary struct {
	ExpertID        string                         `json:"expert_id"`
	Beta            map[string]models.BetaSnapshot `json:"beta"`
	EMA             map[string]models.EMASnapshot  `json:"ema"`
	FactorWeights   map[models.Factor]float64      `json:"factor_weights,omitempty"`
	State           models.CurrentExpertState      `json:"state"`
	HistorySize     int                            `json:"history_size"`
	RecentAccuracy  float64                        `json:"recent_accuracy"`
	RecentRevisions []*models.BeliefRevisionRecord `json:"recent_revisions,omitempty"`
}

// CalibrationService runs learning and belief revision for finished games
type CalibrationService struct {
	learning  *calibration.LearningOrchestrator
	revisions *revision.Orchestrator
	repo      repository.RevisionRepository
	outcomes  repository.OutcomeRepository
	audit     *audit.Log
	history   *OutcomeHistory
	validator *GameValidator
	locks     *keylock.Locker
	auditLog  *logger.AuditLogger
	logger    *logrus.Logger

	statesMu sync.RWMutex
	states   map[string]models.CurrentExpertState

	sweepMu      sync.RWMutex
	lastSweepAt  time.Time
	lastSweepErr error

	workers        int
	detectorWindow int
	timeout        time.Duration
	now            func() time.Time
}

// NewCalibrationService wires the learning and revision engines from cfg.
// A nil repos selects the in-memory backend.
func NewCalibrationService(cfg *config.Config, repos *repository.Repositories, log *logrus.Logger) *CalibrationService {
	if repos == nil {
		repos = repository.NewMemoryRepositories()
	}
	if repos.Outcomes == nil {
		withOutcomes := *repos
		withOutcomes.Outcomes = repository.NewMemoryOutcomeRepository()
		repos = &withOutcomes
	}
	repos = repos.Throttled(cfg.Persistence)

	timeout := cfg.PersistenceTimeout()
	if timeout <= 0 {
		timeout = defaultPersistenceTimeout
	}

	var auditOpts []audit.Option
	if repos.LearningUpdates != nil {
		auditOpts = append(auditOpts, audit.WithSink(repos.LearningUpdates, timeout))
	}
	auditLog := audit.NewLog(cfg.Engine.AuditCapacity, log, auditOpts...)

	store := calibration.NewStateStore(FactorPriors(cfg.Learning))
	personas := calibration.NewPersonaResolver(LearningParameters(cfg.Learning), Personas(cfg.Learning))
	learning := calibration.NewLearningOrchestrator(store, personas, cfg.Learning.MaxChange, auditLog, log)

	detector := revision.NewTriggerDetector(DetectorConfig(cfg.Revision))
	revisions := revision.NewOrchestrator(
		detector,
		revision.NewActionPlanner(),
		revision.NewEffectivenessTracker(cfg.Revision.EffectivenessWindow, cfg.Revision.EffectivenessBaseline),
		repos.Revisions,
		auditLog,
		log,
	)

	workers := cfg.Engine.Workers
	if workers <= 0 {
		workers = 1
	}

	return &CalibrationService{
		learning:       learning,
		revisions:      revisions,
		repo:           repos.Revisions,
		outcomes:       repos.Outcomes,
		audit:          auditLog,
		history:        NewOutcomeHistory(cfg.Engine.HistorySize),
		validator:      NewGameValidator(),
		locks:          keylock.New(),
		auditLog:       logger.NewAuditLogger(log),
		logger:         log,
		states:         make(map[string]models.CurrentExpertState),
		workers:        workers,
		detectorWindow: detector.Config().WindowSize,
		timeout:        timeout,
		now:            time.Now,
	}
}

// ProcessGame applies one game's gradings to the expert's calibration state,
// appends the outcome to the rolling history and runs revision detection.
// Games of the same expert are serialised. Predictions no updater can use are
// reported in Problems and counted as failed by the learning session; only
// game-level problems reject the game. A game without an explicit outcome
// and without a learned pair leaves the history untouched.
func (s *CalibrationService) ProcessGame(ctx context.Context, game GameResult) (*GameReport, error) {
	report := &GameReport{ExpertID: game.ExpertID, GameID: game.GameID}

	if problems := s.validator.Validate(&game); len(problems) > 0 {
		report.Problems = problems
		s.logger.WithFields(logrus.Fields{
			"expert_id": game.ExpertID,
			"game_id":   game.GameID,
			"problems":  problems,
		}).Warn("Rejected invalid game result")
		return report, fmt.Errorf("%w: %s", ErrInvalidGame, strings.Join(problems, "; "))
	}
	if problems := s.validator.PairProblems(&game); len(problems) > 0 {
		report.Problems = problems
		s.logger.WithFields(logrus.Fields{
			"expert_id": game.ExpertID,
			"game_id":   game.GameID,
			"problems":  problems,
		}).Warn("Game has predictions that cannot be learned")
	}

	unlock := s.locks.Lock(game.ExpertID)
	defer unlock()

	report.Session = s.learning.ProcessExpertLearning(ctx, game.ExpertID, game.GameID, game.Predictions, game.Gradings)
	s.auditLog.LogLearningSession(report.Session)

	state := s.State(game.ExpertID)
	report.State = state

	outcome, ok := game.OutcomeRecord(s.now())
	if !ok || (game.Outcome == nil && learnedPairs(report.Session) == 0) {
		s.logger.WithFields(logrus.Fields{
			"expert_id": game.ExpertID,
			"game_id":   game.GameID,
		}).Debug("No graded outcome; history and revisions unchanged")
		return report, nil
	}

	persistCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	appendedAt := s.now().UTC()
	s.history.Append(game.ExpertID, outcome)
	if err := s.outcomes.AppendOutcome(persistCtx, game.ExpertID, outcome, appendedAt); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"expert_id": game.ExpertID,
			"game_id":   game.GameID,
		}).Warn("Failed to persist outcome; effectiveness sweeps will not see it")
	}
	window := s.history.Window(game.ExpertID, s.detectorWindow)

	report.Revisions = s.revisions.ProcessRevisions(persistCtx, game.ExpertID, window, state)

	if len(report.Revisions) > 0 {
		var plans []models.RevisionActionPlan
		for _, rev := range report.Revisions {
			plans = append(plans, rev.Record.Actions...)
		}
		state = revision.ApplyPlans(state, plans)
		s.statesMu.Lock()
		s.states[game.ExpertID] = state
		s.statesMu.Unlock()
	}
	report.State = state

	return report, nil
}

// learnedPairs counts the Beta and EMA updates of a session, one per pair
// that reached an updater
func learnedPairs(session *models.LearningSession) int {
	if session == nil {
		return 0
	}
	return session.BetaUpdates + session.EMAUpdates
}

// ProcessGames processes a batch across experts in parallel, bounded by the
// configured worker count. Each expert's games run in input order on one
// goroutine. Reports are returned in input order; invalid games carry their
// problems instead of failing the batch.
func (s *CalibrationService) ProcessGames(ctx context.Context, games []GameResult) ([]*GameReport, error) {
	reports := make([]*GameReport, len(games))

	order := make([]string, 0)
	byExpert := make(map[string][]int)
	for i, g := range games {
		if _, ok := byExpert[g.ExpertID]; !ok {
			order = append(order, g.ExpertID)
		}
		byExpert[g.ExpertID] = append(byExpert[g.ExpertID], i)
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(s.workers)

	for _, expertID := range order {
		indexes := byExpert[expertID]
		group.Go(func() error {
			for _, i := range indexes {
				if err := gctx.Err(); err != nil {
					return err
				}
				report, err := s.ProcessGame(gctx, games[i])
				if err != nil && !errors.Is(err, ErrInvalidGame) {
					return err
				}
				reports[i] = report
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return reports, fmt.Errorf("batch processing stopped: %w", err)
	}
	return reports, nil
}

// SweepEffectiveness scores every unmeasured revision whose post-revision
// window has filled. Post-revision outcomes come from the outcome
// repository, so revisions stored by an earlier process are measured too.
func (s *CalibrationService) SweepEffectiveness(ctx context.Context) (report *SweepReport, err error) {
	report = NewSweepReport()
	defer func() {
		report.Finish()
		s.recordSweep(err)
	}()

	pending, err := s.repo.GetUnmeasured(ctx, s.now().UTC(), 0)
	if err != nil {
		metrics.RecordEffectivenessSweep("error")
		return report, fmt.Errorf("failed to list unmeasured revisions: %w", err)
	}

	tracker := s.revisions.Tracker()
	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			metrics.RecordEffectivenessSweep("cancelled")
			return report, err
		}

		outcomes, err := s.outcomes.OutcomesSince(ctx, rec.ExpertID, rec.Timestamp, 0)
		if err != nil {
			report.RecordError()
			s.logger.WithError(err).WithFields(logrus.Fields{
				"revision_id": rec.RevisionID,
				"expert_id":   rec.ExpertID,
			}).Warn("Failed to load post-revision outcomes")
			continue
		}
		if !tracker.Measurable(outcomes, 0) {
			report.RecordNotReady()
			continue
		}

		_, err = s.revisions.MeasureEffectiveness(ctx, rec.RevisionID, outcomes, 0)
		switch {
		case err == nil:
			report.RecordMeasured()
		case errors.Is(err, models.ErrEffectivenessAlreadyRecorded):
			report.RecordAlreadyMeasured()
		default:
			report.RecordError()
			s.logger.WithError(err).WithFields(logrus.Fields{
				"revision_id": rec.RevisionID,
				"expert_id":   rec.ExpertID,
			}).Warn("Failed to measure revision effectiveness")
		}
	}

	metrics.RecordEffectivenessSweep("success")
	return report, nil
}

func (s *CalibrationService) recordSweep(err error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()
	s.lastSweepAt = s.now().UTC()
	s.lastSweepErr = err
}

// LastSweep returns when the last effectiveness sweep finished and its
// error. The time is zero before the first sweep.
func (s *CalibrationService) LastSweep() (time.Time, error) {
	s.sweepMu.RLock()
	defer s.sweepMu.RUnlock()
	return s.lastSweepAt, s.lastSweepErr
}

// TrackedExperts returns the number of experts with calibration state
func (s *CalibrationService) TrackedExperts() int {
	return len(s.Experts())
}

// State returns the expert's current revision state
func (s *CalibrationService) State(expertID string) models.CurrentExpertState {
	s.statesMu.RLock()
	defer s.statesMu.RUnlock()
	return s.states[expertID]
}

// Experts returns the IDs of every expert with calibration state
func (s *CalibrationService) Experts() []string {
	return s.learning.Store().Experts()
}

// ExpertSummary returns a snapshot of an expert's calibration state. Recent
// revisions are read from the repository so they carry effectiveness scores.
func (s *CalibrationService) ExpertSummary(ctx context.Context, expertID string) (ExpertSummary, error) {
	recent, err := s.revisions.RetrieveRevisions(ctx, expertID, recentRevisionLimit)
	if err != nil {
		return ExpertSummary{ExpertID: expertID}, fmt.Errorf("failed to load recent revisions: %w", err)
	}

	store := s.learning.Store()
	summary := ExpertSummary{
		ExpertID:        expertID,
		Beta:            make(map[string]models.BetaSnapshot),
		EMA:             make(map[string]models.EMASnapshot),
		State:           s.State(expertID),
		HistorySize:     s.history.Len(expertID),
		RecentAccuracy:  models.Accuracy(s.history.Window(expertID, s.detectorWindow)),
		RecentRevisions: recent,
	}

	betaCategories, emaCategories := store.Categories(expertID)
	for _, category := range betaCategories {
		if state, ok := store.BetaState(models.StateKey{ExpertID: expertID, Category: category}); ok {
			summary.Beta[category] = state.Snapshot()
		}
	}
	for _, category := range emaCategories {
		if state, ok := store.EMAState(models.StateKey{ExpertID: expertID, Category: category}); ok {
			summary.EMA[category] = state.Snapshot()
		}
	}
	if vec, ok := store.FactorWeights(expertID); ok {
		summary.FactorWeights = vec.Weights
	}

	return summary, nil
}

// Revisions returns the expert's stored revisions, newest first
func (s *CalibrationService) Revisions(ctx context.Context, expertID string, limit int) ([]*models.BeliefRevisionRecord, error) {
	return s.revisions.RetrieveRevisions(ctx, expertID, limit)
}

// AuditLog returns the learning update audit log
func (s *CalibrationService) AuditLog() *audit.Log {
	return s.audit
}
