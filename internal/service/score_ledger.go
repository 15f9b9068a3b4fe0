package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/lock"
	"github.com/spec-kit/grievance-service/internal/repository"
)

// ScoreEvent is a discrete accountability event.
type ScoreEvent string

const (
	ScoreResolvedOnTime ScoreEvent = "RESOLVED_ON_TIME"
	ScoreSLABreach      ScoreEvent = "SLA_BREACH"
	ScoreEscalatedFrom  ScoreEvent = "ESCALATED_FROM"
	ScoreReopened       ScoreEvent = "REOPENED"
)

var scoreDeltas = map[ScoreEvent]int{
	ScoreResolvedOnTime: 4,
	ScoreSLABreach:      -5,
	ScoreEscalatedFrom:  -7,
	ScoreReopened:       -3,
}

// Delta returns the point change for the event, zero if unknown.
func (e ScoreEvent) Delta() int {
	return scoreDeltas[e]
}

// ClampScore bounds a score to the accountability range.
func ClampScore(score int) int {
	if score < domain.MinAccountabilityScore {
		return domain.MinAccountabilityScore
	}
	if score > domain.MaxAccountabilityScore {
		return domain.MaxAccountabilityScore
	}
	return score
}

// ScoreLedger applies bounded deltas to authority scores.
type ScoreLedger struct {
	users      repository.UserRepository
	locker     lock.Locker
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// ScoreLedgerDependencies bundles collaborators.
type ScoreLedgerDependencies struct {
	UserRepo   repository.UserRepository
	Locker     lock.Locker
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewScoreLedger constructs the ledger.
func NewScoreLedger(deps ScoreLedgerDependencies) *ScoreLedger {
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScoreLedger{
		users:      deps.UserRepo,
		locker:     locker,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Apply adjusts the authority's score and returns the new value. A missing authority is a
// no-op so that escalating an unassigned issue never fails.
func (l *ScoreLedger) Apply(ctx context.Context, authorityID *string, kind ScoreEvent) (int, error) {
	if authorityID == nil || *authorityID == "" {
		return 0, nil
	}
	id := *authorityID

	release, err := l.locker.Acquire(ctx, lock.UserKey(id))
	if err != nil {
		return 0, err
	}
	defer release()

	user, err := l.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			l.logger.Warn("score event for unknown authority", zap.String("authority_id", id), zap.String("kind", string(kind)))
			return 0, nil
		}
		return 0, err
	}

	delta := kind.Delta()
	score := ClampScore(user.AccountabilityScore + delta)
	if err := l.users.UpdateScore(ctx, id, score); err != nil {
		return 0, err
	}

	l.logger.Info("accountability score updated",
		zap.String("authority_id", id),
		zap.String("kind", string(kind)),
		zap.Int("delta", delta),
		zap.Int("score", score))

	if l.dispatcher != nil {
		_ = l.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventScoreAdjusted,
			Actor:     events.Actor{System: true},
			Timestamp: time.Now(),
			Payload: events.ScoreAdjustedPayload{
				AuthorityID: id,
				Kind:        string(kind),
				Delta:       delta,
				Score:       score,
			},
		})
	}
	return score, nil
}
