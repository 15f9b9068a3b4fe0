package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// SweepReport summarises one escalation cycle.
type SweepReport struct {
	Scanned   int
	Escalated int
	Skipped   int
	Failed    int
}

// SweepMetrics receives per-cycle measurements.
type SweepMetrics interface {
	ObserveSweep(scanned, escalated, skipped, failed int, elapsed time.Duration)
	IncEscalation(level int, role string)
}

// EscalationService reassigns overdue issues and penalises the authorities that let them lapse.
type EscalationService struct {
	issues  *IssueService
	grace   time.Duration
	metrics SweepMetrics
	logger  *zap.Logger
}

// EscalationDependencies bundles collaborators for the sweeper.
type EscalationDependencies struct {
	IssueService *IssueService
	GraceWindow  time.Duration
	Metrics      SweepMetrics
	Logger       *zap.Logger
}

// NewEscalationService constructs the sweeper.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	grace := deps.GraceWindow
	if grace <= 0 {
		grace = DefaultEscalationGrace
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationService{
		issues:  deps.IssueService,
		grace:   grace,
		metrics: deps.Metrics,
		logger:  logger,
	}
}

type escalationResult struct {
	level       int
	role        domain.Role
	fromHandler *string
	toHandler   string
	deadline    time.Time
}

// Sweep escalates every overdue issue once. A failure on one issue never stops the batch.
func (s *EscalationService) Sweep(ctx context.Context) SweepReport {
	started := time.Now()
	report := SweepReport{}
	now := s.issues.now()

	candidates, err := s.issues.issues.ListOverdue(ctx, now)
	if err != nil {
		s.logger.Error("query overdue issues", zap.Error(err))
		s.observe(report, started)
		return report
	}

	for _, candidate := range candidates {
		report.Scanned++
		if candidate.EscalationLevel >= domain.MaxEscalationLevel {
			report.Skipped++
			continue
		}

		result, err := s.escalate(ctx, candidate.ID, now)
		switch {
		case err == nil:
			report.Escalated++
		case errors.Is(err, errSkipIssue):
			report.Skipped++
		case errors.Is(err, apperrors.ErrNoAuthority):
			report.Skipped++
			s.logger.Warn("no escalation target, retrying next cycle",
				zap.String("issue_id", candidate.ID),
				zap.String("category", string(candidate.Category)),
				zap.Int("level", candidate.EscalationLevel+1))
		default:
			report.Failed++
			s.logger.Error("escalate issue", zap.String("issue_id", candidate.ID), zap.Error(err))
		}
		if err == nil && s.metrics != nil {
			s.metrics.IncEscalation(result.level, string(result.role))
		}
	}

	s.logger.Info("escalation sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("escalated", report.Escalated),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	s.observe(report, started)
	return report
}

func (s *EscalationService) escalate(ctx context.Context, id string, now time.Time) (escalationResult, error) {
	var result escalationResult
	issue, err := s.issues.mutate(ctx, id, func(issue *domain.Issue) error {
		// The record may have moved on since the candidate query.
		if issue.Status.Settled() || issue.SLADeadline == nil || issue.SLADeadline.After(now) ||
			issue.EscalationLevel >= domain.MaxEscalationLevel {
			return errSkipIssue
		}

		next := issue.EscalationLevel + 1
		if next > domain.MaxEscalationLevel {
			next = domain.MaxEscalationLevel
		}
		target, err := s.issues.resolver.ResolveEscalationTarget(ctx, issue.Category, issue.Department, next)
		if err != nil {
			return err
		}

		deadline := now.Add(s.grace)
		result = escalationResult{
			level:       next,
			role:        target.Role,
			fromHandler: issue.CurrentHandler,
			toHandler:   target.ID,
			deadline:    deadline,
		}

		issue.RecordForward(issue.CurrentHandler, target.ID, fmt.Sprintf("Auto-Escalation (Level %d) due to SLA Breach", next), now)
		issue.Assign(target.ID)
		issue.EscalationLevel = next
		issue.Status = domain.IssueStatusEscalated
		issue.SLADeadline = &deadline
		issue.RecordUpdate(fmt.Sprintf("Escalated to %s (Level %d)", target.Role, next), nil, now)
		return nil
	})
	if err != nil {
		return result, err
	}

	s.logger.Info("issue escalated",
		zap.String("issue_id", issue.ID),
		zap.Int("level", result.level),
		zap.String("role", string(result.role)),
		zap.String("to", result.toHandler))

	if ledger := s.issues.ledger; ledger != nil {
		for _, kind := range []ScoreEvent{ScoreSLABreach, ScoreEscalatedFrom} {
			if _, err := ledger.Apply(ctx, result.fromHandler, kind); err != nil {
				s.logger.Error("apply escalation score",
					zap.String("issue_id", issue.ID),
					zap.String("kind", string(kind)),
					zap.Error(err))
			}
		}
	}

	s.issues.publish(ctx, events.Event{
		Type:    events.EventIssueEscalated,
		IssueID: issue.ID,
		Actor:   events.Actor{System: true},
		Payload: events.IssueEscalatedPayload{
			Level:       result.level,
			FromHandler: result.fromHandler,
			ToHandler:   result.toHandler,
			TargetRole:  result.role,
			NewDeadline: result.deadline,
		},
	})
	return result, nil
}

func (s *EscalationService) observe(report SweepReport, started time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveSweep(report.Scanned, report.Escalated, report.Skipped, report.Failed, time.Since(started))
}
