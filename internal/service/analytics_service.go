package service

import (
	"context"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// AnalyticsService aggregates issue data for leadership dashboards.
type AnalyticsService struct {
	issues repository.IssueRepository
	users  repository.UserRepository
}

// NewAnalyticsService constructs the service.
func NewAnalyticsService(issues repository.IssueRepository, users repository.UserRepository) *AnalyticsService {
	return &AnalyticsService{issues: issues, users: users}
}

// Summary returns grouped counts and the mean time from filing to the first resolution.
func (s *AnalyticsService) Summary(ctx context.Context) (*domain.AnalyticsSummary, error) {
	stats, err := s.issues.Stats(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	issues, err := s.issues.List(ctx, repository.IssueScope{All: true})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	summary := &domain.AnalyticsSummary{IssueStats: *stats}
	var totalHours float64
	for _, issue := range issues {
		if issue.EscalationLevel > 0 {
			summary.EscalatedCount++
		}
		for _, entry := range issue.UpdateLogs {
			if entry.Status == string(domain.IssueStatusResolved) {
				totalHours += entry.UpdatedAt.Sub(issue.CreatedAt).Hours()
				summary.ResolvedCount++
				break
			}
		}
	}
	if summary.ResolvedCount > 0 {
		avg := totalHours / float64(summary.ResolvedCount)
		summary.AvgResolutionHours = &avg
	}
	return summary, nil
}

// AdminData returns every user and issue for the admin console.
func (s *AnalyticsService) AdminData(ctx context.Context) ([]domain.User, []domain.Issue, error) {
	users, err := s.users.List(ctx, repository.UserFilter{})
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	issues, err := s.issues.List(ctx, repository.IssueScope{All: true})
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return users, issues, nil
}
