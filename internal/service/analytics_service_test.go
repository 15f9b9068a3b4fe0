package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/domain"
)

func TestAnalyticsSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.addUser(t, "admin", domain.RoleAdmin, "")
	cse := f.addUser(t, "cse", domain.RoleStudent, "cse")
	ece := f.addUser(t, "ece", domain.RoleStudent, "ece")

	first := f.createIssue(t, cse, domain.CategoryHostel, "high")
	f.createIssue(t, cse, domain.CategoryHostel, "")
	f.createIssue(t, ece, domain.CategoryTransport, "")

	f.clock.Advance(10 * time.Hour)
	_, err := f.svc.SetStatus(ctx, admin, first.ID, domain.IssueStatusResolved, "fixed", "img")
	require.NoError(t, err)

	summary, err := NewAnalyticsService(f.issues, f.users).Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.TotalIssues)
	assert.Equal(t, []domain.CountByKey{{Key: "hostel", Count: 2}, {Key: "transport", Count: 1}}, summary.ByCategory)
	require.NotNil(t, summary.TopDepartment)
	assert.Equal(t, domain.CountByKey{Key: "cse", Count: 2}, *summary.TopDepartment)
	assert.Equal(t, int64(1), summary.ResolvedCount)
	require.NotNil(t, summary.AvgResolutionHours)
	assert.InDelta(t, 10.0, *summary.AvgResolutionHours, 0.001)
	assert.Zero(t, summary.EscalatedCount)
}

func TestAnalyticsSummary_Empty(t *testing.T) {
	f := newFixture(t)
	summary, err := NewAnalyticsService(f.issues, f.users).Summary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.TotalIssues)
	assert.Nil(t, summary.AvgResolutionHours)
	assert.Nil(t, summary.TopDepartment)
}

func TestAdminData(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "admin", domain.RoleAdmin, "")
	student := f.addUser(t, "student", domain.RoleStudent, "cse")
	f.createIssue(t, student, domain.CategorySafety, "")

	users, issues, err := NewAnalyticsService(f.issues, f.users).AdminData(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Len(t, issues, 1)
}
