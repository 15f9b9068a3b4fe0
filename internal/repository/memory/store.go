// Package memory provides process-local repositories used when no Postgres DSN is configured
// and as the record store in tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
)

// IssueStore is an in-memory repository.IssueRepository.
type IssueStore struct {
	mu     sync.RWMutex
	issues map[string]*domain.Issue
	seq    int64
	now    func() time.Time
}

// NewIssueStore builds an empty store.
func NewIssueStore() *IssueStore {
	return &IssueStore{issues: make(map[string]*domain.Issue), now: time.Now}
}

var _ repository.IssueRepository = (*IssueStore)(nil)

func (s *IssueStore) Create(_ context.Context, issue *domain.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	issue.ID = uuid.NewString()
	issue.Version = 1
	// seq keeps CreatedAt strictly increasing so listing order is deterministic.
	issue.CreatedAt = s.now().Add(time.Duration(s.seq) * time.Nanosecond)
	issue.UpdatedAt = issue.CreatedAt
	s.issues[issue.ID] = issue.Clone()
	return nil
}

func (s *IssueStore) Update(_ context.Context, issue *domain.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.issues[issue.ID]
	if !ok || current.Version != issue.Version {
		return repository.ErrVersionConflict
	}
	issue.Version++
	issue.UpdatedAt = s.now()
	s.issues[issue.ID] = issue.Clone()
	return nil
}

func (s *IssueStore) GetByID(_ context.Context, id string) (*domain.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	issue, ok := s.issues[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return issue.Clone(), nil
}

func (s *IssueStore) List(_ context.Context, scope repository.IssueScope) ([]domain.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []domain.Issue{}
	for _, issue := range s.issues {
		if scopeMatches(scope, issue) {
			result = append(result, *issue.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *IssueStore) ListOverdue(_ context.Context, now time.Time) ([]domain.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []domain.Issue{}
	for _, issue := range s.issues {
		if issue.Status.Settled() || issue.SLADeadline == nil || issue.SLADeadline.After(now) {
			continue
		}
		result = append(result, *issue.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SLADeadline.Before(*result[j].SLADeadline)
	})
	return result, nil
}

func (s *IssueStore) Stats(_ context.Context) (*domain.IssueStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category := map[string]int64{}
	severity := map[string]int64{}
	status := map[string]int64{}
	department := map[string]int64{}
	for _, issue := range s.issues {
		category[string(issue.Category)]++
		severity[string(issue.Severity)]++
		status[string(issue.Status)]++
		department[issue.Department]++
	}

	stats := &domain.IssueStats{
		TotalIssues: int64(len(s.issues)),
		ByCategory:  buckets(category),
		BySeverity:  buckets(severity),
		ByStatus:    buckets(status),
	}
	if departments := buckets(department); len(departments) > 0 {
		top := departments[0]
		stats.TopDepartment = &top
	}
	return stats, nil
}

// SetClock overrides the timestamp source.
func (s *IssueStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func scopeMatches(scope repository.IssueScope, issue *domain.Issue) bool {
	if scope.All {
		return true
	}
	if scope.CreatedBy != nil && issue.CreatedBy == *scope.CreatedBy {
		return true
	}
	if scope.HandlerID != nil && issue.HandledBy(*scope.HandlerID) {
		return true
	}
	if scope.Status != nil && issue.Status == *scope.Status {
		return true
	}
	if scope.Department != nil && issue.Department == *scope.Department {
		return true
	}
	return false
}

func buckets(counts map[string]int64) []domain.CountByKey {
	result := make([]domain.CountByKey, 0, len(counts))
	for key, count := range counts {
		result = append(result, domain.CountByKey{Key: key, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Key < result[j].Key
	})
	return result
}

// UserStore is an in-memory repository.UserRepository.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*domain.User
	order []string
}

// NewUserStore builds an empty store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*domain.User)}
}

var _ repository.UserRepository = (*UserStore)(nil)

func (s *UserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(user.Email)
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	copied := *user
	s.users[user.ID] = &copied
	s.order = append(s.order, user.ID)
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(email)
	for _, id := range s.order {
		if s.users[id].Email == email {
			copied := *s.users[id]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *UserStore) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []domain.User{}
	for _, id := range s.order {
		user := s.users[id]
		if len(filter.Roles) > 0 && !hasRole(filter.Roles, user.Role) {
			continue
		}
		if filter.Department != nil && user.Department != *filter.Department {
			continue
		}
		if filter.ExcludeID != nil && user.ID == *filter.ExcludeID {
			continue
		}
		result = append(result, *user)
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

func (s *UserStore) UpdateScore(_ context.Context, id string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.AccountabilityScore = score
	user.UpdatedAt = time.Now()
	return nil
}

func (s *UserStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

func hasRole(roles []domain.Role, role domain.Role) bool {
	for _, candidate := range roles {
		if candidate == role {
			return true
		}
	}
	return false
}
