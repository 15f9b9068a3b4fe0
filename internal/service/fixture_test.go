package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/lock"
	"github.com/spec-kit/grievance-service/internal/repository/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	clock   *fakeClock
	issues  *memory.IssueStore
	users   *memory.UserStore
	ledger  *ScoreLedger
	svc     *IssueService
	sweeper *EscalationService

	mu     sync.Mutex
	events []events.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		clock:  newFakeClock(),
		issues: memory.NewIssueStore(),
		users:  memory.NewUserStore(),
	}
	f.issues.SetClock(f.clock.Now)

	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.events = append(f.events, e)
			return nil
		})
	}

	locker := lock.NewLocalLocker()
	f.ledger = NewScoreLedger(ScoreLedgerDependencies{
		UserRepo:   f.users,
		Locker:     locker,
		Dispatcher: dispatcher,
	})
	f.svc = NewIssueService(IssueDependencies{
		IssueRepo:  f.issues,
		UserRepo:   f.users,
		Ledger:     f.ledger,
		Locker:     locker,
		Dispatcher: dispatcher,
		Clock:      f.clock.Now,
	})
	f.sweeper = NewEscalationService(EscalationDependencies{IssueService: f.svc})
	return f
}

func (f *fixture) addUser(t *testing.T, name string, role domain.Role, department string) *domain.User {
	t.Helper()
	user := &domain.User{
		Name:                name,
		Email:               name + "@campus.test",
		Role:                role,
		Department:          department,
		AccountabilityScore: domain.DefaultAccountabilityScore,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func (f *fixture) score(t *testing.T, id string) int {
	t.Helper()
	user, err := f.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return user.AccountabilityScore
}

func (f *fixture) eventsOf(eventType events.EventType) []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []events.Event
	for _, e := range f.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (f *fixture) createIssue(t *testing.T, student *domain.User, category domain.IssueCategory, severity string) *domain.Issue {
	t.Helper()
	issue, err := f.svc.Create(context.Background(), student, IssueCreateInput{
		Title:       "Leaking roof",
		Description: "Water comes through the ceiling",
		Category:    string(category),
		Severity:    severity,
	})
	require.NoError(t, err)
	return issue
}
