package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/lock"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// UrgentKeywords force emergency severity when found in a description.
var UrgentKeywords = []string{
	"fire", "fight", "blood", "accident", "suicide", "harassment",
	"ragging", "collapse", "spark", "short-circuit", "short circuit",
}

// ContainsUrgentKeyword reports whether text mentions a life-safety risk.
func ContainsUrgentKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range UrgentKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// errSkipIssue aborts a mutation without persisting and without being an error for the caller.
var errSkipIssue = errors.New("skip issue")

const defaultLockWait = 10 * time.Second

// IssueService drives the issue lifecycle.
type IssueService struct {
	issues     repository.IssueRepository
	users      repository.UserRepository
	resolver   *RoutingResolver
	ledger     *ScoreLedger
	locker     lock.Locker
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
	lockWait   time.Duration
}

// IssueDependencies bundles collaborators for the issue service.
type IssueDependencies struct {
	IssueRepo  repository.IssueRepository
	UserRepo   repository.UserRepository
	Resolver   *RoutingResolver
	Ledger     *ScoreLedger
	Locker     lock.Locker
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// IssueCreateInput describes issue creation payload.
type IssueCreateInput struct {
	Title       string
	Description string
	Category    string
	Severity    string
}

// IssueUpdateInput is the union accepted by the status endpoint. ForwardToUserID selects the
// forward path; otherwise Status is applied.
type IssueUpdateInput struct {
	Status          string
	Note            string
	ForwardToUserID string
	ResolutionImage string
}

// NewIssueService constructs the service.
func NewIssueService(deps IssueDependencies) *IssueService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	resolver := deps.Resolver
	if resolver == nil {
		resolver = NewRoutingResolver(deps.UserRepo)
	}
	return &IssueService{
		issues:     deps.IssueRepo,
		users:      deps.UserRepo,
		resolver:   resolver,
		ledger:     deps.Ledger,
		locker:     locker,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
		lockWait:   defaultLockWait,
	}
}

// Create files a new issue on behalf of a student and routes it to triage.
func (s *IssueService) Create(ctx context.Context, creator *domain.User, input IssueCreateInput) (*domain.Issue, error) {
	if creator == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	if creator.Role != domain.RoleStudent {
		return nil, apperrors.NewForbidden("only students can file issues")
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	category := domain.IssueCategory(strings.ToLower(strings.TrimSpace(input.Category)))

	missing := []string{}
	if title == "" {
		missing = append(missing, "title")
	}
	if description == "" {
		missing = append(missing, "description")
	}
	if category == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("please fill in all fields", map[string]any{"missing": missing})
	}
	if !category.Valid() {
		return nil, apperrors.NewValidationError("invalid category", map[string]any{"category": category})
	}

	severity := domain.ParseSeverity(input.Severity)
	urgent := ContainsUrgentKeyword(description)
	if urgent {
		severity = domain.SeverityEmergency
	}

	authority, err := s.resolver.ResolveInitial(ctx, category)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	now := s.now()
	deadline := SLADeadline(severity, now)
	issue := &domain.Issue{
		Title:            title,
		Description:      description,
		Category:         category,
		Severity:         severity,
		Status:           domain.IssueStatusPendingReview,
		CreatedBy:        creator.ID,
		Department:       creator.Department,
		AssignedChain:    []string{},
		ForwardedHistory: []domain.ForwardEntry{},
		UpdateLogs:       []domain.UpdateLog{},
		SLADeadline:      &deadline,
	}
	if authority != nil {
		initial := authority.ID
		issue.InitialAuthority = &initial
		issue.Assign(authority.ID)
	} else {
		s.logger.Warn("no triage authority available", zap.String("category", string(category)))
	}
	creatorID := creator.ID
	issue.RecordUpdate(string(domain.IssueStatusPendingReview), &creatorID, now)

	if err := s.issues.Create(ctx, issue); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:    events.EventIssueCreated,
		IssueID: issue.ID,
		Actor:   userActor(creator),
		Payload: events.IssueCreatedPayload{
			Category:       issue.Category,
			Severity:       issue.Severity,
			Department:     issue.Department,
			CurrentHandler: issue.CurrentHandler,
			UrgentKeyword:  urgent,
		},
	})
	return issue, nil
}

// VisibilityScope returns the issues a caller may list.
func VisibilityScope(caller *domain.User) repository.IssueScope {
	id := caller.ID
	switch caller.Role {
	case domain.RoleStudent:
		return repository.IssueScope{CreatedBy: &id}
	case domain.RoleAdmin:
		return repository.IssueScope{All: true}
	case domain.RolePrincipal:
		pending := domain.IssueStatusPendingReview
		return repository.IssueScope{HandlerID: &id, Status: &pending}
	case domain.RoleHOD:
		dept := caller.Department
		return repository.IssueScope{HandlerID: &id, Department: &dept}
	case domain.RoleFaculty, domain.RoleDean, domain.RoleWarden, domain.RoleTransportIncharge:
		return repository.IssueScope{HandlerID: &id}
	default:
		return repository.IssueScope{}
	}
}

// List returns the issues visible to the caller, newest first.
func (s *IssueService) List(ctx context.Context, caller *domain.User) ([]domain.Issue, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	issues, err := s.issues.List(ctx, VisibilityScope(caller))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return issues, nil
}

// Get returns one issue with its audit trails. Students may only read their own.
func (s *IssueService) Get(ctx context.Context, caller *domain.User, id string) (*domain.Issue, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	issue, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Role == domain.RoleStudent && issue.CreatedBy != caller.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return issue, nil
}

// Update routes a status-endpoint request to Forward or SetStatus, never both.
func (s *IssueService) Update(ctx context.Context, actor *domain.User, id string, input IssueUpdateInput) (*domain.Issue, error) {
	if strings.TrimSpace(input.ForwardToUserID) != "" {
		return s.Forward(ctx, actor, id, strings.TrimSpace(input.ForwardToUserID), input.Note)
	}
	if strings.TrimSpace(input.Status) != "" {
		return s.SetStatus(ctx, actor, id, domain.IssueStatus(strings.TrimSpace(input.Status)), input.Note, input.ResolutionImage)
	}
	return nil, apperrors.NewValidationError("status or forwardToUserId required", nil)
}

// Forward hands the issue to another authority.
func (s *IssueService) Forward(ctx context.Context, actor *domain.User, id, toUserID, note string) (*domain.Issue, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	if !actor.Role.IsAuthority() {
		return nil, apperrors.NewForbidden("students cannot update issue status, except to close resolved issues")
	}
	if toUserID == actor.ID {
		return nil, apperrors.NewValidationError("cannot forward an issue to yourself", nil)
	}

	target, err := s.users.GetByID(ctx, toUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user to forward to", map[string]any{"user_id": toUserID})
		}
		return nil, apperrors.MapError(err)
	}
	if !roleAllowed(ForwardRoles(actor.Role), target.Role) {
		return nil, apperrors.NewForbidden(fmt.Sprintf("%s cannot forward to %s", actor.Role, target.Role))
	}

	note = strings.TrimSpace(note)
	if note == "" {
		note = "Forwarded"
	}

	var previous *string
	issue, err := s.mutate(ctx, id, func(issue *domain.Issue) error {
		if issue.Status == domain.IssueStatusClosed {
			return apperrors.NewValidationError("issue is closed", nil)
		}
		now := s.now()
		actorID := actor.ID
		previous = issue.CurrentHandler

		issue.RecordForward(&actorID, target.ID, note, now)
		issue.Assign(target.ID)
		if issue.Status == domain.IssueStatusPendingReview {
			issue.Status = domain.IssueStatusOpen
		}
		issue.RecordUpdate(fmt.Sprintf("Forwarded to %s (%s)", target.Role, target.Name), &actorID, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:    events.EventIssueForwarded,
		IssueID: issue.ID,
		Actor:   userActor(actor),
		Payload: events.IssueForwardedPayload{FromUser: previous, ToUser: target.ID, Note: note},
	})
	return issue, nil
}

// manualStatuses are the targets an actor may request directly.
var manualStatuses = map[domain.IssueStatus]bool{
	domain.IssueStatusOpen:       true,
	domain.IssueStatusInProgress: true,
	domain.IssueStatusResolved:   true,
	domain.IssueStatusClosed:     true,
}

// SetStatus applies a status change. Resolving requires proof and a note; students may only
// close their own resolved issues.
func (s *IssueService) SetStatus(ctx context.Context, actor *domain.User, id string, status domain.IssueStatus, note, resolutionImage string) (*domain.Issue, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	if actor.Role == domain.RoleStudent {
		if status != domain.IssueStatusClosed {
			return nil, apperrors.NewForbidden("students cannot update issue status, except to close resolved issues")
		}
	} else if !actor.Role.IsAuthority() {
		return nil, apperrors.NewForbidden("insufficient role")
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}

	note = strings.TrimSpace(note)
	resolutionImage = strings.TrimSpace(resolutionImage)

	var (
		oldStatus domain.IssueStatus
		onTime    bool
		handler   *string
	)
	issue, err := s.mutate(ctx, id, func(issue *domain.Issue) error {
		if actor.Role == domain.RoleStudent && (issue.CreatedBy != actor.ID || issue.Status != domain.IssueStatusResolved) {
			return apperrors.NewForbidden("students cannot update issue status, except to close resolved issues")
		}
		if !manualStatuses[status] {
			return apperrors.NewValidationError(fmt.Sprintf("status %q cannot be set directly", status), nil)
		}
		if issue.Status == domain.IssueStatusClosed {
			return apperrors.NewValidationError("issue is closed", nil)
		}
		if issue.Status == status {
			return apperrors.NewValidationError(fmt.Sprintf("issue is already %s", status), nil)
		}

		now := s.now()
		if status == domain.IssueStatusResolved {
			if resolutionImage == "" || note == "" {
				return apperrors.NewValidationError("cannot resolve without proof image and note", nil)
			}
			image, resolutionNote := resolutionImage, note
			issue.ResolutionImage = &image
			issue.ResolutionNote = &resolutionNote
			issue.ResolutionVerified = true
			onTime = issue.SLADeadline != nil && !now.After(*issue.SLADeadline)
		}

		oldStatus = issue.Status
		handler = issue.CurrentHandler
		issue.Status = status
		actorID := actor.ID
		issue.RecordUpdate(string(status), &actorID, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if onTime && s.ledger != nil {
		if _, err := s.ledger.Apply(ctx, handler, ScoreResolvedOnTime); err != nil {
			s.logger.Error("apply on-time score", zap.String("issue_id", issue.ID), zap.Error(err))
		}
	}

	s.publish(ctx, events.Event{
		Type:    events.EventIssueStatusChanged,
		IssueID: issue.ID,
		Actor:   userActor(actor),
		Payload: events.IssueStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: status,
			Note:      note,
			OnTime:    onTime,
		},
	})
	return issue, nil
}

// Reopen lets the owning student reject a resolution. The handler is left unchanged and is
// penalized for the rejected fix.
func (s *IssueService) Reopen(ctx context.Context, student *domain.User, id, reason string) (*domain.Issue, error) {
	if student == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	if student.Role != domain.RoleStudent {
		return nil, apperrors.NewForbidden("only the reporting student can reopen an issue")
	}

	reason = strings.TrimSpace(reason)
	var handler *string
	issue, err := s.mutate(ctx, id, func(issue *domain.Issue) error {
		if issue.CreatedBy != student.ID {
			return apperrors.NewForbidden("only the reporting student can reopen an issue")
		}
		if issue.Status != domain.IssueStatusResolved {
			return apperrors.NewValidationError("only resolved issues can be reopened", map[string]any{"status": issue.Status})
		}
		handler = issue.CurrentHandler
		issue.Status = domain.IssueStatusReopened
		issue.ReopenCount++
		issue.ResolutionVerified = false

		label := string(domain.IssueStatusReopened)
		if reason != "" {
			label = fmt.Sprintf("%s: %s", label, reason)
		}
		studentID := student.ID
		issue.RecordUpdate(label, &studentID, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.ledger != nil {
		if _, err := s.ledger.Apply(ctx, handler, ScoreReopened); err != nil {
			s.logger.Error("apply reopen score", zap.String("issue_id", issue.ID), zap.Error(err))
		}
	}

	s.publish(ctx, events.Event{
		Type:    events.EventIssueReopened,
		IssueID: issue.ID,
		Actor:   userActor(student),
		Payload: events.IssueReopenedPayload{ReopenCount: issue.ReopenCount, Reason: reason},
	})
	return issue, nil
}

// ListForwardCandidates returns the authorities the caller may forward to.
func (s *IssueService) ListForwardCandidates(ctx context.Context, caller *domain.User) ([]domain.User, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	users, err := s.resolver.ForwardCandidates(ctx, caller)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// mutate runs fn against a fresh copy of the issue while holding the issue lock, then persists
// the whole record once. Nothing is written if fn fails.
func (s *IssueService) mutate(ctx context.Context, id string, fn func(issue *domain.Issue) error) (*domain.Issue, error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	release, err := s.locker.Acquire(lockCtx, lock.IssueKey(id))
	cancel()
	if err != nil {
		return nil, apperrors.NewConflict("issue is busy, retry", map[string]any{"issue_id": id})
	}
	defer release()

	issue, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(issue); err != nil {
		return issue, err
	}
	if err := s.issues.Update(ctx, issue); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperrors.NewConflict("issue modified concurrently, retry", map[string]any{"issue_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return issue, nil
}

func (s *IssueService) load(ctx context.Context, id string) (*domain.Issue, error) {
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("issue", map[string]any{"issue_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return issue, nil
}

func (s *IssueService) publish(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, s.now, event)
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, now func() time.Time, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now()
	}
	_ = dispatcher.Publish(ctx, event)
}

func userActor(user *domain.User) events.Actor {
	id := user.ID
	role := user.Role
	return events.Actor{UserID: &id, Role: &role}
}

func roleAllowed(allowed []domain.Role, role domain.Role) bool {
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}
