package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/service"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// IssuesHandler manages issue lifecycle endpoints.
type IssuesHandler struct {
	service *service.IssueService
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(issueService *service.IssueService) *IssuesHandler {
	return &IssuesHandler{service: issueService}
}

// CreateIssue POST /api/issues.
func (h *IssuesHandler) CreateIssue(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.CreateIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	issue, err := h.service.Create(c.UserContext(), user, service.IssueCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Severity:    req.Severity,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": issueResponse(issue)})
}

// ListIssues GET /api/issues.
func (h *IssuesHandler) ListIssues(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	issues, err := h.service.List(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueResponses(issues)})
}

// GetIssue GET /api/issues/:id.
func (h *IssuesHandler) GetIssue(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	issue, err := h.service.Get(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueResponse(issue)})
}

// UpdateStatus PUT /api/issues/:id/status. Forwards when forwardToUserId is set, otherwise
// applies the requested status.
func (h *IssuesHandler) UpdateStatus(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.UpdateIssueStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	issue, err := h.service.Update(c.UserContext(), user, c.Params("id"), service.IssueUpdateInput{
		Status:          req.Status,
		Note:            req.Note,
		ForwardToUserID: req.ForwardToUserID,
		ResolutionImage: req.ResolutionImage,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueResponse(issue)})
}

// ReopenIssue POST /api/issues/:id/reopen.
func (h *IssuesHandler) ReopenIssue(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ReopenIssueRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	issue, err := h.service.Reopen(c.UserContext(), user, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": issueResponse(issue)})
}

// ForwardCandidates GET /api/issues/forward-candidates.
func (h *IssuesHandler) ForwardCandidates(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	users, err := h.service.ListForwardCandidates(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponses(users)})
}

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	user, ok := auth.UserFromContext(c)
	if !ok || user == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	return user, nil
}

func issueResponse(issue *domain.Issue) dto.IssueResponse {
	forwards := make([]dto.ForwardEntry, 0, len(issue.ForwardedHistory))
	for _, entry := range issue.ForwardedHistory {
		forwards = append(forwards, dto.ForwardEntry{
			FromUser:  entry.FromUser,
			ToUser:    entry.ToUser,
			Note:      entry.Note,
			Timestamp: entry.Timestamp,
		})
	}
	logs := make([]dto.UpdateLog, 0, len(issue.UpdateLogs))
	for _, entry := range issue.UpdateLogs {
		logs = append(logs, dto.UpdateLog{
			Status:    entry.Status,
			UpdatedBy: entry.UpdatedBy,
			UpdatedAt: entry.UpdatedAt,
		})
	}
	chain := append([]string{}, issue.AssignedChain...)

	return dto.IssueResponse{
		ID:                 issue.ID,
		Title:              issue.Title,
		Description:        issue.Description,
		Category:           string(issue.Category),
		Severity:           string(issue.Severity),
		Status:             string(issue.Status),
		CreatedBy:          issue.CreatedBy,
		Department:         issue.Department,
		InitialAuthority:   issue.InitialAuthority,
		CurrentHandler:     issue.CurrentHandler,
		AssignedTo:         issue.AssignedTo(),
		AssignedChain:      chain,
		ForwardedHistory:   forwards,
		UpdateLogs:         logs,
		EscalationLevel:    issue.EscalationLevel,
		ReopenCount:        issue.ReopenCount,
		SLADeadline:        issue.SLADeadline,
		ResolutionImage:    issue.ResolutionImage,
		ResolutionNote:     issue.ResolutionNote,
		ResolutionVerified: issue.ResolutionVerified,
		CreatedAt:          issue.CreatedAt,
		UpdatedAt:          issue.UpdatedAt,
	}
}

func issueResponses(issues []domain.Issue) []dto.IssueResponse {
	items := make([]dto.IssueResponse, 0, len(issues))
	for i := range issues {
		items = append(items, issueResponse(&issues[i]))
	}
	return items
}
