package events

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIssueCreated       EventType = "issue_created"
	EventIssueForwarded     EventType = "issue_forwarded"
	EventIssueStatusChanged EventType = "issue_status_changed"
	EventIssueEscalated     EventType = "issue_escalated"
	EventIssueReopened      EventType = "issue_reopened"
	EventScoreAdjusted      EventType = "score_adjusted"
)

// AllEventTypes lists every event a subscriber may register for.
var AllEventTypes = []EventType{
	EventIssueCreated,
	EventIssueForwarded,
	EventIssueStatusChanged,
	EventIssueEscalated,
	EventIssueReopened,
	EventScoreAdjusted,
}

// Actor identifies who caused the event. UserID is nil for the sweeper.
type Actor struct {
	UserID *string      `json:"user_id,omitempty"`
	Role   *domain.Role `json:"role,omitempty"`
	System bool         `json:"system,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	IssueID   string      `json:"issue_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// IssueCreatedPayload payload.
type IssueCreatedPayload struct {
	Category       domain.IssueCategory `json:"category"`
	Severity       domain.IssueSeverity `json:"severity"`
	Department     string               `json:"department"`
	CurrentHandler *string              `json:"current_handler,omitempty"`
	UrgentKeyword  bool                 `json:"urgent_keyword"`
}

// IssueForwardedPayload payload.
type IssueForwardedPayload struct {
	FromUser *string `json:"from_user,omitempty"`
	ToUser   string  `json:"to_user"`
	Note     string  `json:"note"`
}

// IssueStatusChangedPayload payload.
type IssueStatusChangedPayload struct {
	OldStatus domain.IssueStatus `json:"old_status"`
	NewStatus domain.IssueStatus `json:"new_status"`
	Note      string             `json:"note,omitempty"`
	OnTime    bool               `json:"on_time,omitempty"`
}

// IssueEscalatedPayload payload.
type IssueEscalatedPayload struct {
	Level       int         `json:"level"`
	FromHandler *string     `json:"from_handler,omitempty"`
	ToHandler   string      `json:"to_handler"`
	TargetRole  domain.Role `json:"target_role"`
	NewDeadline time.Time   `json:"new_deadline"`
}

// IssueReopenedPayload payload.
type IssueReopenedPayload struct {
	ReopenCount int    `json:"reopen_count"`
	Reason      string `json:"reason,omitempty"`
}

// ScoreAdjustedPayload payload.
type ScoreAdjustedPayload struct {
	AuthorityID string `json:"authority_id"`
	Kind        string `json:"kind"`
	Delta       int    `json:"delta"`
	Score       int    `json:"score"`
}
