package domain

import (
	"strings"
	"time"
)

// IssueStatus enumerates lifecycle states for issues.
type IssueStatus string

const (
	IssueStatusPendingReview IssueStatus = "pending-review"
	IssueStatusOpen          IssueStatus = "open"
	IssueStatusInProgress    IssueStatus = "in-progress"
	IssueStatusResolved      IssueStatus = "resolved"
	IssueStatusEscalated     IssueStatus = "escalated"
	IssueStatusReopened      IssueStatus = "reopened"
	IssueStatusClosed        IssueStatus = "closed"
)

// Valid reports whether the status is a known lifecycle state.
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusPendingReview, IssueStatusOpen, IssueStatusInProgress, IssueStatusResolved,
		IssueStatusEscalated, IssueStatusReopened, IssueStatusClosed:
		return true
	}
	return false
}

// Settled reports whether the sweeper should leave the issue alone.
func (s IssueStatus) Settled() bool {
	return s == IssueStatusResolved || s == IssueStatusClosed
}

// IssueCategory enumerates the kind of problem being reported.
type IssueCategory string

const (
	CategoryHostel         IssueCategory = "hostel"
	CategoryTransport      IssueCategory = "transport"
	CategoryAcademic       IssueCategory = "academic"
	CategoryInfrastructure IssueCategory = "infrastructure"
	CategorySafety         IssueCategory = "safety"
)

// Valid reports whether the category is known.
func (c IssueCategory) Valid() bool {
	switch c {
	case CategoryHostel, CategoryTransport, CategoryAcademic, CategoryInfrastructure, CategorySafety:
		return true
	}
	return false
}

// IssueSeverity enumerates SLA urgency.
type IssueSeverity string

const (
	SeverityLow       IssueSeverity = "low"
	SeverityMedium    IssueSeverity = "medium"
	SeverityHigh      IssueSeverity = "high"
	SeverityEmergency IssueSeverity = "emergency"
)

// ParseSeverity normalizes caller input, defaulting to low.
func ParseSeverity(raw string) IssueSeverity {
	switch s := IssueSeverity(strings.ToLower(strings.TrimSpace(raw))); s {
	case SeverityMedium, SeverityHigh, SeverityEmergency:
		return s
	default:
		return SeverityLow
	}
}

// MaxEscalationLevel is the terminal escalation tier.
const MaxEscalationLevel = 3

// ForwardEntry records one hand-over between authorities.
type ForwardEntry struct {
	FromUser  *string   `json:"fromUser"`
	ToUser    string    `json:"toUser"`
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
}

// UpdateLog is an immutable audit trail entry. UpdatedBy is nil for sweeper entries.
type UpdateLog struct {
	Status    string    `json:"status"`
	UpdatedBy *string   `json:"updatedBy"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Issue is the aggregate for student grievances.
type Issue struct {
	ID                 string
	Title              string
	Description        string
	Category           IssueCategory
	Severity           IssueSeverity
	Status             IssueStatus
	CreatedBy          string
	Department         string
	InitialAuthority   *string
	CurrentHandler     *string
	AssignedChain      []string
	ForwardedHistory   []ForwardEntry
	UpdateLogs         []UpdateLog
	EscalationLevel    int
	ReopenCount        int
	SLADeadline        *time.Time
	ResolutionImage    *string
	ResolutionNote     *string
	ResolutionVerified bool
	Version            int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AssignedTo mirrors CurrentHandler for clients that still read the legacy field.
func (i *Issue) AssignedTo() *string {
	return i.CurrentHandler
}

// Assign makes authorityID the accountable handler and extends the chain.
func (i *Issue) Assign(authorityID string) {
	id := authorityID
	i.CurrentHandler = &id
	i.AssignedChain = append(i.AssignedChain, authorityID)
}

// RecordForward appends to the forwarding trail.
func (i *Issue) RecordForward(from *string, to, note string, at time.Time) {
	i.ForwardedHistory = append(i.ForwardedHistory, ForwardEntry{
		FromUser:  from,
		ToUser:    to,
		Note:      note,
		Timestamp: at,
	})
}

// RecordUpdate appends to the status log.
func (i *Issue) RecordUpdate(label string, actor *string, at time.Time) {
	i.UpdateLogs = append(i.UpdateLogs, UpdateLog{
		Status:    label,
		UpdatedBy: actor,
		UpdatedAt: at,
	})
}

// HandledBy reports whether userID is the accountable authority.
func (i *Issue) HandledBy(userID string) bool {
	return i.CurrentHandler != nil && *i.CurrentHandler == userID
}

// Clone returns a deep copy so callers can mutate without touching the original.
func (i *Issue) Clone() *Issue {
	c := *i
	c.InitialAuthority = cloneString(i.InitialAuthority)
	c.CurrentHandler = cloneString(i.CurrentHandler)
	c.ResolutionImage = cloneString(i.ResolutionImage)
	c.ResolutionNote = cloneString(i.ResolutionNote)
	if i.SLADeadline != nil {
		d := *i.SLADeadline
		c.SLADeadline = &d
	}
	c.AssignedChain = append([]string(nil), i.AssignedChain...)
	c.ForwardedHistory = append([]ForwardEntry(nil), i.ForwardedHistory...)
	c.UpdateLogs = append([]UpdateLog(nil), i.UpdateLogs...)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
