package dto

import "time"

// CreateIssueRequest payload for filing an issue.
type CreateIssueRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Severity    string `json:"severity"`
}

// UpdateIssueStatusRequest is the union accepted by PUT /issues/:id/status. Presence of
// ForwardToUserID selects the forward path.
type UpdateIssueStatusRequest struct {
	Status          string `json:"status"`
	Note            string `json:"note"`
	ForwardToUserID string `json:"forwardToUserId"`
	ResolutionImage string `json:"resolutionImage"`
}

// ReopenIssueRequest payload for rejecting a resolution.
type ReopenIssueRequest struct {
	Reason string `json:"reason"`
}

// ForwardEntry is one hand-over in the response.
type ForwardEntry struct {
	FromUser  *string   `json:"fromUser"`
	ToUser    string    `json:"toUser"`
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
}

// UpdateLog is one audit entry in the response.
type UpdateLog struct {
	Status    string    `json:"status"`
	UpdatedBy *string   `json:"updatedBy"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IssueResponse is the full issue representation. AssignedTo always equals CurrentHandler.
type IssueResponse struct {
	ID                 string         `json:"id"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	Category           string         `json:"category"`
	Severity           string         `json:"severity"`
	Status             string         `json:"status"`
	CreatedBy          string         `json:"createdBy"`
	Department         string         `json:"department"`
	InitialAuthority   *string        `json:"initialAuthority"`
	CurrentHandler     *string        `json:"currentHandler"`
	AssignedTo         *string        `json:"assignedTo"`
	AssignedChain      []string       `json:"assignedChain"`
	ForwardedHistory   []ForwardEntry `json:"forwardedHistory"`
	UpdateLogs         []UpdateLog    `json:"updateLogs"`
	EscalationLevel    int            `json:"escalationLevel"`
	ReopenCount        int            `json:"reopenCount"`
	SLADeadline        *time.Time     `json:"slaDeadline"`
	ResolutionImage    *string        `json:"resolutionImage,omitempty"`
	ResolutionNote     *string        `json:"resolutionNote,omitempty"`
	ResolutionVerified bool           `json:"resolutionVerified"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

// UploadResponse is returned after storing a proof image.
type UploadResponse struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}
