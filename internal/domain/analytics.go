package domain

// CountByKey is one bucket of a grouped count.
type CountByKey struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// IssueStats summarizes the issue table for dashboards.
type IssueStats struct {
	TotalIssues   int64        `json:"total_issues"`
	ByCategory    []CountByKey `json:"by_category"`
	BySeverity    []CountByKey `json:"by_severity"`
	ByStatus      []CountByKey `json:"by_status"`
	TopDepartment *CountByKey  `json:"top_department,omitempty"`
}

// AnalyticsSummary is the dashboard payload: grouped counts plus resolution timing.
type AnalyticsSummary struct {
	IssueStats
	ResolvedCount      int64    `json:"resolved_count"`
	AvgResolutionHours *float64 `json:"avg_resolution_hours,omitempty"`
	EscalatedCount     int64    `json:"escalated_count"`
}
