package service

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// DefaultEscalationGrace is the deadline extension granted to an escalated issue,
// independent of severity.
const DefaultEscalationGrace = 12 * time.Hour

var slaWindows = map[domain.IssueSeverity]time.Duration{
	domain.SeverityLow:       48 * time.Hour,
	domain.SeverityMedium:    24 * time.Hour,
	domain.SeverityHigh:      12 * time.Hour,
	domain.SeverityEmergency: 2 * time.Hour,
}

// SLAWindow returns the resolution window for severity; unknown severities get the low window.
func SLAWindow(severity domain.IssueSeverity) time.Duration {
	if window, ok := slaWindows[domain.ParseSeverity(string(severity))]; ok {
		return window
	}
	return slaWindows[domain.SeverityLow]
}

// SLADeadline returns the absolute time by which an issue of the given severity must be resolved.
func SLADeadline(severity domain.IssueSeverity, now time.Time) time.Time {
	return now.Add(SLAWindow(severity))
}
