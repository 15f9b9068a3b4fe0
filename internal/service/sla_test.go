package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/grievance-service/internal/domain"
)

func TestSLADeadline(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cases := map[domain.IssueSeverity]time.Duration{
		domain.SeverityLow:       48 * time.Hour,
		domain.SeverityMedium:    24 * time.Hour,
		domain.SeverityHigh:      12 * time.Hour,
		domain.SeverityEmergency: 2 * time.Hour,
		"":                       48 * time.Hour,
		"catastrophic":           48 * time.Hour,
		"HIGH":                   12 * time.Hour,
	}
	for severity, want := range cases {
		assert.Equal(t, want, SLADeadline(severity, now).Sub(now), "severity %q", severity)
	}
}
