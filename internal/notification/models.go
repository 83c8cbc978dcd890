package notification

import (
	"fmt"
	"time"

	"vigil/internal/transition"
	"vigil/pkg/domain"
)

// Type distinguishes what a notification is about.
type Type string

const (
	TypeAnalysisComplete Type = "ANALYSIS_COMPLETE"
	TypeStateChanged     Type = "STATE_CHANGED"
)

// Notification is one recipient-addressed alert. The persisted row is the
// durable source of truth; live push is a latency optimization on top of it.
// Read transitions false to true only.
type Notification struct {
	ID                domain.NotificationID
	Recipient         string
	Type              Type
	Message           string
	RelatedResourceID string
	CreatedAt         time.Time
	Read              bool
}

// RenderStateChanged builds the human-readable alert for a transition event.
// A first-ever classification has no previous level and renders as "new".
func RenderStateChanged(event transition.Event) string {
	previous := "new"
	if event.Previous != nil {
		previous = string(*event.Previous)
	}
	return fmt.Sprintf("%s's status changed from %s to %s (reason: %s)",
		event.SubjectName, previous, event.New, event.Reason)
}

// RenderAnalysisComplete builds the alert for a finished analysis, sent
// whether or not the result changed the subject's level.
func RenderAnalysisComplete(subjectName string, label domain.RiskLevel) string {
	return fmt.Sprintf("Analysis for '%s' completed (result: %s)", subjectName, label)
}
