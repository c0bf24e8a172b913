package notify

import (
	"context"

	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

// milestoneStatuses are the onboarding statuses applicants are emailed about.
var milestoneStatuses = map[string]bool{
	"submitted":                   true,
	"verification_approved":       true,
	"verification_rejected":       true,
	"interview_scheduled":         true,
	"interview_failed":            true,
	"documentation_approved":      true,
	"documentation_rejected":      true,
	"site_verification_scheduled": true,
	"site_verification_failed":    true,
	"training_in_progress":        true,
	"activated":                   true,
	"rejected":                    true,
	"suspended":                   true,
}

// IsMilestone reports whether applicants are emailed when entering status.
func IsMilestone(status string) bool {
	return milestoneStatuses[status]
}

// OnboardingNotifier emails applicants when their application reaches a
// milestone status.
type OnboardingNotifier struct {
	composer   *Composer
	dispatcher *Dispatcher
	logger     *logging.Logger
}

func NewOnboardingNotifier(composer *Composer, dispatcher *Dispatcher, logger *logging.Logger) *OnboardingNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &OnboardingNotifier{composer: composer, dispatcher: dispatcher, logger: logger.Component("onboarding-notifier")}
}

// StatusChanged queues an applicant email for milestone statuses and ignores
// the rest.
func (n *OnboardingNotifier) StatusChanged(ctx context.Context, u OnboardingUpdate) {
	if n == nil || !IsMilestone(u.Status) || u.Email == "" {
		return
	}
	msg, err := n.composer.OnboardingStatus(u)
	if err != nil {
		n.logger.Error("compose onboarding email failed", "application_id", u.ApplicationID, "workflow", u.Workflow, "error", err)
		return
	}
	n.dispatcher.Dispatch(ctx, msg)
}
