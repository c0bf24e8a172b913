package onboarding

import (
	"context"

	"github.com/meesalavenugopal/novacare247/internal/notify"
)

// StatusNotifier receives applicant-facing status updates.
type StatusNotifier interface {
	StatusChanged(ctx context.Context, u notify.OnboardingUpdate)
}

// ApplicantNotifications adapts a StatusNotifier to an engine Observer.
func ApplicantNotifications(n StatusNotifier) Observer {
	return ObserverFunc(func(ctx context.Context, t Transition) {
		n.StatusChanged(ctx, notify.OnboardingUpdate{
			Workflow:      t.Workflow,
			ApplicationID: t.ApplicationID,
			ApplicantName: t.Contact.Name,
			Email:         t.Contact.Email,
			Status:        t.To,
			StageName:     t.Stage.Name,
			Description:   t.Stage.Description,
			Notes:         t.Notes,
		})
	})
}
