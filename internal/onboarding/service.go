package onboarding

import (
	"fmt"
	"strings"
	"time"

	"github.com/meesalavenugopal/novacare247/internal/activitylog"
)

// ApplicantActor is the unauthenticated applicant editing their own draft.
var ApplicantActor = Actor{Type: activitylog.ActorHuman}

// PublicStatus is what an applicant sees when checking their application.
type PublicStatus struct {
	ID           int64      `json:"id"`
	Status       string     `json:"status"`
	SubmittedAt  *time.Time `json:"submitted_at"`
	CurrentStage StageInfo  `json:"current_stage"`
}

// requireHuman guards checkpoints that automated actors may not pass.
func requireHuman(a Actor) error {
	if a.Type != activitylog.ActorHuman || a.ID == nil {
		return ErrHumanRequired
	}
	return nil
}

// advisoryActor attributes an advisory result to the AI on behalf of the
// reviewer who requested it.
func advisoryActor(requestedBy Actor) Actor {
	return Actor{ID: requestedBy.ID, Type: activitylog.ActorAI}
}

func missingFields(required []string, values map[string]string) error {
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(values[f]) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

func validScore(field string, score *int) error {
	if score == nil {
		return nil
	}
	if *score < 0 || *score > 100 {
		return invalidField(field, "must be between 0 and 100")
	}
	return nil
}

func createdEntry(status string) activitylog.Entry {
	return activitylog.Entry{
		Action:          activitylog.ActionCreated,
		NewValue:        &status,
		PerformedByType: activitylog.ActorSystem,
		Notes:           "Application created",
	}
}

func scoreNote(prefix string, score *int) string {
	if score == nil {
		return prefix
	}
	return fmt.Sprintf("%s. Score: %d/100", prefix, *score)
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not specified"
	}
	return s
}

func publicStatus[S ~string](g *Graph[S], id int64, status S, submittedAt *time.Time) *PublicStatus {
	return &PublicStatus{
		ID:           id,
		Status:       string(status),
		SubmittedAt:  submittedAt,
		CurrentStage: g.Describe(status),
	}
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
