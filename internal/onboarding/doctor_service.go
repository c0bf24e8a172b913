package onboarding

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/meesalavenugopal/novacare247/internal/activitylog"
	"github.com/meesalavenugopal/novacare247/internal/advisory"
	"github.com/meesalavenugopal/novacare247/internal/db"
	"github.com/meesalavenugopal/novacare247/internal/provisioning"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

// CredentialAdvisor produces non-binding analysis of a doctor applicant.
type CredentialAdvisor interface {
	AssessCredentials(ctx context.Context, p advisory.CredentialProfile) (*advisory.Assessment, error)
	InterviewQuestions(ctx context.Context, p advisory.CredentialProfile) ([]advisory.InterviewQuestion, error)
}

// DoctorProvisioner turns an activated application into an account and profile.
type DoctorProvisioner interface {
	ProvisionDoctor(ctx context.Context, q db.Querier, req provisioning.DoctorRequest) (provisioning.Result, error)
	DeactivateDoctor(ctx context.Context, q db.Querier, doctorID int64) error
}

// DoctorService exposes the doctor onboarding operations.
type DoctorService struct {
	store       Store[DoctorApplication]
	engine      *Engine[DoctorApplication, DoctorStatus]
	advisor     CredentialAdvisor
	provisioner DoctorProvisioner
	logger      *logging.Logger
}

func NewDoctorService(store Store[DoctorApplication], advisor CredentialAdvisor, provisioner DoctorProvisioner, logger *logging.Logger, opts ...EngineOption) *DoctorService {
	if store == nil {
		panic("onboarding: doctor store cannot be nil")
	}
	if provisioner == nil {
		panic("onboarding: doctor provisioner cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	opts = append([]EngineOption{WithEngineLogger(logger)}, opts...)
	return &DoctorService{
		store:       store,
		engine:      NewEngine(DoctorWorkflow, store, opts...),
		advisor:     advisor,
		provisioner: provisioner,
		logger:      logger.Component("doctor-onboarding"),
	}
}

// Create opens a draft application.
func (s *DoctorService) Create(ctx context.Context, in DoctorApplicationInput) (*DoctorApplication, error) {
	app := &DoctorApplication{Status: DoctorGraph.Initial(), TrainingModulesCompleted: []int64{}}
	if err := in.applyTo(app); err != nil {
		return nil, err
	}
	active, err := s.store.HasActive(ctx, app.Email)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrDuplicateApplication
	}
	created, err := s.store.Create(ctx, app, createdEntry(string(app.Status)))
	if err != nil {
		return nil, err
	}
	s.logger.Info("doctor application created", "application_id", created.ID)
	return created, nil
}

// UpdateDraft replaces the applicant-editable fields while in draft.
func (s *DoctorService) UpdateDraft(ctx context.Context, id int64, in DoctorApplicationInput) (*DoctorApplication, error) {
	return s.engine.Run(ctx, id, Step[DoctorApplication, DoctorStatus]{
		Name:    "update_draft",
		InPlace: true,
		Action:  "application_updated",
		Apply: func(_ context.Context, _ db.Querier, app *DoctorApplication, _ time.Time) (DoctorStatus, string, error) {
			if app.Status != DoctorDraft {
				return "", "", ErrNotEditable
			}
			return app.Status, "", in.applyTo(app)
		},
	}, ApplicantActor, "")
}

// Submit validates required fields and moves the draft to submitted.
func (s *DoctorService) Submit(ctx context.Context, id int64) (*DoctorApplication, error) {
	return s.engine.Run(ctx, id, Step[DoctorApplication, DoctorStatus]{
		Name:   "submit",
		From:   []DoctorStatus{DoctorDraft},
		Target: DoctorSubmitted,
		Apply: func(_ context.Context, _ db.Querier, app *DoctorApplication, now time.Time) (DoctorStatus, string, error) {
			if err := missingFields(DoctorGraph.Required(), app.requiredValues()); err != nil {
				return "", "", err
			}
			app.SubmittedAt = &now
			return DoctorSubmitted, "Application submitted", nil
		},
	}, SystemActor, "")
}

// PublicStatus returns the applicant-facing status when email matches.
func (s *DoctorService) PublicStatus(ctx context.Context, id int64, email string) (*PublicStatus, error) {
	app, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sameEmail(app.Email, email) {
		return nil, ErrNotFound
	}
	return publicStatus(DoctorGraph, app.ID, app.Status, app.SubmittedAt), nil
}

func (s *DoctorService) Get(ctx context.Context, id int64) (*DoctorApplication, error) {
	return s.store.Get(ctx, id)
}

func (s *DoctorService) GetByDoctor(ctx context.Context, doctorID int64) (*DoctorApplication, error) {
	return s.store.GetByLink(ctx, doctorID)
}

func (s *DoctorService) List(ctx context.Context, f ListFilter) ([]DoctorApplication, error) {
	for _, raw := range f.Statuses {
		if _, err := DoctorGraph.Parse(raw); err != nil {
			return nil, err
		}
	}
	return s.store.List(ctx, f)
}

func (s *DoctorService) Logs(ctx context.Context, id int64) ([]activitylog.Entry, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Logs(ctx, id)
}

// RunCredentialAdvisory scores the applicant's credentials and parks the
// application in verification_pending. An unavailable advisor still moves the
// application, with a nil score and a note, so review can proceed manually.
func (s *DoctorService) RunCredentialAdvisory(ctx context.Context, id int64, actor Actor) (*DoctorApplication, error) {
	accepted := []DoctorStatus{DoctorSubmitted, DoctorVerificationPending}
	app, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(accepted, app.Status) {
		return nil, DoctorGraph.refuse("ai_verify", app.Status, DoctorVerificationPending)
	}

	assessment := s.assess(ctx, app)
	return s.engine.Run(ctx, id, Step[DoctorApplication, DoctorStatus]{
		Name:   "ai_verify",
		From:   accepted,
		Target: DoctorVerificationPending,
		Apply: func(_ context.Context, _ db.Querier, app *DoctorApplication, now time.Time) (DoctorStatus, string, error) {
			app.AIVerification = assessment
			app.AIVerificationScore = assessment.Score
			if assessment.Unavailable {
				return DoctorVerificationPending, advisory.UnavailableNote, nil
			}
			app.AIVerificationCompletedAt = &now
			return DoctorVerificationPending, scoreNote("AI verification completed", assessment.Score) + ". Awaiting human approval", nil
		},
	}, advisoryActor(actor), "")
}

func (s *DoctorService) assess(ctx context.Context, app *DoctorApplication) *advisory.Assessment {
	if s.advisor == nil {
		return advisory.UnavailableAssessment()
	}
	assessment, err := s.advisor.AssessCredentials(ctx, app.credentialProfile())
	if err != nil || assessment == nil {
		s.logger.Warn("credential advisory unavailable", "application_id", app.ID, "error", err)
		return advisory.UnavailableAssessment()
	}
	return assessment
}

// Verify is the human credential decision.
func (s *DoctorService) Verify(ctx context.Context, id int64, actor Actor, approved bool, notes string) (*DoctorApplication, error) {
	if err := requireHuman(actor); err != nil {
		return nil, err
	}
	target := DoctorVerificationApproved
	if !approved {
		target = DoctorVerificationRejected
	}
	return s.engine.Run(ctx, id, Step[DoctorApplication, DoctorStatus]{
		Name:   "verify",
		From:   []DoctorStatus{DoctorVerificationPending},
		Target: target,
		Apply: func(_ context.Context, _ db.Querier, app *DoctorApplication, now time.Time) (DoctorStatus, string, error) {
			app.VerifiedBy = actor.ID
			app.VerificationNotes = notes
			app.VerifiedAt = &now
			if approved {
				return target, "Credentials verified by admin. Notes: " + orNotSpecified(notes), nil
			}
			app.RejectionReason = notes
			app.RejectedBy = actor.ID
			app.RejectedAt = &now
			return target, "Credentials rejected. Reason: " + orNotSpecified(notes), nil
		},
	}, actor, "")
}

// GenerateInterviewQuestions stores advisory interview questions without
// changing status. It returns advisory.ErrUnavailable when none could be produced.
func (s *DoctorService) GenerateInterviewQuestions(ctx context.Context, id int64, actor Actor) (*DoctorApplication, error) {
	app, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.advisor == nil {
		return nil, advisory.ErrUnavailable
	}
	questions, err := s.advisor.InterviewQuestions(ctx, app.credentialProfile())
	if err != nil {
		s.logger.Warn("interview question generation unavailable", "application_id", id, "error", err)
		return nil, fmt.Errorf("%w: %v", advisory.ErrUnavailable, err)
	}
	return s.engine.Run(ctx, id, Step[DoctorApplication, DoctorStatus]{
		Name:    "generate_questions",
		InPlace: true,
		Action:  "interview_questions_generated",
		Apply: func(_ context.Context, _ db.Querier, app *DoctorApplication, _ time.Time) (DoctorStatus, string, error) {
			app.AIInterviewQuestions = questions
			return app.Status, fmt.Sprintf("Generated %d interview questions", len(questions)), nil
		},
	}, advisoryActor(actor), "")
}

// ScheduleInterview books the interview after verification.
func (s *DoctorService) ScheduleInterview(ctx context.Context, id int64, actor Actor, at time.Time, link string) (*DoctorApplication, error) {
	if err := requireHuman(actor); err != nil {
		return nil, err
	}
	if at.IsZero() {
		return nil, invalidField("scheduled_at", "scheduled_at is required")
	}
	return s.engine.Run(ctx, id, Step[DoctorApplication, DoctorStatus]{
		Name:   "schedule_interview",
		From:   []DoctorStatus{DoctorVerificationApproved},
		Target: DoctorInterviewScheduled,
		Apply: func(_ context.Context, _ db.Querier, app *DoctorApplication, _ time.Time) (DoctorStatus, string, error) {
			scheduled := at.UTC()
			app.InterviewScheduledAt = &scheduled
			app.InterviewMeetingLink = strings.TrimSpace(link)
			app.InterviewConductedBy = actor.ID
			return DoctorInterviewScheduled, "Interview scheduled for " + scheduled.Format(time.RFC3339), nil
		},
	}, actor, "")
}

// CompleteInterview records the interview. A nil passed parks the application
// in interview_completed for a later decision.
func (s *DoctorService) CompleteInterview(ctx context.Context, id int64, actor Actor, score *int, notes string, passed *bool) (*DoctorApplication, error) {
	if err := requireHuman(actor); err != nil {
		return nil, err
	}
	if err := validScore("score", score); err != nil {
		return nil, err
	}
	target := DoctorInterviewCompleted
	if passed != nil {
		target = DoctorInterviewFailed
		if *passed {
			target = DoctorInterviewPassed
		}
	}
	return s.engine.Run(ctx, id, Step[DoctorApplication, DoctorStatus]{
		Name:   "complete_interview",
		From:   []DoctorStatus{DoctorInterviewScheduled, DoctorInterviewCompleted},
		Target: target,
		Apply: func(_ context.Context, _ db.Querier, app *DoctorApplication, now time.Time) (DoctorStatus, string, error) {
			if score != nil {
				app.InterviewScore = score
			}
			if notes != "" {
				app.InterviewNotes = notes
			}
			app.InterviewConductedBy = actor.ID
			app.InterviewCompletedAt = &now
			switch target {
			case DoctorInterviewPassed:
				return target, scoreNote("Interview passed", app.InterviewScore), nil
			case DoctorInterviewFailed:
				app.RejectionReason = notes
				app.RejectedBy = actor.ID
				app.RejectedAt = &now
				return target, scoreNote("Interview not passed", app.InterviewScore), nil
			}
			return target, scoreNote("Interview completed", app.InterviewScore), nil
		},
	}, actor, "")
}

func (s *DoctorService) StartTraining(ctx context.Context, id int64, actor Actor) (*DoctorApplication, error) {
	if err := requireHuman(actor); err != nil {
		return nil, err
	}
	return s.engine.Run(ctx, id, Step[DoctorApplication, DoctorStatus]{
		Name:   "start_training",
		From:   []DoctorStatus{DoctorTrainingPending},
		Target: DoctorTrainingInProgress,
		Apply: func(_ context.Context, _ db.Querier, app *DoctorApplication, now time.Time) (DoctorStatus, string, error) {
			app.TrainingStartedAt = &now
			app.TrainingModulesCompleted = []int64{}
			return DoctorTrainingInProgress, "Training started", nil
		},
	}, actor, "")
}

func (s *DoctorService) CompleteTraining(ctx context.Context, id int64, actor Actor, score *int, modules []int64) (*DoctorApplication, error) {
	if err := requireHuman(actor); err != nil {
		return nil, err
	}
	if err := validScore("score", score); err != nil {
		return nil, err
	}
	return s.engine.Run(ctx, id, Step[DoctorApplication, DoctorStatus]{
		Name:   "complete_training",
		From:   []DoctorStatus{DoctorTrainingInProgress},
		Target: DoctorTrainingCompleted,
		Apply: func(_ context.Context, _ db.Querier, app *DoctorApplication, now time.Time) (DoctorStatus, string, error) {
			app.TrainingCompletedAt = &now
			app.TrainingScore = score
			if modules != nil {
				app.TrainingModulesCompleted = modules
			}
			return DoctorTrainingCompleted, scoreNote("Training completed", score), nil
		},
	}, actor, "")
}

// Activate is the final human approval. On approval it provisions the account
// and doctor profile inside the transaction; a declined activation rejects.
func (s *DoctorService) Activate(ctx context.Context, id int64, actor Actor, approved bool, notes string, branchID *int64) (*DoctorApplication, *provisioning.Result, error) {
	if err := requireHuman(actor); err != nil {
		return nil, nil, err
	}
	target := DoctorActivated
	if !approved {
		target = DoctorRejected
	}

	var result *provisioning.Result
	app, err := s.engine.Run(ctx, id, Step[DoctorApplication, DoctorStatus]{
		Name:   "activate",
		From:   []DoctorStatus{DoctorActivationPending},
		Target: target,
		Apply: func(ctx context.Context, q db.Querier, app *DoctorApplication, now time.Time) (DoctorStatus, string, error) {
			if !approved {
				app.RejectionReason = notes
				app.RejectedBy = actor.ID
				app.RejectedAt = &now
				return DoctorRejected, "Activation rejected. Reason: " + orNotSpecified(notes), nil
			}
			branch := branchID
			if branch == nil {
				branch = app.PreferredBranchID
			}
			res, err := s.provisioner.ProvisionDoctor(ctx, q, provisioning.DoctorRequest{
				ApplicationID:   app.ID,
				Email:           app.Email,
				FullName:        app.FullName,
				Phone:           app.Phone,
				Specialization:  app.Specialization,
				Qualification:   app.Qualification,
				ExperienceYears: app.ExperienceYears,
				ProfileImage:    app.ProfileImage,
				BranchID:        branch,
			})
			if err != nil {
				return "", "", provisioningFailure(err)
			}
			result = &res
			profileID := res.ProfileID
			app.DoctorID = &profileID
			app.ActivatedBy = actor.ID
			app.ActivatedAt = &now
			app.ActivationNotes = notes
			return DoctorActivated, fmt.Sprintf("Doctor activated. Profile ID: %d", profileID), nil
		},
	}, actor, "")
	if err != nil {
		return nil, nil, err
	}
	if result != nil {
		s.logger.Info("doctor provisioned",
			"application_id", id,
			"doctor_id", result.ProfileID,
			"created_account", result.CreatedAccount,
			"created_profile", result.CreatedProfile,
		)
	}
	return app, result, nil
}

// Reject moves any non-terminal application to rejected.
func (s *DoctorService) Reject(ctx context.Context, id int64, actor Actor, reason string) (*DoctorApplication, error) {
	if err := requireHuman(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, invalidField("reason", "reason is required")
	}
	return s.engine.Run(ctx, id, Step[DoctorApplication, DoctorStatus]{
		Name:   "reject",
		Target: DoctorRejected,
		Apply: func(_ context.Context, _ db.Querier, app *DoctorApplication, now time.Time) (DoctorStatus, string, error) {
			app.RejectionReason = reason
			app.RejectedBy = actor.ID
			app.RejectedAt = &now
			return DoctorRejected, "Application rejected. Reason: " + reason, nil
		},
	}, actor, "")
}

// Suspend takes an activated doctor offline. It is one-way.
func (s *DoctorService) Suspend(ctx context.Context, id int64, actor Actor, reason string) (*DoctorApplication, error) {
	if err := requireHuman(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, invalidField("reason", "reason is required")
	}
	return s.engine.Run(ctx, id, Step[DoctorApplication, DoctorStatus]{
		Name:   "suspend",
		From:   []DoctorStatus{DoctorActivated},
		Target: DoctorSuspended,
		Apply: func(ctx context.Context, q db.Querier, app *DoctorApplication, now time.Time) (DoctorStatus, string, error) {
			if app.DoctorID != nil {
				if err := s.provisioner.DeactivateDoctor(ctx, q, *app.DoctorID); err != nil {
					return "", "", provisioningFailure(err)
				}
			}
			app.RejectionReason = reason
			app.RejectedBy = actor.ID
			app.RejectedAt = &now
			return DoctorSuspended, "Doctor suspended. Reason: " + reason, nil
		},
	}, actor, "")
}

func provisioningFailure(err error) error {
	var stepErr *provisioning.StepError
	if errors.As(err, &stepErr) {
		return &ProvisioningError{Step: stepErr.Step, Err: stepErr.Err}
	}
	return &ProvisioningError{Step: "provision", Err: err}
}
