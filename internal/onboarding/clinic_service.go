package onboarding

import (
	"context"
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

// DocumentAdvisor produces non-binding analysis of a clinic's paperwork.
type DocumentAdvisor interface {
	ReviewClinicDocuments(ctx context.Context, p advisory.ClinicProfile) (*advisory.Assessment, error)
}

// BranchProvisioner turns an activated clinic into a branch.
type BranchProvisioner interface {
	ProvisionBranch(ctx context.Context, q db.Querier, req provisioning.BranchRequest) (provisioning.Result, error)
	DeactivateBranch(ctx context.Context, q db.Querier, branchID int64) error
}

// ContractTerms are recorded when a partnership contract is signed.
type ContractTerms struct {
	DocumentURL string
	StartDate   *time.Time
	EndDate     *time.Time
	// Tier overrides the applied-for tier when set.
	Tier string
}

// SiteVisitResult is the outcome of a site verification. A nil Passed leaves
// the application in site_verification_completed.
type SiteVisitResult struct {
	Score  *int
	Notes  string
	Photos []string
	Passed *bool
}

// ClinicService exposes the clinic partner onboarding operations.
type ClinicService struct {
	store       Store[ClinicApplication]
	engine      *Engine[ClinicApplication, ClinicStatus]
	advisor     DocumentAdvisor
	provisioner BranchProvisioner
	logger      *logging.Logger
}

func NewClinicService(store Store[ClinicApplication], advisor DocumentAdvisor, provisioner BranchProvisioner, logger *logging.Logger, opts ...EngineOption) *ClinicService {
	if store == nil {
		panic("onboarding: clinic store cannot be nil")
	}
	if provisioner == nil {
		panic("onboarding: branch provisioner cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	opts = append([]EngineOption{WithEngineLogger(logger)}, opts...)
	return &ClinicService{
		store:       store,
		engine:      NewEngine(ClinicWorkflow, store, opts...),
		advisor:     advisor,
		provisioner: provisioner,
		logger:      logger.Component("clinic-onboarding"),
	}
}

type clinicStep = Step[ClinicApplication, ClinicStatus]

func (s *ClinicService) Create(ctx context.Context, in ClinicApplicationInput) (*ClinicApplication, error) {
	app := &ClinicApplication{Status: ClinicGraph.Initial(), SiteVerificationPhotos: []string{}, TrainingAttendees: []string{}}
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
	s.logger.Info("clinic application created", "application_id", created.ID, "tier", string(created.PartnershipTier))
	return created, nil
}

// UpdateDraft replaces the applicant-editable fields while in draft. A tier
// change recomputes the commission rate.
func (s *ClinicService) UpdateDraft(ctx context.Context, id int64, in ClinicApplicationInput) (*ClinicApplication, error) {
	return s.engine.Run(ctx, id, clinicStep{
		Name:    "update_draft",
		InPlace: true,
		Action:  "application_updated",
		Apply: func(_ context.Context, _ db.Querier, app *ClinicApplication, _ time.Time) (ClinicStatus, string, error) {
			if app.Status != ClinicDraft {
				return "", "", ErrNotEditable
			}
			return app.Status, "", in.applyTo(app)
		},
	}, ApplicantActor, "")
}

func (s *ClinicService) Submit(ctx context.Context, id int64) (*ClinicApplication, error) {
	return s.engine.Run(ctx, id, clinicStep{
		Name:   "submit",
		From:   []ClinicStatus{ClinicDraft},
		Target: ClinicSubmitted,
		Apply: func(_ context.Context, _ db.Querier, app *ClinicApplication, now time.Time) (ClinicStatus, string, error) {
			if err := missingFields(ClinicGraph.Required(), app.requiredValues()); err != nil {
				return "", "", err
			}
			app.SubmittedAt = &now
			return ClinicSubmitted, "Application submitted", nil
		},
	}, SystemActor, "")
}

func (s *ClinicService) PublicStatus(ctx context.Context, id int64, email string) (*PublicStatus, error) {
	app, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sameEmail(app.Email, email) {
		return nil, ErrNotFound
	}
	return publicStatus(ClinicGraph, app.ID, app.Status, app.SubmittedAt), nil
}

func (s *ClinicService) Get(ctx context.Context, id int64) (*ClinicApplication, error) {
	return s.store.Get(ctx, id)
}

func (s *ClinicService) GetByBranch(ctx context.Context, branchID int64) (*ClinicApplication, error) {
	return s.store.GetByLink(ctx, branchID)
}

func (s *ClinicService) List(ctx context.Context, f ListFilter) ([]ClinicApplication, error) {
	for _, raw := range f.Statuses {
		if _, err := ClinicGraph.Parse(raw); err != nil {
			return nil, err
		}
	}
	return s.store.List(ctx, f)
}

func (s *ClinicService) Logs(ctx context.Context, id int64) ([]activitylog.Entry, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Logs(ctx, id)
}

// RunDocumentAdvisory reviews the clinic's documents and parks the application
// in documentation_pending, whether or not the advisor answered.
func (s *ClinicService) RunDocumentAdvisory(ctx context.Context, id int64, actor Actor) (*ClinicApplication, error) {
	accepted := []ClinicStatus{ClinicSubmitted, ClinicDocumentationPending}
	app, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(accepted, app.Status) {
		return nil, ClinicGraph.refuse("ai_review", app.Status, ClinicDocumentationPending)
	}

	assessment := advisory.UnavailableAssessment()
	if s.advisor != nil {
		got, err := s.advisor.ReviewClinicDocuments(ctx, app.clinicProfile())
		if err != nil || got == nil {
			s.logger.Warn("document advisory unavailable", "application_id", id, "error", err)
		} else {
			assessment = got
		}
	}

	return s.engine.Run(ctx, id, clinicStep{
		Name:   "ai_review",
		From:   accepted,
		Target: ClinicDocumentationPending,
		Apply: func(_ context.Context, _ db.Querier, app *ClinicApplication, now time.Time) (ClinicStatus, string, error) {
			app.AIReview = assessment
			app.AIReviewScore = assessment.Score
			if assessment.Unavailable {
				return ClinicDocumentationPending, advisory.UnavailableNote, nil
			}
			app.AIReviewCompletedAt = &now
			return ClinicDocumentationPending, scoreNote("AI document review completed", assessment.Score) + ". Awaiting human approval", nil
		},
	}, advisoryActor(actor), "")
}

// VerifyDocumentation is the human documentation decision.
func (s *ClinicService) VerifyDocumentation(ctx context.Context, id int64, actor Actor, approved bool, notes string) (*ClinicApplication, error) {
	if err := requireHuman(actor); err != nil {
		return nil, err
	}
	target := ClinicDocumentationApproved
	if !approved {
		target = ClinicDocumentationRejected
	}
	return s.engine.Run(ctx, id, clinicStep{
		Name:   "verify_documentation",
		From:   []ClinicStatus{ClinicSubmitted, ClinicDocumentationPending},
		Target: target,
		Apply: func(_ context.Context, _ db.Querier, app *ClinicApplication, now time.Time) (ClinicStatus, string, error) {
			app.DocumentationVerifiedBy = actor.ID
			app.DocumentationNotes = notes
			app.DocumentationVerifiedAt = &now
			if approved {
				return target, "Documentation approved. Notes: " + orNotSpecified(notes), nil
			}
			app.RejectionReason = notes
			app.RejectedBy = actor.ID
			app.RejectedAt = &now
			return target, "Documentation rejected. Reason: " + orNotSpecified(notes), nil
		},
	}, actor, "")
}

func (s *ClinicService) ScheduleSiteVerification(ctx context.Context, id int64, actor Actor, at time.Time, visitType string) (*ClinicApplication, error) {
	if err := requireHuman(actor); err != nil {
		return nil, err
	}
	if at.IsZero() {
		return nil, invalidField("scheduled_at", "scheduled_at is required")
	}
	visitType = strings.ToLower(strings.TrimSpace(visitType))
	if visitType == "" {
		visitType = SiteVisitPhysical
	}
	if visitType != SiteVisitPhysical && visitType != SiteVisitVirtual {
		return nil, invalidField("verification_type", "must be virtual or physical")
	}
	return s.engine.Run(ctx, id, clinicStep{
		Name:   "schedule_site_verification",
		From:   []ClinicStatus{ClinicSiteVerificationPending},
		Target: ClinicSiteVerificationScheduled,
		Apply: func(_ context.Context, _ db.Querier, app *ClinicApplication, _ time.Time) (ClinicStatus, string, error) {
			scheduled := at.UTC()
			app.SiteVerificationScheduledAt = &scheduled
			app.SiteVerificationType = visitType
			return ClinicSiteVerificationScheduled,
				fmt.Sprintf("Site verification (%s) scheduled for %s", visitType, scheduled.Format(time.RFC3339)), nil
		},
	}, actor, "")
}

func (s *ClinicService) CompleteSiteVerification(ctx context.Context, id int64, actor Actor, res SiteVisitResult) (*ClinicApplication, error) {
	if err := requireHuman(actor); err != nil {
		return nil, err
	}
	if err := validScore("score", res.Score); err != nil {
		return nil, err
	}
	target := ClinicSiteVerificationCompleted
	if res.Passed != nil {
		target = ClinicSiteVerificationFailed
		if *res.Passed {
			target = ClinicSiteVerificationPassed
		}
	}
	return s.engine.Run(ctx, id, clinicStep{
		Name:   "complete_site_verification",
		From:   []ClinicStatus{ClinicSiteVerificationScheduled, ClinicSiteVerificationCompleted},
		Target: target,
		Apply: func(_ context.Context, _ db.Querier, app *ClinicApplication, now time.Time) (ClinicStatus, string, error) {
			if res.Score != nil {
				app.SiteVerificationScore = res.Score
			}
			if res.Notes != "" {
				app.SiteVerificationNotes = res.Notes
			}
			if len(res.Photos) > 0 {
				app.SiteVerificationPhotos = res.Photos
			}
			app.SiteVerifiedBy = actor.ID
			app.SiteVerifiedAt = &now
			switch target {
			case ClinicSiteVerificationPassed:
				return target, scoreNote("Site verification passed", app.SiteVerificationScore), nil
			case ClinicSiteVerificationFailed:
				app.RejectionReason = res.Notes
				app.RejectedBy = actor.ID
				app.RejectedAt = &now
				return target, "Site verification failed: " + orNotSpecified(res.Notes), nil
			}
			return target, scoreNote("Site verification completed", app.SiteVerificationScore), nil
		},
	}, actor, "")
}

// SignContract records the contract and recomputes the commission rate.
func (s *ClinicService) SignContract(ctx context.Context, id int64, actor Actor, terms ContractTerms) (*ClinicApplication, error) {
	if err := requireHuman(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(terms.DocumentURL) == "" {
		return nil, invalidField("contract_document_url", "contract document is required")
	}
	if terms.StartDate != nil && terms.EndDate != nil && terms.EndDate.Before(*terms.StartDate) {
		return nil, invalidField("end_date", "must not be before start_date")
	}
	var override PartnershipTier
	if strings.TrimSpace(terms.Tier) != "" {
		tier, err := parseTier(terms.Tier)
		if err != nil {
			return nil, err
		}
		override = tier
	}
	return s.engine.Run(ctx, id, clinicStep{
		Name:   "sign_contract",
		From:   []ClinicStatus{ClinicContractPending},
		Target: ClinicContractSigned,
		Apply: func(_ context.Context, _ db.Querier, app *ClinicApplication, now time.Time) (ClinicStatus, string, error) {
			app.ContractDocumentURL = strings.TrimSpace(terms.DocumentURL)
			app.ContractStartDate = terms.StartDate
			app.ContractEndDate = terms.EndDate
			app.ContractSignedAt = &now
			if override != "" {
				app.PartnershipTier = override
			}
			app.CommissionRate = app.PartnershipTier.CommissionRate()
			return ClinicContractSigned,
				fmt.Sprintf("Contract signed. Tier: %s, Commission: %d%%", app.PartnershipTier, app.CommissionRate), nil
		},
	}, actor, "")
}

func (s *ClinicService) CompleteSetup(ctx context.Context, id int64, actor Actor, notes string) (*ClinicApplication, error) {
	if err := requireHuman(actor); err != nil {
		return nil, err
	}
	return s.engine.Run(ctx, id, clinicStep{
		Name:   "complete_setup",
		From:   []ClinicStatus{ClinicSetupPending},
		Target: ClinicSetupCompleted,
		Apply: func(_ context.Context, _ db.Querier, app *ClinicApplication, now time.Time) (ClinicStatus, string, error) {
			app.SetupCompletedBy = actor.ID
			app.SetupCompletedAt = &now
			app.SetupNotes = notes
			if strings.TrimSpace(notes) == "" {
				return ClinicSetupCompleted, "Platform setup completed", nil
			}
			return ClinicSetupCompleted, "", nil
		},
	}, actor, notes)
}

// ScheduleTraining books staff training; the application is considered in
// training from this point.
func (s *ClinicService) ScheduleTraining(ctx context.Context, id int64, actor Actor, at time.Time, attendees []string) (*ClinicApplication, error) {
	if err := requireHuman(actor); err != nil {
		return nil, err
	}
	if at.IsZero() {
		return nil, invalidField("scheduled_at", "scheduled_at is required")
	}
	var names []string
	for _, a := range attendees {
		if a = strings.TrimSpace(a); a != "" {
			names = append(names, a)
		}
	}
	return s.engine.Run(ctx, id, clinicStep{
		Name:   "schedule_training",
		From:   []ClinicStatus{ClinicTrainingPending},
		Target: ClinicTrainingInProgress,
		Apply: func(_ context.Context, _ db.Querier, app *ClinicApplication, _ time.Time) (ClinicStatus, string, error) {
			scheduled := at.UTC()
			app.TrainingScheduledAt = &scheduled
			app.TrainingAttendees = nonNil(names)
			return ClinicTrainingInProgress,
				fmt.Sprintf("Training scheduled for %s with %d attendees", scheduled.Format(time.RFC3339), len(names)), nil
		},
	}, actor, "")
}

func (s *ClinicService) CompleteTraining(ctx context.Context, id int64, actor Actor, score *int, notes string) (*ClinicApplication, error) {
	if err := requireHuman(actor); err != nil {
		return nil, err
	}
	if err := validScore("score", score); err != nil {
		return nil, err
	}
	return s.engine.Run(ctx, id, clinicStep{
		Name:   "complete_training",
		From:   []ClinicStatus{ClinicTrainingInProgress},
		Target: ClinicTrainingCompleted,
		Apply: func(_ context.Context, _ db.Querier, app *ClinicApplication, now time.Time) (ClinicStatus, string, error) {
			app.TrainingCompletedAt = &now
			app.TrainingScore = score
			app.TrainingNotes = notes
			return ClinicTrainingCompleted, scoreNote("Training completed", score), nil
		},
	}, actor, "")
}

// Activate is the final human approval. Approval provisions a branch; a
// declined activation holds the application in activation_pending.
func (s *ClinicService) Activate(ctx context.Context, id int64, actor Actor, approved bool, notes string) (*ClinicApplication, *provisioning.Result, error) {
	if err := requireHuman(actor); err != nil {
		return nil, nil, err
	}
	target := ClinicActivated
	if !approved {
		target = ClinicActivationPending
	}

	var result *provisioning.Result
	app, err := s.engine.Run(ctx, id, clinicStep{
		Name:   "activate",
		From:   []ClinicStatus{ClinicActivationPending},
		Target: target,
		Apply: func(ctx context.Context, q db.Querier, app *ClinicApplication, now time.Time) (ClinicStatus, string, error) {
			if !approved {
				if strings.TrimSpace(notes) == "" {
					return ClinicActivationPending, "Activation pending - requires review", nil
				}
				return ClinicActivationPending, "", nil
			}
			res, err := s.provisioner.ProvisionBranch(ctx, q, provisioning.BranchRequest{
				ApplicationID: app.ID,
				Name:          app.ClinicName,
				Email:         app.Email,
				Phone:         app.Phone,
				Address:       app.Address,
				City:          app.City,
				State:         app.State,
				Country:       app.Country,
				Pincode:       app.Pincode,
				Latitude:      app.Latitude,
				Longitude:     app.Longitude,
				BusinessHours: app.OperatingHours,
			})
			if err != nil {
				return "", "", provisioningFailure(err)
			}
			result = &res
			branchID := res.ProfileID
			app.BranchID = &branchID
			app.ActivatedBy = actor.ID
			app.ActivatedAt = &now
			app.ActivationNotes = notes
			return ClinicActivated, fmt.Sprintf("Clinic activated and linked to branch %d", branchID), nil
		},
	}, actor, notes)
	if err != nil {
		return nil, nil, err
	}
	if result != nil {
		s.logger.Info("branch provisioned", "application_id", id, "branch_id", result.ProfileID, "created", result.CreatedProfile)
	}
	return app, result, nil
}

func (s *ClinicService) Reject(ctx context.Context, id int64, actor Actor, reason string) (*ClinicApplication, error) {
	if err := requireHuman(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, invalidField("reason", "reason is required")
	}
	return s.engine.Run(ctx, id, clinicStep{
		Name:   "reject",
		Target: ClinicRejected,
		Apply: func(_ context.Context, _ db.Querier, app *ClinicApplication, now time.Time) (ClinicStatus, string, error) {
			app.RejectionReason = reason
			app.RejectedBy = actor.ID
			app.RejectedAt = &now
			return ClinicRejected, "Application rejected. Reason: " + reason, nil
		},
	}, actor, "")
}

// Suspend takes an activated clinic's branch offline. It is one-way.
func (s *ClinicService) Suspend(ctx context.Context, id int64, actor Actor, reason string) (*ClinicApplication, error) {
	if err := requireHuman(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, invalidField("reason", "reason is required")
	}
	return s.engine.Run(ctx, id, clinicStep{
		Name:   "suspend",
		From:   []ClinicStatus{ClinicActivated},
		Target: ClinicSuspended,
		Apply: func(ctx context.Context, q db.Querier, app *ClinicApplication, now time.Time) (ClinicStatus, string, error) {
			if app.BranchID != nil {
				if err := s.provisioner.DeactivateBranch(ctx, q, *app.BranchID); err != nil {
					return "", "", provisioningFailure(err)
				}
			}
			app.RejectionReason = reason
			app.RejectedBy = actor.ID
			app.RejectedAt = &now
			return ClinicSuspended, "Clinic suspended. Reason: " + reason, nil
		},
	}, actor, "")
}
