package onboarding

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// DoctorDashboard summarizes the doctor onboarding pipeline.
type DoctorDashboard struct {
	TotalApplications   int `json:"total_applications"`
	PendingVerification int `json:"pending_verification"`
	PendingInterview    int `json:"pending_interview"`
	TrainingPending     int `json:"training_pending"`
	PendingTraining     int `json:"pending_training"`
	PendingActivation   int `json:"pending_activation"`
	ActivatedThisMonth  int `json:"activated_this_month"`
	RejectedThisMonth   int `json:"rejected_this_month"`
}

// ClinicDashboard summarizes the clinic onboarding pipeline.
type ClinicDashboard struct {
	TotalApplications       int `json:"total_applications"`
	PendingDocumentation    int `json:"pending_documentation"`
	PendingSiteVerification int `json:"pending_site_verification"`
	PendingContract         int `json:"pending_contract"`
	PendingSetup            int `json:"pending_setup"`
	PendingTraining         int `json:"pending_training"`
	PendingActivation       int `json:"pending_activation"`
	ActivatedThisMonth      int `json:"activated_this_month"`
}

const doctorDashboardSQL = `
SELECT count(*),
	count(*) FILTER (WHERE status = ANY($1)),
	count(*) FILTER (WHERE status = ANY($2)),
	count(*) FILTER (WHERE status = 'training_pending'),
	count(*) FILTER (WHERE status = ANY($3)),
	count(*) FILTER (WHERE status = ANY($4)),
	count(*) FILTER (WHERE status = 'activated' AND activated_at >= $6),
	count(*) FILTER (WHERE status = ANY($5) AND rejected_at >= $6)
FROM doctor_onboarding_applications`

const clinicDashboardSQL = `
SELECT count(*),
	count(*) FILTER (WHERE status = ANY($1)),
	count(*) FILTER (WHERE status = ANY($2)),
	count(*) FILTER (WHERE status = ANY($3)),
	count(*) FILTER (WHERE status = ANY($4)),
	count(*) FILTER (WHERE status = ANY($5)),
	count(*) FILTER (WHERE status = ANY($6)),
	count(*) FILTER (WHERE status = 'activated' AND activated_at >= $7)
FROM clinic_onboarding_applications`

// Dashboard runs the admin reporting queries.
type Dashboard struct {
	db  *sql.DB
	now func() time.Time
}

func NewDashboard(db *sql.DB) *Dashboard {
	return &Dashboard{db: db, now: time.Now}
}

func (d *Dashboard) monthStart() time.Time {
	now := d.now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func statusSet[S ~string](statuses ...S) any {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return pq.Array(out)
}

func (d *Dashboard) Doctor(ctx context.Context) (*DoctorDashboard, error) {
	var out DoctorDashboard
	err := d.db.QueryRowContext(ctx, doctorDashboardSQL,
		statusSet(DoctorSubmitted, DoctorVerificationPending),
		statusSet(DoctorVerificationApproved, DoctorInterviewScheduled, DoctorInterviewCompleted),
		statusSet(DoctorInterviewPassed, DoctorTrainingPending, DoctorTrainingInProgress),
		statusSet(DoctorTrainingCompleted, DoctorActivationPending),
		statusSet(DoctorRejected, DoctorVerificationRejected, DoctorInterviewFailed),
		d.monthStart(),
	).Scan(
		&out.TotalApplications, &out.PendingVerification, &out.PendingInterview, &out.TrainingPending,
		&out.PendingTraining, &out.PendingActivation, &out.ActivatedThisMonth, &out.RejectedThisMonth,
	)
	if err != nil {
		return nil, fmt.Errorf("onboarding: doctor dashboard: %w", err)
	}
	return &out, nil
}

func (d *Dashboard) Clinic(ctx context.Context) (*ClinicDashboard, error) {
	var out ClinicDashboard
	err := d.db.QueryRowContext(ctx, clinicDashboardSQL,
		statusSet(ClinicSubmitted, ClinicDocumentationPending),
		statusSet(ClinicDocumentationApproved, ClinicSiteVerificationPending, ClinicSiteVerificationScheduled, ClinicSiteVerificationCompleted),
		statusSet(ClinicSiteVerificationPassed, ClinicContractPending),
		statusSet(ClinicContractSigned, ClinicSetupPending),
		statusSet(ClinicSetupCompleted, ClinicTrainingPending, ClinicTrainingInProgress),
		statusSet(ClinicTrainingCompleted, ClinicActivationPending),
		d.monthStart(),
	).Scan(
		&out.TotalApplications, &out.PendingDocumentation, &out.PendingSiteVerification, &out.PendingContract,
		&out.PendingSetup, &out.PendingTraining, &out.PendingActivation, &out.ActivatedThisMonth,
	)
	if err != nil {
		return nil, fmt.Errorf("onboarding: clinic dashboard: %w", err)
	}
	return &out, nil
}
