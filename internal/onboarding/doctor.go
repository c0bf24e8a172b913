package onboarding

import (
	"net/mail"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/meesalavenugopal/novacare247/internal/advisory"
	"github.com/meesalavenugopal/novacare247/internal/db"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

// Certification is an additional qualification listed by a doctor applicant.
type Certification struct {
	Name        string `json:"name"`
	Issuer      string `json:"issuer,omitempty"`
	Year        int    `json:"year,omitempty"`
	DocumentURL string `json:"document_url,omitempty"`
}

// DoctorApplication is one physiotherapist's onboarding record.
type DoctorApplication struct {
	ID int64 `json:"id"`

	FullName                 string          `json:"full_name"`
	Email                    string          `json:"email"`
	Phone                    string          `json:"phone"`
	DateOfBirth              *time.Time      `json:"date_of_birth"`
	Gender                   string          `json:"gender"`
	Address                  string          `json:"address"`
	City                     string          `json:"city"`
	State                    string          `json:"state"`
	Country                  string          `json:"country"`
	Pincode                  string          `json:"pincode"`
	ProfileImage             string          `json:"profile_image"`
	Specialization           string          `json:"specialization"`
	Qualification            string          `json:"qualification"`
	ExperienceYears          int             `json:"experience_years"`
	CurrentEmployer          string          `json:"current_employer"`
	LicenseNumber            string          `json:"license_number"`
	LicenseIssuingAuthority  string          `json:"license_issuing_authority"`
	LicenseExpiryDate        *time.Time      `json:"license_expiry_date"`
	LicenseDocumentURL       string          `json:"license_document_url"`
	DegreeCertificateURL     string          `json:"degree_certificate_url"`
	AdditionalCertifications []Certification `json:"additional_certifications"`
	PreferredBranchID        *int64          `json:"preferred_branch_id"`

	Status      DoctorStatus `json:"status"`
	SubmittedAt *time.Time   `json:"submitted_at"`

	AIVerificationScore       *int                 `json:"ai_verification_score"`
	AIVerification            *advisory.Assessment `json:"ai_verification_notes"`
	AIVerificationCompletedAt *time.Time           `json:"ai_verification_completed_at"`
	VerifiedBy                *int64               `json:"verified_by"`
	VerificationNotes         string               `json:"verification_notes"`
	VerifiedAt                *time.Time           `json:"verified_at"`

	InterviewScheduledAt *time.Time                   `json:"interview_scheduled_at"`
	InterviewMeetingLink string                       `json:"interview_meeting_link"`
	InterviewNotes       string                       `json:"interview_notes"`
	AIInterviewQuestions []advisory.InterviewQuestion `json:"ai_interview_questions"`
	InterviewScore       *int                         `json:"interview_score"`
	InterviewConductedBy *int64                       `json:"interview_conducted_by"`
	InterviewCompletedAt *time.Time                   `json:"interview_completed_at"`

	TrainingStartedAt        *time.Time `json:"training_started_at"`
	TrainingModulesCompleted []int64    `json:"training_modules_completed"`
	TrainingCompletedAt      *time.Time `json:"training_completed_at"`
	TrainingScore            *int       `json:"training_score"`

	ActivatedBy     *int64     `json:"activated_by"`
	ActivatedAt     *time.Time `json:"activated_at"`
	ActivationNotes string     `json:"activation_notes"`
	DoctorID        *int64     `json:"doctor_id"`

	RejectionReason string     `json:"rejection_reason"`
	RejectedBy      *int64     `json:"rejected_by"`
	RejectedAt      *time.Time `json:"rejected_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *DoctorApplication) requiredValues() map[string]string {
	return map[string]string{
		"full_name":      a.FullName,
		"email":          a.Email,
		"phone":          a.Phone,
		"specialization": a.Specialization,
		"qualification":  a.Qualification,
		"license_number": a.LicenseNumber,
	}
}

func (a *DoctorApplication) credentialProfile() advisory.CredentialProfile {
	p := advisory.CredentialProfile{
		FullName:                a.FullName,
		Specialization:          a.Specialization,
		Qualification:           a.Qualification,
		ExperienceYears:         a.ExperienceYears,
		CurrentEmployer:         a.CurrentEmployer,
		LicenseNumber:           a.LicenseNumber,
		LicenseIssuingAuthority: a.LicenseIssuingAuthority,
		HasLicenseDocument:      a.LicenseDocumentURL != "",
		HasDegreeCertificate:    a.DegreeCertificateURL != "",
		AdditionalCertificates:  len(a.AdditionalCertifications),
	}
	if a.LicenseExpiryDate != nil {
		p.LicenseExpiry = a.LicenseExpiryDate.Format(dateLayout)
	}
	return p
}

const dateLayout = "2006-01-02"

// DoctorApplicationInput is the applicant-editable part of a doctor application.
// Dates are YYYY-MM-DD.
type DoctorApplicationInput struct {
	FullName                 string          `json:"full_name"`
	Email                    string          `json:"email"`
	Phone                    string          `json:"phone"`
	DateOfBirth              string          `json:"date_of_birth"`
	Gender                   string          `json:"gender"`
	Address                  string          `json:"address"`
	City                     string          `json:"city"`
	State                    string          `json:"state"`
	Country                  string          `json:"country"`
	Pincode                  string          `json:"pincode"`
	ProfileImage             string          `json:"profile_image"`
	Specialization           string          `json:"specialization"`
	Qualification            string          `json:"qualification"`
	ExperienceYears          int             `json:"experience_years"`
	CurrentEmployer          string          `json:"current_employer"`
	LicenseNumber            string          `json:"license_number"`
	LicenseIssuingAuthority  string          `json:"license_issuing_authority"`
	LicenseExpiryDate        string          `json:"license_expiry_date"`
	LicenseDocumentURL       string          `json:"license_document_url"`
	DegreeCertificateURL     string          `json:"degree_certificate_url"`
	AdditionalCertifications []Certification `json:"additional_certifications"`
	PreferredBranchID        *int64          `json:"preferred_branch_id"`
}

func (in DoctorApplicationInput) applyTo(a *DoctorApplication) error {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return err
	}
	dob, err := parseDate("date_of_birth", in.DateOfBirth)
	if err != nil {
		return err
	}
	expiry, err := parseDate("license_expiry_date", in.LicenseExpiryDate)
	if err != nil {
		return err
	}
	if in.ExperienceYears < 0 {
		return invalidField("experience_years", "must not be negative")
	}

	a.FullName = strings.TrimSpace(in.FullName)
	a.Email = email
	a.Phone = strings.TrimSpace(in.Phone)
	a.DateOfBirth = dob
	a.Gender = strings.TrimSpace(in.Gender)
	a.Address = strings.TrimSpace(in.Address)
	a.City = strings.TrimSpace(in.City)
	a.State = strings.TrimSpace(in.State)
	a.Country = orDefault(strings.TrimSpace(in.Country), "India")
	a.Pincode = strings.TrimSpace(in.Pincode)
	a.ProfileImage = strings.TrimSpace(in.ProfileImage)
	a.Specialization = strings.TrimSpace(in.Specialization)
	a.Qualification = strings.TrimSpace(in.Qualification)
	a.ExperienceYears = in.ExperienceYears
	a.CurrentEmployer = strings.TrimSpace(in.CurrentEmployer)
	a.LicenseNumber = strings.TrimSpace(in.LicenseNumber)
	a.LicenseIssuingAuthority = strings.TrimSpace(in.LicenseIssuingAuthority)
	a.LicenseExpiryDate = expiry
	a.LicenseDocumentURL = strings.TrimSpace(in.LicenseDocumentURL)
	a.DegreeCertificateURL = strings.TrimSpace(in.DegreeCertificateURL)
	a.AdditionalCertifications = in.AdditionalCertifications
	if a.AdditionalCertifications == nil {
		a.AdditionalCertifications = []Certification{}
	}
	a.PreferredBranchID = in.PreferredBranchID
	return nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", invalidField("email", "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", invalidField("email", "malformed email")
	}
	return email, nil
}

func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, invalidField(field, "expected YYYY-MM-DD")
	}
	return &t, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

var doctorColumns = []string{
	"full_name", "email", "phone", "date_of_birth", "gender", "address", "city", "state", "country", "pincode",
	"profile_image", "specialization", "qualification", "experience_years", "current_employer", "license_number",
	"license_issuing_authority", "license_expiry_date", "license_document_url", "degree_certificate_url",
	"additional_certifications", "preferred_branch_id", "status", "submitted_at", "ai_verification_score",
	"ai_verification_notes", "ai_verification_completed_at", "verified_by", "verification_notes", "verified_at",
	"interview_scheduled_at", "interview_meeting_link", "interview_notes", "ai_interview_questions",
	"interview_score", "interview_conducted_by", "interview_completed_at", "training_started_at",
	"training_modules_completed", "training_completed_at", "training_score", "activated_by", "activated_at",
	"activation_notes", "doctor_id", "rejection_reason", "rejected_by", "rejected_at",
}

func scanDoctorApplication(row pgx.Row, dec *jsonDecoder) (*DoctorApplication, error) {
	var (
		a                                  DoctorApplication
		status                             string
		certs, assessment, questions, mods []byte
	)
	err := row.Scan(
		&a.ID,
		&a.FullName, &a.Email, &a.Phone, &a.DateOfBirth, &a.Gender, &a.Address, &a.City, &a.State, &a.Country, &a.Pincode,
		&a.ProfileImage, &a.Specialization, &a.Qualification, &a.ExperienceYears, &a.CurrentEmployer, &a.LicenseNumber,
		&a.LicenseIssuingAuthority, &a.LicenseExpiryDate, &a.LicenseDocumentURL, &a.DegreeCertificateURL,
		&certs, &a.PreferredBranchID, &status, &a.SubmittedAt, &a.AIVerificationScore,
		&assessment, &a.AIVerificationCompletedAt, &a.VerifiedBy, &a.VerificationNotes, &a.VerifiedAt,
		&a.InterviewScheduledAt, &a.InterviewMeetingLink, &a.InterviewNotes, &questions,
		&a.InterviewScore, &a.InterviewConductedBy, &a.InterviewCompletedAt, &a.TrainingStartedAt,
		&mods, &a.TrainingCompletedAt, &a.TrainingScore, &a.ActivatedBy, &a.ActivatedAt,
		&a.ActivationNotes, &a.DoctorID, &a.RejectionReason, &a.RejectedBy, &a.RejectedAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = DoctorStatus(status)
	a.AdditionalCertifications = decodeSlice[Certification](dec, certs, "additional_certifications")
	a.AIVerification = decodePtr[advisory.Assessment](dec, assessment, "ai_verification_notes")
	a.AIInterviewQuestions = decodeSlice[advisory.InterviewQuestion](dec, questions, "ai_interview_questions")
	a.TrainingModulesCompleted = decodeSlice[int64](dec, mods, "training_modules_completed")
	return &a, nil
}

func doctorValues(a *DoctorApplication) ([]any, error) {
	certs, err := encodeSlice(a.AdditionalCertifications)
	if err != nil {
		return nil, err
	}
	assessment, err := encodePtr(a.AIVerification)
	if err != nil {
		return nil, err
	}
	questions, err := encodeSlice(a.AIInterviewQuestions)
	if err != nil {
		return nil, err
	}
	mods, err := encodeSlice(a.TrainingModulesCompleted)
	if err != nil {
		return nil, err
	}
	return []any{
		a.FullName, a.Email, a.Phone, a.DateOfBirth, a.Gender, a.Address, a.City, a.State, a.Country, a.Pincode,
		a.ProfileImage, a.Specialization, a.Qualification, a.ExperienceYears, a.CurrentEmployer, a.LicenseNumber,
		a.LicenseIssuingAuthority, a.LicenseExpiryDate, a.LicenseDocumentURL, a.DegreeCertificateURL,
		certs, a.PreferredBranchID, string(a.Status), a.SubmittedAt, a.AIVerificationScore,
		assessment, a.AIVerificationCompletedAt, a.VerifiedBy, a.VerificationNotes, a.VerifiedAt,
		a.InterviewScheduledAt, a.InterviewMeetingLink, a.InterviewNotes, questions,
		a.InterviewScore, a.InterviewConductedBy, a.InterviewCompletedAt, a.TrainingStartedAt,
		mods, a.TrainingCompletedAt, a.TrainingScore, a.ActivatedBy, a.ActivatedAt,
		a.ActivationNotes, a.DoctorID, a.RejectionReason, a.RejectedBy, a.RejectedAt,
	}, nil
}

// NewDoctorStore returns the Postgres store for doctor applications.
func NewDoctorStore(database db.DB, logger *logging.Logger) *PostgresStore[DoctorApplication] {
	return newPostgresStore(database, tableDef[DoctorApplication]{
		workflow:    WorkflowDoctor,
		table:       "doctor_onboarding_applications",
		columns:     doctorColumns,
		linkColumn:  "doctor_id",
		activeIndex: "doctor_applications_active_email_key",
		terminal:    DoctorGraph.TerminalStatuses(),
		scan:        scanDoctorApplication,
		values:      doctorValues,
		id:          func(a *DoctorApplication) int64 { return a.ID },
	}, logger)
}

// DoctorWorkflow binds DoctorGraph to DoctorApplication.
var DoctorWorkflow = Workflow[DoctorApplication, DoctorStatus]{
	Graph:     DoctorGraph,
	Status:    func(a *DoctorApplication) DoctorStatus { return a.Status },
	SetStatus: func(a *DoctorApplication, s DoctorStatus) { a.Status = s },
	ID:        func(a *DoctorApplication) int64 { return a.ID },
	Contact:   func(a *DoctorApplication) Contact { return Contact{Name: a.FullName, Email: a.Email} },
}
