package onboarding

import (
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/meesalavenugopal/novacare247/internal/advisory"
	"github.com/meesalavenugopal/novacare247/internal/db"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

// PartnershipTier sets a clinic's commission rate.
type PartnershipTier string

const (
	TierBasic   PartnershipTier = "basic"
	TierPartner PartnershipTier = "partner"
	TierPremium PartnershipTier = "premium"
)

// CommissionRate returns the platform commission percentage for the tier.
// Unknown tiers pay the basic rate.
func (t PartnershipTier) CommissionRate() int {
	switch t {
	case TierPartner:
		return 20
	case TierPremium:
		return 15
	default:
		return 25
	}
}

func parseTier(raw string) (PartnershipTier, error) {
	switch t := PartnershipTier(strings.ToLower(strings.TrimSpace(raw))); t {
	case "":
		return TierBasic, nil
	case TierBasic, TierPartner, TierPremium:
		return t, nil
	default:
		return "", invalidField("partnership_tier", "must be basic, partner or premium")
	}
}

// StaffCredential describes one practitioner on a clinic's staff.
type StaffCredential struct {
	Name            string `json:"name"`
	Role            string `json:"role,omitempty"`
	Qualification   string `json:"qualification,omitempty"`
	LicenseNumber   string `json:"license_number,omitempty"`
	ExperienceYears int    `json:"experience_years,omitempty"`
}

// Site verification modes.
const (
	SiteVisitVirtual  = "virtual"
	SiteVisitPhysical = "physical"
)

// ClinicApplication is one clinic's partner onboarding record.
type ClinicApplication struct {
	ID int64 `json:"id"`

	ClinicName         string `json:"clinic_name"`
	BusinessType       string `json:"business_type"`
	RegistrationNumber string `json:"registration_number"`
	GSTNumber          string `json:"gst_number"`
	EstablishedYear    *int   `json:"established_year"`
	OwnerName          string `json:"owner_name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	AlternatePhone     string `json:"alternate_phone"`
	Website            string `json:"website"`
	Address            string `json:"address"`
	City               string `json:"city"`
	State              string `json:"state"`
	Country            string `json:"country"`
	Pincode            string `json:"pincode"`
	Latitude           string `json:"latitude"`
	Longitude          string `json:"longitude"`

	TotalRooms            *int              `json:"total_rooms"`
	TreatmentRooms        *int              `json:"treatment_rooms"`
	HasParking            bool              `json:"has_parking"`
	HasWheelchairAccess   bool              `json:"has_wheelchair_access"`
	OperatingHours        string            `json:"operating_hours"`
	ServicesOffered       []string          `json:"services_offered"`
	EquipmentList         []string          `json:"equipment_list"`
	TotalPhysiotherapists int               `json:"total_physiotherapists"`
	StaffCredentials      []StaffCredential `json:"staff_credentials"`

	RegistrationCertificateURL string   `json:"registration_certificate_url"`
	GSTCertificateURL          string   `json:"gst_certificate_url"`
	OwnerIDProofURL            string   `json:"owner_id_proof_url"`
	FacilityPhotosURLs         []string `json:"facility_photos_urls"`
	InsuranceCertificateURL    string   `json:"insurance_certificate_url"`

	PartnershipTier PartnershipTier `json:"partnership_tier"`
	CommissionRate  int             `json:"commission_rate"`

	Status      ClinicStatus `json:"status"`
	SubmittedAt *time.Time   `json:"submitted_at"`

	AIReviewScore           *int                 `json:"ai_review_score"`
	AIReview                *advisory.Assessment `json:"ai_review_notes"`
	AIReviewCompletedAt     *time.Time           `json:"ai_review_completed_at"`
	DocumentationVerifiedBy *int64               `json:"documentation_verified_by"`
	DocumentationNotes      string               `json:"documentation_notes"`
	DocumentationVerifiedAt *time.Time           `json:"documentation_verified_at"`

	SiteVerificationScheduledAt *time.Time `json:"site_verification_scheduled_at"`
	SiteVerificationType        string     `json:"site_verification_type"`
	SiteVerificationNotes       string     `json:"site_verification_notes"`
	SiteVerificationPhotos      []string   `json:"site_verification_photos"`
	SiteVerificationScore       *int       `json:"site_verification_score"`
	SiteVerifiedBy              *int64     `json:"site_verified_by"`
	SiteVerifiedAt              *time.Time `json:"site_verified_at"`

	ContractDocumentURL string     `json:"contract_document_url"`
	ContractSignedAt    *time.Time `json:"contract_signed_at"`
	ContractStartDate   *time.Time `json:"contract_start_date"`
	ContractEndDate     *time.Time `json:"contract_end_date"`

	SetupCompletedBy *int64     `json:"setup_completed_by"`
	SetupCompletedAt *time.Time `json:"setup_completed_at"`
	SetupNotes       string     `json:"setup_notes"`

	TrainingScheduledAt *time.Time `json:"training_scheduled_at"`
	TrainingAttendees   []string   `json:"training_attendees"`
	TrainingCompletedAt *time.Time `json:"training_completed_at"`
	TrainingNotes       string     `json:"training_notes"`
	TrainingScore       *int       `json:"training_score"`

	ActivatedBy     *int64     `json:"activated_by"`
	ActivatedAt     *time.Time `json:"activated_at"`
	ActivationNotes string     `json:"activation_notes"`
	BranchID        *int64     `json:"branch_id"`

	RejectionReason string     `json:"rejection_reason"`
	RejectedBy      *int64     `json:"rejected_by"`
	RejectedAt      *time.Time `json:"rejected_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *ClinicApplication) requiredValues() map[string]string {
	return map[string]string{
		"clinic_name": a.ClinicName,
		"owner_name":  a.OwnerName,
		"email":       a.Email,
		"phone":       a.Phone,
		"address":     a.Address,
		"city":        a.City,
		"state":       a.State,
	}
}

func (a *ClinicApplication) clinicProfile() advisory.ClinicProfile {
	p := advisory.ClinicProfile{
		ClinicName:            a.ClinicName,
		BusinessType:          a.BusinessType,
		RegistrationNumber:    a.RegistrationNumber,
		GSTNumber:             a.GSTNumber,
		City:                  a.City,
		State:                 a.State,
		TotalPhysiotherapists: a.TotalPhysiotherapists,
		ServicesOffered:       a.ServicesOffered,
		Equipment:             a.EquipmentList,
		Documents: map[string]bool{
			"registration_certificate": a.RegistrationCertificateURL != "",
			"gst_certificate":          a.GSTCertificateURL != "",
			"owner_id_proof":           a.OwnerIDProofURL != "",
			"insurance_certificate":    a.InsuranceCertificateURL != "",
			"facility_photos":          len(a.FacilityPhotosURLs) > 0,
		},
	}
	if a.EstablishedYear != nil {
		p.EstablishedYear = *a.EstablishedYear
	}
	if a.TreatmentRooms != nil {
		p.TreatmentRooms = *a.TreatmentRooms
	}
	return p
}

// ClinicApplicationInput is the applicant-editable part of a clinic application.
type ClinicApplicationInput struct {
	ClinicName                 string            `json:"clinic_name"`
	BusinessType               string            `json:"business_type"`
	RegistrationNumber         string            `json:"registration_number"`
	GSTNumber                  string            `json:"gst_number"`
	EstablishedYear            *int              `json:"established_year"`
	OwnerName                  string            `json:"owner_name"`
	Email                      string            `json:"email"`
	Phone                      string            `json:"phone"`
	AlternatePhone             string            `json:"alternate_phone"`
	Website                    string            `json:"website"`
	Address                    string            `json:"address"`
	City                       string            `json:"city"`
	State                      string            `json:"state"`
	Country                    string            `json:"country"`
	Pincode                    string            `json:"pincode"`
	Latitude                   string            `json:"latitude"`
	Longitude                  string            `json:"longitude"`
	TotalRooms                 *int              `json:"total_rooms"`
	TreatmentRooms             *int              `json:"treatment_rooms"`
	HasParking                 bool              `json:"has_parking"`
	HasWheelchairAccess        bool              `json:"has_wheelchair_access"`
	OperatingHours             string            `json:"operating_hours"`
	ServicesOffered            []string          `json:"services_offered"`
	EquipmentList              []string          `json:"equipment_list"`
	TotalPhysiotherapists      int               `json:"total_physiotherapists"`
	StaffCredentials           []StaffCredential `json:"staff_credentials"`
	RegistrationCertificateURL string            `json:"registration_certificate_url"`
	GSTCertificateURL          string            `json:"gst_certificate_url"`
	OwnerIDProofURL            string            `json:"owner_id_proof_url"`
	FacilityPhotosURLs         []string          `json:"facility_photos_urls"`
	InsuranceCertificateURL    string            `json:"insurance_certificate_url"`
	PartnershipTier            string            `json:"partnership_tier"`
}

func (in ClinicApplicationInput) applyTo(a *ClinicApplication) error {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return err
	}
	tier, err := parseTier(in.PartnershipTier)
	if err != nil {
		return err
	}
	if in.TotalPhysiotherapists < 0 {
		return invalidField("total_physiotherapists", "must not be negative")
	}

	a.ClinicName = strings.TrimSpace(in.ClinicName)
	a.BusinessType = strings.TrimSpace(in.BusinessType)
	a.RegistrationNumber = strings.TrimSpace(in.RegistrationNumber)
	a.GSTNumber = strings.TrimSpace(in.GSTNumber)
	a.EstablishedYear = in.EstablishedYear
	a.OwnerName = strings.TrimSpace(in.OwnerName)
	a.Email = email
	a.Phone = strings.TrimSpace(in.Phone)
	a.AlternatePhone = strings.TrimSpace(in.AlternatePhone)
	a.Website = strings.TrimSpace(in.Website)
	a.Address = strings.TrimSpace(in.Address)
	a.City = strings.TrimSpace(in.City)
	a.State = strings.TrimSpace(in.State)
	a.Country = orDefault(strings.TrimSpace(in.Country), "India")
	a.Pincode = strings.TrimSpace(in.Pincode)
	a.Latitude = strings.TrimSpace(in.Latitude)
	a.Longitude = strings.TrimSpace(in.Longitude)
	a.TotalRooms = in.TotalRooms
	a.TreatmentRooms = in.TreatmentRooms
	a.HasParking = in.HasParking
	a.HasWheelchairAccess = in.HasWheelchairAccess
	a.OperatingHours = strings.TrimSpace(in.OperatingHours)
	a.ServicesOffered = nonNil(in.ServicesOffered)
	a.EquipmentList = nonNil(in.EquipmentList)
	a.TotalPhysiotherapists = in.TotalPhysiotherapists
	a.StaffCredentials = nonNil(in.StaffCredentials)
	a.RegistrationCertificateURL = strings.TrimSpace(in.RegistrationCertificateURL)
	a.GSTCertificateURL = strings.TrimSpace(in.GSTCertificateURL)
	a.OwnerIDProofURL = strings.TrimSpace(in.OwnerIDProofURL)
	a.FacilityPhotosURLs = nonNil(in.FacilityPhotosURLs)
	a.InsuranceCertificateURL = strings.TrimSpace(in.InsuranceCertificateURL)
	a.PartnershipTier = tier
	a.CommissionRate = tier.CommissionRate()
	return nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

var clinicColumns = []string{
	"clinic_name", "business_type", "registration_number", "gst_number", "established_year", "owner_name",
	"email", "phone", "alternate_phone", "website", "address", "city", "state", "country", "pincode",
	"latitude", "longitude", "total_rooms", "treatment_rooms", "has_parking", "has_wheelchair_access",
	"operating_hours", "services_offered", "equipment_list", "total_physiotherapists", "staff_credentials",
	"registration_certificate_url", "gst_certificate_url", "owner_id_proof_url", "facility_photos_urls",
	"insurance_certificate_url", "partnership_tier", "commission_rate", "status", "submitted_at",
	"ai_review_score", "ai_review_notes", "ai_review_completed_at", "documentation_verified_by",
	"documentation_notes", "documentation_verified_at", "site_verification_scheduled_at",
	"site_verification_type", "site_verification_notes", "site_verification_photos", "site_verification_score",
	"site_verified_by", "site_verified_at", "contract_document_url", "contract_signed_at", "contract_start_date",
	"contract_end_date", "setup_completed_by", "setup_completed_at", "setup_notes", "training_scheduled_at",
	"training_attendees", "training_completed_at", "training_notes", "training_score", "activated_by",
	"activated_at", "activation_notes", "branch_id", "rejection_reason", "rejected_by", "rejected_at",
}

func scanClinicApplication(row pgx.Row, dec *jsonDecoder) (*ClinicApplication, error) {
	var (
		a                                  ClinicApplication
		tier, status                       string
		services, equipment, staff, photos []byte
		review, sitePhotos, attendees      []byte
	)
	err := row.Scan(
		&a.ID,
		&a.ClinicName, &a.BusinessType, &a.RegistrationNumber, &a.GSTNumber, &a.EstablishedYear, &a.OwnerName,
		&a.Email, &a.Phone, &a.AlternatePhone, &a.Website, &a.Address, &a.City, &a.State, &a.Country, &a.Pincode,
		&a.Latitude, &a.Longitude, &a.TotalRooms, &a.TreatmentRooms, &a.HasParking, &a.HasWheelchairAccess,
		&a.OperatingHours, &services, &equipment, &a.TotalPhysiotherapists, &staff,
		&a.RegistrationCertificateURL, &a.GSTCertificateURL, &a.OwnerIDProofURL, &photos,
		&a.InsuranceCertificateURL, &tier, &a.CommissionRate, &status, &a.SubmittedAt,
		&a.AIReviewScore, &review, &a.AIReviewCompletedAt, &a.DocumentationVerifiedBy,
		&a.DocumentationNotes, &a.DocumentationVerifiedAt, &a.SiteVerificationScheduledAt,
		&a.SiteVerificationType, &a.SiteVerificationNotes, &sitePhotos, &a.SiteVerificationScore,
		&a.SiteVerifiedBy, &a.SiteVerifiedAt, &a.ContractDocumentURL, &a.ContractSignedAt, &a.ContractStartDate,
		&a.ContractEndDate, &a.SetupCompletedBy, &a.SetupCompletedAt, &a.SetupNotes, &a.TrainingScheduledAt,
		&attendees, &a.TrainingCompletedAt, &a.TrainingNotes, &a.TrainingScore, &a.ActivatedBy,
		&a.ActivatedAt, &a.ActivationNotes, &a.BranchID, &a.RejectionReason, &a.RejectedBy, &a.RejectedAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.PartnershipTier = PartnershipTier(tier)
	a.Status = ClinicStatus(status)
	a.ServicesOffered = decodeSlice[string](dec, services, "services_offered")
	a.EquipmentList = decodeSlice[string](dec, equipment, "equipment_list")
	a.StaffCredentials = decodeSlice[StaffCredential](dec, staff, "staff_credentials")
	a.FacilityPhotosURLs = decodeSlice[string](dec, photos, "facility_photos_urls")
	a.AIReview = decodePtr[advisory.Assessment](dec, review, "ai_review_notes")
	a.SiteVerificationPhotos = decodeSlice[string](dec, sitePhotos, "site_verification_photos")
	a.TrainingAttendees = decodeSlice[string](dec, attendees, "training_attendees")
	return &a, nil
}

func clinicValues(a *ClinicApplication) ([]any, error) {
	var encErr error
	list := func(items []string) string {
		out, err := encodeSlice(items)
		if err != nil && encErr == nil {
			encErr = err
		}
		return out
	}
	services, equipment := list(a.ServicesOffered), list(a.EquipmentList)
	photos, sitePhotos, attendees := list(a.FacilityPhotosURLs), list(a.SiteVerificationPhotos), list(a.TrainingAttendees)
	if encErr != nil {
		return nil, encErr
	}
	staff, err := encodeSlice(a.StaffCredentials)
	if err != nil {
		return nil, err
	}
	review, err := encodePtr(a.AIReview)
	if err != nil {
		return nil, err
	}
	return []any{
		a.ClinicName, a.BusinessType, a.RegistrationNumber, a.GSTNumber, a.EstablishedYear, a.OwnerName,
		a.Email, a.Phone, a.AlternatePhone, a.Website, a.Address, a.City, a.State, a.Country, a.Pincode,
		a.Latitude, a.Longitude, a.TotalRooms, a.TreatmentRooms, a.HasParking, a.HasWheelchairAccess,
		a.OperatingHours, services, equipment, a.TotalPhysiotherapists, staff,
		a.RegistrationCertificateURL, a.GSTCertificateURL, a.OwnerIDProofURL, photos,
		a.InsuranceCertificateURL, string(a.PartnershipTier), a.CommissionRate, string(a.Status), a.SubmittedAt,
		a.AIReviewScore, review, a.AIReviewCompletedAt, a.DocumentationVerifiedBy,
		a.DocumentationNotes, a.DocumentationVerifiedAt, a.SiteVerificationScheduledAt,
		a.SiteVerificationType, a.SiteVerificationNotes, sitePhotos, a.SiteVerificationScore,
		a.SiteVerifiedBy, a.SiteVerifiedAt, a.ContractDocumentURL, a.ContractSignedAt, a.ContractStartDate,
		a.ContractEndDate, a.SetupCompletedBy, a.SetupCompletedAt, a.SetupNotes, a.TrainingScheduledAt,
		attendees, a.TrainingCompletedAt, a.TrainingNotes, a.TrainingScore, a.ActivatedBy,
		a.ActivatedAt, a.ActivationNotes, a.BranchID, a.RejectionReason, a.RejectedBy, a.RejectedAt,
	}, nil
}

// NewClinicStore returns the Postgres store for clinic applications.
func NewClinicStore(database db.DB, logger *logging.Logger) *PostgresStore[ClinicApplication] {
	return newPostgresStore(database, tableDef[ClinicApplication]{
		workflow:    WorkflowClinic,
		table:       "clinic_onboarding_applications",
		columns:     clinicColumns,
		linkColumn:  "branch_id",
		activeIndex: "clinic_applications_active_email_key",
		terminal:    ClinicGraph.TerminalStatuses(),
		scan:        scanClinicApplication,
		values:      clinicValues,
		id:          func(a *ClinicApplication) int64 { return a.ID },
	}, logger)
}

// ClinicWorkflow binds ClinicGraph to ClinicApplication.
var ClinicWorkflow = Workflow[ClinicApplication, ClinicStatus]{
	Graph:     ClinicGraph,
	Status:    func(a *ClinicApplication) ClinicStatus { return a.Status },
	SetStatus: func(a *ClinicApplication, s ClinicStatus) { a.Status = s },
	ID:        func(a *ClinicApplication) int64 { return a.ID },
	Contact:   func(a *ClinicApplication) Contact { return Contact{Name: a.OwnerName, Email: a.Email} },
}
