// Package provisioning turns an approved onboarding application into live
// accounts, doctor profiles and branches.
//
// Every step looks up before it creates, keyed on the applicant email for
// accounts, the user id for doctor profiles and the application id for
// branches, so a retried activation reuses what an earlier attempt created.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/meesalavenugopal/novacare247/internal/accounts"
	"github.com/meesalavenugopal/novacare247/internal/catalog"
	"github.com/meesalavenugopal/novacare247/internal/db"
	"github.com/meesalavenugopal/novacare247/internal/slug"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

// Steps reported in StepError.
const (
	StepAccount = "account"
	StepProfile = "doctor_profile"
	StepBranch  = "branch"
)

// StepError names the provisioning step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("provisioning: %s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

// Result describes what activation produced. TemporaryPassword is set only
// when a new account was created and is never stored in plaintext.
type Result struct {
	UserID            *int64 `json:"user_id,omitempty"`
	ProfileID         int64  `json:"profile_id"`
	Slug              string `json:"slug"`
	CreatedAccount    bool   `json:"created_account"`
	CreatedProfile    bool   `json:"created_profile"`
	TemporaryPassword string `json:"temporary_password,omitempty"`
}

// DoctorRequest carries the application fields a doctor profile is built from.
type DoctorRequest struct {
	ApplicationID   int64
	Email           string
	FullName        string
	Phone           string
	Specialization  string
	Qualification   string
	ExperienceYears int
	ProfileImage    string
	BranchID        *int64
}

// BranchRequest carries the clinic fields a branch is built from.
type BranchRequest struct {
	ApplicationID int64
	Name          string
	Email         string
	Phone         string
	Address       string
	City          string
	State         string
	Country       string
	Pincode       string
	Latitude      string
	Longitude     string
	BusinessHours string
}

// Provisioner creates activation targets through the querier it is handed,
// normally the transaction that also advances the application.
type Provisioner struct {
	logger *logging.Logger
}

func New(logger *logging.Logger) *Provisioner {
	if logger == nil {
		logger = logging.Default()
	}
	return &Provisioner{logger: logger.Component("provisioning")}
}

// ProvisionDoctor finds or creates the applicant's account and doctor profile.
func (p *Provisioner) ProvisionDoctor(ctx context.Context, q db.Querier, req DoctorRequest) (Result, error) {
	var res Result
	users := accounts.NewRepository(q)
	profiles := catalog.NewRepository(q)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := users.FindByEmail(ctx, req.Email)
	switch {
	case err == nil:
		// An admin who is also activated as a doctor keeps admin rights; the
		// doctor profile below is what makes them bookable.
		role := accounts.RoleDoctor
		if user.Role == accounts.RoleAdmin {
			role = accounts.RoleAdmin
		}
		if err := users.Promote(ctx, user.ID, role, true); err != nil {
			return Result{}, &StepError{Step: StepAccount, Err: err}
		}
	case errors.Is(err, accounts.ErrNotFound):
		user, res.TemporaryPassword, err = p.createAccount(ctx, users, req)
		if err != nil {
			return Result{}, &StepError{Step: StepAccount, Err: err}
		}
		res.CreatedAccount = true
	default:
		return Result{}, &StepError{Step: StepAccount, Err: err}
	}
	res.UserID = &user.ID

	doctor, err := profiles.FindDoctorByUserID(ctx, user.ID)
	switch {
	case err == nil:
		if err := profiles.SetDoctorAvailability(ctx, doctor.ID, true); err != nil {
			return Result{}, &StepError{Step: StepProfile, Err: err}
		}
	case errors.Is(err, catalog.ErrNotFound):
		s, err := slug.Assign(ctx, slug.DoctorBase(req.FullName), profiles.DoctorSlugExists)
		if err != nil {
			return Result{}, &StepError{Step: StepProfile, Err: err}
		}
		appID := req.ApplicationID
		doctor, err = profiles.CreateDoctor(ctx, catalog.NewDoctor{
			UserID:                  user.ID,
			BranchID:                req.BranchID,
			Slug:                    s,
			Specialization:          req.Specialization,
			Qualification:           req.Qualification,
			ExperienceYears:         req.ExperienceYears,
			ProfileImage:            req.ProfileImage,
			OnboardingApplicationID: &appID,
		})
		if err != nil {
			return Result{}, &StepError{Step: StepProfile, Err: err}
		}
		res.CreatedProfile = true
	default:
		return Result{}, &StepError{Step: StepProfile, Err: err}
	}

	res.ProfileID = doctor.ID
	res.Slug = doctor.Slug
	p.logger.Info("doctor provisioned",
		"application_id", req.ApplicationID,
		"user_id", user.ID,
		"doctor_id", doctor.ID,
		"created_account", res.CreatedAccount,
		"created_profile", res.CreatedProfile,
	)
	return res, nil
}

func (p *Provisioner) createAccount(ctx context.Context, users *accounts.Repository, req DoctorRequest) (*accounts.User, string, error) {
	temp, err := accounts.GenerateTemporaryPassword()
	if err != nil {
		return nil, "", err
	}
	hash, err := accounts.HashPassword(temp)
	if err != nil {
		return nil, "", err
	}
	user, err := users.Create(ctx, accounts.NewUser{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Role:         accounts.RoleDoctor,
	})
	if err != nil {
		return nil, "", err
	}
	return user, temp, nil
}

// ProvisionBranch finds the branch created for this application or creates it.
func (p *Provisioner) ProvisionBranch(ctx context.Context, q db.Querier, req BranchRequest) (Result, error) {
	branches := catalog.NewRepository(q)

	branch, err := branches.FindBranchByApplication(ctx, req.ApplicationID)
	switch {
	case err == nil:
		if err := branches.SetBranchActive(ctx, branch.ID, true); err != nil {
			return Result{}, &StepError{Step: StepBranch, Err: err}
		}
		return Result{ProfileID: branch.ID, Slug: branch.Slug}, nil
	case !errors.Is(err, catalog.ErrNotFound):
		return Result{}, &StepError{Step: StepBranch, Err: err}
	}

	s, err := slug.Assign(ctx, slug.Normalize(req.Name), branches.BranchSlugExists)
	if err != nil {
		return Result{}, &StepError{Step: StepBranch, Err: err}
	}
	appID := req.ApplicationID
	branch, err = branches.CreateBranch(ctx, catalog.Branch{
		Name:                    req.Name,
		Slug:                    s,
		Country:                 req.Country,
		State:                   req.State,
		City:                    req.City,
		Address:                 req.Address,
		Pincode:                 req.Pincode,
		Phone:                   req.Phone,
		Email:                   req.Email,
		Latitude:                req.Latitude,
		Longitude:               req.Longitude,
		BusinessHours:           req.BusinessHours,
		OnboardingApplicationID: &appID,
	})
	if err != nil {
		return Result{}, &StepError{Step: StepBranch, Err: err}
	}
	p.logger.Info("branch provisioned", "application_id", req.ApplicationID, "branch_id", branch.ID, "slug", branch.Slug)
	return Result{ProfileID: branch.ID, Slug: branch.Slug, CreatedProfile: true}, nil
}

// DeactivateDoctor hides a suspended doctor from booking.
func (p *Provisioner) DeactivateDoctor(ctx context.Context, q db.Querier, doctorID int64) error {
	if err := catalog.NewRepository(q).SetDoctorAvailability(ctx, doctorID, false); err != nil {
		return &StepError{Step: StepProfile, Err: err}
	}
	return nil
}

// DeactivateBranch closes a suspended clinic's branch.
func (p *Provisioner) DeactivateBranch(ctx context.Context, q db.Querier, branchID int64) error {
	if err := catalog.NewRepository(q).SetBranchActive(ctx, branchID, false); err != nil {
		return &StepError{Step: StepBranch, Err: err}
	}
	return nil
}
