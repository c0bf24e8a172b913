package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/meesalavenugopal/novacare247/internal/db"
)

// Repository reads and writes catalog records through q, which may be a transaction.
type Repository struct {
	q db.Querier
}

func NewRepository(q db.Querier) *Repository {
	if q == nil {
		panic("catalog: querier cannot be nil")
	}
	return &Repository{q: q}
}

const doctorSelect = `
SELECT d.id, d.user_id, d.branch_id, d.slug, u.full_name, u.email, d.specialization, d.qualification,
       d.experience_years, d.bio, d.expertise, d.consultation_fee, d.profile_image, d.is_available,
       d.onboarding_application_id, d.created_at
FROM doctors d
JOIN users u ON u.id = d.user_id`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var (
		d         Doctor
		expertise []byte
	)
	err := row.Scan(&d.ID, &d.UserID, &d.BranchID, &d.Slug, &d.FullName, &d.Email, &d.Specialization, &d.Qualification,
		&d.ExperienceYears, &d.Bio, &expertise, &d.ConsultationFee, &d.ProfileImage, &d.IsAvailable,
		&d.OnboardingApplicationID, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.Expertise = decodeList[string](expertise)
	return &d, nil
}

func (r *Repository) oneDoctor(ctx context.Context, where string, arg any) (*Doctor, error) {
	d, err := scanDoctor(r.q.QueryRow(ctx, doctorSelect+" WHERE "+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get doctor: %w", err)
	}
	return d, nil
}

// GetDoctor loads a doctor by id.
func (r *Repository) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	return r.oneDoctor(ctx, "d.id = $1", id)
}

// GetDoctorBySlug loads a doctor by slug.
func (r *Repository) GetDoctorBySlug(ctx context.Context, slug string) (*Doctor, error) {
	return r.oneDoctor(ctx, "d.slug = $1", slug)
}

// FindDoctorByUserID loads the profile linked to a user account.
func (r *Repository) FindDoctorByUserID(ctx context.Context, userID int64) (*Doctor, error) {
	return r.oneDoctor(ctx, "d.user_id = $1", userID)
}

// ListDoctors returns doctors ordered by id; availableOnly filters to bookable ones.
func (r *Repository) ListDoctors(ctx context.Context, availableOnly bool) ([]Doctor, error) {
	rows, err := r.q.Query(ctx, doctorSelect+" WHERE ($1::boolean = FALSE OR d.is_available) ORDER BY d.id", availableOnly)
	if err != nil {
		return nil, fmt.Errorf("catalog: list doctors: %w", err)
	}
	defer rows.Close()

	out := []Doctor{}
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan doctor: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// DoctorSlugExists reports whether slug is taken by any doctor.
func (r *Repository) DoctorSlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM doctors WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

// NewDoctor is the input to CreateDoctor.
type NewDoctor struct {
	UserID                  int64
	BranchID                *int64
	Slug                    string
	Specialization          string
	Qualification           string
	ExperienceYears         int
	Bio                     string
	Expertise               []string
	ProfileImage            string
	OnboardingApplicationID *int64
}

// CreateDoctor inserts an available doctor profile.
func (r *Repository) CreateDoctor(ctx context.Context, in NewDoctor) (*Doctor, error) {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO doctors (user_id, branch_id, slug, specialization, qualification, experience_years, bio,
		                     expertise, profile_image, is_available, onboarding_application_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE, $10)
		RETURNING id`,
		in.UserID, in.BranchID, in.Slug, in.Specialization, in.Qualification, in.ExperienceYears, in.Bio,
		encodeList(in.Expertise), in.ProfileImage, in.OnboardingApplicationID,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("catalog: create doctor: %w", err)
	}
	return r.GetDoctor(ctx, id)
}

// SetDoctorAvailability toggles whether the doctor can be booked.
func (r *Repository) SetDoctorAvailability(ctx context.Context, id int64, available bool) error {
	tag, err := r.q.Exec(ctx, `UPDATE doctors SET is_available = $2 WHERE id = $1`, id, available)
	if err != nil {
		return fmt.Errorf("catalog: set availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const branchSelect = `
SELECT id, name, slug, country, state, city, address, pincode, phone, email, latitude, longitude,
       business_hours, is_active, is_headquarters, onboarding_application_id, created_at
FROM branches`

func scanBranch(row pgx.Row) (*Branch, error) {
	var b Branch
	err := row.Scan(&b.ID, &b.Name, &b.Slug, &b.Country, &b.State, &b.City, &b.Address, &b.Pincode, &b.Phone,
		&b.Email, &b.Latitude, &b.Longitude, &b.BusinessHours, &b.IsActive, &b.IsHeadquarters,
		&b.OnboardingApplicationID, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repository) oneBranch(ctx context.Context, where string, arg any) (*Branch, error) {
	b, err := scanBranch(r.q.QueryRow(ctx, branchSelect+" WHERE "+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get branch: %w", err)
	}
	return b, nil
}

// GetBranch loads a branch by id.
func (r *Repository) GetBranch(ctx context.Context, id int64) (*Branch, error) {
	return r.oneBranch(ctx, "id = $1", id)
}

// FindBranchByApplication loads the branch provisioned from a clinic application.
func (r *Repository) FindBranchByApplication(ctx context.Context, applicationID int64) (*Branch, error) {
	return r.oneBranch(ctx, "onboarding_application_id = $1", applicationID)
}

// ListBranches returns branches, headquarters first.
func (r *Repository) ListBranches(ctx context.Context, activeOnly bool) ([]Branch, error) {
	rows, err := r.q.Query(ctx, branchSelect+" WHERE ($1::boolean = FALSE OR is_active) ORDER BY is_headquarters DESC, name", activeOnly)
	if err != nil {
		return nil, fmt.Errorf("catalog: list branches: %w", err)
	}
	defer rows.Close()

	out := []Branch{}
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan branch: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// BranchSlugExists reports whether slug is taken by any branch.
func (r *Repository) BranchSlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM branches WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

// CreateBranch inserts an active branch. ID and CreatedAt on in are ignored.
func (r *Repository) CreateBranch(ctx context.Context, in Branch) (*Branch, error) {
	b, err := scanBranch(r.q.QueryRow(ctx, `
		INSERT INTO branches (name, slug, country, state, city, address, pincode, phone, email, latitude, longitude,
		                      business_hours, is_active, is_headquarters, onboarding_application_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE, $13, $14)
		RETURNING id, name, slug, country, state, city, address, pincode, phone, email, latitude, longitude,
		          business_hours, is_active, is_headquarters, onboarding_application_id, created_at`,
		in.Name, in.Slug, in.Country, in.State, in.City, in.Address, in.Pincode, in.Phone, in.Email,
		in.Latitude, in.Longitude, in.BusinessHours, in.IsHeadquarters, in.OnboardingApplicationID))
	if err != nil {
		return nil, fmt.Errorf("catalog: create branch: %w", err)
	}
	return b, nil
}

// SetBranchActive toggles a branch.
func (r *Repository) SetBranchActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.q.Exec(ctx, `UPDATE branches SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("catalog: set branch active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
