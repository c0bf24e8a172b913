package provisioning

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

var (
	userCols   = []string{"id", "email", "password_hash", "full_name", "phone", "role", "is_active", "created_at", "updated_at"}
	doctorCols = []string{"id", "user_id", "branch_id", "slug", "full_name", "email", "specialization", "qualification",
		"experience_years", "bio", "expertise", "consultation_fee", "profile_image", "is_available",
		"onboarding_application_id", "created_at"}
	branchCols = []string{"id", "name", "slug", "country", "state", "city", "address", "pincode", "phone", "email",
		"latitude", "longitude", "business_hours", "is_active", "is_headquarters", "onboarding_application_id", "created_at"}
	now = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
)

func quietLogger() *logging.Logger { return logging.NewWithWriter("error", io.Discard) }

func doctorRow(id, userID int64, slug string) *pgxmock.Rows {
	appID := int64(12)
	return pgxmock.NewRows(doctorCols).AddRow(id, userID, (*int64)(nil), slug, "Priya Sharma", "priya@example.com",
		"Sports", "MPT", 5, "", []byte(`[]`), 0, "", true, &appID, now)
}

func TestProvisionDoctorCreatesAccountAndProfile(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM users WHERE lower").WithArgs("priya@example.com").WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("priya@example.com", pgxmock.AnyArg(), "Dr. Priya Sharma", "98450", "doctor").
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(int64(30), "priya@example.com", "hash", "Priya Sharma", "98450", "doctor", true, now, now))
	mock.ExpectQuery("WHERE d.user_id").WithArgs(int64(30)).WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT EXISTS").WithArgs("dr-priya-sharma").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("dr-priya-sharma-2").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("INSERT INTO doctors").WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(8)))
	mock.ExpectQuery("WHERE d.id").WithArgs(int64(8)).WillReturnRows(doctorRow(8, 30, "dr-priya-sharma-2"))

	res, err := New(quietLogger()).ProvisionDoctor(context.Background(), mock, DoctorRequest{
		ApplicationID:  12,
		Email:          "Priya@Example.com",
		FullName:       "Dr. Priya Sharma",
		Phone:          "98450",
		Specialization: "Sports",
		Qualification:  "MPT",
	})
	require.NoError(t, err)
	assert.True(t, res.CreatedAccount)
	assert.True(t, res.CreatedProfile)
	assert.Len(t, res.TemporaryPassword, 16)
	assert.Equal(t, int64(30), *res.UserID)
	assert.Equal(t, int64(8), res.ProfileID)
	assert.Equal(t, "dr-priya-sharma-2", res.Slug)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProvisionDoctorRetryReusesRecords(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM users WHERE lower").WithArgs("priya@example.com").
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(int64(30), "priya@example.com", "hash", "Priya Sharma", "98450", "patient", false, now, now))
	mock.ExpectExec("UPDATE users SET role").WithArgs(int64(30), "doctor", true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("WHERE d.user_id").WithArgs(int64(30)).WillReturnRows(doctorRow(8, 30, "dr-priya-sharma"))
	mock.ExpectExec("UPDATE doctors SET is_available").WithArgs(int64(8), true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	res, err := New(quietLogger()).ProvisionDoctor(context.Background(), mock, DoctorRequest{
		ApplicationID: 12,
		Email:         "priya@example.com",
		FullName:      "Priya Sharma",
	})
	require.NoError(t, err)
	assert.False(t, res.CreatedAccount)
	assert.False(t, res.CreatedProfile)
	assert.Empty(t, res.TemporaryPassword)
	assert.Equal(t, int64(8), res.ProfileID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProvisionDoctorKeepsAdminRole(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM users WHERE lower").WithArgs("lead@novacare247.com").
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(int64(2), "lead@novacare247.com", "hash", "Clinical Lead", "", "admin", true, now, now))
	mock.ExpectExec("UPDATE users SET role").WithArgs(int64(2), "admin", true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("WHERE d.user_id").WithArgs(int64(2)).WillReturnRows(doctorRow(9, 2, "dr-clinical-lead"))
	mock.ExpectExec("UPDATE doctors SET is_available").WithArgs(int64(9), true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	res, err := New(quietLogger()).ProvisionDoctor(context.Background(), mock, DoctorRequest{
		ApplicationID: 12,
		Email:         "lead@novacare247.com",
		FullName:      "Clinical Lead",
	})
	require.NoError(t, err)
	assert.False(t, res.CreatedAccount)
	assert.Equal(t, int64(9), res.ProfileID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProvisionDoctorReportsFailingStep(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	boom := errors.New("connection reset")
	mock.ExpectQuery("FROM users WHERE lower").WillReturnError(boom)

	_, err = New(quietLogger()).ProvisionDoctor(context.Background(), mock, DoctorRequest{Email: "x@example.com"})
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepAccount, stepErr.Step)
	assert.ErrorIs(t, err, boom)
}

func TestProvisionBranch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	appID := int64(5)
	mock.ExpectQuery("WHERE onboarding_application_id").WithArgs(int64(5)).WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT EXISTS").WithArgs("healwell-physio-indiranagar").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("INSERT INTO branches").
		WillReturnRows(pgxmock.NewRows(branchCols).AddRow(int64(3), "HealWell Physio, Indiranagar", "healwell-physio-indiranagar",
			"India", "Karnataka", "Bengaluru", "12 CMH Rd", "560038", "080", "c@example.com", "", "", "", true, false, &appID, now))

	res, err := New(quietLogger()).ProvisionBranch(context.Background(), mock, BranchRequest{
		ApplicationID: 5,
		Name:          "HealWell Physio, Indiranagar",
		Country:       "India",
	})
	require.NoError(t, err)
	assert.True(t, res.CreatedProfile)
	assert.Nil(t, res.UserID)
	assert.Equal(t, int64(3), res.ProfileID)
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectQuery("WHERE onboarding_application_id").WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows(branchCols).AddRow(int64(3), "HealWell Physio, Indiranagar", "healwell-physio-indiranagar",
			"India", "Karnataka", "Bengaluru", "12 CMH Rd", "560038", "080", "c@example.com", "", "", "", false, false, &appID, now))
	mock.ExpectExec("UPDATE branches SET is_active").WithArgs(int64(3), true).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	res, err = New(quietLogger()).ProvisionBranch(context.Background(), mock, BranchRequest{ApplicationID: 5, Name: "HealWell"})
	require.NoError(t, err)
	assert.False(t, res.CreatedProfile)
	assert.Equal(t, int64(3), res.ProfileID)
	require.NoError(t, mock.ExpectationsWereMet())
}
