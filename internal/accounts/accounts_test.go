package accounts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "email", "password_hash", "full_name", "phone", "role", "is_active", "created_at", "updated_at"}

func userRow(id int64, email, hash string, role Role, active bool) *pgxmock.Rows {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(userCols).AddRow(id, email, hash, "Priya Sharma", "9876543210", string(role), active, now, now)
}

func TestTemporaryPasswordShape(t *testing.T) {
	a, err := GenerateTemporaryPassword()
	require.NoError(t, err)
	b, err := GenerateTemporaryPassword()
	require.NoError(t, err)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "/")
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.NoError(t, CheckPassword(hash, "s3cret-pass"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), ErrInvalidCredentials)
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	token, exp, err := issuer.Issue(&User{ID: 42, Email: "admin@novacare247.com", Role: RoleAdmin})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ParseToken("test-secret", token)
	require.NoError(t, err)
	id, ok := claims.UserID()
	require.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, RoleAdmin, claims.Role)

	_, err = ParseToken("other-secret", token)
	assert.Error(t, err)
}

func TestRepositoryCreateMapsDuplicateEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("dup@example.com", "hash", "Dup", "", "doctor").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err = NewRepository(mock).Create(context.Background(), NewUser{Email: " dup@example.com ", PasswordHash: "hash", FullName: "Dup", Role: RoleDoctor})
	assert.ErrorIs(t, err, ErrEmailTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreateRejectsUnknownRole(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewRepository(mock).Create(context.Background(), NewUser{Email: "x@example.com", Role: "superuser"})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestLoginSuccessAndFailures(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	svc := NewService(mock, NewTokenIssuer("secret", time.Hour), nil)
	ctx := context.Background()

	mock.ExpectQuery("SELECT id, email").WithArgs("priya@example.com").WillReturnRows(userRow(5, "priya@example.com", hash, RoleDoctor, true))
	res, err := svc.Login(ctx, "priya@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "bearer", res.TokenType)
	assert.Equal(t, int64(5), res.User.ID)

	mock.ExpectQuery("SELECT id, email").WithArgs("priya@example.com").WillReturnRows(userRow(5, "priya@example.com", hash, RoleDoctor, true))
	_, err = svc.Login(ctx, "priya@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	mock.ExpectQuery("SELECT id, email").WithArgs("ghost@example.com").WillReturnError(pgx.ErrNoRows)
	_, err = svc.Login(ctx, "ghost@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	mock.ExpectQuery("SELECT id, email").WithArgs("off@example.com").WillReturnRows(userRow(6, "off@example.com", hash, RoleDoctor, false))
	_, err = svc.Login(ctx, "off@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureAdminPromotesExistingUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, email").WithArgs("ops@example.com").WillReturnRows(userRow(9, "ops@example.com", "h", RolePatient, true))
	mock.ExpectExec("UPDATE users SET role").WithArgs(int64(9), "admin", true).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	svc := NewService(mock, NewTokenIssuer("secret", time.Hour), nil)
	require.NoError(t, svc.EnsureAdmin(context.Background(), "ops@example.com", "pw"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureAdminSkipsWithoutConfig(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	svc := NewService(mock, NewTokenIssuer("secret", time.Hour), nil)
	require.NoError(t, svc.EnsureAdmin(context.Background(), "", ""))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginHandler(t *testing.T) {
	hash, err := HashPassword("pw-123456")
	require.NoError(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.ExpectQuery("SELECT id, email").WithArgs("admin@example.com").WillReturnRows(userRow(1, "admin@example.com", hash, RoleAdmin, true))

	h := NewHandler(NewService(mock, NewTokenIssuer("secret", time.Hour), nil), nil)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"admin@example.com","password":"pw-123456"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"access_token"`)

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":""}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
