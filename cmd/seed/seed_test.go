package main

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meesalavenugopal/novacare247/internal/accounts"
)

func TestWeeklyTemplatesSkipSunday(t *testing.T) {
	templates := weeklyTemplates(9)
	require.Len(t, templates, 12)
	for _, tmpl := range templates {
		assert.NoError(t, tmpl.Validate())
		assert.Equal(t, int64(9), tmpl.DoctorID)
		assert.NotEqual(t, 6, tmpl.DayOfWeek)
	}
}

func TestTrainingModulesOrdered(t *testing.T) {
	modules := trainingModules()
	titles := map[string]bool{}
	for i, m := range modules {
		assert.Equal(t, i+1, m.DisplayOrder)
		assert.False(t, titles[m.Title], "duplicate title %q", m.Title)
		titles[m.Title] = true
		for _, q := range m.Quiz {
			assert.Less(t, q.CorrectAnswer, len(q.Options))
		}
	}
}

func TestFakeRecordsAreDeterministic(t *testing.T) {
	a := newBranch(gofakeit.New(42), 0)
	b := newBranch(gofakeit.New(42), 0)
	assert.Equal(t, a, b)
	assert.True(t, a.IsHeadquarters)
	assert.False(t, newBranch(gofakeit.New(42), 1).IsHeadquarters)

	user, doctor := newDoctor(gofakeit.New(7), "hash")
	assert.Equal(t, accounts.RoleDoctor, user.Role)
	assert.True(t, strings.HasPrefix(user.FullName, "Dr. "))
	assert.True(t, strings.HasSuffix(user.Email, "@novacare247.com"))
	assert.Contains(t, specializations, doctor.Specialization)
}

func TestSeedRollsBackOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO training_modules").WillReturnError(errors.New("relation does not exist"))
	mock.ExpectRollback()

	_, err = seed(context.Background(), mock, gofakeit.New(1), plan{Password: "secret-pass"})
	require.ErrorContains(t, err, "relation does not exist")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRootCmdRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--branches", "1"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	assert.ErrorContains(t, cmd.Execute(), "DATABASE_URL")
}
