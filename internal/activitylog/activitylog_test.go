package activitylog

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestAppendDefaultsActorType(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO onboarding_activity_logs").
		WithArgs("doctor", int64(4), "status_changed", strPtr("draft"), strPtr("submitted"), (*int64)(nil), "human", "").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), created))

	e, err := Append(context.Background(), mock, Entry{
		Workflow:      "doctor",
		ApplicationID: 4,
		Action:        ActionStatusChanged,
		OldValue:      strPtr("draft"),
		NewValue:      strPtr("submitted"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), e.ID)
	assert.Equal(t, ActorHuman, e.PerformedByType)
	assert.Equal(t, created, e.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListReturnsEntriesInOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	t0 := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	admin := int64(1)
	rows := pgxmock.NewRows([]string{"id", "workflow", "application_id", "action", "old_value", "new_value", "performed_by", "performed_by_type", "notes", "created_at"}).
		AddRow(int64(1), "clinic", int64(9), ActionCreated, (*string)(nil), strPtr("draft"), (*int64)(nil), "system", "", t0).
		AddRow(int64(2), "clinic", int64(9), ActionStatusChanged, strPtr("draft"), strPtr("submitted"), (*int64)(nil), "system", "", t0.Add(time.Minute)).
		AddRow(int64(3), "clinic", int64(9), ActionStatusChanged, strPtr("submitted"), strPtr("documentation_approved"), &admin, "human", "ok", t0.Add(time.Hour))
	mock.ExpectQuery("SELECT id, workflow").WithArgs("clinic", int64(9)).WillReturnRows(rows)

	entries, err := List(context.Background(), mock, "clinic", 9)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, ActorSystem, entries[0].PerformedByType)
	assert.Equal(t, &admin, entries[2].PerformedBy)
	require.NoError(t, VerifyChain(entries, "draft"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyChainDetectsGap(t *testing.T) {
	entries := []Entry{
		StatusChange("doctor", 1, "draft", "submitted", nil, ActorSystem, ""),
		StatusChange("doctor", 1, "verification_pending", "verification_approved", nil, ActorHuman, ""),
	}
	err := VerifyChain(entries, "draft")
	require.ErrorIs(t, err, ErrBrokenChain)
}

func TestVerifyChainIgnoresOtherActions(t *testing.T) {
	entries := []Entry{
		{Action: ActionCreated, NewValue: strPtr("draft")},
		StatusChange("doctor", 1, "draft", "submitted", nil, ActorSystem, ""),
		{Action: "interview_questions_generated"},
		StatusChange("doctor", 1, "submitted", "verification_pending", nil, ActorAI, ""),
	}
	assert.NoError(t, VerifyChain(entries, "draft"))
}
