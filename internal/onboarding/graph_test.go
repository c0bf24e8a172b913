package onboarding

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctorGraphEdges(t *testing.T) {
	tests := []struct {
		from, to DoctorStatus
		allowed  bool
	}{
		{DoctorDraft, DoctorSubmitted, true},
		{DoctorDraft, DoctorVerificationPending, false},
		{DoctorSubmitted, DoctorVerificationPending, true},
		{DoctorVerificationPending, DoctorVerificationPending, true},
		{DoctorVerificationPending, DoctorVerificationApproved, true},
		{DoctorVerificationRejected, DoctorInterviewScheduled, false},
		{DoctorInterviewScheduled, DoctorInterviewPassed, true},
		{DoctorInterviewCompleted, DoctorInterviewFailed, true},
		{DoctorTrainingPending, DoctorTrainingCompleted, false},
		{DoctorActivationPending, DoctorActivated, true},
		{DoctorActivated, DoctorSuspended, true},
		{DoctorActivated, DoctorRejected, false},
		{DoctorSuspended, DoctorActivated, false},
		{DoctorTrainingInProgress, DoctorRejected, true},
		{DoctorInterviewFailed, DoctorRejected, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, DoctorGraph.Allows(tt.from, tt.to))
		})
	}
}

func TestEveryNonTerminalStatusCanBeRejected(t *testing.T) {
	for _, s := range DoctorGraph.Statuses() {
		if DoctorGraph.Terminal(s) {
			continue
		}
		assert.True(t, DoctorGraph.Allows(s, DoctorRejected), "doctor %s", s)
	}
	for _, s := range ClinicGraph.Statuses() {
		if ClinicGraph.Terminal(s) {
			continue
		}
		assert.True(t, ClinicGraph.Allows(s, ClinicRejected), "clinic %s", s)
	}
}

func TestTerminalStatusesHaveNoForwardEdges(t *testing.T) {
	for _, s := range []DoctorStatus{DoctorVerificationRejected, DoctorInterviewFailed, DoctorRejected, DoctorSuspended} {
		for _, to := range DoctorGraph.Statuses() {
			assert.False(t, DoctorGraph.Allows(s, to), "%s -> %s", s, to)
		}
	}
	assert.Equal(t, []string{"documentation_rejected", "site_verification_failed", "activated", "rejected", "suspended"},
		ClinicGraph.TerminalStatuses())
}

func TestAutomaticSuccessors(t *testing.T) {
	next, ok := DoctorGraph.Next(DoctorInterviewPassed)
	require.True(t, ok)
	assert.Equal(t, DoctorTrainingPending, next)

	_, ok = DoctorGraph.Next(DoctorTrainingInProgress)
	assert.False(t, ok)

	clinicNext, ok := ClinicGraph.Next(ClinicContractSigned)
	require.True(t, ok)
	assert.Equal(t, ClinicSetupPending, clinicNext)
}

func TestValidatePath(t *testing.T) {
	happy := []DoctorStatus{
		DoctorDraft, DoctorSubmitted, DoctorVerificationPending, DoctorVerificationApproved,
		DoctorInterviewScheduled, DoctorInterviewPassed, DoctorTrainingPending, DoctorTrainingInProgress,
		DoctorTrainingCompleted, DoctorActivationPending, DoctorActivated,
	}
	require.NoError(t, DoctorGraph.ValidatePath(happy))

	err := DoctorGraph.ValidatePath([]DoctorStatus{DoctorDraft, DoctorSubmitted, DoctorVerificationApproved})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "submitted", te.From)
	assert.Equal(t, "verification_approved", te.To)

	err = DoctorGraph.ValidatePath([]DoctorStatus{DoctorSubmitted})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestParseRejectsUnknownStatus(t *testing.T) {
	s, err := ClinicGraph.Parse("contract_signed")
	require.NoError(t, err)
	assert.Equal(t, ClinicContractSigned, s)

	_, err = ClinicGraph.Parse("interview_passed")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDescribeUnknownStatus(t *testing.T) {
	assert.Equal(t, "Verification", DoctorGraph.Describe(DoctorVerificationPending).Name)
	assert.Equal(t, "Unknown", DoctorGraph.Describe("missing").Name)
}

func TestNewGraphPanicsOnUnknownStatus(t *testing.T) {
	assert.Panics(t, func() {
		NewGraph(GraphDef[DoctorStatus]{
			Workflow: "broken",
			Initial:  DoctorDraft,
			Order:    []DoctorStatus{DoctorDraft, DoctorRejected},
			Edges:    map[DoctorStatus][]DoctorStatus{DoctorDraft: {DoctorSubmitted}},
			Reject:   DoctorRejected,
		})
	})
}
