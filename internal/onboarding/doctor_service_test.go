package onboarding

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meesalavenugopal/novacare247/internal/activitylog"
	"github.com/meesalavenugopal/novacare247/internal/advisory"
	"github.com/meesalavenugopal/novacare247/internal/observability/metrics"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

var fixedNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

type doctorFixture struct {
	svc         *DoctorService
	store       *memStore[DoctorApplication]
	advisor     *fakeAdvisor
	provisioner *fakeProvisioner
	observer    *recordingObserver
	registry    *prometheus.Registry
}

func newDoctorFixture(t *testing.T) *doctorFixture {
	t.Helper()
	f := &doctorFixture{
		store:       newDoctorMemStore(),
		advisor:     &fakeAdvisor{assessment: scoredAssessment(82)},
		provisioner: newFakeProvisioner(),
		observer:    &recordingObserver{},
		registry:    prometheus.NewRegistry(),
	}
	f.store.now = func() time.Time { return fixedNow }
	f.svc = NewDoctorService(f.store, f.advisor, f.provisioner, logging.NewWithWriter("error", io.Discard),
		WithObservers(f.observer),
		WithEngineMetrics(metrics.NewOnboardingMetrics(f.registry)),
		WithClock(func() time.Time { return fixedNow }),
	)
	return f
}

func (f *doctorFixture) counter(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := f.registry.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			if hasLabels(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	matched := 0
	for _, lp := range m.GetLabel() {
		if v, ok := want[lp.GetName()]; ok && v == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}

func validDoctorInput() DoctorApplicationInput {
	return DoctorApplicationInput{
		FullName:          "Asha Menon",
		Email:             "Asha.Menon@Example.com",
		Phone:             "+91 98450 12345",
		Specialization:    "Orthopedic Physiotherapy",
		Qualification:     "MPT",
		ExperienceYears:   6,
		LicenseNumber:     "KA-PT-4411",
		LicenseExpiryDate: "2028-12-31",
	}
}

func (f *doctorFixture) submitted(t *testing.T) *DoctorApplication {
	t.Helper()
	ctx := context.Background()
	app, err := f.svc.Create(ctx, validDoctorInput())
	require.NoError(t, err)
	app, err = f.svc.Submit(ctx, app.ID)
	require.NoError(t, err)
	return app
}

// activationPending walks a fresh application to activation_pending.
func (f *doctorFixture) activationPending(t *testing.T) *DoctorApplication {
	t.Helper()
	ctx := context.Background()
	admin := Admin(7)
	app := f.submitted(t)
	var err error
	_, err = f.svc.RunCredentialAdvisory(ctx, app.ID, admin)
	require.NoError(t, err)
	_, err = f.svc.Verify(ctx, app.ID, admin, true, "license checked")
	require.NoError(t, err)
	_, err = f.svc.ScheduleInterview(ctx, app.ID, admin, fixedNow.Add(48*time.Hour), "https://meet.example/abc")
	require.NoError(t, err)
	_, err = f.svc.CompleteInterview(ctx, app.ID, admin, intPtr(88), "strong manual therapy", boolPtr(true))
	require.NoError(t, err)
	_, err = f.svc.StartTraining(ctx, app.ID, admin)
	require.NoError(t, err)
	app, err = f.svc.CompleteTraining(ctx, app.ID, admin, intPtr(91), []int64{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, DoctorActivationPending, app.Status)
	return app
}

func TestDoctorLifecycleToActivation(t *testing.T) {
	f := newDoctorFixture(t)
	ctx := context.Background()
	app := f.activationPending(t)

	activated, result, err := f.svc.Activate(ctx, app.ID, Admin(7), true, "welcome aboard", nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, DoctorActivated, activated.Status)
	require.NotNil(t, activated.DoctorID)
	assert.Equal(t, result.ProfileID, *activated.DoctorID)
	assert.True(t, result.CreatedAccount)
	assert.Equal(t, "temporary-secret", result.TemporaryPassword)
	assert.Equal(t, "asha.menon@example.com", f.provisioner.requests[0].Email)

	logs, err := f.svc.Logs(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, logs, 11)
	assert.Equal(t, activitylog.ActionCreated, logs[0].Action)
	require.NoError(t, activitylog.VerifyChain(logs, string(DoctorDraft)))

	var auto []activitylog.Entry
	for _, e := range logs {
		if e.PerformedByType == activitylog.ActorSystem && e.Action == activitylog.ActionStatusChanged && e.Notes != "Application submitted" {
			auto = append(auto, e)
		}
	}
	require.Len(t, auto, 2)
	assert.Equal(t, "training_pending", *auto[0].NewValue)
	assert.Equal(t, "Automatically advanced to training_pending", auto[0].Notes)
	assert.Nil(t, auto[0].PerformedBy)
	assert.Equal(t, "activation_pending", *auto[1].NewValue)

	assert.Equal(t, []string{
		"submitted", "verification_pending", "verification_approved", "interview_scheduled", "interview_passed",
		"training_pending", "training_in_progress", "training_completed", "activation_pending", "activated",
	}, f.observer.targets())
	assert.Equal(t, 1.0, f.counter(t, "novacare_onboarding_transitions_total",
		map[string]string{"workflow": "doctor", "from": "activation_pending", "to": "activated"}))
}

func TestCreateRejectsDuplicateActiveEmail(t *testing.T) {
	f := newDoctorFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, validDoctorInput())
	require.NoError(t, err)

	in := validDoctorInput()
	in.Email = "  ASHA.MENON@example.com "
	_, err = f.svc.Create(ctx, in)
	assert.ErrorIs(t, err, ErrDuplicateApplication)
}

func TestCreateValidatesInput(t *testing.T) {
	f := newDoctorFixture(t)
	tests := []struct {
		name  string
		edit  func(*DoctorApplicationInput)
		field string
	}{
		{"missing email", func(in *DoctorApplicationInput) { in.Email = "" }, "email"},
		{"malformed email", func(in *DoctorApplicationInput) { in.Email = "not-an-email" }, "email"},
		{"bad date", func(in *DoctorApplicationInput) { in.DateOfBirth = "31/12/1990" }, "date_of_birth"},
		{"negative experience", func(in *DoctorApplicationInput) { in.ExperienceYears = -1 }, "experience_years"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validDoctorInput()
			tt.edit(&in)
			_, err := f.svc.Create(context.Background(), in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, []string{tt.field}, ve.Fields)
		})
	}
}

func TestSubmitReportsMissingFields(t *testing.T) {
	f := newDoctorFixture(t)
	ctx := context.Background()
	app, err := f.svc.Create(ctx, DoctorApplicationInput{FullName: "Ravi", Email: "ravi@example.com"})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, app.ID)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"phone", "specialization", "qualification", "license_number"}, ve.Fields)

	stored, err := f.svc.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, DoctorDraft, stored.Status)
	assert.Nil(t, stored.SubmittedAt)
}

func TestUpdateDraftOnlyWhileDraft(t *testing.T) {
	f := newDoctorFixture(t)
	ctx := context.Background()
	app, err := f.svc.Create(ctx, validDoctorInput())
	require.NoError(t, err)

	in := validDoctorInput()
	in.City = "Bengaluru"
	updated, err := f.svc.UpdateDraft(ctx, app.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Bengaluru", updated.City)
	assert.Equal(t, DoctorDraft, updated.Status)

	_, err = f.svc.Submit(ctx, app.ID)
	require.NoError(t, err)
	_, err = f.svc.UpdateDraft(ctx, app.ID, in)
	assert.ErrorIs(t, err, ErrNotEditable)

	logs, err := f.svc.Logs(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "application_updated", logs[1].Action)
	assert.Nil(t, logs[1].OldValue)
}

func TestCredentialAdvisoryUnavailableStillAdvances(t *testing.T) {
	f := newDoctorFixture(t)
	f.advisor.assessment = nil
	f.advisor.err = context.DeadlineExceeded
	ctx := context.Background()
	app := f.submitted(t)

	got, err := f.svc.RunCredentialAdvisory(ctx, app.ID, Admin(3))
	require.NoError(t, err)
	assert.Equal(t, DoctorVerificationPending, got.Status)
	assert.Nil(t, got.AIVerificationScore)
	require.NotNil(t, got.AIVerification)
	assert.True(t, got.AIVerification.Unavailable)
	assert.Nil(t, got.AIVerificationCompletedAt)

	logs, err := f.svc.Logs(ctx, app.ID)
	require.NoError(t, err)
	last := logs[len(logs)-1]
	assert.Equal(t, advisory.UnavailableNote, last.Notes)
	assert.Equal(t, activitylog.ActorAI, last.PerformedByType)
	require.NotNil(t, last.PerformedBy)
	assert.Equal(t, int64(3), *last.PerformedBy)
}

func TestCredentialAdvisoryRerunIsSelfTransition(t *testing.T) {
	f := newDoctorFixture(t)
	ctx := context.Background()
	app := f.submitted(t)

	_, err := f.svc.RunCredentialAdvisory(ctx, app.ID, Admin(3))
	require.NoError(t, err)
	f.advisor.assessment = scoredAssessment(64)
	got, err := f.svc.RunCredentialAdvisory(ctx, app.ID, Admin(3))
	require.NoError(t, err)
	assert.Equal(t, 64, *got.AIVerificationScore)

	logs, err := f.svc.Logs(ctx, app.ID)
	require.NoError(t, err)
	last := logs[len(logs)-1]
	assert.Equal(t, "ai_verify", last.Action)
	assert.Equal(t, *last.OldValue, *last.NewValue)
	assert.Equal(t, 2, f.advisor.calls)
	assert.Equal(t, []string{"submitted", "verification_pending"}, f.observer.targets())
}

func TestCredentialAdvisoryRefusedAfterDecision(t *testing.T) {
	f := newDoctorFixture(t)
	ctx := context.Background()
	app := f.submitted(t)
	_, err := f.svc.RunCredentialAdvisory(ctx, app.ID, Admin(3))
	require.NoError(t, err)
	_, err = f.svc.Verify(ctx, app.ID, Admin(3), true, "")
	require.NoError(t, err)

	calls := f.advisor.calls
	_, err = f.svc.RunCredentialAdvisory(ctx, app.ID, Admin(3))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, calls, f.advisor.calls)
}

func TestRejectedVerificationBlocksInterview(t *testing.T) {
	f := newDoctorFixture(t)
	ctx := context.Background()
	app := f.submitted(t)
	_, err := f.svc.RunCredentialAdvisory(ctx, app.ID, Admin(3))
	require.NoError(t, err)

	rejected, err := f.svc.Verify(ctx, app.ID, Admin(3), false, "license expired")
	require.NoError(t, err)
	assert.Equal(t, DoctorVerificationRejected, rejected.Status)
	assert.Equal(t, "license expired", rejected.RejectionReason)

	_, err = f.svc.ScheduleInterview(ctx, app.ID, Admin(3), fixedNow.Add(time.Hour), "")
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "verification_rejected", te.From)
	assert.Equal(t, "interview_scheduled", te.To)
	assert.Equal(t, 1.0, f.counter(t, "novacare_onboarding_invalid_transitions_total",
		map[string]string{"workflow": "doctor", "operation": "schedule_interview"}))

	_, err = f.svc.Reject(ctx, app.ID, Admin(3), "again")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestHumanCheckpointsRejectAutomatedActors(t *testing.T) {
	f := newDoctorFixture(t)
	ctx := context.Background()
	app := f.submitted(t)
	_, err := f.svc.RunCredentialAdvisory(ctx, app.ID, Admin(3))
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, app.ID, AIActor, true, "")
	assert.ErrorIs(t, err, ErrHumanRequired)
	_, err = f.svc.Verify(ctx, app.ID, SystemActor, true, "")
	assert.ErrorIs(t, err, ErrHumanRequired)
	_, _, err = f.svc.Activate(ctx, app.ID, ApplicantActor, true, "", nil)
	assert.ErrorIs(t, err, ErrHumanRequired)
}

func TestCompleteInterviewOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		passed *bool
		want   DoctorStatus
	}{
		{"undecided", nil, DoctorInterviewCompleted},
		{"passed moves on to training", boolPtr(true), DoctorTrainingPending},
		{"failed", boolPtr(false), DoctorInterviewFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDoctorFixture(t)
			ctx := context.Background()
			app := f.submitted(t)
			_, err := f.svc.RunCredentialAdvisory(ctx, app.ID, Admin(1))
			require.NoError(t, err)
			_, err = f.svc.Verify(ctx, app.ID, Admin(1), true, "")
			require.NoError(t, err)
			_, err = f.svc.ScheduleInterview(ctx, app.ID, Admin(1), fixedNow, "")
			require.NoError(t, err)

			got, err := f.svc.CompleteInterview(ctx, app.ID, Admin(1), intPtr(55), "notes", tt.passed)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, 55, *got.InterviewScore)
		})
	}
}

func TestCompleteInterviewRejectsOutOfRangeScore(t *testing.T) {
	f := newDoctorFixture(t)
	_, err := f.svc.CompleteInterview(context.Background(), 1, Admin(1), intPtr(101), "", nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestConcurrentActivationSucceedsOnce(t *testing.T) {
	f := newDoctorFixture(t)
	ctx := context.Background()
	app := f.activationPending(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.svc.Activate(ctx, app.ID, Admin(9), true, "", nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrInvalidTransition):
				conflicts++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
	assert.Len(t, f.provisioner.requests, 1)
}

func TestActivationProvisioningFailureKeepsStatus(t *testing.T) {
	f := newDoctorFixture(t)
	ctx := context.Background()
	app := f.activationPending(t)

	f.provisioner.err = errors.New("slug table locked")
	_, _, err := f.svc.Activate(ctx, app.ID, Admin(9), true, "", nil)
	var pe *ProvisioningError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "doctor_profile", pe.Step)

	stored, err := f.svc.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, DoctorActivationPending, stored.Status)

	f.provisioner.err = nil
	activated, _, err := f.svc.Activate(ctx, app.ID, Admin(9), true, "", nil)
	require.NoError(t, err)
	assert.Equal(t, DoctorActivated, activated.Status)
}

func TestActivationDeclinedRejects(t *testing.T) {
	f := newDoctorFixture(t)
	ctx := context.Background()
	app := f.activationPending(t)

	got, result, err := f.svc.Activate(ctx, app.ID, Admin(9), false, "references unverified", nil)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, DoctorRejected, got.Status)
	assert.Equal(t, "references unverified", got.RejectionReason)
	assert.Empty(t, f.provisioner.requests)
}

func TestActivationUsesPreferredBranch(t *testing.T) {
	f := newDoctorFixture(t)
	ctx := context.Background()
	branch := int64(4)
	in := validDoctorInput()
	in.PreferredBranchID = &branch
	app, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	f.store.mu.Lock()
	stored := f.store.apps[app.ID]
	stored.Status = DoctorActivationPending
	f.store.apps[app.ID] = stored
	f.store.mu.Unlock()

	_, _, err = f.svc.Activate(ctx, app.ID, Admin(9), true, "", nil)
	require.NoError(t, err)
	require.NotNil(t, f.provisioner.requests[0].BranchID)
	assert.Equal(t, int64(4), *f.provisioner.requests[0].BranchID)
}

func TestSuspendDeactivatesDoctor(t *testing.T) {
	f := newDoctorFixture(t)
	ctx := context.Background()
	app := f.activationPending(t)
	activated, _, err := f.svc.Activate(ctx, app.ID, Admin(9), true, "", nil)
	require.NoError(t, err)

	_, err = f.svc.Suspend(ctx, app.ID, Admin(9), "")
	assert.ErrorIs(t, err, ErrValidation)

	suspended, err := f.svc.Suspend(ctx, app.ID, Admin(9), "patient complaints")
	require.NoError(t, err)
	assert.Equal(t, DoctorSuspended, suspended.Status)
	assert.Equal(t, []int64{*activated.DoctorID}, f.provisioner.deactivated)

	_, err = f.svc.Suspend(ctx, app.ID, Admin(9), "twice")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestGenerateInterviewQuestions(t *testing.T) {
	f := newDoctorFixture(t)
	ctx := context.Background()
	app := f.submitted(t)

	f.advisor.qErr = errors.New("model overloaded")
	_, err := f.svc.GenerateInterviewQuestions(ctx, app.ID, Admin(2))
	assert.ErrorIs(t, err, advisory.ErrUnavailable)

	f.advisor.qErr = nil
	f.advisor.questions = []advisory.InterviewQuestion{{Category: "clinical", Question: "How do you progress ACL rehab?"}}
	got, err := f.svc.GenerateInterviewQuestions(ctx, app.ID, Admin(2))
	require.NoError(t, err)
	assert.Equal(t, DoctorSubmitted, got.Status)
	assert.Len(t, got.AIInterviewQuestions, 1)

	logs, err := f.svc.Logs(ctx, app.ID)
	require.NoError(t, err)
	last := logs[len(logs)-1]
	assert.Equal(t, "interview_questions_generated", last.Action)
	assert.Equal(t, "Generated 1 interview questions", last.Notes)
}

func TestPublicStatusRequiresMatchingEmail(t *testing.T) {
	f := newDoctorFixture(t)
	ctx := context.Background()
	app := f.submitted(t)

	status, err := f.svc.PublicStatus(ctx, app.ID, "ASHA.MENON@example.com")
	require.NoError(t, err)
	assert.Equal(t, "submitted", status.Status)
	assert.Equal(t, StageInfo{1, "Application", "Application under review"}, status.CurrentStage)
	require.NotNil(t, status.SubmittedAt)

	_, err = f.svc.PublicStatus(ctx, app.ID, "someone@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRejectsUnknownStatusFilter(t *testing.T) {
	f := newDoctorFixture(t)
	_, err := f.svc.List(context.Background(), ListFilter{Statuses: []string{"submitted", "bogus"}})
	assert.ErrorIs(t, err, ErrValidation)
}
