package onboarding

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/meesalavenugopal/novacare247/internal/activitylog"
	"github.com/meesalavenugopal/novacare247/internal/advisory"
	"github.com/meesalavenugopal/novacare247/internal/db"
	"github.com/meesalavenugopal/novacare247/internal/provisioning"
)

// memStore is a Store held in memory. Mutate holds a store-wide lock, which
// serializes concurrent operations the way the row lock does.
type memStore[A any] struct {
	mu       sync.Mutex
	workflow string
	apps     map[int64]A
	logs     []activitylog.Entry
	nextID   int64
	nextLog  int64
	now      func() time.Time

	id     func(*A) int64
	setID  func(*A, int64)
	email  func(*A) string
	active func(*A) bool
	link   func(*A) *int64
}

func newDoctorMemStore() *memStore[DoctorApplication] {
	return &memStore[DoctorApplication]{
		workflow: WorkflowDoctor,
		apps:     map[int64]DoctorApplication{},
		now:      time.Now,
		id:       func(a *DoctorApplication) int64 { return a.ID },
		setID:    func(a *DoctorApplication, id int64) { a.ID = id },
		email:    func(a *DoctorApplication) string { return a.Email },
		active:   func(a *DoctorApplication) bool { return !DoctorGraph.Terminal(a.Status) },
		link:     func(a *DoctorApplication) *int64 { return a.DoctorID },
	}
}

func newClinicMemStore() *memStore[ClinicApplication] {
	return &memStore[ClinicApplication]{
		workflow: WorkflowClinic,
		apps:     map[int64]ClinicApplication{},
		now:      time.Now,
		id:       func(a *ClinicApplication) int64 { return a.ID },
		setID:    func(a *ClinicApplication, id int64) { a.ID = id },
		email:    func(a *ClinicApplication) string { return a.Email },
		active:   func(a *ClinicApplication) bool { return !ClinicGraph.Terminal(a.Status) },
		link:     func(a *ClinicApplication) *int64 { return a.BranchID },
	}
}

func (m *memStore[A]) appendLocked(id int64, e activitylog.Entry) {
	m.nextLog++
	e.ID = m.nextLog
	e.Workflow = m.workflow
	e.ApplicationID = id
	e.CreatedAt = m.now()
	m.logs = append(m.logs, e)
}

func (m *memStore[A]) Create(_ context.Context, app *A, created activitylog.Entry) (*A, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.apps {
		if m.active(&existing) && strings.EqualFold(m.email(&existing), m.email(app)) {
			return nil, ErrDuplicateApplication
		}
	}
	m.nextID++
	cp := *app
	m.setID(&cp, m.nextID)
	m.apps[m.nextID] = cp
	m.appendLocked(m.nextID, created)
	return &cp, nil
}

func (m *memStore[A]) HasActive(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.apps {
		if m.active(&existing) && strings.EqualFold(m.email(&existing), strings.TrimSpace(email)) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore[A]) Get(_ context.Context, id int64) (*A, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &app, nil
}

func (m *memStore[A]) GetByLink(_ context.Context, linkedID int64) (*A, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, app := range m.apps {
		if l := m.link(&app); l != nil && *l == linkedID {
			return &app, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore[A]) List(_ context.Context, f ListFilter) ([]A, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []A{}
	for i := int64(1); i <= m.nextID; i++ {
		if app, ok := m.apps[i]; ok {
			out = append(out, app)
		}
	}
	return out, nil
}

func (m *memStore[A]) Mutate(_ context.Context, id int64, fn MutateFunc[A]) (*A, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	entries, err := fn(nil, &app)
	if err != nil {
		return nil, err
	}
	m.apps[id] = app
	for _, e := range entries {
		m.appendLocked(id, e)
	}
	return &app, nil
}

func (m *memStore[A]) Logs(_ context.Context, id int64) ([]activitylog.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []activitylog.Entry{}
	for _, e := range m.logs {
		if e.ApplicationID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeAdvisor struct {
	assessment *advisory.Assessment
	err        error
	questions  []advisory.InterviewQuestion
	qErr       error
	calls      int
}

func (f *fakeAdvisor) AssessCredentials(context.Context, advisory.CredentialProfile) (*advisory.Assessment, error) {
	f.calls++
	return f.assessment, f.err
}

func (f *fakeAdvisor) InterviewQuestions(context.Context, advisory.CredentialProfile) ([]advisory.InterviewQuestion, error) {
	return f.questions, f.qErr
}

func (f *fakeAdvisor) ReviewClinicDocuments(context.Context, advisory.ClinicProfile) (*advisory.Assessment, error) {
	f.calls++
	return f.assessment, f.err
}

// fakeProvisioner looks up before creating, keyed like the real provisioner.
type fakeProvisioner struct {
	mu          sync.Mutex
	err         error
	doctors     map[string]int64
	branches    map[int64]int64
	nextID      int64
	deactivated []int64
	requests    []provisioning.DoctorRequest
}

func newFakeProvisioner() *fakeProvisioner {
	return &fakeProvisioner{doctors: map[string]int64{}, branches: map[int64]int64{}, nextID: 100}
}

func (p *fakeProvisioner) ProvisionDoctor(_ context.Context, _ db.Querier, req provisioning.DoctorRequest) (provisioning.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return provisioning.Result{}, &provisioning.StepError{Step: provisioning.StepProfile, Err: p.err}
	}
	p.requests = append(p.requests, req)
	if id, ok := p.doctors[req.Email]; ok {
		return provisioning.Result{ProfileID: id}, nil
	}
	p.nextID++
	p.doctors[req.Email] = p.nextID
	userID := p.nextID + 1000
	return provisioning.Result{
		UserID:            &userID,
		ProfileID:         p.nextID,
		Slug:              "dr-test",
		CreatedAccount:    true,
		CreatedProfile:    true,
		TemporaryPassword: "temporary-secret",
	}, nil
}

func (p *fakeProvisioner) DeactivateDoctor(_ context.Context, _ db.Querier, doctorID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deactivated = append(p.deactivated, doctorID)
	return nil
}

func (p *fakeProvisioner) ProvisionBranch(_ context.Context, _ db.Querier, req provisioning.BranchRequest) (provisioning.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return provisioning.Result{}, &provisioning.StepError{Step: provisioning.StepBranch, Err: p.err}
	}
	if id, ok := p.branches[req.ApplicationID]; ok {
		return provisioning.Result{ProfileID: id}, nil
	}
	p.nextID++
	p.branches[req.ApplicationID] = p.nextID
	return provisioning.Result{ProfileID: p.nextID, Slug: "clinic-test", CreatedProfile: true}, nil
}

func (p *fakeProvisioner) DeactivateBranch(_ context.Context, _ db.Querier, branchID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deactivated = append(p.deactivated, branchID)
	return nil
}

type recordingObserver struct {
	mu          sync.Mutex
	transitions []Transition
}

func (r *recordingObserver) Observe(_ context.Context, t Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, t)
}

func (r *recordingObserver) targets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, t := range r.transitions {
		out = append(out, t.To)
	}
	return out
}

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

func scoredAssessment(score int) *advisory.Assessment {
	return &advisory.Assessment{
		Score:           &score,
		Analysis:        "credentials look consistent",
		Recommendations: []string{"confirm license with council"},
		Flags:           []string{},
	}
}
