package onboarding

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/meesalavenugopal/novacare247/internal/advisory"
	"github.com/meesalavenugopal/novacare247/internal/http/middleware"
	"github.com/meesalavenugopal/novacare247/internal/http/render"
	"github.com/meesalavenugopal/novacare247/internal/provisioning"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

// Handler serves the doctor and clinic onboarding endpoints.
type Handler struct {
	doctors   *DoctorService
	clinics   *ClinicService
	dashboard *Dashboard
	logger    *logging.Logger
}

func NewHandler(doctors *DoctorService, clinics *ClinicService, dashboard *Dashboard, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{doctors: doctors, clinics: clinics, dashboard: dashboard, logger: logger.Component("onboarding-http")}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var (
		validation *ValidationError
		transition *TransitionError
		provision  *ProvisioningError
	)
	switch {
	case errors.As(err, &validation):
		render.Error(w, http.StatusBadRequest, "validation_failed", validation.Error())
	case errors.Is(err, ErrNotFound):
		render.Error(w, http.StatusNotFound, "not_found", "application not found")
	case errors.As(err, &transition):
		render.Error(w, http.StatusConflict, "invalid_transition", transition.Error())
	case errors.Is(err, ErrNotEditable):
		render.Error(w, http.StatusConflict, "not_editable", err.Error())
	case errors.Is(err, ErrDuplicateApplication):
		render.Error(w, http.StatusConflict, "duplicate_application", err.Error())
	case errors.Is(err, ErrHumanRequired):
		render.Error(w, http.StatusForbidden, "human_review_required", err.Error())
	case errors.Is(err, advisory.ErrUnavailable):
		render.Error(w, http.StatusServiceUnavailable, "advisory_unavailable", advisory.UnavailableNote)
	case errors.As(err, &provision):
		h.logger.Error("activation provisioning failed", "op", op, "step", provision.Step, "error", provision.Err)
		render.Error(w, http.StatusInternalServerError, "provisioning_failed", "activation failed at "+provision.Step+"; it is safe to retry")
	default:
		h.logger.Error("onboarding request failed", "op", op, "error", err)
		render.Internal(w)
	}
}

// actor resolves the authenticated reviewer. RequireRoles has already run.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		render.Error(w, http.StatusUnauthorized, "unauthorized", "missing credentials")
		return Actor{}, false
	}
	id, ok := claims.UserID()
	if !ok {
		render.Error(w, http.StatusUnauthorized, "unauthorized", "invalid token subject")
		return Actor{}, false
	}
	return Admin(id), true
}

func (h *Handler) id(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := render.IDParam(r, "id")
	if err != nil {
		render.BadRequest(w, err.Error())
		return 0, false
	}
	return id, true
}

// decodeOptional decodes a JSON body when one was sent. Chunked requests
// report ContentLength -1, so an empty stream is only detected on read.
func decodeOptional(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := render.Decode(r, dst); err != nil && !errors.Is(err, render.ErrEmptyBody) {
		return err
	}
	return nil
}

func listFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	var f ListFilter
	if raw := q.Get("statuses"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				f.Statuses = append(f.Statuses, s)
			}
		}
	} else if s := strings.TrimSpace(q.Get("status")); s != "" {
		f.Statuses = []string{s}
	}
	var err error
	if raw := q.Get("skip"); raw != "" {
		if f.Skip, err = strconv.Atoi(raw); err != nil {
			return f, invalidField("skip", "must be an integer")
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if f.Limit, err = strconv.Atoi(raw); err != nil {
			return f, invalidField("limit", "must be an integer")
		}
	}
	return f, nil
}

// reason reads {"reason": ...} or ?reason=.
func reason(r *http.Request) (string, error) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := decodeOptional(r, &body); err != nil {
		return "", err
	}
	if body.Reason == "" {
		body.Reason = r.URL.Query().Get("reason")
	}
	return strings.TrimSpace(body.Reason), nil
}

type decisionRequest struct {
	Approved *bool  `json:"approved"`
	Notes    string `json:"notes"`
}

// decision reports the reviewer's verdict. A missing verdict is refused
// because the negative branch of every decision is terminal.
func (d decisionRequest) decision() (bool, error) {
	if d.Approved == nil {
		return false, invalidField("approved", "approved is required")
	}
	return *d.Approved, nil
}

type activationResponse[A any] struct {
	Application  *A                   `json:"application"`
	Provisioning *provisioning.Result `json:"provisioning,omitempty"`
}

// CreateDoctorApplication handles POST /onboarding/apply.
func (h *Handler) CreateDoctorApplication(w http.ResponseWriter, r *http.Request) {
	var in DoctorApplicationInput
	if err := render.Decode(r, &in); err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	app, err := h.doctors.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create_doctor_application", err)
		return
	}
	render.JSON(w, http.StatusCreated, app)
}

// UpdateDoctorApplication handles PUT /onboarding/apply/{id}.
func (h *Handler) UpdateDoctorApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var in DoctorApplicationInput
	if err := render.Decode(r, &in); err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	app, err := h.doctors.UpdateDraft(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update_doctor_application", err)
		return
	}
	render.JSON(w, http.StatusOK, app)
}

// SubmitDoctorApplication handles POST /onboarding/apply/{id}/submit.
func (h *Handler) SubmitDoctorApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	app, err := h.doctors.Submit(r.Context(), id)
	if err != nil {
		h.fail(w, "submit_doctor_application", err)
		return
	}
	render.JSON(w, http.StatusOK, app)
}

// DoctorApplicationStatus handles GET /onboarding/apply/{id}/status?email=.
func (h *Handler) DoctorApplicationStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	email := r.URL.Query().Get("email")
	if strings.TrimSpace(email) == "" {
		render.BadRequest(w, "email is required")
		return
	}
	status, err := h.doctors.PublicStatus(r.Context(), id, email)
	if err != nil {
		h.fail(w, "doctor_application_status", err)
		return
	}
	render.JSON(w, http.StatusOK, status)
}

// ListDoctorApplications handles GET /admin/applications.
func (h *Handler) ListDoctorApplications(w http.ResponseWriter, r *http.Request) {
	f, err := listFilter(r)
	if err != nil {
		h.fail(w, "list_doctor_applications", err)
		return
	}
	apps, err := h.doctors.List(r.Context(), f)
	if err != nil {
		h.fail(w, "list_doctor_applications", err)
		return
	}
	render.JSON(w, http.StatusOK, apps)
}

// DoctorDashboard handles GET /admin/applications/dashboard.
func (h *Handler) DoctorDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Doctor(r.Context())
	if err != nil {
		h.fail(w, "doctor_dashboard", err)
		return
	}
	render.JSON(w, http.StatusOK, stats)
}

// GetDoctorApplication handles GET /admin/applications/{id}.
func (h *Handler) GetDoctorApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	app, err := h.doctors.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get_doctor_application", err)
		return
	}
	render.JSON(w, http.StatusOK, app)
}

// GetDoctorApplicationByDoctor handles GET /admin/applications/by-doctor/{doctorID}.
func (h *Handler) GetDoctorApplicationByDoctor(w http.ResponseWriter, r *http.Request) {
	doctorID, err := render.IDParam(r, "doctorID")
	if err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	app, err := h.doctors.GetByDoctor(r.Context(), doctorID)
	if err != nil {
		h.fail(w, "get_doctor_application_by_doctor", err)
		return
	}
	render.JSON(w, http.StatusOK, app)
}

// DoctorApplicationLogs handles GET /admin/applications/{id}/logs.
func (h *Handler) DoctorApplicationLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	logs, err := h.doctors.Logs(r.Context(), id)
	if err != nil {
		h.fail(w, "doctor_application_logs", err)
		return
	}
	render.JSON(w, http.StatusOK, logs)
}

// doctorAction runs an admin operation that returns the updated application.
func (h *Handler) doctorAction(op string, run func(r *http.Request, id int64, actor Actor) (*DoctorApplication, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.id(w, r)
		if !ok {
			return
		}
		actor, ok := h.actor(w, r)
		if !ok {
			return
		}
		app, err := run(r, id, actor)
		if err != nil {
			h.fail(w, op, err)
			return
		}
		render.JSON(w, http.StatusOK, app)
	}
}

// RunDoctorAdvisory handles POST /admin/applications/{id}/ai-verify.
func (h *Handler) RunDoctorAdvisory(w http.ResponseWriter, r *http.Request) {
	h.doctorAction("ai_verify", func(r *http.Request, id int64, actor Actor) (*DoctorApplication, error) {
		return h.doctors.RunCredentialAdvisory(r.Context(), id, actor)
	})(w, r)
}

// VerifyDoctor handles POST /admin/applications/{id}/verify.
func (h *Handler) VerifyDoctor(w http.ResponseWriter, r *http.Request) {
	h.doctorAction("verify", func(r *http.Request, id int64, actor Actor) (*DoctorApplication, error) {
		var req decisionRequest
		if err := render.Decode(r, &req); err != nil {
			return nil, invalidField("body", err.Error())
		}
		approved, err := req.decision()
		if err != nil {
			return nil, err
		}
		return h.doctors.Verify(r.Context(), id, actor, approved, req.Notes)
	})(w, r)
}

// GenerateInterviewQuestions handles POST /admin/applications/{id}/generate-questions.
func (h *Handler) GenerateInterviewQuestions(w http.ResponseWriter, r *http.Request) {
	h.doctorAction("generate_questions", func(r *http.Request, id int64, actor Actor) (*DoctorApplication, error) {
		return h.doctors.GenerateInterviewQuestions(r.Context(), id, actor)
	})(w, r)
}

type scheduleRequest struct {
	ScheduledAt      time.Time `json:"scheduled_at"`
	MeetingLink      string    `json:"meeting_link"`
	VerificationType string    `json:"verification_type"`
	Attendees        []string  `json:"attendees"`
}

// ScheduleInterview handles POST /admin/applications/{id}/schedule-interview.
func (h *Handler) ScheduleInterview(w http.ResponseWriter, r *http.Request) {
	h.doctorAction("schedule_interview", func(r *http.Request, id int64, actor Actor) (*DoctorApplication, error) {
		var req scheduleRequest
		if err := render.Decode(r, &req); err != nil {
			return nil, invalidField("body", err.Error())
		}
		return h.doctors.ScheduleInterview(r.Context(), id, actor, req.ScheduledAt, req.MeetingLink)
	})(w, r)
}

type outcomeRequest struct {
	Score  *int     `json:"score"`
	Notes  string   `json:"notes"`
	Passed *bool    `json:"passed"`
	Photos []string `json:"photos"`
}

// CompleteInterview handles POST /admin/applications/{id}/complete-interview.
func (h *Handler) CompleteInterview(w http.ResponseWriter, r *http.Request) {
	h.doctorAction("complete_interview", func(r *http.Request, id int64, actor Actor) (*DoctorApplication, error) {
		var req outcomeRequest
		if err := render.Decode(r, &req); err != nil {
			return nil, invalidField("body", err.Error())
		}
		return h.doctors.CompleteInterview(r.Context(), id, actor, req.Score, req.Notes, req.Passed)
	})(w, r)
}

// StartTraining handles POST /admin/applications/{id}/start-training.
func (h *Handler) StartTraining(w http.ResponseWriter, r *http.Request) {
	h.doctorAction("start_training", func(r *http.Request, id int64, actor Actor) (*DoctorApplication, error) {
		return h.doctors.StartTraining(r.Context(), id, actor)
	})(w, r)
}

// scoreFromQuery supports the ?score= form used by older admin clients.
func scoreFromQuery(r *http.Request) (*int, error) {
	raw := r.URL.Query().Get("score")
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, invalidField("score", "must be an integer")
	}
	return &n, nil
}

// CompleteDoctorTraining handles POST /admin/applications/{id}/complete-training.
func (h *Handler) CompleteDoctorTraining(w http.ResponseWriter, r *http.Request) {
	h.doctorAction("complete_training", func(r *http.Request, id int64, actor Actor) (*DoctorApplication, error) {
		var req struct {
			Score            *int    `json:"score"`
			ModulesCompleted []int64 `json:"modules_completed"`
		}
		if err := decodeOptional(r, &req); err != nil {
			return nil, invalidField("body", err.Error())
		}
		if req.Score == nil {
			score, err := scoreFromQuery(r)
			if err != nil {
				return nil, err
			}
			req.Score = score
		}
		return h.doctors.CompleteTraining(r.Context(), id, actor, req.Score, req.ModulesCompleted)
	})(w, r)
}

// ActivateDoctor handles POST /admin/applications/{id}/activate.
func (h *Handler) ActivateDoctor(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req struct {
		decisionRequest
		BranchID *int64 `json:"branch_id"`
	}
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	approved, err := req.decision()
	if err != nil {
		h.fail(w, "activate_doctor", err)
		return
	}
	app, result, err := h.doctors.Activate(r.Context(), id, actor, approved, req.Notes, req.BranchID)
	if err != nil {
		h.fail(w, "activate_doctor", err)
		return
	}
	render.JSON(w, http.StatusOK, activationResponse[DoctorApplication]{Application: app, Provisioning: result})
}

// RejectDoctor handles POST /admin/applications/{id}/reject.
func (h *Handler) RejectDoctor(w http.ResponseWriter, r *http.Request) {
	h.doctorAction("reject", func(r *http.Request, id int64, actor Actor) (*DoctorApplication, error) {
		why, err := reason(r)
		if err != nil {
			return nil, invalidField("body", err.Error())
		}
		return h.doctors.Reject(r.Context(), id, actor, why)
	})(w, r)
}

// SuspendDoctor handles POST /admin/applications/{id}/suspend.
func (h *Handler) SuspendDoctor(w http.ResponseWriter, r *http.Request) {
	h.doctorAction("suspend", func(r *http.Request, id int64, actor Actor) (*DoctorApplication, error) {
		why, err := reason(r)
		if err != nil {
			return nil, invalidField("body", err.Error())
		}
		return h.doctors.Suspend(r.Context(), id, actor, why)
	})(w, r)
}
