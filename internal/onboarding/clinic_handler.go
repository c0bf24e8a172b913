package onboarding

import (
	"net/http"
	"strings"
	"time"

	"github.com/meesalavenugopal/novacare247/internal/http/render"
)

// CreateClinicApplication handles POST /onboarding/clinic/apply.
func (h *Handler) CreateClinicApplication(w http.ResponseWriter, r *http.Request) {
	var in ClinicApplicationInput
	if err := render.Decode(r, &in); err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	app, err := h.clinics.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create_clinic_application", err)
		return
	}
	render.JSON(w, http.StatusCreated, app)
}

// UpdateClinicApplication handles PUT /onboarding/clinic/apply/{id}.
func (h *Handler) UpdateClinicApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var in ClinicApplicationInput
	if err := render.Decode(r, &in); err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	app, err := h.clinics.UpdateDraft(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update_clinic_application", err)
		return
	}
	render.JSON(w, http.StatusOK, app)
}

// SubmitClinicApplication handles POST /onboarding/clinic/apply/{id}/submit.
func (h *Handler) SubmitClinicApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	app, err := h.clinics.Submit(r.Context(), id)
	if err != nil {
		h.fail(w, "submit_clinic_application", err)
		return
	}
	render.JSON(w, http.StatusOK, app)
}

// ClinicApplicationStatus handles GET /onboarding/clinic/apply/{id}/status?email=.
func (h *Handler) ClinicApplicationStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	email := r.URL.Query().Get("email")
	if strings.TrimSpace(email) == "" {
		render.BadRequest(w, "email is required")
		return
	}
	status, err := h.clinics.PublicStatus(r.Context(), id, email)
	if err != nil {
		h.fail(w, "clinic_application_status", err)
		return
	}
	render.JSON(w, http.StatusOK, status)
}

func (h *Handler) ListClinicApplications(w http.ResponseWriter, r *http.Request) {
	f, err := listFilter(r)
	if err != nil {
		h.fail(w, "list_clinic_applications", err)
		return
	}
	apps, err := h.clinics.List(r.Context(), f)
	if err != nil {
		h.fail(w, "list_clinic_applications", err)
		return
	}
	render.JSON(w, http.StatusOK, apps)
}

func (h *Handler) ClinicDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Clinic(r.Context())
	if err != nil {
		h.fail(w, "clinic_dashboard", err)
		return
	}
	render.JSON(w, http.StatusOK, stats)
}

func (h *Handler) GetClinicApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	app, err := h.clinics.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get_clinic_application", err)
		return
	}
	render.JSON(w, http.StatusOK, app)
}

func (h *Handler) GetClinicApplicationByBranch(w http.ResponseWriter, r *http.Request) {
	branchID, err := render.IDParam(r, "branchID")
	if err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	app, err := h.clinics.GetByBranch(r.Context(), branchID)
	if err != nil {
		h.fail(w, "get_clinic_application_by_branch", err)
		return
	}
	render.JSON(w, http.StatusOK, app)
}

func (h *Handler) ClinicApplicationLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	logs, err := h.clinics.Logs(r.Context(), id)
	if err != nil {
		h.fail(w, "clinic_application_logs", err)
		return
	}
	render.JSON(w, http.StatusOK, logs)
}

func (h *Handler) clinicAction(op string, run func(r *http.Request, id int64, actor Actor) (*ClinicApplication, error)) http.HandlerFunc {
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

// RunClinicAdvisory handles POST /admin/clinic-applications/{id}/ai-review.
func (h *Handler) RunClinicAdvisory(w http.ResponseWriter, r *http.Request) {
	h.clinicAction("ai_review", func(r *http.Request, id int64, actor Actor) (*ClinicApplication, error) {
		return h.clinics.RunDocumentAdvisory(r.Context(), id, actor)
	})(w, r)
}

func (h *Handler) VerifyClinicDocuments(w http.ResponseWriter, r *http.Request) {
	h.clinicAction("verify_documents", func(r *http.Request, id int64, actor Actor) (*ClinicApplication, error) {
		var req decisionRequest
		if err := render.Decode(r, &req); err != nil {
			return nil, invalidField("body", err.Error())
		}
		approved, err := req.decision()
		if err != nil {
			return nil, err
		}
		return h.clinics.VerifyDocumentation(r.Context(), id, actor, approved, req.Notes)
	})(w, r)
}

func (h *Handler) ScheduleSiteVisit(w http.ResponseWriter, r *http.Request) {
	h.clinicAction("schedule_site_visit", func(r *http.Request, id int64, actor Actor) (*ClinicApplication, error) {
		var req scheduleRequest
		if err := render.Decode(r, &req); err != nil {
			return nil, invalidField("body", err.Error())
		}
		return h.clinics.ScheduleSiteVerification(r.Context(), id, actor, req.ScheduledAt, req.VerificationType)
	})(w, r)
}

func (h *Handler) CompleteSiteVisit(w http.ResponseWriter, r *http.Request) {
	h.clinicAction("complete_site_visit", func(r *http.Request, id int64, actor Actor) (*ClinicApplication, error) {
		var req outcomeRequest
		if err := render.Decode(r, &req); err != nil {
			return nil, invalidField("body", err.Error())
		}
		return h.clinics.CompleteSiteVerification(r.Context(), id, actor, SiteVisitResult{
			Score:  req.Score,
			Notes:  req.Notes,
			Photos: req.Photos,
			Passed: req.Passed,
		})
	})(w, r)
}

type contractRequest struct {
	DocumentURL string `json:"contract_document_url"`
	StartDate   string `json:"contract_start_date"`
	EndDate     string `json:"contract_end_date"`
	Tier        string `json:"partnership_tier"`
}

func (c contractRequest) terms() (ContractTerms, error) {
	terms := ContractTerms{DocumentURL: strings.TrimSpace(c.DocumentURL), Tier: c.Tier}
	for _, d := range []struct {
		field string
		raw   string
		dst   **time.Time
	}{
		{"contract_start_date", c.StartDate, &terms.StartDate},
		{"contract_end_date", c.EndDate, &terms.EndDate},
	} {
		if d.raw == "" {
			continue
		}
		t, err := time.Parse(dateLayout, d.raw)
		if err != nil {
			return terms, invalidField(d.field, "must be YYYY-MM-DD")
		}
		*d.dst = &t
	}
	if terms.StartDate != nil && terms.EndDate != nil && terms.EndDate.Before(*terms.StartDate) {
		return terms, invalidField("contract_end_date", "must not be before the start date")
	}
	return terms, nil
}

func (h *Handler) SignContract(w http.ResponseWriter, r *http.Request) {
	h.clinicAction("sign_contract", func(r *http.Request, id int64, actor Actor) (*ClinicApplication, error) {
		var req contractRequest
		if err := render.Decode(r, &req); err != nil {
			return nil, invalidField("body", err.Error())
		}
		terms, err := req.terms()
		if err != nil {
			return nil, err
		}
		return h.clinics.SignContract(r.Context(), id, actor, terms)
	})(w, r)
}

func (h *Handler) CompleteSetup(w http.ResponseWriter, r *http.Request) {
	h.clinicAction("complete_setup", func(r *http.Request, id int64, actor Actor) (*ClinicApplication, error) {
		var req struct {
			Notes string `json:"notes"`
		}
		if err := decodeOptional(r, &req); err != nil {
			return nil, invalidField("body", err.Error())
		}
		return h.clinics.CompleteSetup(r.Context(), id, actor, req.Notes)
	})(w, r)
}

func (h *Handler) ScheduleClinicTraining(w http.ResponseWriter, r *http.Request) {
	h.clinicAction("schedule_training", func(r *http.Request, id int64, actor Actor) (*ClinicApplication, error) {
		var req scheduleRequest
		if err := render.Decode(r, &req); err != nil {
			return nil, invalidField("body", err.Error())
		}
		return h.clinics.ScheduleTraining(r.Context(), id, actor, req.ScheduledAt, req.Attendees)
	})(w, r)
}

func (h *Handler) CompleteClinicTraining(w http.ResponseWriter, r *http.Request) {
	h.clinicAction("complete_training", func(r *http.Request, id int64, actor Actor) (*ClinicApplication, error) {
		var req outcomeRequest
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
		return h.clinics.CompleteTraining(r.Context(), id, actor, req.Score, req.Notes)
	})(w, r)
}

func (h *Handler) ActivateClinic(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req decisionRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	approved, err := req.decision()
	if err != nil {
		h.fail(w, "activate_clinic", err)
		return
	}
	app, result, err := h.clinics.Activate(r.Context(), id, actor, approved, req.Notes)
	if err != nil {
		h.fail(w, "activate_clinic", err)
		return
	}
	render.JSON(w, http.StatusOK, activationResponse[ClinicApplication]{Application: app, Provisioning: result})
}

func (h *Handler) RejectClinic(w http.ResponseWriter, r *http.Request) {
	h.clinicAction("reject", func(r *http.Request, id int64, actor Actor) (*ClinicApplication, error) {
		why, err := reason(r)
		if err != nil {
			return nil, invalidField("body", err.Error())
		}
		return h.clinics.Reject(r.Context(), id, actor, why)
	})(w, r)
}

func (h *Handler) SuspendClinic(w http.ResponseWriter, r *http.Request) {
	h.clinicAction("suspend", func(r *http.Request, id int64, actor Actor) (*ClinicApplication, error) {
		why, err := reason(r)
		if err != nil {
			return nil, invalidField("body", err.Error())
		}
		return h.clinics.Suspend(r.Context(), id, actor, why)
	})(w, r)
}
