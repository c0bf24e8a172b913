package catalog

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/meesalavenugopal/novacare247/internal/advisory"
	"github.com/meesalavenugopal/novacare247/internal/http/render"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

// ModuleDrafter generates training module drafts.
type ModuleDrafter interface {
	TrainingModuleDraft(ctx context.Context, topic, specialization string) (*advisory.ModuleDraft, error)
}

// Handler serves public catalog reads and admin catalog management.
type Handler struct {
	repo    *Repository
	drafter ModuleDrafter
	logger  *logging.Logger
}

func NewHandler(repo *Repository, drafter ModuleDrafter, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, drafter: drafter, logger: logger.Component("catalog")}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		render.Error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrInvalidInput):
		render.BadRequest(w, err.Error())
	default:
		h.logger.Error("catalog request failed", "op", op, "error", err)
		render.Internal(w)
	}
}

// ListDoctors handles GET /doctors. Unavailable doctors are hidden unless
// ?include_unavailable=true.
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("include_unavailable") == "true"
	doctors, err := h.repo.ListDoctors(r.Context(), !all)
	if err != nil {
		h.fail(w, "list_doctors", err)
		return
	}
	render.JSON(w, http.StatusOK, doctors)
}

// GetDoctor handles GET /doctors/{slug}.
func (h *Handler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	d, err := h.repo.GetDoctorBySlug(r.Context(), strings.ToLower(chi.URLParam(r, "slug")))
	if err != nil {
		h.fail(w, "get_doctor", err)
		return
	}
	render.JSON(w, http.StatusOK, d)
}

// ListBranches handles GET /branches.
func (h *Handler) ListBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.repo.ListBranches(r.Context(), true)
	if err != nil {
		h.fail(w, "list_branches", err)
		return
	}
	render.JSON(w, http.StatusOK, branches)
}

// ListTrainingModules handles GET /training-modules (active only).
func (h *Handler) ListTrainingModules(w http.ResponseWriter, r *http.Request) {
	modules, err := h.repo.ListModules(r.Context(), true)
	if err != nil {
		h.fail(w, "list_modules", err)
		return
	}
	render.JSON(w, http.StatusOK, modules)
}

// AdminListTrainingModules handles GET /admin/training-modules.
func (h *Handler) AdminListTrainingModules(w http.ResponseWriter, r *http.Request) {
	modules, err := h.repo.ListModules(r.Context(), false)
	if err != nil {
		h.fail(w, "list_modules", err)
		return
	}
	render.JSON(w, http.StatusOK, modules)
}

// CreateTrainingModule handles POST /admin/training-modules.
func (h *Handler) CreateTrainingModule(w http.ResponseWriter, r *http.Request) {
	var in TrainingModule
	if err := render.Decode(r, &in); err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	m, err := h.repo.CreateModule(r.Context(), in)
	if err != nil {
		h.fail(w, "create_module", err)
		return
	}
	render.JSON(w, http.StatusCreated, m)
}

type draftRequest struct {
	Topic          string `json:"topic"`
	Specialization string `json:"specialization"`
}

// GenerateTrainingModule handles POST /admin/training-modules/generate. The
// draft is returned for editing and is not persisted.
func (h *Handler) GenerateTrainingModule(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		render.BadRequest(w, "topic is required")
		return
	}
	if h.drafter == nil {
		render.Error(w, http.StatusServiceUnavailable, "advisory_unavailable", advisory.UnavailableNote)
		return
	}
	draft, err := h.drafter.TrainingModuleDraft(r.Context(), req.Topic, req.Specialization)
	if err != nil {
		if !errors.Is(err, advisory.ErrUnavailable) {
			h.logger.Warn("training module draft failed", "error", err)
		}
		render.Error(w, http.StatusServiceUnavailable, "advisory_unavailable", advisory.UnavailableNote)
		return
	}
	render.JSON(w, http.StatusOK, moduleFromDraft(draft))
}

func moduleFromDraft(d *advisory.ModuleDraft) TrainingModule {
	quiz := make([]QuizQuestion, 0, len(d.Quiz))
	for _, q := range d.Quiz {
		quiz = append(quiz, QuizQuestion{
			Question:      q.Question,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		})
	}
	return TrainingModule{
		Title:           d.Title,
		Description:     d.Description,
		Content:         d.Content,
		DurationMinutes: d.DurationMinutes,
		IsMandatory:     true,
		Quiz:            quiz,
		PassingScore:    70,
	}
}

// ListSlots handles GET /admin/doctors/{doctorID}/slots.
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, err := render.IDParam(r, "doctorID")
	if err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	slots, err := h.repo.ListTemplates(r.Context(), doctorID)
	if err != nil {
		h.fail(w, "list_slots", err)
		return
	}
	render.JSON(w, http.StatusOK, slots)
}

// CreateSlot handles POST /admin/doctors/{doctorID}/slots.
func (h *Handler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	doctorID, err := render.IDParam(r, "doctorID")
	if err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	in := SlotTemplate{IsActive: true}
	if err := render.Decode(r, &in); err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	in.DoctorID = doctorID
	if _, err := h.repo.GetDoctor(r.Context(), doctorID); err != nil {
		h.fail(w, "create_slot", err)
		return
	}
	s, err := h.repo.CreateTemplate(r.Context(), in)
	if err != nil {
		h.fail(w, "create_slot", err)
		return
	}
	render.JSON(w, http.StatusCreated, s)
}

// UpdateSlot handles PUT /admin/slots/{id}.
func (h *Handler) UpdateSlot(w http.ResponseWriter, r *http.Request) {
	id, err := render.IDParam(r, "id")
	if err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	var in SlotTemplate
	if err := render.Decode(r, &in); err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	in.ID = id
	s, err := h.repo.UpdateTemplate(r.Context(), in)
	if err != nil {
		h.fail(w, "update_slot", err)
		return
	}
	render.JSON(w, http.StatusOK, s)
}

// DeleteSlot handles DELETE /admin/slots/{id}.
func (h *Handler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	id, err := render.IDParam(r, "id")
	if err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	if err := h.repo.DeleteTemplate(r.Context(), id); err != nil {
		h.fail(w, "delete_slot", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
