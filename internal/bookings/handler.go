package bookings

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meesalavenugopal/novacare247/internal/accounts"
	"github.com/meesalavenugopal/novacare247/internal/http/middleware"
	"github.com/meesalavenugopal/novacare247/internal/http/render"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

// Handler serves the public booking flow and the staff booking views.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger.Component("bookings-http")}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidStatus):
		render.BadRequest(w, err.Error())
	case errors.Is(err, ErrDoctorNotFound), errors.Is(err, ErrBookingNotFound):
		render.Error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrSlotConflict):
		render.Error(w, http.StatusConflict, "slot_conflict", "this slot is already booked")
	case errors.Is(err, ErrDoctorUnavailable):
		render.Error(w, http.StatusUnprocessableEntity, "doctor_unavailable", err.Error())
	default:
		h.logger.Error("booking request failed", "op", op, "error", err)
		render.Internal(w)
	}
}

// AvailableSlots handles GET /bookings/available-slots/{doctorID}/{date}.
func (h *Handler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, err := render.IDParam(r, "doctorID")
	if err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	slots, err := h.service.AvailableSlots(r.Context(), doctorID, chi.URLParam(r, "date"))
	if err != nil {
		h.fail(w, "available_slots", err)
		return
	}
	render.JSON(w, http.StatusOK, slots)
}

// Create handles POST /bookings.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in NewBooking
	if err := render.Decode(r, &in); err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok && claims.Role == accounts.RolePatient {
		if id, ok := claims.UserID(); ok {
			in.PatientID = &id
		}
	}
	b, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create", err)
		return
	}
	render.JSON(w, http.StatusCreated, b)
}

// Get handles GET /bookings/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := render.IDParam(r, "id")
	if err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get", err)
		return
	}
	render.JSON(w, http.StatusOK, b)
}

// Cancel handles DELETE /bookings/{id}. An optional ?reason= is recorded.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := render.IDParam(r, "id")
	if err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	b, err := h.service.Cancel(r.Context(), id, r.URL.Query().Get("reason"))
	if err != nil {
		h.fail(w, "cancel", err)
		return
	}
	render.JSON(w, http.StatusOK, b)
}

// LookupByPhone handles GET /bookings/check/{phone}.
func (h *Handler) LookupByPhone(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.LookupByPhone(r.Context(), chi.URLParam(r, "phone"))
	if err != nil {
		h.fail(w, "lookup_by_phone", err)
		return
	}
	render.JSON(w, http.StatusOK, list)
}

// Update handles PUT /bookings/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := render.IDParam(r, "id")
	if err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	var u Update
	if err := render.Decode(r, &u); err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	b, err := h.service.UpdateStatus(r.Context(), id, u)
	if err != nil {
		h.fail(w, "update", err)
		return
	}
	render.JSON(w, http.StatusOK, b)
}

// Today handles GET /bookings/today. Doctors see only their own bookings.
func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	var doctorID *int64
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok && claims.Role == accounts.RoleDoctor {
		userID, _ := claims.UserID()
		doc, err := h.service.DoctorForUser(r.Context(), userID)
		if errors.Is(err, ErrDoctorNotFound) {
			render.JSON(w, http.StatusOK, []Booking{})
			return
		}
		if err != nil {
			h.fail(w, "today", err)
			return
		}
		doctorID = &doc.ID
	}
	list, err := h.service.Today(r.Context(), doctorID)
	if err != nil {
		h.fail(w, "today", err)
		return
	}
	render.JSON(w, http.StatusOK, list)
}

// ListForDoctor handles GET /bookings/doctor/{doctorID}?start_date=&end_date=.
func (h *Handler) ListForDoctor(w http.ResponseWriter, r *http.Request) {
	doctorID, err := render.IDParam(r, "doctorID")
	if err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	q := r.URL.Query()
	list, err := h.service.ListForDoctor(r.Context(), doctorID, q.Get("start_date"), q.Get("end_date"))
	if err != nil {
		h.fail(w, "list_for_doctor", err)
		return
	}
	render.JSON(w, http.StatusOK, list)
}

// List handles GET /admin/bookings?status=&skip=&limit=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{Status: q.Get("status")}
	for name, dst := range map[string]*int{"skip": &f.Skip, "limit": &f.Limit} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			render.BadRequest(w, name+" must be an integer")
			return
		}
		*dst = n
	}
	list, err := h.service.List(r.Context(), f)
	if err != nil {
		h.fail(w, "list", err)
		return
	}
	render.JSON(w, http.StatusOK, list)
}
