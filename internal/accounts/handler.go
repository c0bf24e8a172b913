package accounts

import (
	"errors"
	"net/http"
	"strings"

	"github.com/meesalavenugopal/novacare247/internal/http/render"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

// Handler exposes the login endpoint.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		render.Error(w, http.StatusBadRequest, "validation_failed", "email and password are required")
		return
	}
	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		render.Error(w, http.StatusUnauthorized, "invalid_credentials", "incorrect email or password")
		return
	}
	if err != nil {
		h.logger.Error("login failed", "error", err)
		render.Error(w, http.StatusInternalServerError, "internal_error", "login failed")
		return
	}
	render.JSON(w, http.StatusOK, result)
}
