package documents

import (
	"errors"
	"net/http"

	"github.com/meesalavenugopal/novacare247/internal/http/render"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

type Handler struct {
	store  *Store
	logger *logging.Logger
}

func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger.Component("documents-http")}
}

type presignRequest struct {
	Folder      string `json:"folder"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
}

// Presign handles POST /uploads/presign.
func (h *Handler) Presign(w http.ResponseWriter, r *http.Request) {
	var req presignRequest
	if err := render.Decode(r, &req); err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	folder, err := ParseFolder(req.Folder)
	if err != nil {
		render.BadRequest(w, err.Error())
		return
	}
	ticket, err := h.store.PresignUpload(r.Context(), folder, req.Filename, req.ContentType, req.FileSize)
	switch {
	case errors.Is(err, ErrInvalidFile):
		render.BadRequest(w, err.Error())
	case errors.Is(err, ErrNotConfigured):
		render.Error(w, http.StatusServiceUnavailable, "storage_unavailable", "file uploads are not configured")
	case err != nil:
		h.logger.Error("presign failed", "folder", folder, "error", err)
		render.Internal(w)
	default:
		render.JSON(w, http.StatusOK, ticket)
	}
}
