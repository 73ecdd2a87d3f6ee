package files

import (
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/estateops/estateops/internal/masterdata/shared"
	"github.com/estateops/estateops/internal/platform/httpx"
	"github.com/estateops/estateops/internal/rbac"
	sharedpkg "github.com/estateops/estateops/internal/shared"
)

// Handler manages file endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW}
}

// MountRoutes registers file routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(sharedpkg.PermFilesView, sharedpkg.PermFilesUpload, sharedpkg.PermFilesDelete))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/download", h.download)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(sharedpkg.PermFilesUpload))
		r.Post("/", h.upload)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(sharedpkg.PermFilesDelete))
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r)
	files, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"files":      files,
		"pagination": sharedpkg.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	file, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, file)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	url, err := h.service.DownloadURL(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	companyID, err := strconv.ParseInt(r.FormValue("company_id"), 10, 64)
	if err != nil || companyID <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid company_id")
		return
	}
	var propertyID *int64
	if raw := r.FormValue("property_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			httpx.Fail(w, http.StatusBadRequest, "invalid property_id")
			return
		}
		propertyID = &id
	}

	src, header, err := r.FormFile("file")
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "file part required")
		return
	}
	defer src.Close()

	file, err := h.service.Upload(r.Context(), UploadInput{
		CompanyID:   companyID,
		PropertyID:  propertyID,
		Category:    r.FormValue("category"),
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        src,
		UploadedBy:  h.actor(r),
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "file uploaded", file)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "file deleted", nil)
}

func (h *Handler) actor(r *http.Request) string {
	sess := sharedpkg.SessionFromContext(r.Context())
	if sess == nil {
		return ""
	}
	return sess.User()
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnsupportedType):
		httpx.Fail(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, ErrTooLarge):
		httpx.Fail(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		h.logger.Error("file operation failed", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
	}
}
