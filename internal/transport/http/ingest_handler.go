package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"erwpulse/internal/archive"
	apierrors "erwpulse/internal/errors"
	"erwpulse/internal/infrastructure"
	"erwpulse/internal/middleware"
	"erwpulse/internal/services"
	api "erwpulse/pkg/contracts/api/v1"
)

// multipartMemory is how much of a form is held in memory before parts
// spill to temporary files.
const multipartMemory = 8 << 20

// IngestHandler accepts workbook uploads.
type IngestHandler struct {
	service      IngestService
	maxBytes     int64
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewIngestHandler creates an ingest handler. Bodies over maxBytes are
// rejected with 413.
func NewIngestHandler(service IngestService, maxBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *IngestHandler {
	logger = infrastructure.WithComponent(logger, "ingest_handler")
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &IngestHandler{
		service:      service,
		maxBytes:     maxBytes,
		validator:    middleware.NewValidator(),
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// Routes returns the ingest routes. guards wrap the upload and download
// endpoints; the listing stays open.
func (h *IngestHandler) Routes(guards ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.With(guards...).
		With(middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data")).
		Post("/upload", h.Upload)
	r.Get("/uploads", h.Uploads)
	r.With(guards...).Get("/uploads/download", h.Download)
	return r
}

// Upload handles POST /api/feedstock/upload
func (h *IngestHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, apierrors.PayloadTooLarge(tooLarge.Limit))
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "file is required"))
		return
	}
	defer file.Close()

	form, err := parseUpload(r.Form)
	if err == nil {
		err = h.validator.ValidateStruct(form)
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	h.logger.InfoContext(r.Context(), "workbook upload received",
		slog.String("feedstock", form.FeedstockName),
		slog.Int("omega_threshold", form.Threshold),
		slog.String("filename", header.Filename),
		slog.Int("bytes", len(content)),
		slog.String("client", middleware.APIClient(r.Context())))

	result, err := h.service.Upload(r.Context(), services.UploadRequest{
		Feedstock: form.FeedstockName,
		Threshold: form.Threshold,
		Filename:  header.Filename,
		Content:   content,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Uploads handles GET /api/feedstock/uploads
func (h *IngestHandler) Uploads(w http.ResponseWriter, r *http.Request) {
	q := api.UploadsQuery{Feedstock: stringParam(r.URL.Query(), "feedstock", "")}
	if err := h.validator.ValidateStruct(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	objects, err := h.service.Uploads(r.Context(), q.Feedstock)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{
		"uploads": objects,
		"count":   len(objects),
	})
}

// Download handles GET /api/feedstock/uploads/download
func (h *IngestHandler) Download(w http.ResponseWriter, r *http.Request) {
	q := api.DownloadQuery{Key: stringParam(r.URL.Query(), "key", "")}
	if err := h.validator.ValidateStruct(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	data, err := h.service.Download(r.Context(), q.Key)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", archive.WorkbookContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(q.Key)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
