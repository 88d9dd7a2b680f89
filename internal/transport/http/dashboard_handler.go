package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "erwpulse/internal/errors"
	"erwpulse/internal/exporter"
	"erwpulse/internal/infrastructure"
	"erwpulse/internal/middleware"
	"erwpulse/internal/services"
	api "erwpulse/pkg/contracts/api/v1"
)

// DashboardHandler serves the dashboard panels.
type DashboardHandler struct {
	service      DashboardService
	defaults     api.DatasetQuery
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates a dashboard handler.
func NewDashboardHandler(service DashboardService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	logger = infrastructure.WithComponent(logger, "dashboard_handler")
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &DashboardHandler{
		service:      service,
		defaults:     api.DatasetQuery{Feedstock: DefaultFeedstock, Threshold: DefaultThreshold},
		validator:    middleware.NewValidator(),
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// WithDefaults changes the dataset served when a request names none.
func (h *DashboardHandler) WithDefaults(feedstock string, threshold int) *DashboardHandler {
	if feedstock != "" {
		h.defaults.Feedstock = feedstock
	}
	if threshold >= 0 {
		h.defaults.Threshold = threshold
	}
	return h
}

// Routes returns the dashboard routes.
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/dashboard/overview", panel(h, h.service.Overview))
	r.Get("/analytics/full", panel(h, h.service.AnalyticsFull))
	r.Get("/analytics/basin-stats", panel(h, h.service.BasinStats))
	r.Get("/analytics/nicb-quality", panel(h, h.service.NICBQuality))
	r.Get("/summary", panel(h, h.service.Summary))
	r.Get("/regions/cdr", panel(h, h.service.RegionCDR))
	r.Get("/states/cdr", panel(h, h.service.StateCDR))
	r.Get("/samples/map", panel(h, h.service.MapPoints))
	r.Get("/filters", panel(h, h.service.Filters))

	r.Get("/rivers/top", h.TopRivers)
	r.Get("/samples", h.Samples)
	r.Get("/samples/export", h.ExportSamples)
	r.Get("/feedstocks", h.Feedstocks)
	r.Get("/comparison", h.Comparison)
	return r
}

// panel adapts a service call that takes only a dataset into a handler.
func panel[T any](h *DashboardHandler, fetch func(context.Context, services.Dataset) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := h.dataset(w, r)
		if !ok {
			return
		}
		out, err := fetch(r.Context(), d)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		render.JSON(w, r, out)
	}
}

func (h *DashboardHandler) dataset(w http.ResponseWriter, r *http.Request) (services.Dataset, bool) {
	q, err := parseDataset(r.URL.Query(), h.defaults)
	if err == nil {
		err = h.validator.ValidateStruct(q)
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return services.Dataset{}, false
	}
	return toDataset(q), true
}

func toDataset(q api.DatasetQuery) services.Dataset {
	return services.Dataset{Feedstock: q.Feedstock, Threshold: q.Threshold}
}

// TopRivers handles GET /api/rivers/top
func (h *DashboardHandler) TopRivers(w http.ResponseWriter, r *http.Request) {
	q, err := parseRivers(r.URL.Query(), h.defaults)
	if err == nil {
		err = h.validator.ValidateStruct(q)
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	rivers, err := h.service.TopRivers(r.Context(), toDataset(q.DatasetQuery), q.Limit)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, rivers)
}

// Samples handles GET /api/samples
func (h *DashboardHandler) Samples(w http.ResponseWriter, r *http.Request) {
	q, err := parseSamples(r.URL.Query(), h.defaults)
	if err == nil {
		err = h.validator.ValidateStruct(q)
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	page, err := h.service.Samples(r.Context(), services.SamplesRequest{
		Dataset: toDataset(q.DatasetQuery),
		Region:  q.Region,
		State:   q.State,
		Skip:    q.Skip,
		Limit:   q.Limit,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, page)
}

// ExportSamples handles GET /api/samples/export
func (h *DashboardHandler) ExportSamples(w http.ResponseWriter, r *http.Request) {
	q, err := parseExport(r.URL.Query(), h.defaults)
	if err == nil {
		err = h.validator.ValidateStruct(q)
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	samples, err := h.service.ExportSamples(r.Context(), services.SamplesRequest{
		Dataset: toDataset(q.DatasetQuery),
		Region:  q.Region,
		State:   q.State,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", exporter.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_omega%d.csv"`, q.Feedstock, q.Threshold))
	n, err := exporter.WriteSamples(w, samples, exporter.Options{BOM: q.BOM})
	if err != nil {
		// Headers are already sent.
		h.logger.ErrorContext(r.Context(), "sample export failed",
			slog.Int("rows_written", n),
			slog.String("error", err.Error()))
		return
	}
	h.logger.InfoContext(r.Context(), "samples exported",
		slog.String("feedstock", q.Feedstock),
		slog.Int("omega", q.Threshold),
		slog.Int("rows", n))
}

// Feedstocks handles GET /api/feedstocks
func (h *DashboardHandler) Feedstocks(w http.ResponseWriter, r *http.Request) {
	feedstocks, err := h.service.Feedstocks(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, feedstocks)
}

// Comparison handles GET /api/comparison
func (h *DashboardHandler) Comparison(w http.ResponseWriter, r *http.Request) {
	q := api.ComparisonQuery{Feedstock: stringParam(r.URL.Query(), "feedstock", h.defaults.Feedstock)}
	if err := h.validator.ValidateStruct(q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	results, err := h.service.Comparison(r.Context(), q.Feedstock)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, results)
}
