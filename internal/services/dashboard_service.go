package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"erwpulse/internal/analytics"
	"erwpulse/internal/cache"
	"erwpulse/internal/infrastructure"
	"erwpulse/internal/store"
	"erwpulse/pkg/contracts/domain"
)

// Dashboard panels, also used as cache key segments and metric labels.
const (
	PanelOverview   = "overview"
	PanelAnalytics  = "analytics_full"
	PanelBasinStats = "basin_stats"
	PanelNICB       = "nicb_quality"
	PanelSummary    = "summary"
	PanelRegions    = "regions_cdr"
	PanelStates     = "states_cdr"
	PanelRivers     = "rivers_top"
	PanelMap        = "samples_map"
	PanelSamples    = "samples"
	PanelExport     = "samples_export"
	PanelFilters    = "filters"
	PanelFeedstocks = "feedstocks"
	PanelComparison = "comparison"
)

// DefaultRiverLimit and DefaultPageLimit apply when a request names none.
const (
	DefaultRiverLimit = 20
	DefaultPageLimit  = 200
)

// Dataset names one feedstock at one saturation threshold.
type Dataset struct {
	Feedstock string
	Threshold int
}

func (d Dataset) normalized() Dataset {
	d.Feedstock = strings.ToLower(strings.TrimSpace(d.Feedstock))
	return d
}

func (d Dataset) filter() domain.Filter {
	return domain.DatasetFilter(d.Feedstock, d.Threshold)
}

// SamplesRequest pages through one dataset, optionally narrowed to a
// region and a state.
type SamplesRequest struct {
	Dataset
	Region string
	State  string
	Skip   int
	Limit  int
}

// DashboardOptions configures a DashboardService. Zero values pick no-op
// collaborators.
type DashboardOptions struct {
	Cache             cache.Cache
	Keys              cache.Keys
	ComparisonWorkers int
	Metrics           *infrastructure.BusinessMetrics
	Logger            *slog.Logger
}

// DashboardService answers every dashboard panel from the sample store,
// caching rendered results per dataset.
type DashboardService struct {
	reader   guardedReader
	cache    cache.Cache
	keys     cache.Keys
	comparer *analytics.Comparer
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

// NewDashboardService creates a dashboard service over reader.
func NewDashboardService(reader store.SampleReader, opts DashboardOptions) *DashboardService {
	if opts.Cache == nil {
		opts.Cache = cache.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	guarded := guardedReader{reader: reader, metrics: opts.Metrics}
	return &DashboardService{
		reader:   guarded,
		cache:    opts.Cache,
		keys:     opts.Keys,
		comparer: analytics.NewComparer(guarded, opts.ComparisonWorkers),
		metrics:  opts.Metrics,
		logger:   infrastructure.WithComponent(opts.Logger, "dashboard_service"),
	}
}

// cached serves key from the cache or computes, records and stores it.
// Cache failures degrade to a recomputation.
func cached[T any](ctx context.Context, s *DashboardService, key, panel string, compute func(context.Context) (T, error)) (T, error) {
	var out T
	hit, err := cache.GetJSON(ctx, s.cache, key, &out)
	if err != nil {
		s.logger.WarnContext(ctx, "cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
	s.metrics.RecordCacheLookup(ctx, hit)
	if hit {
		return out, nil
	}

	ctx, span := infrastructure.StartSpan(ctx, "dashboard."+panel, attribute.String("cache.key", key))
	defer span.End()

	start := time.Now()
	out, err = compute(ctx)
	s.metrics.RecordAggregation(ctx, panel, time.Since(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		var zero T
		return zero, classify(err)
	}

	if err := cache.SetJSON(ctx, s.cache, key, out); err != nil {
		s.logger.WarnContext(ctx, "cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
	return out, nil
}

func (s *DashboardService) dataset(ctx context.Context, d Dataset) ([]domain.Sample, error) {
	return s.reader.FindSamples(ctx, d.filter(), domain.Page{})
}

// Overview returns the headline KPIs of a dataset.
func (s *DashboardService) Overview(ctx context.Context, d Dataset) (domain.OverviewKPI, error) {
	d = d.normalized()
	return cached(ctx, s, s.keys.Dataset(d.Feedstock, PanelOverview, d.Threshold), PanelOverview,
		func(ctx context.Context) (domain.OverviewKPI, error) {
			return analytics.Overview(ctx, s.reader, d.Feedstock, d.Threshold)
		})
}

// AnalyticsFull returns the per-sample chart projection of a dataset.
func (s *DashboardService) AnalyticsFull(ctx context.Context, d Dataset) ([]domain.AnalyticsPoint, error) {
	d = d.normalized()
	return cached(ctx, s, s.keys.Dataset(d.Feedstock, PanelAnalytics, d.Threshold), PanelAnalytics,
		func(ctx context.Context) ([]domain.AnalyticsPoint, error) {
			samples, err := s.dataset(ctx, d)
			if err != nil {
				return nil, err
			}
			return analytics.AnalyticsPoints(samples), nil
		})
}

// BasinStats returns the per-region chemistry rollup.
func (s *DashboardService) BasinStats(ctx context.Context, d Dataset) ([]domain.BasinStat, error) {
	d = d.normalized()
	return cached(ctx, s, s.keys.Dataset(d.Feedstock, PanelBasinStats, d.Threshold), PanelBasinStats,
		func(ctx context.Context) ([]domain.BasinStat, error) {
			samples, err := s.dataset(ctx, d)
			if err != nil {
				return nil, err
			}
			return analytics.BasinStats(ctx, samples)
		})
}

// NICBQuality classifies charge-balance errors per region.
func (s *DashboardService) NICBQuality(ctx context.Context, d Dataset) ([]domain.NICBQuality, error) {
	d = d.normalized()
	return cached(ctx, s, s.keys.Dataset(d.Feedstock, PanelNICB, d.Threshold), PanelNICB,
		func(ctx context.Context) ([]domain.NICBQuality, error) {
			samples, err := s.dataset(ctx, d)
			if err != nil {
				return nil, err
			}
			return analytics.ClassifyNICB(ctx, samples, domain.FieldRegion)
		})
}

// Summary returns the stored summary rows of a dataset.
func (s *DashboardService) Summary(ctx context.Context, d Dataset) ([]domain.SummaryRecord, error) {
	d = d.normalized()
	return cached(ctx, s, s.keys.Dataset(d.Feedstock, PanelSummary, d.Threshold), PanelSummary,
		func(ctx context.Context) ([]domain.SummaryRecord, error) {
			records, err := s.reader.FindSummaries(ctx, domain.SummaryFilter{Feedstock: d.Feedstock, Threshold: &d.Threshold})
			if err != nil {
				return nil, err
			}
			if records == nil {
				records = []domain.SummaryRecord{}
			}
			return records, nil
		})
}

// RegionCDR returns carbon removal per region.
func (s *DashboardService) RegionCDR(ctx context.Context, d Dataset) ([]domain.RegionCDR, error) {
	d = d.normalized()
	return cached(ctx, s, s.keys.Dataset(d.Feedstock, PanelRegions, d.Threshold), PanelRegions,
		func(ctx context.Context) ([]domain.RegionCDR, error) {
			samples, err := s.dataset(ctx, d)
			if err != nil {
				return nil, err
			}
			return analytics.RegionCDR(ctx, samples)
		})
}

// StateCDR returns carbon removal per state.
func (s *DashboardService) StateCDR(ctx context.Context, d Dataset) ([]domain.StateCDR, error) {
	d = d.normalized()
	return cached(ctx, s, s.keys.Dataset(d.Feedstock, PanelStates, d.Threshold), PanelStates,
		func(ctx context.Context) ([]domain.StateCDR, error) {
			samples, err := s.dataset(ctx, d)
			if err != nil {
				return nil, err
			}
			return analytics.StateCDR(ctx, samples)
		})
}

// TopRivers returns the limit rivers with the largest total CDR.
func (s *DashboardService) TopRivers(ctx context.Context, d Dataset, limit int) ([]domain.RiverCDR, error) {
	d = d.normalized()
	if limit <= 0 {
		limit = DefaultRiverLimit
	}
	return cached(ctx, s, s.keys.Dataset(d.Feedstock, PanelRivers, d.Threshold, limit), PanelRivers,
		func(ctx context.Context) ([]domain.RiverCDR, error) {
			samples, err := s.dataset(ctx, d)
			if err != nil {
				return nil, err
			}
			return analytics.TopRivers(ctx, samples, limit)
		})
}

// MapPoints returns the located samples of a dataset.
func (s *DashboardService) MapPoints(ctx context.Context, d Dataset) ([]domain.MapPoint, error) {
	d = d.normalized()
	return cached(ctx, s, s.keys.Dataset(d.Feedstock, PanelMap, d.Threshold), PanelMap,
		func(ctx context.Context) ([]domain.MapPoint, error) {
			samples, err := s.dataset(ctx, d)
			if err != nil {
				return nil, err
			}
			return analytics.MapPoints(samples), nil
		})
}

// Samples returns one page of raw samples and the unpaged total. Pages are
// not cached.
func (s *DashboardService) Samples(ctx context.Context, req SamplesRequest) (domain.SamplePage, error) {
	req.Dataset = req.Dataset.normalized()
	if req.Limit <= 0 {
		req.Limit = DefaultPageLimit
	}
	filter := req.filter()
	filter.Region = req.Region
	filter.State = req.State

	start := time.Now()
	page, err := s.samplePage(ctx, filter, domain.Page{Skip: req.Skip, Limit: req.Limit})
	s.metrics.RecordAggregation(ctx, PanelSamples, time.Since(start), err)
	return page, err
}

func (s *DashboardService) samplePage(ctx context.Context, filter domain.Filter, page domain.Page) (domain.SamplePage, error) {
	samples, err := s.reader.FindSamples(ctx, filter, page)
	if err != nil {
		return domain.SamplePage{}, err
	}
	total, err := s.reader.CountSamples(ctx, filter)
	if err != nil {
		return domain.SamplePage{}, err
	}
	if samples == nil {
		samples = []domain.Sample{}
	}
	return domain.SamplePage{Samples: samples, Total: total}, nil
}

// ExportSamples returns every sample of a dataset matching the region and
// state of req. Skip applies; a zero Limit means no limit.
func (s *DashboardService) ExportSamples(ctx context.Context, req SamplesRequest) ([]domain.Sample, error) {
	req.Dataset = req.Dataset.normalized()
	filter := req.filter()
	filter.Region = req.Region
	filter.State = req.State

	start := time.Now()
	samples, err := s.reader.FindSamples(ctx, filter, domain.Page{Skip: req.Skip, Limit: req.Limit})
	s.metrics.RecordAggregation(ctx, PanelExport, time.Since(start), err)
	return samples, err
}

// Filters lists the regions and states present in a dataset.
func (s *DashboardService) Filters(ctx context.Context, d Dataset) (domain.Filters, error) {
	d = d.normalized()
	return cached(ctx, s, s.keys.Dataset(d.Feedstock, PanelFilters, d.Threshold), PanelFilters,
		func(ctx context.Context) (domain.Filters, error) {
			regions, err := s.reader.Distinct(ctx, domain.FieldRegion, d.filter())
			if err != nil {
				return domain.Filters{}, err
			}
			states, err := s.reader.Distinct(ctx, domain.FieldState, d.filter())
			if err != nil {
				return domain.Filters{}, err
			}
			return analytics.FiltersFrom(regions, states), nil
		})
}

// Feedstocks lists the feedstock registry.
func (s *DashboardService) Feedstocks(ctx context.Context) ([]domain.Feedstock, error) {
	return cached(ctx, s, s.keys.Global(PanelFeedstocks), PanelFeedstocks,
		func(ctx context.Context) ([]domain.Feedstock, error) {
			list, err := s.reader.ListFeedstocks(ctx)
			if err != nil {
				return nil, err
			}
			if list == nil {
				list = []domain.Feedstock{}
			}
			return list, nil
		})
}

// Comparison summarizes a feedstock at every loaded threshold, ascending.
func (s *DashboardService) Comparison(ctx context.Context, feedstock string) ([]domain.ComparisonResult, error) {
	feedstock = strings.ToLower(strings.TrimSpace(feedstock))
	return cached(ctx, s, s.keys.Dataset(feedstock, PanelComparison), PanelComparison,
		func(ctx context.Context) ([]domain.ComparisonResult, error) {
			return s.comparer.Compare(ctx, feedstock)
		})
}
