package http

import (
	"context"

	"erwpulse/internal/archive"
	"erwpulse/internal/services"
	"erwpulse/pkg/contracts/domain"
)

// DashboardService answers the read-only dashboard panels.
type DashboardService interface {
	Overview(ctx context.Context, d services.Dataset) (domain.OverviewKPI, error)
	AnalyticsFull(ctx context.Context, d services.Dataset) ([]domain.AnalyticsPoint, error)
	BasinStats(ctx context.Context, d services.Dataset) ([]domain.BasinStat, error)
	NICBQuality(ctx context.Context, d services.Dataset) ([]domain.NICBQuality, error)
	Summary(ctx context.Context, d services.Dataset) ([]domain.SummaryRecord, error)
	RegionCDR(ctx context.Context, d services.Dataset) ([]domain.RegionCDR, error)
	StateCDR(ctx context.Context, d services.Dataset) ([]domain.StateCDR, error)
	TopRivers(ctx context.Context, d services.Dataset, limit int) ([]domain.RiverCDR, error)
	MapPoints(ctx context.Context, d services.Dataset) ([]domain.MapPoint, error)
	Samples(ctx context.Context, req services.SamplesRequest) (domain.SamplePage, error)
	ExportSamples(ctx context.Context, req services.SamplesRequest) ([]domain.Sample, error)
	Filters(ctx context.Context, d services.Dataset) (domain.Filters, error)
	Feedstocks(ctx context.Context) ([]domain.Feedstock, error)
	Comparison(ctx context.Context, feedstock string) ([]domain.ComparisonResult, error)
}

// IngestService loads uploaded workbooks and lists the archived copies.
type IngestService interface {
	Upload(ctx context.Context, req services.UploadRequest) (domain.UploadResult, error)
	Uploads(ctx context.Context, feedstock string) ([]archive.Object, error)
	Download(ctx context.Context, key string) ([]byte, error)
}

// ChatContextBuilder produces the grounding text of the assistant panel.
type ChatContextBuilder interface {
	Build(ctx context.Context) (services.ChatContext, error)
}

var (
	_ DashboardService   = (*services.DashboardService)(nil)
	_ IngestService      = (*services.IngestService)(nil)
	_ ChatContextBuilder = (*services.ChatContextBuilder)(nil)
)
