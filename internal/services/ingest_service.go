package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"erwpulse/internal/archive"
	"erwpulse/internal/cache"
	"erwpulse/internal/dataprocessing"
	apierrors "erwpulse/internal/errors"
	"erwpulse/internal/infrastructure"
	"erwpulse/internal/store"
	"erwpulse/pkg/contracts/domain"
	"erwpulse/pkg/contracts/events"
)

// Broadcaster pushes live updates to connected dashboards.
type Broadcaster interface {
	Broadcast(msg events.Message)
}

// UploadRequest is one workbook posted for ingestion.
type UploadRequest struct {
	Feedstock string
	Threshold int
	Filename  string
	Content   []byte
}

// IngestOptions configures an IngestService. Nil collaborators are
// replaced with no-ops.
type IngestOptions struct {
	Archive       archive.Archive
	ArchivePrefix string
	Cache         cache.Cache
	Keys          cache.Keys
	Hub           Broadcaster
	Metrics       *infrastructure.BusinessMetrics
	Logger        *slog.Logger
}

// IngestService loads results workbooks into the sample store.
type IngestService struct {
	store         store.Store
	workbooks     *dataprocessing.WorkbookReader
	archive       archive.Archive
	archivePrefix string
	cache         cache.Cache
	keys          cache.Keys
	hub           Broadcaster
	metrics       *infrastructure.BusinessMetrics
	logger        *slog.Logger
	now           func() time.Time
}

// NewIngestService creates an ingest service writing to st.
func NewIngestService(st store.Store, opts IngestOptions) *IngestService {
	if opts.Archive == nil {
		opts.Archive = archive.Noop{}
	}
	if opts.Cache == nil {
		opts.Cache = cache.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := infrastructure.WithComponent(opts.Logger, "ingest_service")
	return &IngestService{
		store:         st,
		workbooks:     dataprocessing.NewWorkbookReader(opts.Logger),
		archive:       opts.Archive,
		archivePrefix: opts.ArchivePrefix,
		cache:         opts.Cache,
		keys:          opts.Keys,
		hub:           opts.Hub,
		metrics:       opts.Metrics,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Upload archives the raw workbook, loads its samples and summaries and
// registers the dataset. Archiving is best effort.
func (s *IngestService) Upload(ctx context.Context, req UploadRequest) (domain.UploadResult, error) {
	batch := dataprocessing.BatchContext{Feedstock: req.Feedstock, Threshold: req.Threshold}.Normalized()
	if err := checkDataset(batch); err != nil {
		return domain.UploadResult{}, classify(err)
	}
	if len(req.Content) == 0 {
		return domain.UploadResult{}, classify(ErrEmptyUpload)
	}

	ctx, span := infrastructure.StartSpan(ctx, "ingest.upload",
		attribute.String("feedstock", batch.Feedstock),
		attribute.Int("omega_threshold", batch.Threshold),
		attribute.Int("bytes", len(req.Content)),
	)
	defer span.End()

	s.archiveUpload(ctx, batch, req)

	parsed, err := s.workbooks.Read(bytes.NewReader(req.Content), batch)
	if err != nil {
		s.metrics.RecordIngest(ctx, batch.Feedstock, 0, 0, err)
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "rejected workbook",
			slog.String("feedstock", batch.Feedstock),
			slog.String("filename", req.Filename),
			slog.String("error", err.Error()))
		return domain.UploadResult{}, classify(err)
	}

	result, err := s.load(ctx, parsed)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return domain.UploadResult{}, err
	}
	return result, nil
}

func checkDataset(batch dataprocessing.BatchContext) error {
	if batch.Feedstock == "" {
		return ErrMissingFeedstock
	}
	if batch.Threshold < 0 {
		return ErrInvalidThreshold
	}
	return nil
}

func (s *IngestService) archiveUpload(ctx context.Context, batch dataprocessing.BatchContext, req UploadRequest) {
	key := archive.UploadKey(s.archivePrefix, batch.Feedstock, batch.Threshold, req.Filename, s.now())
	obj, err := s.archive.Put(ctx, key, req.Content, archive.WorkbookContentType)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to archive upload",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return
	}
	s.logger.DebugContext(ctx, "upload archived",
		slog.String("key", obj.Key),
		slog.Int64("size", obj.Size))
}

// load writes a parsed batch, updates the registry and tells dashboards.
func (s *IngestService) load(ctx context.Context, b *dataprocessing.Batch) (domain.UploadResult, error) {
	// Seeds and CLI loads have no request trace; dashboards still get one.
	ctx = infrastructure.EnsureTraceID(ctx)
	feedstock, threshold := b.Context.Feedstock, b.Context.Threshold
	accepted := len(b.Samples)

	if accepted > 0 {
		if err := s.store.InsertSamples(ctx, b.Samples); err != nil {
			return domain.UploadResult{}, s.writeFailed(ctx, "insert_samples", feedstock, err)
		}
	}
	if len(b.Summaries) > 0 {
		if err := s.store.InsertSummaries(ctx, b.Summaries); err != nil {
			return domain.UploadResult{}, s.writeFailed(ctx, "insert_summaries", feedstock, err)
		}
	}
	if _, err := s.store.RegisterFeedstock(ctx, feedstock, threshold, accepted); err != nil {
		return domain.UploadResult{}, s.writeFailed(ctx, "register_feedstock", feedstock, err)
	}

	if err := cache.InvalidateFeedstock(ctx, s.cache, s.keys, feedstock); err != nil {
		s.logger.WarnContext(ctx, "cache invalidation failed",
			slog.String("feedstock", feedstock),
			slog.String("error", err.Error()))
	}
	s.metrics.RecordIngest(ctx, feedstock, accepted, b.SkippedRows, nil)

	if s.hub != nil {
		msg := events.NewMessage(events.MessageTypeDatasetUpdated, events.DatasetUpdated{
			Feedstock:      feedstock,
			Threshold:      threshold,
			SamplesAdded:   accepted,
			SummariesAdded: len(b.Summaries),
		})
		msg.TraceID = infrastructure.GetTraceID(ctx)
		s.hub.Broadcast(msg)
	}

	s.logger.InfoContext(ctx, "workbook ingested",
		slog.String("feedstock", feedstock),
		slog.Int("omega_threshold", threshold),
		slog.String("sheet", b.Sheet),
		slog.Int("samples", accepted),
		slog.Int("summaries", len(b.Summaries)),
		slog.Int("skipped_rows", b.SkippedRows))

	return domain.UploadResult{
		Message:        fmt.Sprintf("Uploaded %d samples", accepted),
		Feedstock:      feedstock,
		Threshold:      threshold,
		SamplesCount:   accepted,
		SummariesCount: len(b.Summaries),
		Skipped:        b.SkippedRows,
	}, nil
}

func (s *IngestService) writeFailed(ctx context.Context, op, feedstock string, err error) error {
	s.metrics.RecordIngest(ctx, feedstock, 0, 0, err)
	if ctx.Err() == nil {
		s.metrics.RecordStoreError(ctx, op)
	}
	s.logger.ErrorContext(ctx, "ingest write failed",
		slog.String("operation", op),
		slog.String("feedstock", feedstock),
		slog.String("error", err.Error()))
	return storageError(op, err)
}

// Seed loads the workbook at path into an empty store. It reports whether
// anything was loaded; a store that already holds samples is left alone.
func (s *IngestService) Seed(ctx context.Context, path string, d Dataset) (domain.UploadResult, bool, error) {
	n, err := s.store.CountSamples(ctx, domain.Filter{})
	if err != nil {
		return domain.UploadResult{}, false, upstreamError("count_samples", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "store already populated, skipping seed",
			slog.Int("samples", n))
		return domain.UploadResult{}, false, nil
	}

	batch := dataprocessing.BatchContext{Feedstock: d.Feedstock, Threshold: d.Threshold}.Normalized()
	if err := checkDataset(batch); err != nil {
		return domain.UploadResult{}, false, classify(err)
	}
	parsed, err := s.workbooks.ReadFile(path, batch)
	if err != nil {
		return domain.UploadResult{}, false, classify(fmt.Errorf("seed %s: %w", path, err))
	}
	result, err := s.load(ctx, parsed)
	if err != nil {
		return domain.UploadResult{}, false, err
	}
	return result, true, nil
}

// Uploads lists archived workbooks, optionally for one feedstock.
func (s *IngestService) Uploads(ctx context.Context, feedstock string) ([]archive.Object, error) {
	prefix := strings.Trim(s.archivePrefix, "/")
	if feedstock != "" {
		prefix = archive.FeedstockPrefix(s.archivePrefix, feedstock)
	}
	objects, err := s.archive.List(ctx, prefix)
	if err != nil {
		return nil, upstreamError("list_uploads", err)
	}
	if objects == nil {
		objects = []archive.Object{}
	}
	return objects, nil
}

// Download returns an archived workbook by the key Uploads listed.
func (s *IngestService) Download(ctx context.Context, key string) ([]byte, error) {
	clean := path.Clean(strings.TrimPrefix(key, "/"))
	if key == "" || clean != strings.TrimPrefix(key, "/") || strings.HasPrefix(clean, "..") {
		return nil, classify(ErrInvalidUploadKey)
	}
	if prefix := strings.Trim(s.archivePrefix, "/"); prefix != "" && !strings.HasPrefix(clean, prefix+"/") {
		return nil, classify(ErrInvalidUploadKey)
	}

	data, err := s.archive.Get(ctx, clean)
	switch {
	case errors.Is(err, archive.ErrNotFound):
		return nil, apierrors.NewNotFoundError("archived upload").WithContext("key", clean)
	case err != nil:
		if ctx.Err() != nil {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "archive read failed",
			slog.String("key", clean),
			slog.String("error", err.Error()))
		return nil, apierrors.NewStorageError("get_upload", err)
	}
	return data, nil
}
