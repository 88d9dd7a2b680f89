package infrastructure

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erwpulse/internal/shared/testutil"
)

func TestInitializeOTel_ExposesPrometheus(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: "test",
		Environment:    "test",
		TraceExporter:  "none",
		MetricExporter: "prometheus",
		SampleRatio:    1,
	}, testutil.DiscardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	require.NotNil(t, providers.Meter)
	require.NotNil(t, providers.PrometheusHTTP)

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordAggregation(ctx, "basin_stats", 20*time.Millisecond, nil)
	metrics.RecordIngest(ctx, "calcite", 10, 2, nil)
	metrics.RecordCacheLookup(ctx, true)
	metrics.RecordCacheLookup(ctx, false)
	metrics.RecordHTTPRequest(ctx, "GET", "/api/summary", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, "aggregation_passes_total")
	assert.Contains(t, out, "ingest_rows_total")
	assert.Contains(t, out, `outcome="skipped"`)
	assert.Contains(t, out, "cache_hits_total")
	assert.Contains(t, out, "go_goroutines")
}

func TestInitializeOTel_RejectsUnknownExporter(t *testing.T) {
	_, err := InitializeOTel(&OTelConfig{TraceExporter: "zipkin", MetricExporter: "none"}, testutil.DiscardLogger())
	assert.Error(t, err)

	_, err = InitializeOTel(&OTelConfig{TraceExporter: "none", MetricExporter: "statsd"}, testutil.DiscardLogger())
	assert.Error(t, err)
}

func TestBusinessMetrics_NilIsNoop(t *testing.T) {
	var m *BusinessMetrics
	assert.NotPanics(t, func() {
		ctx := context.Background()
		m.RecordAggregation(ctx, "overview", time.Second, errors.New("x"))
		m.RecordIngest(ctx, "calcite", 1, 1, nil)
		m.RecordCacheLookup(ctx, true)
		m.RecordStoreError(ctx, "find")
		m.TrackWebSocketClient(ctx, 1)
		m.TrackActiveRequest(ctx, 1)
		m.RecordHTTPRequest(ctx, "GET", "/", 200, time.Second)
	})
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, "success", statusOf(nil))
	assert.Equal(t, "cancelled", statusOf(context.Canceled))
	assert.Equal(t, "failure", statusOf(io.ErrUnexpectedEOF))
}
