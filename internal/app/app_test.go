package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erwpulse/internal/config"
	"erwpulse/internal/dataprocessing"
	customMiddleware "erwpulse/internal/middleware"
	"erwpulse/internal/shared/testutil"
	"erwpulse/pkg/contracts/domain"
	"erwpulse/pkg/contracts/events"
)

const testIngestKey = "lab-key"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Security.RateLimit.Enabled = false
	cfg.Security.IngestKeys = map[string]string{testIngestKey: "field-lab"}
	cfg.Archive.Backend = config.ArchiveFS
	cfg.Archive.Dir = t.TempDir()
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	a, err := New(context.Background(), cfg, testutil.DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		a.WebSocketHub.Stop()
		a.closeBackends(context.Background())
	})
	return a
}

func seedWorkbook() testutil.Workbook {
	return testutil.Workbook{
		Results: []testutil.Row{
			{dataprocessing.ColSampleNo: "A1", dataprocessing.ColPH: 7.7, dataprocessing.ColRegion: "Cauvery", dataprocessing.ColState: "Tamil Nadu", dataprocessing.ColCDRTYr: 30.0},
			{dataprocessing.ColSampleNo: "A2", dataprocessing.ColPH: 7.9, dataprocessing.ColRegion: "Cauvery", dataprocessing.ColState: "Karnataka", dataprocessing.ColCDRTYr: 15.0},
			{dataprocessing.ColSampleNo: "A3", dataprocessing.ColPH: 8.2, dataprocessing.ColRegion: "Mahanadi", dataprocessing.ColState: "Odisha", dataprocessing.ColCDRTYr: 5.0},
		},
		Summaries: []testutil.Row{
			{dataprocessing.SumColRegion: "Cauvery", dataprocessing.SumColAddMean: 0.5, dataprocessing.SumColNSamples: 2},
		},
	}
}

func uploadRequest(t *testing.T, url, key string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("feedstock_name", "basalt"))
	require.NoError(t, mw.WriteField("omega_threshold", "5"))
	part, err := mw.CreateFormFile("file", "results.xlsx")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url+"/api/feedstock/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if key != "" {
		req.Header.Set(customMiddleware.APIKeyHeader, key)
	}
	return req
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestNew(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	assert.NotNil(t, a.Router)
	assert.NotNil(t, a.Server)
	assert.NotNil(t, a.Store)
	assert.NotNil(t, a.Cache)
	assert.NotNil(t, a.Archive)
	assert.NotNil(t, a.WebSocketHub)
	assert.NotNil(t, a.Metrics)
	require.NotNil(t, a.Services)
	assert.NotNil(t, a.Services.Dashboard)
	assert.NotNil(t, a.Services.Ingest)
	assert.NotNil(t, a.Services.Chat)
	assert.NotNil(t, a.Services.Health)
	assert.Equal(t, "127.0.0.1:0", a.Server.Addr)
}

func TestNew_BackendFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "cassandra"

	_, err := New(context.Background(), cfg, testutil.DiscardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample store")
}

func TestApplication_Routes(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	tests := []struct {
		path       string
		wantStatus int
	}{
		{path: "/api/health", wantStatus: http.StatusOK},
		{path: "/api/health/ready", wantStatus: http.StatusOK},
		{path: "/api/health/live", wantStatus: http.StatusOK},
		{path: "/api/version", wantStatus: http.StatusOK},
		{path: "/api/dashboard/overview", wantStatus: http.StatusOK},
		{path: "/api/comparison?feedstock=calcite", wantStatus: http.StatusOK},
		{path: "/api/samples/export", wantStatus: http.StatusOK},
		{path: "/api/feedstock/uploads", wantStatus: http.StatusOK},
		{path: "/api/chat/context", wantStatus: http.StatusOK},
		{path: "/api/ws/stats", wantStatus: http.StatusOK},
		{path: "/metrics", wantStatus: http.StatusOK},
		{path: "/api/samples?limit=0", wantStatus: http.StatusBadRequest},
		{path: "/api/not-a-route", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get(customMiddleware.RequestIDHeader))
		})
	}
}

func TestApplication_SecurityHeaders(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	resp := getJSON(t, srv.URL+"/api/health", nil)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestApplication_UploadFlow(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	a.WebSocketHub.Start()
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg events.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeConnect, msg.Type)

	content := seedWorkbook().Bytes(t)

	// Uploads require a key once keys are configured.
	resp, err := http.DefaultClient.Do(uploadRequest(t, srv.URL, "", content))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.DefaultClient.Do(uploadRequest(t, srv.URL, testIngestKey, content))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var result domain.UploadResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 3, result.SamplesCount)
	assert.Equal(t, 1, result.SummariesCount)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeDatasetUpdated, msg.Type)

	var kpi domain.OverviewKPI
	getJSON(t, srv.URL+"/api/dashboard/overview?feedstock=basalt&omega=5", &kpi)
	assert.Equal(t, 3, kpi.TotalSamples)
	assert.InDelta(t, 50.0, kpi.TotalCDRTYr, 1e-9)

	var uploads struct {
		Count int `json:"count"`
	}
	getJSON(t, srv.URL+"/api/feedstock/uploads?feedstock=basalt", &uploads)
	assert.Equal(t, 1, uploads.Count)
}

func TestApplication_Seed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Seed.Path = seedWorkbook().Save(t, t.TempDir())
	a := newTestApp(t, cfg)
	ctx := context.Background()

	require.NoError(t, a.seed(ctx))
	n, err := a.Store.CountSamples(ctx, domain.Filter{Feedstock: config.DefaultFeedstock})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// A populated store is left alone.
	require.NoError(t, a.seed(ctx))
	n, err = a.Store.CountSamples(ctx, domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestApplication_SeedMissingWorkbook(t *testing.T) {
	cfg := testConfig(t)
	cfg.Seed.Path = t.TempDir() + "/missing.xlsx"
	a := newTestApp(t, cfg)

	assert.Error(t, a.seed(context.Background()))
}

func TestApplication_StartStop(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), testutil.DiscardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx, cancel))

	require.NoError(t, a.Stop(context.Background()))
	assert.Error(t, a.Store.Ping(context.Background()), "store closed on stop")
	assert.Zero(t, a.WebSocketHub.ClientCount())
}

func TestApplication_getCORSConfig(t *testing.T) {
	tests := []struct {
		name        string
		enableCORS  bool
		origins     []string
		wantOrigins []string
	}{
		{name: "configured origins", enableCORS: true, origins: []string{"https://dash.example.org"}, wantOrigins: []string{"https://dash.example.org"}},
		{name: "cors disabled", enableCORS: false, origins: []string{"*"}, wantOrigins: []string{"null"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Security.EnableCORS = tt.enableCORS
			cfg.Security.AllowedOrigins = tt.origins
			a := &Application{Config: cfg, Logger: testutil.DiscardLogger()}

			got := a.getCORSConfig()
			assert.Equal(t, tt.wantOrigins, got.AllowedOrigins)
			assert.Contains(t, got.AllowedHeaders, customMiddleware.APIKeyHeader)
		})
	}
}
