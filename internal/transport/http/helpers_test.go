package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"erwpulse/internal/archive"
	"erwpulse/internal/services"
	"erwpulse/internal/store/memory"
	"erwpulse/pkg/contracts/domain"
)

func sample(feedstock string, threshold int, no, region, state string, cdr float64) domain.Sample {
	return domain.Sample{
		Feedstock:           feedstock,
		SaturationThreshold: threshold,
		SampleNo:            no,
		Region:              region,
		State:               state,
		RiverName:           region + " river",
		Latitude:            domain.Float(25),
		Longitude:           domain.Float(85),
		PH:                  domain.Float(7.8),
		RockAddition:        domain.Float(0.3),
		SuccessFlag:         domain.Int(1),
		CDRTYr:              domain.Float(cdr),
	}
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()
	ctx := context.Background()
	require.NoError(t, st.InsertSamples(ctx, []domain.Sample{
		sample("calcite", 5, "S1", "Ganga", "Bihar", 80),
		sample("calcite", 5, "S2", "Krishna", "Karnataka", 20),
		sample("calcite", 10, "S3", "Ganga", "Bihar", 5),
		sample("basalt", 5, "S4", "Godavari", "Telangana", 9),
	}))
	_, err := st.RegisterFeedstock(ctx, "calcite", 5, 2)
	require.NoError(t, err)
	_, err = st.RegisterFeedstock(ctx, "calcite", 10, 1)
	require.NoError(t, err)
	return st
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// multipartBody builds an upload form. A nil content omits the file part.
func multipartBody(t *testing.T, fields map[string]string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if content != nil {
		part, err := mw.CreateFormFile("file", "results.xlsx")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// MockIngestService is a mock implementation of IngestService
type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) Upload(ctx context.Context, req services.UploadRequest) (domain.UploadResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.UploadResult), args.Error(1)
}

func (m *MockIngestService) Uploads(ctx context.Context, feedstock string) ([]archive.Object, error) {
	args := m.Called(ctx, feedstock)
	objects, _ := args.Get(0).([]archive.Object)
	return objects, args.Error(1)
}

func (m *MockIngestService) Download(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

