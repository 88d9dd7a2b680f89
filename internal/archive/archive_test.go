package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erwpulse/internal/config"
	"erwpulse/internal/shared/testutil"
)

func TestUploadKey(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	key := UploadKey("uploads/", "Calcite", 5, `C:\data\ERW results (v2).xlsx`, at)

	parts := strings.Split(key, "/")
	require.Len(t, parts, 4)
	assert.Equal(t, "uploads", parts[0])
	assert.Equal(t, "calcite", parts[1])
	assert.Equal(t, "5", parts[2])
	assert.True(t, strings.HasPrefix(parts[3], "20260304T050607Z-"))
	assert.True(t, strings.HasSuffix(parts[3], "-ERW_results_v2_.xlsx"), parts[3])

	assert.NotEqual(t, key, UploadKey("uploads", "calcite", 5, "ERW results (v2).xlsx", at))
	assert.True(t, strings.HasSuffix(UploadKey("", "basalt", 3, "", at), "-upload.xlsx"))
	assert.True(t, strings.HasPrefix(UploadKey("", "basalt", 3, "a.xlsx", at), "basalt/3/"))
}

func TestFS_PutGetList(t *testing.T) {
	ctx := context.Background()
	a, err := NewFS(t.TempDir())
	require.NoError(t, err)

	obj, err := a.Put(ctx, "uploads/calcite/5/a.xlsx", []byte("first"), WorkbookContentType)
	require.NoError(t, err)
	assert.Equal(t, int64(5), obj.Size)
	assert.Equal(t, WorkbookContentType, obj.ContentType)

	_, err = a.Put(ctx, "uploads/basalt/3/b.xlsx", []byte("second"), "")
	require.NoError(t, err)

	data, err := a.Get(ctx, "uploads/calcite/5/a.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	all, err := a.List(ctx, "uploads/")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "uploads/basalt/3/b.xlsx", all[0].Key)

	calcite, err := a.List(ctx, "uploads/calcite/")
	require.NoError(t, err)
	require.Len(t, calcite, 1)

	_, err = a.Get(ctx, "uploads/missing.xlsx")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFS_RejectsEscapingKeys(t *testing.T) {
	a, err := NewFS(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../outside.xlsx", "a/../../outside.xlsx", ""} {
		_, err := a.Put(context.Background(), key, []byte("x"), "")
		assert.Error(t, err, key)
	}
}

func TestFS_RequiresDir(t *testing.T) {
	_, err := NewFS("")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	a, err := New(ctx, config.ArchiveConfig{Backend: config.ArchiveNone}, nil)
	require.NoError(t, err)
	assert.IsType(t, Noop{}, a)
	_, err = a.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)

	a, err = New(ctx, config.ArchiveConfig{Backend: config.ArchiveFS, Dir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FS{}, a)

	a, err = New(ctx, config.ArchiveConfig{
		Backend:         config.ArchiveS3,
		Bucket:          "erw-uploads",
		Region:          "eu-west-1",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
	}, testutil.DiscardLogger())
	require.NoError(t, err)
	assert.IsType(t, &S3{}, a)

	_, err = New(ctx, config.ArchiveConfig{Backend: "tape"}, nil)
	assert.Error(t, err)

	_, err = NewS3(ctx, S3Options{})
	assert.Error(t, err)
}

// fakeS3 serves path-style Put/Get/ListObjectsV2 from memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	switch {
	case req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2":
		prefix := req.URL.Query().Get("prefix")
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2026-01-01T00:00:00Z</LastModified></Contents>", k, len(f.objects[k]))
		}
		b.WriteString("</ListBucketResult>")
		return respond(http.StatusOK, []byte(b.String()), http.Header{"Content-Type": {"application/xml"}}), nil

	case req.Method == http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") {
			body = decodeChunked(body)
		}
		f.objects[key] = body
		f.types[key] = req.Header.Get("Content-Type")
		return respond(http.StatusOK, nil, http.Header{"ETag": {`"etag"`}}), nil

	case req.Method == http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			return respond(http.StatusNotFound, nil, http.Header{}), nil
		}
		return respond(http.StatusOK, body, http.Header{
			"Content-Length": {strconv.Itoa(len(body))},
			"Content-Type":   {f.types[key]},
			"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
		}), nil
	}
	return respond(http.StatusNotImplemented, nil, http.Header{}), nil
}

func respond(status int, body []byte, header http.Header) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

// decodeChunked strips aws-chunked framing: <hex>[;ext]\r\n<data>\r\n ... 0\r\n<trailers>.
func decodeChunked(b []byte) []byte {
	var out []byte
	for len(b) > 0 {
		i := bytes.Index(b, []byte("\r\n"))
		if i < 0 {
			break
		}
		header := string(b[:i])
		if j := strings.IndexByte(header, ';'); j >= 0 {
			header = header[:j]
		}
		n, err := strconv.ParseInt(header, 16, 64)
		if err != nil || n == 0 {
			break
		}
		b = b[i+2:]
		if int64(len(b)) < n {
			break
		}
		out = append(out, b[:n]...)
		b = bytes.TrimPrefix(b[n:], []byte("\r\n"))
	}
	return out
}

func newTestS3(t *testing.T, fake *fakeS3) *S3 {
	t.Helper()
	a, err := NewS3(context.Background(), S3Options{
		Bucket:          "erw-uploads",
		Region:          "us-east-1",
		Endpoint:        "https://s3.test.local",
		UsePathStyle:    true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		HTTPClient:      &http.Client{Transport: fake},
		Logger:          testutil.DiscardLogger(),
	})
	require.NoError(t, err)
	return a
}

func TestS3_PutGetList(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	a := newTestS3(t, fake)

	obj, err := a.Put(ctx, "uploads/calcite/5/a.xlsx", []byte("workbook bytes"), WorkbookContentType)
	require.NoError(t, err)
	assert.Equal(t, int64(len("workbook bytes")), obj.Size)
	assert.Equal(t, "workbook bytes", string(fake.objects["uploads/calcite/5/a.xlsx"]))
	assert.Equal(t, WorkbookContentType, fake.types["uploads/calcite/5/a.xlsx"])

	_, err = a.Put(ctx, "uploads/basalt/3/b.xlsx", []byte("other"), "")
	require.NoError(t, err)

	data, err := a.Get(ctx, "uploads/calcite/5/a.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "workbook bytes", string(data))

	objects, err := a.List(ctx, "uploads/calcite/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "uploads/calcite/5/a.xlsx", objects[0].Key)
	assert.Equal(t, int64(len("workbook bytes")), objects[0].Size)

	_, err = a.Get(ctx, "uploads/none.xlsx")
	assert.ErrorIs(t, err, ErrNotFound)
}
