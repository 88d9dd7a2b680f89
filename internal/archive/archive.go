// Package archive keeps the raw workbooks behind every upload so a dataset
// can be traced back to the file it was loaded from.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"erwpulse/internal/config"
)

// ErrNotFound is returned by Get for keys that were never stored.
var ErrNotFound = errors.New("archived object not found")

// WorkbookContentType is the media type of xlsx uploads.
const WorkbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Object describes one archived file.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Archive stores uploaded files. Keys are slash separated.
type Archive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (Object, error)
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns objects under prefix sorted by key.
	List(ctx context.Context, prefix string) ([]Object, error)
	Close() error
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// UploadKey names the archived copy of an upload:
// <prefix>/<feedstock>/<threshold>/<utc timestamp>-<id>-<filename>.
func UploadKey(prefix, feedstock string, threshold int, filename string, at time.Time) string {
	name := unsafeName.ReplaceAllString(path.Base(strings.ReplaceAll(filename, `\`, "/")), "_")
	if name == "" || name == "." || name == "_" {
		name = "upload.xlsx"
	}
	id := uuid.NewString()[:8]
	stamp := at.UTC().Format("20060102T150405Z")
	return FeedstockPrefix(prefix, feedstock) + strconv.Itoa(threshold) + "/" + stamp + "-" + id + "-" + name
}

// FeedstockPrefix is the key prefix shared by every upload of feedstock.
func FeedstockPrefix(prefix, feedstock string) string {
	dir := unsafeName.ReplaceAllString(strings.ToLower(strings.TrimSpace(feedstock)), "_") + "/"
	if p := strings.Trim(prefix, "/"); p != "" {
		return p + "/" + dir
	}
	return dir
}

// New builds the backend named by cfg.Backend.
func New(ctx context.Context, cfg config.ArchiveConfig, logger *slog.Logger) (Archive, error) {
	switch cfg.Backend {
	case config.ArchiveNone, "":
		return Noop{}, nil
	case config.ArchiveFS:
		return NewFS(cfg.Dir)
	case config.ArchiveS3:
		return NewS3(ctx, S3Options{
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			UsePathStyle:    cfg.UsePathStyle,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Logger:          logger,
		})
	default:
		return nil, fmt.Errorf("unknown archive backend: %q", cfg.Backend)
	}
}

// Noop discards everything.
type Noop struct{}

func (Noop) Put(_ context.Context, key string, data []byte, contentType string) (Object, error) {
	return Object{Key: key, Size: int64(len(data)), ContentType: contentType}, nil
}
func (Noop) Get(context.Context, string) ([]byte, error)    { return nil, ErrNotFound }
func (Noop) List(context.Context, string) ([]Object, error) { return []Object{}, nil }
func (Noop) Close() error                                   { return nil }
