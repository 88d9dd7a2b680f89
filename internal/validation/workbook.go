// Package validation checks results workbooks on disk before they are
// ingested.
package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// WorkbookExt is the extension of a results workbook.
const WorkbookExt = ".xlsx"

var (
	ErrNotWorkbook = errors.New("not an .xlsx workbook")
	ErrLockFile    = errors.New("excel lock file")
	ErrDirectory   = errors.New("path is a directory")
	ErrEmptyFile   = errors.New("file is empty")
)

// FileValidator validates workbook paths given to the ingest commands.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

// IsLockFile reports whether name is an Excel owner file (~$name.xlsx).
func IsLockFile(name string) bool {
	return strings.HasPrefix(filepath.Base(name), "~$")
}

// IsWorkbook reports whether name has the workbook extension and is not a
// lock file.
func IsWorkbook(name string) bool {
	return strings.EqualFold(filepath.Ext(name), WorkbookExt) && !IsLockFile(name)
}

// ValidateWorkbook checks that path is a readable, non-empty workbook.
func (v *FileValidator) ValidateWorkbook(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		v.logger.Error("Failed to stat workbook",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("workbook %s: %w", path, err)
	}

	switch {
	case info.IsDir():
		err = ErrDirectory
	case IsLockFile(path):
		err = ErrLockFile
	case !IsWorkbook(path):
		err = ErrNotWorkbook
	case info.Size() == 0:
		err = ErrEmptyFile
	}
	if err != nil {
		v.logger.Error("Workbook rejected",
			slog.String("file", path),
			slog.String("reason", err.Error()))
		return fmt.Errorf("workbook %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("workbook %s is not readable: %w", path, err)
	}
	f.Close()

	v.logger.Debug("Workbook validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// DiscoverWorkbooks returns in itself when it is a workbook, or every
// workbook below the directory in, sorted by path. Lock files and other
// extensions are skipped.
func (v *FileValidator) DiscoverWorkbooks(in string) ([]string, error) {
	info, err := os.Stat(in)
	if err != nil {
		return nil, fmt.Errorf("input %s: %w", in, err)
	}
	if !info.IsDir() {
		if err := v.ValidateWorkbook(in); err != nil {
			return nil, err
		}
		return []string{in}, nil
	}

	var files []string
	err = filepath.WalkDir(in, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !IsWorkbook(d.Name()) {
			v.logger.Debug("Skipping file", slog.String("file", path))
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", in, err)
	}
	sort.Strings(files)

	v.logger.Debug("Workbooks discovered",
		slog.String("directory", in),
		slog.Int("count", len(files)))
	return files, nil
}
