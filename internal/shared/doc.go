// Package shared holds helpers used across packages.
//
// The testutil subpackage provides a capturing slog handler and a builder
// for ERW results workbooks, so tests can exercise ingestion end to end
// without fixture files on disk.
package shared
