package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erwpulse/internal/config"
	"erwpulse/internal/dataprocessing"
	"erwpulse/internal/shared/testutil"
	"erwpulse/internal/validation"
)

func testWorkbook() testutil.Workbook {
	return testutil.Workbook{
		Results: []testutil.Row{
			{dataprocessing.ColSampleNo: "W1", dataprocessing.ColPH: 7.5, dataprocessing.ColRegion: "Tapi", dataprocessing.ColCDRTYr: 4.0},
			{dataprocessing.ColSampleNo: "W2", dataprocessing.ColPH: 7.6, dataprocessing.ColRegion: "Tapi", dataprocessing.ColCDRTYr: 6.0},
			{dataprocessing.ColSampleNo: "Basin totals"},
		},
	}
}

// sqliteConfig points the store at a file so a second open sees the data.
func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Driver = config.StoreSQLite
	cfg.Store.DSN = filepath.Join(t.TempDir(), "samples.db")
	cfg.Cache.Backend = config.CacheNone
	return cfg
}

func TestRun_DryRun(t *testing.T) {
	path := testWorkbook().Save(t, t.TempDir())
	cfg := sqliteConfig(t)

	results, err := run(context.Background(), cfg, options{In: path, Feedstock: "basalt", Threshold: 5, DryRun: true}, testutil.DiscardLogger())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 2, results[0].Samples)
	assert.Equal(t, 1, results[0].Skipped)

	_, err = os.Stat(cfg.Store.DSN)
	assert.True(t, os.IsNotExist(err), "dry run must not open the store")
}

func TestRun_LoadsStore(t *testing.T) {
	dir := t.TempDir()
	testWorkbook().Save(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.xlsx"), []byte("not a workbook"), 0o644))
	cfg := sqliteConfig(t)

	results, err := run(context.Background(), cfg, options{In: dir, Feedstock: "basalt", Threshold: 5}, testutil.DiscardLogger())
	require.NoError(t, err)
	require.Len(t, results, 2)

	byName := map[string]fileResult{}
	for _, r := range results {
		byName[filepath.Base(r.Path)] = r
	}
	assert.Error(t, byName["broken.xlsx"].Err)
	assert.NoError(t, byName["results.xlsx"].Err)
	assert.Equal(t, 2, byName["results.xlsx"].Samples)

	// Loading the same workbook again appends to the store.
	results, err = run(context.Background(), cfg, options{In: filepath.Join(dir, "results.xlsx"), Feedstock: "basalt", Threshold: 5}, testutil.DiscardLogger())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
}

func TestRun_NoWorkbooks(t *testing.T) {
	_, err := run(context.Background(), sqliteConfig(t), options{In: t.TempDir()}, testutil.DiscardLogger())
	assert.ErrorContains(t, err, "no .xlsx workbooks")
}

func TestRun_RejectsNonWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := run(context.Background(), sqliteConfig(t), options{In: path}, testutil.DiscardLogger())
	assert.ErrorIs(t, err, validation.ErrNotWorkbook)
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	failed := report(&buf, []fileResult{
		{Path: "a.xlsx", Samples: 10, Summaries: 2, Skipped: 1},
		{Path: "b.xlsx", Err: errors.New("unreadable workbook")},
	})

	assert.Equal(t, 1, failed)
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "ERW Pulse v"), out)
	assert.Contains(t, out, "OK    a.xlsx: 10 samples, 2 summaries, 1 skipped rows")
	assert.Contains(t, out, "FAIL  b.xlsx: unreadable workbook")
	assert.Contains(t, out, "2 workbooks, 1 failed, 10 samples, 2 summaries")
}
