// Package sqlstore persists samples, summaries and the feedstock registry
// as JSON documents in SQLite or Postgres. Every read is answered by the
// database, so several processes can share one store.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"erwpulse/internal/store/memory"
	"erwpulse/pkg/contracts/domain"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// createdAtLayout is fixed width so created_at sorts as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

// ErrUnsupportedDriver is returned by Open for any other driver name.
var ErrUnsupportedDriver = errors.New("unsupported sql driver")

var sqlOpen = sql.Open

// Columns a categorical filter or Distinct can be answered from directly.
var indexedText = map[domain.Field]string{
	domain.FieldFeedstock: "feedstock",
	domain.FieldRegion:    "region",
	domain.FieldState:     "state",
}

// Options configures Open.
type Options struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	PingTimeout  time.Duration
	Logger       *slog.Logger
}

// Store is a SQL-backed store.
type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
	closed atomic.Bool
	now    func() time.Time
}

// Open connects and creates the tables if needed.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Driver != DriverSQLite && opts.Driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, opts.Driver)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 5 * time.Second
	}

	dsn := opts.DSN
	if opts.Driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}
	db, err := sqlOpen(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Driver, err)
	}
	if opts.Driver == DriverSQLite {
		// One connection per process; other processes wait on busy_timeout.
		db.SetMaxOpenConns(1)
	} else if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.Driver, err)
	}

	s := &Store{
		db:     db,
		driver: opts.Driver,
		logger: opts.Logger.With("component", "sqlstore", "driver", opts.Driver),
		now:    func() time.Time { return time.Now().UTC() },
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Info("store opened")
	return s, nil
}

// sqliteDSN makes every transaction BEGIN IMMEDIATE and lets a writer wait
// for a lock held by another process instead of failing with SQLITE_BUSY.
func sqliteDSN(dsn string) string {
	var params []string
	if !strings.Contains(dsn, "_txlock=") {
		params = append(params, "_txlock=immediate")
	}
	if !strings.Contains(dsn, "busy_timeout") {
		params = append(params, "_pragma=busy_timeout(5000)")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func (s *Store) migrate(ctx context.Context) error {
	payload := "BLOB"
	if s.driver == DriverPostgres {
		payload = "JSONB"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS samples (
			seq BIGINT NOT NULL,
			id TEXT PRIMARY KEY,
			feedstock TEXT NOT NULL,
			omega_threshold INTEGER NOT NULL,
			region TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT '',
			payload ` + payload + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS samples_dataset ON samples (feedstock, omega_threshold)`,
		`CREATE INDEX IF NOT EXISTS samples_seq ON samples (seq)`,
		`CREATE TABLE IF NOT EXISTS summaries (
			seq BIGINT NOT NULL,
			id TEXT PRIMARY KEY,
			feedstock TEXT NOT NULL,
			omega_threshold INTEGER NOT NULL,
			payload ` + payload + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS summaries_dataset ON summaries (feedstock, omega_threshold)`,
		`CREATE TABLE IF NOT EXISTS feedstocks (
			name TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			payload ` + payload + ` NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return memory.ErrClosed
	}
	return nil
}

// where renders the equality predicates of f. The list predicates have no
// column and are left to Filter.Match.
func (s *Store) where(f domain.Filter) (string, []any) {
	var conds []string
	var args []any
	if f.Feedstock != "" {
		conds = append(conds, "feedstock = ?")
		args = append(args, f.Feedstock)
	}
	if f.Threshold != nil {
		conds = append(conds, "omega_threshold = ?")
		args = append(args, *f.Threshold)
	}
	if f.Region != "" {
		conds = append(conds, "region = ?")
		args = append(args, f.Region)
	}
	if f.State != "" {
		conds = append(conds, "state = ?")
		args = append(args, f.State)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func hasResidual(f domain.Filter) bool {
	return len(f.NotNull) > 0 || len(f.NotEmpty) > 0 || len(f.Positive) > 0
}

// scanSamples decodes the samples selected by filter in insertion order and
// hands those that fully match to fn.
func (s *Store) scanSamples(ctx context.Context, filter domain.Filter, suffix string, suffixArgs []any, fn func(*domain.Sample)) error {
	where, args := s.where(filter)
	query := `SELECT payload FROM samples` + where + ` ORDER BY seq, id` + suffix
	return s.scanPayloads(ctx, query, append(args, suffixArgs...), func(b []byte) error {
		var v domain.Sample
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("decode sample: %w", err)
		}
		if filter.Match(&v) {
			fn(&v)
		}
		return nil
	})
}

func (s *Store) scanPayloads(ctx context.Context, query string, args []any, fn func([]byte) error) error {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		if err := fn(payload); err != nil {
			return err
		}
	}
	return rows.Err()
}

// FindSamples returns the samples matching filter in insertion order.
func (s *Store) FindSamples(ctx context.Context, filter domain.Filter, page domain.Page) ([]domain.Sample, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	out := []domain.Sample{}
	collect := func(v *domain.Sample) { out = append(out, *v) }

	if !hasResidual(filter) && page.Limit > 0 {
		skip := page.Skip
		if skip < 0 {
			skip = 0
		}
		if err := s.scanSamples(ctx, filter, ` LIMIT ? OFFSET ?`, []any{page.Limit, skip}, collect); err != nil {
			return nil, err
		}
		return out, nil
	}

	if err := s.scanSamples(ctx, filter, "", nil, collect); err != nil {
		return nil, err
	}
	lo, hi := page.Apply(len(out))
	return out[lo:hi], nil
}

// CountSamples counts the samples matching filter.
func (s *Store) CountSamples(ctx context.Context, filter domain.Filter) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}

	if !hasResidual(filter) {
		where, args := s.where(filter)
		var n int
		if err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM samples`+where), args...).Scan(&n); err != nil {
			return 0, fmt.Errorf("count samples: %w", err)
		}
		return n, nil
	}

	n := 0
	if err := s.scanSamples(ctx, filter, "", nil, func(*domain.Sample) { n++ }); err != nil {
		return 0, err
	}
	return n, nil
}

// Thresholds lists the distinct saturation thresholds of the matching
// samples in ascending order.
func (s *Store) Thresholds(ctx context.Context, filter domain.Filter) ([]int, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	out := []int{}
	if !hasResidual(filter) {
		where, args := s.where(filter)
		rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT DISTINCT omega_threshold FROM samples`+where+` ORDER BY omega_threshold`), args...)
		if err != nil {
			return nil, fmt.Errorf("query thresholds: %w", err)
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var t int
			if err := rows.Scan(&t); err != nil {
				return nil, fmt.Errorf("scan: %w", err)
			}
			out = append(out, t)
		}
		return out, rows.Err()
	}

	seen := make(map[int]struct{})
	err := s.scanSamples(ctx, filter, "", nil, func(v *domain.Sample) {
		if _, ok := seen[v.SaturationThreshold]; !ok {
			seen[v.SaturationThreshold] = struct{}{}
			out = append(out, v.SaturationThreshold)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Ints(out)
	return out, nil
}

// Distinct lists the distinct non-blank values of a categorical field over
// the matching samples, sorted.
func (s *Store) Distinct(ctx context.Context, field domain.Field, filter domain.Filter) ([]string, error) {
	if !domain.IsCategorical(field) {
		return nil, fmt.Errorf("%w: %q", memory.ErrUnknownField, field)
	}
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	out := []string{}
	add := func(v string) {
		if strings.TrimSpace(v) == "" {
			return
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}

	if column, ok := indexedText[field]; ok && !hasResidual(filter) {
		where, args := s.where(filter)
		rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT DISTINCT `+column+` FROM samples`+where), args...)
		if err != nil {
			return nil, fmt.Errorf("query distinct %s: %w", column, err)
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				return nil, fmt.Errorf("scan: %w", err)
			}
			add(v)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	} else {
		err := s.scanSamples(ctx, filter, "", nil, func(v *domain.Sample) {
			text, _ := v.Text(field)
			add(text)
		})
		if err != nil {
			return nil, err
		}
	}
	// Byte order, whatever the database collation.
	sort.Strings(out)
	return out, nil
}

// InsertSamples writes samples in one transaction.
func (s *Store) InsertSamples(ctx context.Context, samples []domain.Sample) error {
	if len(samples) == 0 {
		return s.Ping(ctx)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		seq, err := s.nextSeq(ctx, tx, "samples")
		if err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO samples (seq, id, feedstock, omega_threshold, region, state, payload) VALUES (?, ?, ?, ?, ?, ?, ?)`))
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer func() { _ = stmt.Close() }()
		for i := range samples {
			v := &samples[i]
			payload, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encode sample: %w", err)
			}
			if _, err := stmt.ExecContext(ctx, seq+int64(i), v.ID, v.Feedstock, v.SaturationThreshold, v.Region, v.State, payload); err != nil {
				return fmt.Errorf("insert sample: %w", err)
			}
		}
		return nil
	})
}

// FindSummaries returns the summary records matching filter in insertion
// order.
func (s *Store) FindSummaries(ctx context.Context, filter domain.SummaryFilter) ([]domain.SummaryRecord, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	var conds []string
	var args []any
	if filter.Feedstock != "" {
		conds = append(conds, "feedstock = ?")
		args = append(args, filter.Feedstock)
	}
	if filter.Threshold != nil {
		conds = append(conds, "omega_threshold = ?")
		args = append(args, *filter.Threshold)
	}
	query := `SELECT payload FROM summaries`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}

	out := []domain.SummaryRecord{}
	err := s.scanPayloads(ctx, query+` ORDER BY seq, id`, args, func(b []byte) error {
		var v domain.SummaryRecord
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("decode summary: %w", err)
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// InsertSummaries writes summary records in one transaction.
func (s *Store) InsertSummaries(ctx context.Context, records []domain.SummaryRecord) error {
	if len(records) == 0 {
		return s.Ping(ctx)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		seq, err := s.nextSeq(ctx, tx, "summaries")
		if err != nil {
			return err
		}
		for i := range records {
			payload, err := json.Marshal(&records[i])
			if err != nil {
				return fmt.Errorf("encode summary: %w", err)
			}
			if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO summaries (seq, id, feedstock, omega_threshold, payload) VALUES (?, ?, ?, ?, ?)`),
				seq+int64(i), records[i].ID, records[i].Feedstock, records[i].SaturationThreshold, payload); err != nil {
				return fmt.Errorf("insert summary: %w", err)
			}
		}
		return nil
	})
}

// RegisterFeedstock merges a loaded batch into the registry entry for name.
// The entry is read, merged and written back under a row lock (Postgres)
// or the database write lock (SQLite), so concurrent registrations from
// other processes are never lost.
func (s *Store) RegisterFeedstock(ctx context.Context, name string, threshold, samples int) (domain.Feedstock, error) {
	var f domain.Feedstock
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		created := domain.Feedstock{
			ID:                   uuid.NewString(),
			Name:                 name,
			SaturationThresholds: []int{},
			CreatedAt:            s.now(),
		}
		payload, err := json.Marshal(&created)
		if err != nil {
			return fmt.Errorf("encode feedstock: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO feedstocks (name, created_at, payload) VALUES (?, ?, ?) ON CONFLICT (name) DO NOTHING`),
			name, created.CreatedAt.Format(createdAtLayout), payload); err != nil {
			return fmt.Errorf("create feedstock: %w", err)
		}

		lock := ""
		if s.driver == DriverPostgres {
			lock = ` FOR UPDATE`
		}
		var current []byte
		if err := tx.QueryRowContext(ctx, s.rebind(`SELECT payload FROM feedstocks WHERE name = ?`+lock), name).Scan(&current); err != nil {
			return fmt.Errorf("read feedstock: %w", err)
		}
		if err := json.Unmarshal(current, &f); err != nil {
			return fmt.Errorf("decode feedstock: %w", err)
		}
		if f.SaturationThresholds == nil {
			f.SaturationThresholds = []int{}
		}
		f.Register(threshold, samples)

		merged, err := json.Marshal(&f)
		if err != nil {
			return fmt.Errorf("encode feedstock: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE feedstocks SET payload = ? WHERE name = ?`), merged, name); err != nil {
			return fmt.Errorf("update feedstock: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Feedstock{}, err
	}
	return f, nil
}

// ListFeedstocks returns the registry in creation order.
func (s *Store) ListFeedstocks(ctx context.Context) ([]domain.Feedstock, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	out := []domain.Feedstock{}
	err := s.scanPayloads(ctx, `SELECT payload FROM feedstocks ORDER BY created_at, name`, nil, func(b []byte) error {
		var v domain.Feedstock
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("decode feedstock: %w", err)
		}
		if v.SaturationThresholds == nil {
			v.SaturationThresholds = []int{}
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

// Close closes the database. Later calls fail with memory.ErrClosed.
func (s *Store) Close() error {
	s.closed.Store(true)
	return s.db.Close()
}

// DB exposes the underlying sql.DB for tests.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) (retErr error) {
	if err := s.check(ctx); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) nextSeq(ctx context.Context, tx *sql.Tx, table string) (int64, error) {
	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq) + 1, 0) FROM `+table).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	return seq, nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
