package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/gdprqa/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/gdprqa/internal/adapters/driven/storage/vector"
	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
	"github.com/custodia-labs/gdprqa/internal/logger"
)

// DBFile is the database file name inside the data directory.
const DBFile = "vectors.db"

// Build outcomes recorded in build_log.
const (
	OutcomeCommitted = "committed"
	OutcomeAborted   = "aborted"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,47}$`)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is a SQLite vector store.
type Store struct {
	db   *sql.DB
	path string
}

// BuildLogEntry is one row of the build history.
type BuildLogEntry struct {
	Name     string
	Physical string
	Rows     int
	Outcome  string
	LoggedAt time.Time
}

// NewStore opens or creates the store in dataDir.
// If dataDir is empty, defaults to ~/.gdprqa/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".gdprqa", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFile)

	// WAL lets searches proceed while a build is writing its staging table.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(context.Background(), migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, schemaVersionQuery).Scan(&v)
	return v, err
}

func validateName(name string) error {
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("%w: invalid table name %q", domain.ErrInvalidInput, name)
	}
	return nil
}

// quote returns a safely quoted SQL identifier. Names are validated, so
// this only guards against the reserved-word case.
func quote(ident string) string {
	return `"` + ident + `"`
}

// CreateTable stages a new physical table for name.
func (s *Store) CreateTable(ctx context.Context, name string, dimensions int) (driven.TableBuilder, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive", domain.ErrInvalidInput)
	}
	if err := s.dropStale(ctx, name); err != nil {
		return nil, err
	}

	physical := fmt.Sprintf("vt_%s_%s", name, strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE %s (
			position INTEGER PRIMARY KEY,
			text     TEXT NOT NULL,
			vector   BLOB NOT NULL,
			metadata TEXT NOT NULL
		)`, quote(physical)))
	if err != nil {
		return nil, fmt.Errorf("%w: creating staging table: %v", domain.ErrVectorStoreUnavailable, err)
	}
	logger.Debug("sqlite: staging %s as %s", name, physical)

	return &tableBuilder{store: s, name: name, physical: physical, dims: dimensions}, nil
}

// dropStale removes staging tables of name that the registry does not point at.
func (s *Store) dropStale(ctx context.Context, name string) error {
	live := make(map[string]bool)
	rows, err := s.db.QueryContext(ctx, "SELECT physical FROM vector_tables")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return err
		}
		live[p] = true
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE ? ESCAPE '\\'",
		"vt\\_"+strings.ReplaceAll(name, "_", "\\_")+"\\_%")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	var stale []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			rows.Close()
			return err
		}
		if !live[t] {
			stale = append(stale, t)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, t := range stale {
		logger.Warn("sqlite: dropping stale staging table %s", t)
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(t)); err != nil {
			return fmt.Errorf("dropping stale table %s: %w", t, err)
		}
	}
	return nil
}

// Search scans the live table of name inside one read transaction.
func (s *Store) Search(ctx context.Context, name string, vec []float32, limit int) ([]driven.VectorRow, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	defer tx.Rollback()

	var physical string
	var dims int
	err = tx.QueryRowContext(ctx,
		"SELECT physical, dimensions FROM vector_tables WHERE name = ?", name).Scan(&physical, &dims)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	if len(vec) != dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, table %q has %d",
			domain.ErrInvalidInput, len(vec), name, dims)
	}

	rows, err := tx.QueryContext(ctx, fmt.Sprintf(
		"SELECT position, text, vector, metadata FROM %s", quote(physical)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	defer rows.Close()

	var out []driven.VectorRow
	for rows.Next() {
		var (
			pos      int
			text     string
			blob     []byte
			metaJSON string
		)
		if err := rows.Scan(&pos, &text, &blob, &metaJSON); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		var meta domain.ChunkMetadata
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			return nil, fmt.Errorf("decoding metadata of row %d: %w", pos, err)
		}
		stored := vector.Decode(blob)
		out = append(out, driven.VectorRow{
			Position: pos,
			Record:   domain.IndexRecord{Text: text, Vector: stored, Metadata: meta},
			Score:    vector.Cosine(vec, stored),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vector.Rank(out, limit), nil
}

// CountRows counts the rows of the live table of name.
func (s *Store) CountRows(ctx context.Context, name string) (int, error) {
	if err := validateName(name); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	defer tx.Rollback()

	var physical string
	err = tx.QueryRowContext(ctx, "SELECT physical FROM vector_tables WHERE name = ?", name).Scan(&physical)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quote(physical)).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	return n, nil
}

// Tables lists the live tables.
func (s *Store) Tables(ctx context.Context) ([]domain.IndexHandle, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, dimensions, row_count, built_at FROM vector_tables ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	defer rows.Close()

	var out []domain.IndexHandle
	for rows.Next() {
		var h domain.IndexHandle
		if err := rows.Scan(&h.Table, &h.Dimensions, &h.Rows, &h.BuiltAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// BuildLog returns the most recent builds of name, newest first.
func (s *Store) BuildLog(ctx context.Context, name string, limit int) ([]BuildLogEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, physical, row_count, outcome, logged_at
		FROM build_log WHERE name = ? ORDER BY id DESC LIMIT ?`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	defer rows.Close()

	var out []BuildLogEntry
	for rows.Next() {
		var e BuildLogEntry
		if err := rows.Scan(&e.Name, &e.Physical, &e.Rows, &e.Outcome, &e.LoggedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// tableBuilder writes one staging table.
type tableBuilder struct {
	store    *Store
	name     string
	physical string
	dims     int
	next     int
	done     bool
}

func (b *tableBuilder) Add(ctx context.Context, records []domain.IndexRecord) error {
	if b.done {
		return domain.ErrInvalidState
	}
	for _, rec := range records {
		if len(rec.Vector) != b.dims {
			return fmt.Errorf("%w: record has %d dimensions, want %d",
				domain.ErrInvalidInput, len(rec.Vector), b.dims)
		}
	}

	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (position, text, vector, metadata) VALUES (?, ?, ?, ?)", quote(b.physical)))
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	pos := b.next
	for _, rec := range records {
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, pos, rec.Text, vector.Encode(rec.Vector), string(meta)); err != nil {
			return fmt.Errorf("%w: inserting row %d: %v", domain.ErrIndexBuild, pos, err)
		}
		pos++
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexBuild, err)
	}
	b.next = pos
	return nil
}

func (b *tableBuilder) Commit(ctx context.Context) error {
	if b.done {
		return domain.ErrInvalidState
	}

	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	defer tx.Rollback()

	var old sql.NullString
	err = tx.QueryRowContext(ctx, "SELECT physical FROM vector_tables WHERE name = ?", b.name).Scan(&old)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}

	var rows int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quote(b.physical)).Scan(&rows); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexBuild, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vector_tables (name, physical, dimensions, row_count, built_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			physical = excluded.physical,
			dimensions = excluded.dimensions,
			row_count = excluded.row_count,
			built_at = excluded.built_at`,
		b.name, b.physical, b.dims, rows, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: updating registry: %v", domain.ErrIndexBuild, err)
	}
	if old.Valid && old.String != b.physical {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(old.String)); err != nil {
			return fmt.Errorf("%w: dropping previous table: %v", domain.ErrIndexBuild, err)
		}
	}
	if err := logBuild(ctx, tx, b.name, b.physical, rows, OutcomeCommitted); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexBuild, err)
	}
	b.done = true
	logger.Debug("sqlite: %s now serves %s (%d rows)", b.name, b.physical, rows)
	return nil
}

func (b *tableBuilder) Abort(ctx context.Context) error {
	if b.done {
		return nil
	}
	b.done = true
	// The build may be aborting because ctx ended; cleanup must still run.
	ctx = context.WithoutCancel(ctx)

	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(b.physical)); err != nil {
		return fmt.Errorf("dropping staging table: %w", err)
	}
	if err := logBuild(ctx, tx, b.name, b.physical, b.next, OutcomeAborted); err != nil {
		return err
	}
	return tx.Commit()
}

func logBuild(ctx context.Context, tx *sql.Tx, name, physical string, rows int, outcome string) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO build_log (name, physical, row_count, outcome) VALUES (?, ?, ?, ?)",
		name, physical, rows, outcome)
	if err != nil {
		return fmt.Errorf("recording build: %w", err)
	}
	return nil
}
