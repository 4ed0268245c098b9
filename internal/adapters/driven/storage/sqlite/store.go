package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/recon/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/recon/internal/core/domain"
	"github.com/custodia-labs/recon/internal/core/ports/driven"
)

// MaxBatchSize mirrors the batch limit of the production store.
const MaxBatchSize = domain.DefaultPageSize

var _ driven.DocumentStore = (*Store)(nil)

// fieldName restricts filter keys to names that are safe inside a JSON path.
var fieldName = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Store is a SQLite-based DocumentStore.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.recon/data/documents.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".recon", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "documents.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
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

// MaxBatchSize returns the largest batch accepted by BatchDelete and BatchUpdate.
func (s *Store) MaxBatchSize() int {
	return MaxBatchSize
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_documents.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("starting migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// Put inserts or replaces a record. It is used to load snapshots and fixtures.
func (s *Store) Put(ctx context.Context, collection string, rec domain.Record) error {
	if collection == "" || rec.ID == "" {
		return fmt.Errorf("%w: collection and record ID are required", domain.ErrInvalidArgument)
	}

	fieldsJSON, err := marshalFields(rec.Fields)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, tenant_id, fields, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			tenant_id = excluded.tenant_id,
			fields = excluded.fields,
			created_at = excluded.created_at
	`, collection, rec.ID, rec.TenantID, fieldsJSON, nullTime(rec.CreatedAt()))
	if err != nil {
		return unavailable("saving document", err)
	}
	return nil
}

// Query returns up to q.Limit records of one tenant ordered by ID.
func (s *Store) Query(ctx context.Context, q domain.Query) ([]domain.Record, error) {
	where, args, err := whereClause(q.Collection, q.Filter)
	if err != nil {
		return nil, err
	}
	if q.StartAfter != "" {
		where += " AND id > ?"
		args = append(args, q.StartAfter)
	}

	query := "SELECT id, tenant_id, fields FROM documents WHERE " + where + " ORDER BY id"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("querying documents", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating documents", err)
	}
	return records, nil
}

// GetByID retrieves a single document regardless of tenant.
func (s *Store) GetByID(ctx context.Context, collection, id string) (*domain.Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, tenant_id, fields FROM documents WHERE collection = ? AND id = ?",
		collection, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, domain.ErrNotFound)
	}
	return rec, err
}

// Count returns the number of documents matching filter.
func (s *Store) Count(ctx context.Context, collection string, filter domain.Filter) (int, error) {
	where, args, err := whereClause(collection, filter)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE "+where, args...).Scan(&n); err != nil {
		return 0, unavailable("counting documents", err)
	}
	return n, nil
}

// BatchDelete removes the given documents in one transaction. Missing IDs are ignored.
func (s *Store) BatchDelete(ctx context.Context, collection string, ids []string) error {
	if len(ids) > MaxBatchSize {
		return fmt.Errorf("%w: %d deletes, limit %d", domain.ErrBatchTooLarge, len(ids), MaxBatchSize)
	}
	if len(ids) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "DELETE FROM documents WHERE collection = ? AND id = ?")
		if err != nil {
			return unavailable("preparing delete", err)
		}
		defer stmt.Close()

		for _, id := range ids {
			if _, err := stmt.ExecContext(ctx, collection, id); err != nil {
				return unavailable("deleting document", err)
			}
		}
		return nil
	})
}

// BatchUpdate patches fields on the given documents in one transaction.
// If any document is missing nothing is written and ErrNotFound is returned.
func (s *Store) BatchUpdate(ctx context.Context, collection string, updates []domain.FieldUpdate) error {
	if len(updates) > MaxBatchSize {
		return fmt.Errorf("%w: %d updates, limit %d", domain.ErrBatchTooLarge, len(updates), MaxBatchSize)
	}
	if len(updates) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, u := range updates {
			var fieldsJSON string
			err := tx.QueryRowContext(ctx,
				"SELECT fields FROM documents WHERE collection = ? AND id = ?",
				collection, u.ID).Scan(&fieldsJSON)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%s/%s: %w", collection, u.ID, domain.ErrNotFound)
			}
			if err != nil {
				return unavailable("reading document", err)
			}

			fields, err := unmarshalFields(fieldsJSON)
			if err != nil {
				return err
			}
			for k, v := range u.Fields {
				fields[k] = v
			}
			merged, err := marshalFields(fields)
			if err != nil {
				return err
			}

			rec := domain.Record{Fields: fields}
			if _, err := tx.ExecContext(ctx,
				"UPDATE documents SET fields = ?, created_at = ? WHERE collection = ? AND id = ?",
				merged, nullTime(rec.CreatedAt()), collection, u.ID); err != nil {
				return unavailable("updating document", err)
			}
		}
		return nil
	})
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("starting transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return unavailable("committing transaction", err)
	}
	return nil
}

// whereClause builds the tenant-scoped predicate for a collection.
func whereClause(collection string, filter domain.Filter) (string, []any, error) {
	if collection == "" {
		return "", nil, fmt.Errorf("%w: collection is required", domain.ErrInvalidArgument)
	}
	if filter.TenantID == "" {
		return "", nil, fmt.Errorf("%w: tenant filter is required", domain.ErrInvalidArgument)
	}

	clauses := []string{"collection = ?", "tenant_id = ?"}
	args := []any{collection, filter.TenantID}

	keys := make([]string, 0, len(filter.Equals))
	for k := range filter.Equals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !fieldName.MatchString(k) {
			return "", nil, fmt.Errorf("%w: unsupported filter field %q", domain.ErrInvalidArgument, k)
		}
		path := `$."` + k + `"`
		want := filter.Equals[k]
		if want == nil {
			clauses = append(clauses, "json_extract(fields, ?) IS NULL")
			args = append(args, path)
			continue
		}
		clauses = append(clauses, "json_extract(fields, ?) = ?")
		args = append(args, path, sqlValue(want))
	}
	return strings.Join(clauses, " AND "), args, nil
}

// sqlValue converts a filter value to the type json_extract yields for it.
func sqlValue(v any) any {
	switch t := v.(type) {
	case string, int, int64, float64:
		return t
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	case bool:
		if t {
			return 1
		}
		return 0
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.Record, error) {
	var (
		rec        domain.Record
		fieldsJSON string
	)
	if err := row.Scan(&rec.ID, &rec.TenantID, &fieldsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, unavailable("scanning document", err)
	}
	fields, err := unmarshalFields(fieldsJSON)
	if err != nil {
		return nil, err
	}
	rec.Fields = fields
	return &rec, nil
}

func marshalFields(fields map[string]any) (string, error) {
	if fields == nil {
		return "{}", nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("%w: encoding fields: %w", domain.ErrInvalidArgument, err)
	}
	return string(data), nil
}

func unmarshalFields(data string) (map[string]any, error) {
	fields := make(map[string]any)
	if data == "" {
		return fields, nil
	}
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("decoding fields: %w", err)
	}
	return fields, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}
