package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/absensi/internal/config"
	"github.com/your-org/absensi/internal/models"
)

var (
	// ErrNotFound is returned when a point lookup or delete targets a
	// record that does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrNoOpenSession is returned when a check-out finds no attendance
	// row with a null jam_pulang for the person.
	ErrNoOpenSession = errors.New("no open attendance session")
)

// SchemaMismatchError reports an insert whose column set does not match the
// target table.
type SchemaMismatchError struct {
	Table  string
	Column string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("table %s has no column %q", e.Table, e.Column)
}

// Querier is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx.
// Ledger writes that must be atomic with other statements run on a Tx;
// everything else runs straight on the pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type PostgresStore struct {
	pool *pgxpool.Pool

	mu      sync.RWMutex
	schemas map[string]map[string]bool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool, schemas: make(map[string]map[string]bool)}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Pool exposes the underlying pool as a Querier.
func (s *PostgresStore) Pool() Querier { return s.pool }

// RunInTx runs fn inside a transaction, committing when it returns nil.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// tableColumns loads (and caches) the column set of a table from
// information_schema. An unknown table is a schema mismatch too.
func (s *PostgresStore) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	s.mu.RLock()
	cols, ok := s.schemas[table]
	s.mu.RUnlock()
	if ok {
		return cols, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_schema = 'public' AND table_name = $1`,
		table)
	if err != nil {
		return nil, fmt.Errorf("load schema for %s: %w", table, err)
	}
	defer rows.Close()

	cols = make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column name: %w", err)
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: table %s", ErrNotFound, table)
	}

	s.mu.Lock()
	s.schemas[table] = cols
	s.mu.Unlock()
	return cols, nil
}

// checkColumns validates a row's column set against the table schema before
// any SQL text is built from it.
func checkColumns(table string, cols []string, schema map[string]bool) error {
	for _, col := range cols {
		if !identPattern.MatchString(col) || !schema[col] {
			return &SchemaMismatchError{Table: table, Column: col}
		}
	}
	return nil
}

// buildInsert renders a parameterized insert for the given columns.
// Columns must already be validated; they are interpolated as identifiers.
func buildInsert(table string, cols []string) string {
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
}

func validTable(table string) error {
	if !identPattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

// InsertRecord inserts a row whose columns come verbatim from the map keys.
// Keys are checked against the live table schema first, so a mismatched
// column set is reported before the database ever sees the statement.
func (s *PostgresStore) InsertRecord(ctx context.Context, q Querier, table string, row map[string]any) error {
	if err := validTable(table); err != nil {
		return err
	}
	if len(row) == 0 {
		return fmt.Errorf("insert into %s: empty row", table)
	}

	schema, err := s.tableColumns(ctx, table)
	if err != nil {
		return err
	}

	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	if err := checkColumns(table, cols, schema); err != nil {
		return err
	}

	args := make([]any, len(cols))
	for i, col := range cols {
		args[i] = row[col]
	}

	if _, err := q.Exec(ctx, buildInsert(table, cols), args...); err != nil {
		slog.Error("insert record", "table", table, "error", err)
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// GetRecord returns the full row matching id, as a column→value map.
func (s *PostgresStore) GetRecord(ctx context.Context, table string, id any) (map[string]any, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT * FROM %s WHERE id = $1", table), id)
	if err != nil {
		slog.Error("get record", "table", table, "error", err)
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("select from %s: %w", table, err)
		}
		return nil, fmt.Errorf("%w: %s id %v", ErrNotFound, table, id)
	}
	record, err := rowToMap(rows)
	if err != nil {
		return nil, fmt.Errorf("scan %s row: %w", table, err)
	}
	return record, nil
}

// ListRecords returns every row of the table.
func (s *PostgresStore) ListRecords(ctx context.Context, table string) ([]map[string]any, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY id", table))
	if err != nil {
		slog.Error("list records", "table", table, "error", err)
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}
	defer rows.Close()

	var records []map[string]any
	for rows.Next() {
		record, err := rowToMap(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// DeleteRecord verifies the row exists before deleting it, so deleting a
// missing id is a NotFound failure rather than a silent no-op success.
func (s *PostgresStore) DeleteRecord(ctx context.Context, q Querier, table string, id any) error {
	if err := validTable(table); err != nil {
		return err
	}

	var one int
	err := q.QueryRow(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE id = $1", table), id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s id %v", ErrNotFound, table, id)
	}
	if err != nil {
		slog.Error("delete record lookup", "table", table, "error", err)
		return fmt.Errorf("select from %s: %w", table, err)
	}

	if _, err := q.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id); err != nil {
		slog.Error("delete record", "table", table, "error", err)
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

func rowToMap(rows pgx.Rows) (map[string]any, error) {
	values, err := rows.Values()
	if err != nil {
		return nil, err
	}
	record := make(map[string]any, len(values))
	for i, fd := range rows.FieldDescriptions() {
		record[fd.Name] = values[i]
	}
	return record, nil
}

// --- Absensi ledger ---

// InsertCheckIn opens an attendance period. It commits immediately: a
// check-in is never part of a larger transaction in this design. Nothing
// prevents a second open check-in for the same person; see the commented
// index in the migration.
func (s *PostgresStore) InsertCheckIn(ctx context.Context, personID int64, nama string, jamMasuk time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO absensi (person_id, nama, jam_masuk) VALUES ($1, $2, $3)`,
		personID, nama, jamMasuk)
	if err != nil {
		slog.Error("insert check-in", "person_id", personID, "error", err)
		return fmt.Errorf("insert check-in: %w", err)
	}
	return nil
}

// UpdateCheckOut closes the person's open attendance period. The WHERE
// predicate is the single source of truth for the open-session invariant:
// concurrent check-outs race at the database and exactly one sees an
// affected row, the rest get ErrNoOpenSession.
func (s *PostgresStore) UpdateCheckOut(ctx context.Context, personID int64, jamPulang time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE absensi SET jam_pulang = $1 WHERE person_id = $2 AND jam_pulang IS NULL`,
		jamPulang, personID)
	if err != nil {
		slog.Error("update check-out", "person_id", personID, "error", err)
		return fmt.Errorf("update check-out: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoOpenSession
	}
	return nil
}

// ListAbsensi returns attendance rows, optionally filtered by person.
func (s *PostgresStore) ListAbsensi(ctx context.Context, personID *int64) ([]models.Absensi, error) {
	query := `SELECT id, person_id, nama, jam_masuk, jam_pulang FROM absensi`
	args := []any{}
	if personID != nil {
		query += ` WHERE person_id = $1`
		args = append(args, *personID)
	}
	query += ` ORDER BY jam_masuk DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		slog.Error("list absensi", "error", err)
		return nil, fmt.Errorf("list absensi: %w", err)
	}
	defer rows.Close()

	var records []models.Absensi
	for rows.Next() {
		var a models.Absensi
		if err := rows.Scan(&a.ID, &a.PersonID, &a.Nama, &a.JamMasuk, &a.JamPulang); err != nil {
			return nil, fmt.Errorf("scan absensi row: %w", err)
		}
		records = append(records, a)
	}
	return records, rows.Err()
}

// OpenSession returns the person's current open attendance row.
func (s *PostgresStore) OpenSession(ctx context.Context, personID int64) (*models.Absensi, error) {
	var a models.Absensi
	err := s.pool.QueryRow(ctx,
		`SELECT id, person_id, nama, jam_masuk, jam_pulang
		 FROM absensi WHERE person_id = $1 AND jam_pulang IS NULL
		 ORDER BY jam_masuk DESC LIMIT 1`,
		personID).Scan(&a.ID, &a.PersonID, &a.Nama, &a.JamMasuk, &a.JamPulang)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoOpenSession
	}
	if err != nil {
		slog.Error("open session lookup", "person_id", personID, "error", err)
		return nil, fmt.Errorf("open session lookup: %w", err)
	}
	return &a, nil
}
