/*
Package sqlite provides the SQLite-backed sink for validated employee data.

PURPOSE:
  Persists the records the integrity pipeline cleared for storage, plus an
  audit trail of every import session. In production the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  employees:          Current state per employee, upserted by identity
  performance_scores: Competency scores per employee per import session
  import_sessions:    One row per pipeline run that reached storage

IDENTITY:
  Upserts match on external_id when the source provided one, otherwise on
  name_key (the normalized name). This mirrors the duplicate-identity
  resolution the pipeline performs, so re-imports update rather than
  duplicate.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/integrity.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - integrity/pipeline.go: Produces the records stored here
  - api/handlers.go: The import endpoint driving this store
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/pulse/integrity-engine/integrity"
)

// Store persists validated employees, their scores, and import sessions.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees (current state, upserted by identity)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		external_id TEXT,
		name TEXT NOT NULL,
		name_key TEXT NOT NULL,
		nip TEXT,
		gol TEXT,
		pangkat TEXT,
		position TEXT,
		sub_position TEXT,
		organizational_level TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_employees_external_id
		ON employees(external_id) WHERE external_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_employees_name_key
		ON employees(name_key);

	-- Performance scores (one row per competency per import session)
	CREATE TABLE IF NOT EXISTS performance_scores (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		session_id TEXT NOT NULL,
		competency TEXT NOT NULL,
		score TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scores_employee
		ON performance_scores(employee_id);
	CREATE INDEX IF NOT EXISTS idx_scores_session
		ON performance_scores(session_id);

	-- Import sessions (audit trail, one row per pipeline run that stored)
	CREATE TABLE IF NOT EXISTS import_sessions (
		id TEXT PRIMARY KEY,
		operation TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		records_processed INTEGER DEFAULT 0,
		records_recovered INTEGER DEFAULT 0,
		records_skipped INTEGER DEFAULT 0,
		quality_score INTEGER DEFAULT 0,
		recommended_action TEXT,
		error TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started
		ON import_sessions(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// EmployeeRecord is a stored employee row.
type EmployeeRecord struct {
	ID                  string
	ExternalID          string
	Name                string
	NIP                 string
	Gol                 string
	Pangkat             string
	Position            string
	SubPosition         string
	OrganizationalLevel string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// UpsertEmployee inserts or updates an employee by identity and returns the
// row id. Identity is external_id when present, otherwise the normalized
// name.
func (s *Store) UpsertEmployee(ctx context.Context, emp integrity.Employee) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.upsertEmployeeTx(ctx, s.db, emp)
}

func (s *Store) upsertEmployeeTx(ctx context.Context, db querier, emp integrity.Employee) (string, error) {
	nameKey := integrity.NormalizeKey(emp.Name)

	var existingID string
	var err error
	if emp.ExternalID != "" {
		err = db.QueryRowContext(ctx,
			"SELECT id FROM employees WHERE external_id = ?", emp.ExternalID,
		).Scan(&existingID)
	} else {
		err = db.QueryRowContext(ctx,
			"SELECT id FROM employees WHERE external_id IS NULL AND name_key = ?", nameKey,
		).Scan(&existingID)
	}
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to look up employee: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)

	if existingID != "" {
		_, err = db.ExecContext(ctx, `
			UPDATE employees SET
				name = ?, name_key = ?, nip = ?, gol = ?, pangkat = ?,
				position = ?, sub_position = ?, organizational_level = ?,
				updated_at = ?
			WHERE id = ?`,
			emp.Name, nameKey, emp.NIP, emp.Gol, emp.Pangkat,
			emp.Position, emp.SubPosition, emp.OrganizationalLevel,
			now, existingID,
		)
		if err != nil {
			return "", fmt.Errorf("failed to update employee: %w", err)
		}
		return existingID, nil
	}

	id := uuid.NewString()
	_, err = db.ExecContext(ctx, `
		INSERT INTO employees
		(id, external_id, name, name_key, nip, gol, pangkat, position,
		 sub_position, organizational_level, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, nullString(emp.ExternalID), emp.Name, nameKey,
		emp.NIP, emp.Gol, emp.Pangkat, emp.Position,
		emp.SubPosition, emp.OrganizationalLevel, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert employee: %w", err)
	}
	return id, nil
}

// GetEmployee retrieves an employee by row id. Returns nil when not found.
func (s *Store) GetEmployee(ctx context.Context, id string) (*EmployeeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		employeeColumns+" FROM employees WHERE id = ?", id)

	emp, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return emp, nil
}

// ListEmployees returns all employees ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]EmployeeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		employeeColumns+" FROM employees ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []EmployeeRecord
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, *emp)
	}
	return employees, rows.Err()
}

const employeeColumns = `SELECT id, external_id, name, nip, gol, pangkat,
	position, sub_position, organizational_level, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (*EmployeeRecord, error) {
	var emp EmployeeRecord
	var externalID, nip, gol, pangkat, position, subPosition, orgLevel sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&emp.ID, &externalID, &emp.Name, &nip, &gol, &pangkat,
		&position, &subPosition, &orgLevel, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	emp.ExternalID = externalID.String
	emp.NIP = nip.String
	emp.Gol = gol.String
	emp.Pangkat = pangkat.String
	emp.Position = position.String
	emp.SubPosition = subPosition.String
	emp.OrganizationalLevel = orgLevel.String
	emp.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	emp.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &emp, nil
}

// =============================================================================
// PERFORMANCE SCORES
// =============================================================================

// ScoreRecord is a stored competency score row.
type ScoreRecord struct {
	ID         string
	EmployeeID string
	SessionID  string
	Competency string
	Score      decimal.Decimal
	CreatedAt  time.Time
}

// InsertPerformanceScores stores one employee's competency scores for an
// import session atomically.
func (s *Store) InsertPerformanceScores(ctx context.Context, sessionID, employeeID string, scores []integrity.CompetencyScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, sc := range scores {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO performance_scores
			(id, employee_id, session_id, competency, score, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), employeeID, sessionID, sc.Name, sc.Score.String(), now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert score: %w", err)
		}
	}

	return tx.Commit()
}

// StoreBatch persists a batch of validated employees and their scores in a
// single transaction. Returns the row ids in input order.
func (s *Store) StoreBatch(ctx context.Context, sessionID string, employees []integrity.Employee) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	ids := make([]string, 0, len(employees))

	for _, emp := range employees {
		id, err := s.upsertEmployeeTx(ctx, tx, emp)
		if err != nil {
			return nil, err
		}
		for _, sc := range emp.Performance {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO performance_scores
				(id, employee_id, session_id, competency, score, created_at)
				VALUES (?, ?, ?, ?, ?, ?)`,
				uuid.NewString(), id, sessionID, sc.Name, sc.Score.String(), now,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to insert score: %w", err)
			}
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListPerformanceScores returns an employee's scores, newest session first.
func (s *Store) ListPerformanceScores(ctx context.Context, employeeID string) ([]ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, session_id, competency, score, created_at
		FROM performance_scores
		WHERE employee_id = ?
		ORDER BY created_at DESC, competency ASC`,
		employeeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []ScoreRecord
	for rows.Next() {
		var sc ScoreRecord
		var scoreStr, createdAt string
		if err := rows.Scan(&sc.ID, &sc.EmployeeID, &sc.SessionID, &sc.Competency, &scoreStr, &createdAt); err != nil {
			return nil, err
		}
		sc.Score, err = decimal.NewFromString(scoreStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt score value %q: %w", scoreStr, err)
		}
		sc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

// =============================================================================
// IMPORT SESSIONS
// =============================================================================

// ImportSession is the audit row for one pipeline run that reached storage.
type ImportSession struct {
	ID                string
	Operation         string
	Status            string // running, completed, failed
	RecordsProcessed  int
	RecordsRecovered  int
	RecordsSkipped    int
	QualityScore      int
	RecommendedAction string
	Error             string
	StartedAt         time.Time
	FinishedAt        *time.Time
}

// CreateImportSession opens a session row and returns its id.
func (s *Store) CreateImportSession(ctx context.Context, operation string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_sessions (id, operation, status, started_at)
		VALUES (?, ?, 'running', ?)`,
		id, operation, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create import session: %w", err)
	}
	return id, nil
}

// FinishImportSession closes a session with its final outcome.
func (s *Store) FinishImportSession(ctx context.Context, id string, result *integrity.DataIntegrityResult, status, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE import_sessions SET
			status = ?,
			records_processed = ?,
			records_recovered = ?,
			records_skipped = ?,
			quality_score = ?,
			recommended_action = ?,
			error = ?,
			finished_at = ?
		WHERE id = ?`,
		status,
		result.Summary.TotalRecords,
		result.RecordsFixed,
		result.RecordsSkipped,
		result.Summary.IntegrityScore,
		string(result.Summary.RecommendedAction),
		nullString(errMsg),
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish import session: %w", err)
	}
	return nil
}

// ListImportSessions returns sessions newest first, capped at limit.
func (s *Store) ListImportSessions(ctx context.Context, limit int) ([]ImportSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation, status, records_processed, records_recovered,
		       records_skipped, quality_score, recommended_action, error,
		       started_at, finished_at
		FROM import_sessions
		ORDER BY started_at DESC, id
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []ImportSession
	for rows.Next() {
		var sess ImportSession
		var action, errMsg, finishedAt sql.NullString
		var startedAt string
		if err := rows.Scan(&sess.ID, &sess.Operation, &sess.Status,
			&sess.RecordsProcessed, &sess.RecordsRecovered, &sess.RecordsSkipped,
			&sess.QualityScore, &action, &errMsg, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		sess.RecommendedAction = action.String
		sess.Error = errMsg.String
		sess.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		if finishedAt.Valid {
			t, _ := time.Parse(time.RFC3339, finishedAt.String)
			sess.FinishedAt = &t
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"performance_scores", "import_sessions", "employees"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
