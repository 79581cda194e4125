package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kalambet/permitflow/internal/permit"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout has fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps projects and questionnaires in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database.
func OpenSQLite(dataDir string) (*SQLiteStore, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "permitflow.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// One connection: keeps a :memory: database alive and serialises writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *SQLiteStore) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Projects ---

func (s *SQLiteStore) SaveProject(p Project) error {
	_, err := s.db.Exec(`INSERT INTO projects (id, name, location, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.Location, formatTime(p.CreatedAt),
	)
	return err
}

func (s *SQLiteStore) GetProject(id string) (Project, error) {
	var p Project
	var createdAt string
	err := s.db.QueryRow(`SELECT id, name, location, created_at FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Location, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, ErrNotFound
	}
	if err != nil {
		return Project{}, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return Project{}, err
	}
	return p, nil
}

func (s *SQLiteStore) ListProjects() ([]Project, error) {
	rows, err := s.db.Query(`SELECT id, name, location, created_at FROM projects ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []Project{}
	for rows.Next() {
		var p Project
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.Location, &createdAt); err != nil {
			return nil, err
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// --- Questionnaires ---

const questionnaireColumns = `id, project_id, responses, permit_requirement, created_at, updated_at`

func (s *SQLiteStore) UpsertQuestionnaire(q Questionnaire) (Questionnaire, bool, error) {
	responses, err := json.Marshal(q.Responses)
	if err != nil {
		return Questionnaire{}, false, fmt.Errorf("encoding responses: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Questionnaire{}, false, fmt.Errorf("beginning upsert transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM projects WHERE id = ?`, q.ProjectID).Scan(&exists); err != nil {
		return Questionnaire{}, false, fmt.Errorf("checking project: %w", err)
	}
	if exists == 0 {
		return Questionnaire{}, false, ErrNotFound
	}

	_, err = tx.Exec(`
		INSERT INTO questionnaires (`+questionnaireColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			responses = excluded.responses,
			permit_requirement = excluded.permit_requirement,
			updated_at = excluded.updated_at`,
		q.ID, q.ProjectID, string(responses), string(q.PermitRequirement),
		formatTime(q.CreatedAt), formatTime(q.UpdatedAt),
	)
	if err != nil {
		return Questionnaire{}, false, fmt.Errorf("upserting questionnaire: %w", err)
	}

	stored, err := scanQuestionnaire(tx.QueryRow(
		`SELECT `+questionnaireColumns+` FROM questionnaires WHERE project_id = ?`, q.ProjectID))
	if err != nil {
		return Questionnaire{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return Questionnaire{}, false, fmt.Errorf("committing upsert: %w", err)
	}
	return stored, stored.ID == q.ID, nil
}

func (s *SQLiteStore) GetQuestionnaireByProject(projectID string) (Questionnaire, error) {
	q, err := scanQuestionnaire(s.db.QueryRow(
		`SELECT `+questionnaireColumns+` FROM questionnaires WHERE project_id = ?`, projectID))
	if errors.Is(err, sql.ErrNoRows) {
		return Questionnaire{}, ErrNotFound
	}
	return q, err
}

func (s *SQLiteStore) ListQuestionnaires() ([]Questionnaire, error) {
	rows, err := s.db.Query(`SELECT ` + questionnaireColumns + ` FROM questionnaires ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []Questionnaire{}
	for rows.Next() {
		q, err := scanQuestionnaire(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, q)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestionnaire(row rowScanner) (Questionnaire, error) {
	var q Questionnaire
	var responses, requirement, createdAt, updatedAt string
	if err := row.Scan(&q.ID, &q.ProjectID, &responses, &requirement, &createdAt, &updatedAt); err != nil {
		return Questionnaire{}, err
	}
	if err := json.Unmarshal([]byte(responses), &q.Responses); err != nil {
		return Questionnaire{}, fmt.Errorf("decoding responses of questionnaire %s: %w", q.ID, err)
	}
	q.PermitRequirement = permit.Requirement(requirement)

	var err error
	if q.CreatedAt, err = parseTime(createdAt); err != nil {
		return Questionnaire{}, err
	}
	if q.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Questionnaire{}, err
	}
	return q, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
