package storage

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite driver
)

// DB is the concrete storage backed by SQLite. It stays below the
// rules and report packages: analyses are stored as opaque JSON plus a
// projected violations table for queries.
type DB struct {
	conn *sql.DB
}

// OpenSQLite opens (and creates if missing) a SQLite DB at path.
func OpenSQLite(path string) (*DB, error) {
	// Pragmas via DSN keep it portable with the modernc driver.
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	c, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{conn: c}, nil
}

func (db *DB) Close() error { return db.conn.Close() }

// CreateSchema ensures tables and summary views exist.
func (db *DB) CreateSchema() error {
	_, err := db.conn.Exec(`
CREATE TABLE IF NOT EXISTS analyses (
  id           TEXT PRIMARY KEY,
  processed_at TEXT,             -- RFC3339
  passed       INTEGER NOT NULL,
  score        INTEGER NOT NULL,
  result_json  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS violations (
  analysis_id TEXT NOT NULL,
  seq         INTEGER NOT NULL,
  rule_id     TEXT,
  category    TEXT,
  severity    TEXT,
  description TEXT,
  evidence    TEXT,
  PRIMARY KEY (analysis_id, seq),
  FOREIGN KEY(analysis_id) REFERENCES analyses(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_violations_analysis ON violations(analysis_id);
CREATE INDEX IF NOT EXISTS idx_violations_rule ON violations(rule_id);

CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT UNIQUE NOT NULL,
  pass_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'viewer',
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
  token TEXT PRIMARY KEY,
  user_id INTEGER NOT NULL,
  expires_at TEXT NOT NULL,
  created_at TEXT NOT NULL,
  FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS audit (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts TEXT NOT NULL,
  username TEXT,
  action TEXT NOT NULL,
  resource TEXT,
  meta_json TEXT
);

CREATE TABLE IF NOT EXISTS exemptions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  rule_id     TEXT NOT NULL,
  pattern_sub TEXT,              -- optional substring to match evidence/description
  reason      TEXT NOT NULL,
  expires_at  TEXT NOT NULL,     -- RFC3339Nano
  created_by  TEXT NOT NULL,
  created_at  TEXT NOT NULL,
  revoked_at  TEXT               -- NULL = active
);

CREATE VIEW IF NOT EXISTS category_totals AS
SELECT category, COUNT(1) AS violations
FROM violations
WHERE category IS NOT NULL
GROUP BY category;
`)
	return err
}

// ViolationRow is the projected form of one violation, used for
// queries that should not unmarshal whole analyses.
type ViolationRow struct {
	AnalysisID  string `json:"analysisId,omitempty"`
	RuleID      string `json:"ruleId"`
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Evidence    string `json:"evidence,omitempty"` // JSON
}

// SaveAnalysis upserts an analysis JSON blob and (re)writes its
// projected violations.
func (db *DB) SaveAnalysis(id string, processedAt time.Time, passed bool, score int, resultJSON []byte, violations []ViolationRow) error {
	ts := processedAt.UTC().Format(time.RFC3339Nano)
	passedInt := 0
	if passed {
		passedInt = 1
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO analyses (id, processed_at, passed, score, result_json)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET processed_at=excluded.processed_at, passed=excluded.passed, score=excluded.score, result_json=excluded.result_json`,
		id, ts, passedInt, score, string(resultJSON),
	); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM violations WHERE analysis_id = ?`, id); err != nil {
		return err
	}
	if len(violations) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO violations
			(analysis_id, seq, rule_id, category, severity, description, evidence)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, v := range violations {
			if _, err := stmt.Exec(id, i, v.RuleID, v.Category, v.Severity, v.Description, v.Evidence); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// LoadAnalysis returns the stored analysis JSON. Callers unmarshal it
// into the report type; storage stays below that package.
func (db *DB) LoadAnalysis(id string) ([]byte, error) {
	var s string
	row := db.conn.QueryRow(`SELECT result_json FROM analyses WHERE id = ?`, id)
	if err := row.Scan(&s); err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// LoadLatest returns the most recently processed analysis.
func (db *DB) LoadLatest() (string, []byte, error) {
	var id, s string
	row := db.conn.QueryRow(`SELECT id, result_json FROM analyses ORDER BY processed_at DESC, id DESC LIMIT 1`)
	if err := row.Scan(&id, &s); err != nil {
		return "", nil, err
	}
	return id, []byte(s), nil
}
