package storage

import (
	"database/sql"
	"time"
)

// AnalysisRow is a lightweight listing row for /analyses.
type AnalysisRow struct {
	ID          string    `json:"id"`
	ProcessedAt time.Time `json:"processed_at"`
	Passed      bool      `json:"passed"`
	Score       int       `json:"score"`
	Violations  int       `json:"violations"`
}

// ListAnalyses returns a lightweight list of analyses with counts.
func (db *DB) ListAnalyses(limit, offset int) ([]AnalysisRow, error) {
	const q = `
		SELECT a.id, a.processed_at, a.passed, a.score,
		       (SELECT COUNT(1) FROM violations v WHERE v.analysis_id = a.id) AS violations
		  FROM analyses a
		 ORDER BY a.processed_at DESC, a.id DESC
		 LIMIT ? OFFSET ?`
	rows, err := db.conn.Query(q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AnalysisRow
	for rows.Next() {
		var (
			ar        AnalysisRow
			processed string
			passed    int
		)
		if err := rows.Scan(&ar.ID, &processed, &passed, &ar.Score, &ar.Violations); err != nil {
			return nil, err
		}
		ar.Passed = passed != 0
		// Parse RFC3339Nano first, fallback to RFC3339
		if t, err := time.Parse(time.RFC3339Nano, processed); err == nil {
			ar.ProcessedAt = t
		} else if t2, err2 := time.Parse(time.RFC3339, processed); err2 == nil {
			ar.ProcessedAt = t2
		}
		out = append(out, ar)
	}
	return out, rows.Err()
}

// CategoryTotals counts archived violations per rule category across
// every stored analysis, via the category_totals view.
func (db *DB) CategoryTotals() (map[string]int, error) {
	rows, err := db.conn.Query(`SELECT category, violations FROM category_totals`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			category string
			n        int
		)
		if err := rows.Scan(&category, &n); err != nil {
			return nil, err
		}
		out[category] = n
	}
	return out, rows.Err()
}

// ListViolations returns one analysis's violations at or above a
// minimum severity.
func (db *DB) ListViolations(analysisID, minSeverity string) ([]ViolationRow, error) {
	const q = `
		SELECT analysis_id, rule_id, category, severity, description, evidence
		  FROM violations
		 WHERE analysis_id = ?
		   AND (CASE severity WHEN 'critical' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END)
		       >= (CASE ? WHEN 'critical' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END)
		 ORDER BY
		       (CASE severity WHEN 'critical' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END) DESC,
		       seq`
	rows, err := db.conn.Query(q, analysisID, minSeverity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ViolationRow
	for rows.Next() {
		var v ViolationRow
		var evidence sql.NullString
		if err := rows.Scan(&v.AnalysisID, &v.RuleID, &v.Category, &v.Severity, &v.Description, &evidence); err != nil {
			return nil, err
		}
		v.Evidence = evidence.String
		out = append(out, v)
	}
	return out, rows.Err()
}

// HasAnalysis reports whether an analysis exists.
func (db *DB) HasAnalysis(id string) (bool, error) {
	const q = `SELECT 1 FROM analyses WHERE id = ? LIMIT 1`
	var one int
	err := db.conn.QueryRow(q, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
