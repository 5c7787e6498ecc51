package storage

import (
	"database/sql"
	"time"
)

// Exemption records an approved variance: violations of the rule are
// subtracted from future verdicts until the exemption expires or is
// revoked. PatternSub optionally narrows it to violations whose
// description or evidence contains the substring.
type Exemption struct {
	ID         int64      `json:"id"`
	RuleID     string     `json:"rule_id"`
	PatternSub string     `json:"pattern_sub,omitempty"`
	Reason     string     `json:"reason"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

func (db *DB) CreateExemption(ruleID, pattern, reason, createdBy string, expires time.Time) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := db.conn.Exec(`
INSERT INTO exemptions(rule_id, pattern_sub, reason, expires_at, created_by, created_at)
VALUES(?,?,?,?,?,?)`,
		ruleID, nz(pattern), reason, expires.UTC().Format(time.RFC3339Nano), createdBy, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (db *DB) RevokeExemption(id int64) error {
	// the revoker is recorded in audit; exemptions only keep revoked_at
	_, err := db.conn.Exec(`UPDATE exemptions SET revoked_at=? WHERE id=? AND revoked_at IS NULL`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	return err
}

func (db *DB) ListExemptions(activeOnly bool) ([]Exemption, error) {
	q := `
SELECT id, rule_id, COALESCE(pattern_sub,''), reason, expires_at, created_by, created_at, revoked_at
FROM exemptions`
	args := []any{}
	if activeOnly {
		q += ` WHERE (revoked_at IS NULL) AND (expires_at > ?)`
		args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	}
	q += ` ORDER BY id DESC`
	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Exemption
	for rows.Next() {
		var (
			ex          Exemption
			pat         string
			exp, ca, ra sql.NullString
		)
		if err := rows.Scan(&ex.ID, &ex.RuleID, &pat, &ex.Reason, &exp, &ex.CreatedBy, &ca, &ra); err != nil {
			return nil, err
		}
		ex.PatternSub = pat
		if exp.Valid {
			if t, e := time.Parse(time.RFC3339Nano, exp.String); e == nil {
				ex.ExpiresAt = t
			}
		}
		if ca.Valid {
			if t, e := time.Parse(time.RFC3339Nano, ca.String); e == nil {
				ex.CreatedAt = t
			}
		}
		if ra.Valid {
			if t, e := time.Parse(time.RFC3339Nano, ra.String); e == nil {
				ex.RevokedAt = &t
			}
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

func nz(s string) any {
	if s == "" {
		return nil
	}
	return s
}
