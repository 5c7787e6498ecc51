package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.CreateSchema(); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return db
}

func TestAnalysisRoundTrip(t *testing.T) {
	db := openTestDB(t)
	now := time.Now().UTC()
	blob := []byte(`{"passed":false,"score":85}`)
	rows := []ViolationRow{
		{RuleID: "ZON-SETBACK-001", Category: "zoning", Severity: "high", Description: "short setback"},
		{RuleID: "SAF-RAIL-004", Category: "safety", Severity: "medium", Description: "low railing"},
	}

	if err := db.SaveAnalysis("a-1", now, false, 85, blob, rows); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.LoadAnalysis("a-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != string(blob) {
		t.Fatalf("blob round trip: got %s", got)
	}

	id, latest, err := db.LoadLatest()
	if err != nil || id != "a-1" || string(latest) != string(blob) {
		t.Fatalf("latest: id=%s err=%v", id, err)
	}

	list, err := db.ListAnalyses(10, 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %v", list, err)
	}
	if list[0].Score != 85 || list[0].Passed || list[0].Violations != 2 {
		t.Fatalf("row projection: %+v", list[0])
	}

	if ok, _ := db.HasAnalysis("a-1"); !ok {
		t.Fatalf("HasAnalysis false for saved analysis")
	}
	if ok, _ := db.HasAnalysis("missing"); ok {
		t.Fatalf("HasAnalysis true for unknown id")
	}
}

func TestSaveAnalysisUpsertReplacesViolations(t *testing.T) {
	db := openTestDB(t)
	now := time.Now().UTC()
	rows := []ViolationRow{{RuleID: "R-1", Severity: "high"}}
	if err := db.SaveAnalysis("a-1", now, false, 85, []byte(`{}`), rows); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := db.SaveAnalysis("a-1", now, true, 100, []byte(`{}`), nil); err != nil {
		t.Fatalf("resave: %v", err)
	}
	vs, err := db.ListViolations("a-1", "low")
	if err != nil || len(vs) != 0 {
		t.Fatalf("stale violations survived upsert: %v %v", vs, err)
	}
}

func TestCategoryTotalsAcrossAnalyses(t *testing.T) {
	db := openTestDB(t)
	now := time.Now().UTC()
	if err := db.SaveAnalysis("a-1", now, false, 60, []byte(`{}`), []ViolationRow{
		{RuleID: "ZON-SETBACK-001", Category: "zoning", Severity: "high"},
		{RuleID: "SAF-FIRE-001", Category: "safety", Severity: "critical"},
	}); err != nil {
		t.Fatalf("save a-1: %v", err)
	}
	if err := db.SaveAnalysis("a-2", now, false, 85, []byte(`{}`), []ViolationRow{
		{RuleID: "ZON-HEIGHT-002", Category: "zoning", Severity: "critical"},
	}); err != nil {
		t.Fatalf("save a-2: %v", err)
	}

	totals, err := db.CategoryTotals()
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals["zoning"] != 2 || totals["safety"] != 1 {
		t.Fatalf("totals wrong: %+v", totals)
	}
}

func TestListViolationsMinSeverity(t *testing.T) {
	db := openTestDB(t)
	rows := []ViolationRow{
		{RuleID: "LOW-1", Severity: "low"},
		{RuleID: "CRIT-1", Severity: "critical"},
		{RuleID: "MED-1", Severity: "medium"},
	}
	if err := db.SaveAnalysis("a-1", time.Now().UTC(), false, 64, []byte(`{}`), rows); err != nil {
		t.Fatalf("save: %v", err)
	}

	vs, err := db.ListViolations("a-1", "medium")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(vs) != 2 || vs[0].RuleID != "CRIT-1" || vs[1].RuleID != "MED-1" {
		t.Fatalf("filter/order wrong: %+v", vs)
	}
}

func TestExemptionLifecycle(t *testing.T) {
	db := openTestDB(t)
	future := time.Now().Add(30 * 24 * time.Hour)

	id, err := db.CreateExemption("ZON-SETBACK-001", "front", "approved variance 12/7", "inspector", future)
	if err != nil || id == 0 {
		t.Fatalf("create: id=%d err=%v", id, err)
	}
	_, err = db.CreateExemption("SAF-FIRE-001", "", "expired", "inspector", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("create expired: %v", err)
	}

	active, err := db.ListExemptions(true)
	if err != nil || len(active) != 1 || active[0].RuleID != "ZON-SETBACK-001" {
		t.Fatalf("active list: %+v err=%v", active, err)
	}
	if active[0].PatternSub != "front" {
		t.Fatalf("pattern lost: %+v", active[0])
	}

	all, err := db.ListExemptions(false)
	if err != nil || len(all) != 2 {
		t.Fatalf("full list: %+v err=%v", all, err)
	}

	if err := db.RevokeExemption(id); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	active, _ = db.ListExemptions(true)
	if len(active) != 0 {
		t.Fatalf("revoked exemption still active: %+v", active)
	}
}

func TestUserAndSession(t *testing.T) {
	db := openTestDB(t)
	uid, err := db.CreateUser("dana", "hash", "admin")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	u, hash, err := db.GetUserByUsername("dana")
	if err != nil || u.ID != uid || hash != "hash" || u.Role != "admin" {
		t.Fatalf("get user: %+v %q %v", u, hash, err)
	}

	if err := db.CreateSession(uid, "tok", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	su, err := db.GetSession("tok")
	if err != nil || su.Username != "dana" {
		t.Fatalf("get session: %+v %v", su, err)
	}
	if err := db.DeleteSession("tok"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := db.GetSession("tok"); err == nil {
		t.Fatalf("deleted session still resolves")
	}

	if err := db.CreateSession(uid, "old", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("create expired session: %v", err)
	}
	if _, err := db.GetSession("old"); err == nil {
		t.Fatalf("expired session still resolves")
	}
}
