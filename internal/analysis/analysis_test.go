package analysis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ofer2300/permitcheck/internal/catalog"
	"github.com/ofer2300/permitcheck/internal/facts"
	"github.com/ofer2300/permitcheck/internal/report"
	"github.com/ofer2300/permitcheck/internal/rules"
	"github.com/ofer2300/permitcheck/internal/storage"
)

func testService(t *testing.T) *Service {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalogue: %v", err)
	}
	return NewService(rules.NewEngine(cat.Rules), nil, report.DefaultWeights, nil)
}

func TestShortSetbackFails(t *testing.T) {
	svc := testService(t)
	res, err := svc.AnalyzeFacts(context.Background(), facts.BuildingData{
		"plot.boundaries":       facts.Flag(true),
		"zoning.setbacks.front": facts.Num(4.2),
	}, "", nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if res.Passed {
		t.Fatalf("short setback must fail")
	}
	if len(res.Violations) != 1 {
		t.Fatalf("expected exactly one violation, got %+v", res.Violations)
	}
	v := res.Violations[0]
	if v.RuleID != "ZON-SETBACK-001" || v.Severity != rules.SeverityHigh {
		t.Fatalf("bad violation: %+v", v)
	}
	if res.Score != 100-15 {
		t.Fatalf("score: got %d", res.Score)
	}
}

func TestMissingBoundariesSkipsSetbackRule(t *testing.T) {
	svc := testService(t)
	res, err := svc.AnalyzeFacts(context.Background(), facts.BuildingData{
		"zoning.setbacks.front": facts.Num(4.2),
	}, rules.CategoryZoning, nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if !res.Passed || len(res.Violations) != 0 {
		t.Fatalf("skipped rule must not violate: %+v", res.Violations)
	}
	found := false
	for _, w := range res.Warnings {
		if w.RuleID == "ZON-SETBACK-001" && strings.Contains(w.Description, "plot.boundaries") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an insufficient-data warning naming plot.boundaries: %+v", res.Warnings)
	}
}

func TestEmptySubmission(t *testing.T) {
	svc := testService(t)
	res, err := svc.Analyze(context.Background(), Submission{
		Documents: []RawDocument{
			{Name: "noise.txt", Text: "no measurements in here"},
		},
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if res.Passed {
		t.Fatalf("unusable submission must not pass")
	}
	if len(res.Violations) != 0 {
		t.Fatalf("unusable submission must not invent violations: %+v", res.Violations)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected one top-level warning, got %+v", res.Warnings)
	}
	if res.Score != 0 {
		t.Fatalf("score: got %d want 0", res.Score)
	}
	if len(res.Documents) != 1 || res.Documents[0].ExtractedFields != 0 {
		t.Fatalf("document metadata: %+v", res.Documents)
	}
}

func TestDocumentPipeline(t *testing.T) {
	svc := testService(t)
	res, err := svc.Analyze(context.Background(), Submission{
		Documents: []RawDocument{{
			Name: "survey.txt",
			Text: `תכנית מדידה
גבולות המגרש מסומנים.
קו בניין קדמי: 4.2 מ'`,
		}},
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if res.Passed || len(res.Violations) != 1 || res.Violations[0].RuleID != "ZON-SETBACK-001" {
		t.Fatalf("expected a setback violation from raw text: %+v", res.Violations)
	}
	if res.ID == "" {
		t.Fatalf("analysis id missing")
	}
	if res.Confidence <= 0 || res.Confidence > 1 {
		t.Fatalf("confidence %v out of range", res.Confidence)
	}
	d := res.Documents[0]
	if d.Label != "survey" || d.ExtractedFields < 2 {
		t.Fatalf("document metadata: %+v", d)
	}
}

func TestCategoryRestriction(t *testing.T) {
	svc := testService(t)
	data := facts.BuildingData{
		"plot.boundaries":                 facts.Flag(true),
		"zoning.setbacks.front":           facts.Num(4.2),  // zoning violation
		"building.safety.travelDistanceM": facts.Num(45.0), // safety violation
	}

	full, err := svc.AnalyzeFacts(context.Background(), data, "", nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(full.Violations) != 2 {
		t.Fatalf("full catalogue: got %+v", full.Violations)
	}

	zoning, err := svc.AnalyzeFacts(context.Background(), data, rules.CategoryZoning, nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(zoning.Violations) != 1 || zoning.Violations[0].RuleID != "ZON-SETBACK-001" {
		t.Fatalf("zoning only: got %+v", zoning.Violations)
	}
}

func TestExemptionsSubtracted(t *testing.T) {
	svc := testService(t)
	res, err := svc.AnalyzeFacts(context.Background(), facts.BuildingData{
		"plot.boundaries":       facts.Flag(true),
		"zoning.setbacks.front": facts.Num(4.2),
	}, rules.CategoryZoning, []storage.Exemption{{
		RuleID:    "ZON-SETBACK-001",
		Reason:    "approved variance",
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	}})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if !res.Passed || len(res.Violations) != 0 {
		t.Fatalf("exempted violation must not fail: %+v", res.Violations)
	}
	if res.ExemptedCount != 1 {
		t.Fatalf("exempted count: got %d", res.ExemptedCount)
	}
}

func TestConflictingDocumentsWarn(t *testing.T) {
	svc := testService(t)
	res, err := svc.Analyze(context.Background(), Submission{
		Documents: []RawDocument{
			{Name: "a.txt", Text: "גובה הבניין: 14.0 מ'"},
			{Name: "b.txt", Text: "גובה הבניין: 16.0 מ'"},
		},
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w.Description, "disagree") && strings.Contains(w.Description, "building.heightMeters") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a conflict warning: %+v", res.Warnings)
	}
}

func TestCanceledContext(t *testing.T) {
	svc := testService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Analyze(ctx, Submission{
		Documents: []RawDocument{{Name: "a", Text: "x"}},
	}); err == nil {
		t.Fatalf("expected context error")
	}
}
