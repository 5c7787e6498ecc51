package golden

import (
	"context"
	"testing"

	"github.com/ofer2300/permitcheck/internal/analysis"
	"github.com/ofer2300/permitcheck/internal/catalog"
	"github.com/ofer2300/permitcheck/internal/report"
	"github.com/ofer2300/permitcheck/internal/rules"
)

const sampleSurvey = `תכנית מדידה
מדידת קרקע לצורך היתר בנייה.
גבולות המגרש מסומנים בתשריט.
שטח המגרש: 500.0 מ"ר
קו בניין קדמי: 4.2 מ'
קו בניין אחורי: 3.0 מ'
`

const sampleZoningPlan = `תב"ע מקומית 1234
ייעוד קרקע: מגורים
גובה הבניין: 30.0 מ'
תכסית: 300.0 מ"ר
`

func analyzeDocs(t *testing.T, docs ...analysis.RawDocument) *report.AnalysisResult {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalogue: %v", err)
	}
	svc := analysis.NewService(rules.NewEngine(cat.Rules), nil, report.DefaultWeights, nil)
	res, err := svc.Analyze(context.Background(), analysis.Submission{Documents: docs})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return res
}

func TestSample_ContainsKeyViolations(t *testing.T) {
	res := analyzeDocs(t,
		analysis.RawDocument{Name: "survey.txt", Text: sampleSurvey},
		analysis.RawDocument{Name: "taba.txt", Text: sampleZoningPlan},
	)

	counts := map[string]int{}
	for _, v := range res.Violations {
		counts[v.RuleID]++
	}
	// Presence checks on the sample: short front setback, over-height
	// building, excessive coverage.
	for _, id := range []string{"ZON-SETBACK-001", "ZON-HEIGHT-002", "ZON-COVERAGE-003"} {
		if counts[id] != 1 {
			t.Fatalf("expected 1 violation for %s; counts=%v", id, counts)
		}
	}
	if res.Passed {
		t.Fatalf("sample must fail")
	}
	if res.Documents[0].Label != "survey" || res.Documents[1].Label != "zoning_plan" {
		t.Fatalf("classification: %+v", res.Documents)
	}
}

func TestSample_SurveyAloneSkipsHeightRule(t *testing.T) {
	res := analyzeDocs(t, analysis.RawDocument{Name: "survey.txt", Text: sampleSurvey})

	for _, v := range res.Violations {
		if v.RuleID == "ZON-HEIGHT-002" {
			t.Fatalf("height rule must skip without height data")
		}
	}
	found := false
	for _, w := range res.Warnings {
		if w.RuleID == "ZON-HEIGHT-002" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an insufficient-data warning for ZON-HEIGHT-002: %+v", res.Warnings)
	}
}
