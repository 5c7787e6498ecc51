package report

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/ofer2300/permitcheck/internal/rules"
)

func vr(id string, sev rules.Severity) rules.ValidationResult {
	return rules.ValidationResult{
		RuleID: id,
		Status: rules.StatusViolation,
		Violations: []rules.Violation{{
			RuleID: id, Severity: sev, Category: rules.CategoryZoning,
			Description: id + " failed",
		}},
	}
}

func warn(id string) rules.ValidationResult {
	return rules.ValidationResult{
		RuleID: id,
		Status: rules.StatusWarning,
		Warnings: []rules.Warning{{
			RuleID: id, Severity: rules.SeverityLow, Description: id + " borderline",
		}},
	}
}

func TestAggregateScore(t *testing.T) {
	res := Aggregate([]rules.ValidationResult{
		vr("A", rules.SeverityCritical), // -25
		vr("B", rules.SeverityHigh),     // -15
		vr("C", rules.SeverityMedium),   // -8
		vr("D", rules.SeverityLow),      // -3
	}, DefaultWeights)

	if res.Score != 49 {
		t.Fatalf("score: got %d want 49", res.Score)
	}
	if res.Passed {
		t.Fatalf("violations must fail the submission")
	}
	if res.ProcessedAt.IsZero() {
		t.Fatalf("processedAt must be stamped at aggregation")
	}
}

func TestAggregateScoreFloor(t *testing.T) {
	var in []rules.ValidationResult
	for i := 0; i < 6; i++ {
		in = append(in, vr("R", rules.SeverityCritical))
	}
	res := Aggregate(in, DefaultWeights)
	if res.Score != 0 {
		t.Fatalf("score must floor at 0, got %d", res.Score)
	}
}

func TestAggregateSeverityOrderStable(t *testing.T) {
	res := Aggregate([]rules.ValidationResult{
		vr("LOW-1", rules.SeverityLow),
		vr("CRIT-1", rules.SeverityCritical),
		vr("HIGH-1", rules.SeverityHigh),
		vr("HIGH-2", rules.SeverityHigh),
		vr("CRIT-2", rules.SeverityCritical),
	}, DefaultWeights)

	got := make([]string, len(res.Violations))
	for i, v := range res.Violations {
		got[i] = v.RuleID
	}
	want := []string{"CRIT-1", "CRIT-2", "HIGH-1", "HIGH-2", "LOW-1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order: got %v want %v", got, want)
		}
	}
}

func TestAggregateIdempotent(t *testing.T) {
	in := []rules.ValidationResult{
		vr("A", rules.SeverityHigh),
		warn("B"),
		vr("C", rules.SeverityCritical),
	}
	first := Aggregate(in, DefaultWeights)
	second := Aggregate(in, DefaultWeights)

	if first.Passed != second.Passed || first.Score != second.Score {
		t.Fatalf("verdict must be deterministic: %+v vs %+v", first, second)
	}
	if !reflect.DeepEqual(first.Violations, second.Violations) {
		t.Fatalf("violations differ across calls:\n%+v\n%+v", first.Violations, second.Violations)
	}
	if !reflect.DeepEqual(first.Warnings, second.Warnings) {
		t.Fatalf("warnings differ across calls:\n%+v\n%+v", first.Warnings, second.Warnings)
	}
	// Only the aggregation timestamp may vary between calls.
	if second.ProcessedAt.Before(first.ProcessedAt) {
		t.Fatalf("processedAt must not go backwards: %v then %v", first.ProcessedAt, second.ProcessedAt)
	}
}

func TestWarningsDoNotAffectVerdict(t *testing.T) {
	res := Aggregate([]rules.ValidationResult{
		warn("W-1"), warn("W-2"),
	}, DefaultWeights)
	if !res.Passed || res.Score != 100 {
		t.Fatalf("warnings must not fail or score: %+v", res)
	}
	if len(res.Warnings) != 2 {
		t.Fatalf("warnings must be carried: %+v", res.Warnings)
	}
}

func TestAggregateEmpty(t *testing.T) {
	res := Aggregate(nil, DefaultWeights)
	if !res.Passed || res.Score != 100 {
		t.Fatalf("no results: %+v", res)
	}
	if res.Violations == nil || res.Warnings == nil {
		t.Fatalf("slices must be non-nil for JSON shape")
	}
}

func TestRenderText(t *testing.T) {
	res := Aggregate([]rules.ValidationResult{
		vr("ZON-HEIGHT-002", rules.SeverityCritical),
		warn("ZON-SETBACK-001"),
	}, DefaultWeights)
	res.ID = "a-1"
	res.ExemptedCount = 1

	var buf bytes.Buffer
	Render(&buf, &res)
	out := buf.String()
	for _, want := range []string{
		"FAILED", "75/100", "ZON-HEIGHT-002", "[CRITICAL]",
		"ZON-SETBACK-001 borderline", "Exempted violations: 1",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("text report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteJSONAndHTML(t *testing.T) {
	res := Aggregate([]rules.ValidationResult{vr("A", rules.SeverityHigh)}, DefaultWeights)
	res.ID = "a-2"
	dir := t.TempDir()

	jp, err := WriteJSON(res.ID, dir, &res)
	if err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	hp, err := WriteHTML(res.ID, dir, &res)
	if err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	if !strings.HasSuffix(jp, "a-2.json") || !strings.HasSuffix(hp, "a-2.html") {
		t.Fatalf("paths: %s %s", jp, hp)
	}
}
