package rules

import (
	"testing"

	"github.com/ofer2300/permitcheck/internal/facts"
)

func testCatalog() []Rule {
	return []Rule{
		{
			ID: "ZON-A", Category: CategoryZoning, Severity: SeverityHigh,
			Check:          CheckMinimum,
			RequiredInputs: []string{"zoning.setbacks.front"},
			Thresholds:     Thresholds{"min": {Num: 5}},
		},
		{
			ID: "SAF-A", Category: CategorySafety, Severity: SeverityCritical,
			Check:          CheckMaximum,
			RequiredInputs: []string{"building.safety.travelDistanceM"},
			Thresholds:     Thresholds{"max": {Num: 30}},
		},
		{
			ID: "ZON-B", Category: CategoryZoning, Severity: SeverityLow,
			Check:          CheckMinimum,
			RequiredInputs: []string{"zoning.setbacks.rear"},
			Thresholds:     Thresholds{"min": {Num: 3}},
		},
	}
}

func TestValidateAllKeepsCatalogueOrder(t *testing.T) {
	e := NewEngine(testCatalog())
	results := e.ValidateAll(facts.BuildingData{
		"zoning.setbacks.front":           facts.Num(1),
		"building.safety.travelDistanceM": facts.Num(50),
	})
	if len(results) != 3 {
		t.Fatalf("every rule must report, got %d", len(results))
	}
	wantOrder := []string{"ZON-A", "SAF-A", "ZON-B"}
	for i, want := range wantOrder {
		if results[i].RuleID != want {
			t.Fatalf("result %d: got %s want %s", i, results[i].RuleID, want)
		}
	}
	// First two violate, third skips (missing input); no short-circuit.
	if results[0].Status != StatusViolation || results[1].Status != StatusViolation {
		t.Fatalf("expected two violations, got %+v", results[:2])
	}
	if results[2].Status != StatusSkipped {
		t.Fatalf("expected skip for missing input, got %+v", results[2])
	}
}

func TestValidateByCategory(t *testing.T) {
	e := NewEngine(testCatalog())
	results := e.ValidateByCategory(CategoryZoning, facts.BuildingData{
		"zoning.setbacks.front": facts.Num(1),
		"zoning.setbacks.rear":  facts.Num(4),
	})
	if len(results) != 2 {
		t.Fatalf("expected only zoning rules, got %d", len(results))
	}
	for _, r := range results {
		rule, _ := e.Get(r.RuleID)
		if rule.Category != CategoryZoning {
			t.Fatalf("rule %s leaked from category %s", r.RuleID, rule.Category)
		}
	}
}

func TestSummary(t *testing.T) {
	e := NewEngine(testCatalog())
	s := e.Summary()
	if s.TotalRules != 3 {
		t.Fatalf("total: got %d", s.TotalRules)
	}
	if s.ByCategory[CategoryZoning] != 2 || s.ByCategory[CategorySafety] != 1 {
		t.Fatalf("by category: %+v", s.ByCategory)
	}
	if s.BySeverity[SeverityCritical] != 1 || s.BySeverity[SeverityHigh] != 1 || s.BySeverity[SeverityLow] != 1 {
		t.Fatalf("by severity: %+v", s.BySeverity)
	}
}

func TestGet(t *testing.T) {
	e := NewEngine(testCatalog())
	if _, ok := e.Get("ZON-A"); !ok {
		t.Fatalf("known rule not found")
	}
	if _, ok := e.Get("NOPE"); ok {
		t.Fatalf("unknown rule found")
	}
}
