package rules

import (
	"github.com/ofer2300/permitcheck/internal/facts"
)

// Engine evaluates a loaded catalogue against BuildingData records.
// The catalogue is fixed at construction and never mutated, so one
// Engine is safe for concurrent use across submissions without
// synchronization.
type Engine struct {
	catalog []Rule
	byID    map[string]int
}

// NewEngine wraps an already validated catalogue. Catalogue order is
// preserved and drives result order.
func NewEngine(catalog []Rule) *Engine {
	idx := make(map[string]int, len(catalog))
	for i, r := range catalog {
		idx[r.ID] = i
	}
	return &Engine{catalog: catalog, byID: idx}
}

// Rules returns the catalogue in its stable order.
func (e *Engine) Rules() []Rule { return e.catalog }

// Get returns a rule by id.
func (e *Engine) Get(id string) (Rule, bool) {
	i, ok := e.byID[id]
	if !ok {
		return Rule{}, false
	}
	return e.catalog[i], true
}

// ValidateAll evaluates every rule in catalogue order. Rules are
// independent; one rule's violation never short-circuits another, so a
// report always shows every violation rather than the first.
func (e *Engine) ValidateAll(data facts.BuildingData) []ValidationResult {
	out := make([]ValidationResult, 0, len(e.catalog))
	for _, r := range e.catalog {
		out = append(out, Evaluate(r, data))
	}
	return out
}

// ValidateByCategory evaluates only the rules of one category, in
// catalogue order, matching the subset ValidateAll would produce.
func (e *Engine) ValidateByCategory(cat Category, data facts.BuildingData) []ValidationResult {
	var out []ValidationResult
	for _, r := range e.catalog {
		if r.Category != cat {
			continue
		}
		out = append(out, Evaluate(r, data))
	}
	return out
}

// Summary describes the loaded catalogue for the rules inventory
// surfaces.
type Summary struct {
	TotalRules int              `json:"total_rules"`
	ByCategory map[Category]int `json:"rules_by_category"`
	BySeverity map[Severity]int `json:"rules_by_severity"`
}

func (e *Engine) Summary() Summary {
	s := Summary{
		TotalRules: len(e.catalog),
		ByCategory: map[Category]int{},
		BySeverity: map[Severity]int{},
	}
	for _, r := range e.catalog {
		s.ByCategory[r.Category]++
		s.BySeverity[r.Severity]++
	}
	return s
}
