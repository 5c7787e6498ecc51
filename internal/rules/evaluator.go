package rules

import (
	"fmt"
	"strings"

	"github.com/ofer2300/permitcheck/internal/facts"
)

// Evaluate runs one rule against one BuildingData record.
//
// Any absent required input short-circuits to a skipped result with a
// single warning listing the missing paths; this is the only way a rule
// yields skipped for missing data, and a missing input never produces a
// Violation. Domain data problems (wrong types, zero denominators)
// degrade to skipped inside the strategy. Only a catalogue-integrity
// bug can reach the unknown-strategy branch, and that is guarded at
// load time.
func Evaluate(r Rule, data facts.BuildingData) ValidationResult {
	var missing []string
	for _, path := range r.RequiredInputs {
		if !data.Has(path) {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		return r.warning(StatusSkipped,
			fmt.Sprintf("insufficient data for rule %s: missing %s", r.ID, strings.Join(missing, ", ")),
			map[string]any{"missing": missing})
	}

	strat, ok := strategies[r.Check]
	if !ok {
		// Unreachable for a loaded catalogue; ValidateDefinition
		// rejects unknown kinds at startup.
		return r.warning(StatusSkipped,
			fmt.Sprintf("internal: rule %s has unvalidated checkKind %q", r.ID, r.Check),
			nil)
	}
	return strat(r, data)
}
