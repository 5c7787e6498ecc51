package rules

import (
	"fmt"
	"strconv"

	"github.com/ofer2300/permitcheck/internal/facts"
)

// CheckKind names the evaluation strategy a rule runs. The set is
// closed; the catalogue loader rejects anything else before the engine
// starts.
type CheckKind string

const (
	// measured value must meet a declared minimum.
	CheckMinimum CheckKind = "minimum_threshold"
	// measured value must not exceed a declared maximum.
	CheckMaximum CheckKind = "maximum_threshold"
	// measured value must sit inside a declared interval.
	CheckRange CheckKind = "range_threshold"
	// measured boolean must match the expected flag, optionally gated
	// on a numeric condition field.
	CheckBoolean CheckKind = "boolean_required"
	// limit is selected from the thresholds by the value of a
	// discriminant field (e.g. live load by use type).
	CheckConditional CheckKind = "conditional_threshold"
	// ratio of two measured fields must meet a minimum.
	CheckMinimumRatio CheckKind = "minimum_ratio"
	// ratio of two measured fields must not exceed a maximum.
	CheckMaximumRatio CheckKind = "maximum_ratio"
)

type strategyFunc func(r Rule, data facts.BuildingData) ValidationResult

var strategies = map[CheckKind]strategyFunc{
	CheckMinimum:      evalMinimum,
	CheckMaximum:      evalMaximum,
	CheckRange:        evalRange,
	CheckBoolean:      evalBoolean,
	CheckConditional:  evalConditional,
	CheckMinimumRatio: evalMinimumRatio,
	CheckMaximumRatio: evalMaximumRatio,
}

// KnownCheck reports whether kind maps to an evaluation strategy.
func KnownCheck(kind CheckKind) bool {
	_, ok := strategies[kind]
	return ok
}

// Reserved threshold names that carry operator or advisory semantics
// rather than a conditional discriminant limit.
var reservedThresholds = map[string]bool{
	"min": true, "max": true, "scale": true,
	"exclusive": true, "exclusive_min": true, "exclusive_max": true,
	"advisory_min": true, "advisory_max": true,
	"warn_within": true, "expected": true,
	"when_min": true, "when_max": true, "when_exclusive": true,
}

// ValidateDefinition checks a catalogue entry's structural integrity:
// missing thresholds, wrong input arity, unknown checkKind. Called by
// the loader so a broken rule fails startup instead of evaluation.
func ValidateDefinition(r Rule) error {
	if r.ID == "" {
		return fmt.Errorf("rule id is empty")
	}
	if !KnownCheck(r.Check) {
		return fmt.Errorf("unknown checkKind %q", r.Check)
	}
	if len(r.RequiredInputs) == 0 {
		return fmt.Errorf("no required inputs")
	}
	needNum := func(name string) error {
		if _, ok := r.Thresholds.Number(name); !ok {
			return fmt.Errorf("checkKind %s needs numeric threshold %q", r.Check, name)
		}
		return nil
	}
	switch r.Check {
	case CheckMinimum:
		return needNum("min")
	case CheckMaximum:
		return needNum("max")
	case CheckRange:
		if err := needNum("min"); err != nil {
			return err
		}
		if err := needNum("max"); err != nil {
			return err
		}
		lo, _ := r.Thresholds.Number("min")
		hi, _ := r.Thresholds.Number("max")
		if lo > hi {
			return fmt.Errorf("range min %s exceeds max %s", fmtNum(lo), fmtNum(hi))
		}
	case CheckBoolean:
		_, hasMin := r.Thresholds.Number("when_min")
		_, hasMax := r.Thresholds.Number("when_max")
		if (hasMin || hasMax) && len(r.RequiredInputs) < 2 {
			return fmt.Errorf("gated boolean_required needs a gate input before the flag input")
		}
	case CheckConditional:
		if len(r.RequiredInputs) < 2 {
			return fmt.Errorf("conditional_threshold needs a discriminant input before the measured input")
		}
		variants := 0
		for name, l := range r.Thresholds {
			if !reservedThresholds[name] && !l.IsFlag {
				variants++
			}
		}
		if variants == 0 {
			return fmt.Errorf("conditional_threshold declares no discriminant limits")
		}
	case CheckMinimumRatio:
		if len(r.RequiredInputs) < 2 {
			return fmt.Errorf("%s needs a numerator input before the denominator input", r.Check)
		}
		return needNum("min")
	case CheckMaximumRatio:
		if len(r.RequiredInputs) < 2 {
			return fmt.Errorf("%s needs a numerator input before the denominator input", r.Check)
		}
		return needNum("max")
	}
	return nil
}

func (r Rule) measuredPath() string { return r.RequiredInputs[len(r.RequiredInputs)-1] }
func (r Rule) secondPath() string   { return r.RequiredInputs[len(r.RequiredInputs)-2] }

func fmtNum(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func (r Rule) withRef(msg string) string {
	if len(r.Refs) > 0 {
		return msg + " (" + r.Refs[0] + ")"
	}
	return msg
}

func (r Rule) pass() ValidationResult {
	return ValidationResult{RuleID: r.ID, Status: StatusPass}
}

func (r Rule) violation(desc string, evidence map[string]any) ValidationResult {
	return ValidationResult{
		RuleID: r.ID,
		Status: StatusViolation,
		Violations: []Violation{{
			RuleID:         r.ID,
			RuleName:       r.NameEn,
			Category:       r.Category,
			Severity:       r.Severity,
			Description:    desc,
			Recommendation: r.Recommendation,
			Evidence:       evidence,
		}},
	}
}

func (r Rule) warning(status Status, desc string, evidence map[string]any) ValidationResult {
	return ValidationResult{
		RuleID: r.ID,
		Status: status,
		Warnings: []Warning{{
			RuleID:         r.ID,
			RuleName:       r.NameEn,
			Category:       r.Category,
			Severity:       r.Severity,
			Description:    desc,
			Recommendation: r.Recommendation,
			Evidence:       evidence,
		}},
	}
}

// badData degrades a wrong-typed field to a skipped result; a hard
// failure must be evidence-backed, and mistyped data is not evidence.
func (r Rule) badData(path string, want string, got facts.Value) ValidationResult {
	return r.warning(StatusSkipped,
		fmt.Sprintf("cannot evaluate %s: field %s holds a %s, expected a %s", r.ID, path, got.Kind, want),
		map[string]any{"field": path, "expected": want, "actual": got.Kind.String()})
}

func (r Rule) number(data facts.BuildingData, path string) (float64, *ValidationResult) {
	v, _ := data.Get(path)
	if v.Kind != facts.Number {
		res := r.badData(path, "number", v)
		return 0, &res
	}
	return v.Num, nil
}

func evalMinimum(r Rule, data facts.BuildingData) ValidationResult {
	path := r.measuredPath()
	v, bad := r.number(data, path)
	if bad != nil {
		return *bad
	}
	min, _ := r.Thresholds.Number("min")
	exclusive := r.Thresholds.Flag("exclusive")
	ok := v >= min
	if exclusive {
		ok = v > min
	}
	evidence := map[string]any{"input": path, "measured": v, "min": min}
	if !ok {
		op := "below the minimum"
		if exclusive && v == min {
			op = "at the exclusive minimum"
		}
		return r.violation(
			r.withRef(fmt.Sprintf("%s is %s, %s %s", path, fmtNum(v), op, fmtNum(min))),
			evidence)
	}
	if within, has := r.Thresholds.Number("warn_within"); has && v < min+within {
		return r.warning(StatusWarning,
			fmt.Sprintf("%s is %s, within %s of the minimum %s", path, fmtNum(v), fmtNum(within), fmtNum(min)),
			evidence)
	}
	return r.pass()
}

func evalMaximum(r Rule, data facts.BuildingData) ValidationResult {
	path := r.measuredPath()
	v, bad := r.number(data, path)
	if bad != nil {
		return *bad
	}
	max, _ := r.Thresholds.Number("max")
	exclusive := r.Thresholds.Flag("exclusive")
	ok := v <= max
	if exclusive {
		ok = v < max
	}
	evidence := map[string]any{"input": path, "measured": v, "max": max}
	if !ok {
		op := "exceeds the maximum"
		if exclusive && v == max {
			op = "at the exclusive maximum"
		}
		return r.violation(
			r.withRef(fmt.Sprintf("%s is %s, %s %s", path, fmtNum(v), op, fmtNum(max))),
			evidence)
	}
	if within, has := r.Thresholds.Number("warn_within"); has && v > max-within {
		return r.warning(StatusWarning,
			fmt.Sprintf("%s is %s, within %s of the maximum %s", path, fmtNum(v), fmtNum(within), fmtNum(max)),
			evidence)
	}
	return r.pass()
}

func evalRange(r Rule, data facts.BuildingData) ValidationResult {
	path := r.measuredPath()
	v, bad := r.number(data, path)
	if bad != nil {
		return *bad
	}
	lo, _ := r.Thresholds.Number("min")
	hi, _ := r.Thresholds.Number("max")
	evidence := map[string]any{"input": path, "measured": v, "min": lo, "max": hi}

	belowLo := v < lo
	if r.Thresholds.Flag("exclusive_min") {
		belowLo = v <= lo
	}
	aboveHi := v > hi
	if r.Thresholds.Flag("exclusive_max") {
		aboveHi = v >= hi
	}
	switch {
	case belowLo:
		desc := r.withRef(fmt.Sprintf("%s is %s, below the range minimum %s", path, fmtNum(v), fmtNum(lo)))
		if r.Thresholds.Flag("advisory_min") {
			return r.warning(StatusWarning, desc, evidence)
		}
		return r.violation(desc, evidence)
	case aboveHi:
		desc := r.withRef(fmt.Sprintf("%s is %s, above the range maximum %s", path, fmtNum(v), fmtNum(hi)))
		if r.Thresholds.Flag("advisory_max") {
			return r.warning(StatusWarning, desc, evidence)
		}
		return r.violation(desc, evidence)
	}
	return r.pass()
}

func evalBoolean(r Rule, data facts.BuildingData) ValidationResult {
	path := r.measuredPath()

	// Optional gate: the rule only applies when the gate field meets
	// the declared condition (e.g. sprinklers only above 12 m).
	gateMin, hasGateMin := r.Thresholds.Number("when_min")
	gateMax, hasGateMax := r.Thresholds.Number("when_max")
	evidence := map[string]any{"input": path}
	if hasGateMin || hasGateMax {
		gatePath := r.secondPath()
		g, bad := r.number(data, gatePath)
		if bad != nil {
			return *bad
		}
		evidence["gate"] = gatePath
		evidence["gateValue"] = g
		exclusive := r.Thresholds.Flag("when_exclusive")
		if hasGateMin {
			if (exclusive && g <= gateMin) || (!exclusive && g < gateMin) {
				return r.pass()
			}
		}
		if hasGateMax {
			if (exclusive && g >= gateMax) || (!exclusive && g > gateMax) {
				return r.pass()
			}
		}
	}

	v, _ := data.Get(path)
	if v.Kind != facts.Bool {
		return r.badData(path, "bool", v)
	}
	expected := true
	if l, ok := r.Thresholds["expected"]; ok && l.IsFlag {
		expected = l.Flag
	}
	evidence["measured"] = v.Flag
	evidence["expected"] = expected
	if v.Flag != expected {
		return r.violation(
			r.withRef(fmt.Sprintf("%s is %t, required to be %t", path, v.Flag, expected)),
			evidence)
	}
	return r.pass()
}

func evalConditional(r Rule, data facts.BuildingData) ValidationResult {
	valuePath := r.measuredPath()
	discPath := r.secondPath()

	disc, _ := data.Get(discPath)
	if disc.Kind != facts.String {
		return r.badData(discPath, "string", disc)
	}
	v, bad := r.number(data, valuePath)
	if bad != nil {
		return *bad
	}

	limit, ok := r.Thresholds.Number(disc.Str)
	if !ok {
		limit, ok = r.Thresholds.Number("default")
	}
	evidence := map[string]any{
		"input": valuePath, "measured": v,
		"discriminant": discPath, "discriminantValue": disc.Str,
	}
	if !ok {
		// Unrecognized discriminant with no default: a data problem,
		// not a catalogue problem.
		return r.warning(StatusWarning,
			fmt.Sprintf("%s value %q is not covered by %s, verify manually", discPath, disc.Str, r.ID),
			evidence)
	}
	evidence["limit"] = limit

	exclusive := r.Thresholds.Flag("exclusive")
	if r.Thresholds.Flag("maximum") {
		ok := v <= limit
		if exclusive {
			ok = v < limit
		}
		if !ok {
			return r.violation(
				r.withRef(fmt.Sprintf("%s is %s, exceeds the maximum %s for %s %q",
					valuePath, fmtNum(v), fmtNum(limit), discPath, disc.Str)),
				evidence)
		}
		return r.pass()
	}
	pass := v >= limit
	if exclusive {
		pass = v > limit
	}
	if !pass {
		return r.violation(
			r.withRef(fmt.Sprintf("%s is %s, below the minimum %s for %s %q",
				valuePath, fmtNum(v), fmtNum(limit), discPath, disc.Str)),
			evidence)
	}
	return r.pass()
}

func ratioOf(r Rule, data facts.BuildingData) (ratio float64, evidence map[string]any, bad *ValidationResult) {
	denPath := r.measuredPath()
	numPath := r.secondPath()
	num, badNum := r.number(data, numPath)
	if badNum != nil {
		return 0, nil, badNum
	}
	den, badDen := r.number(data, denPath)
	if badDen != nil {
		return 0, nil, badDen
	}
	if den == 0 {
		res := r.warning(StatusSkipped,
			fmt.Sprintf("cannot evaluate %s: %s is zero", r.ID, denPath),
			map[string]any{"numerator": numPath, "denominator": denPath})
		return 0, nil, &res
	}
	scale := 1.0
	if s, ok := r.Thresholds.Number("scale"); ok {
		scale = s
	}
	ratio = num / den * scale
	evidence = map[string]any{
		"numerator": numPath, "numeratorValue": num,
		"denominator": denPath, "denominatorValue": den,
		"ratio": ratio,
	}
	return ratio, evidence, nil
}

func evalMinimumRatio(r Rule, data facts.BuildingData) ValidationResult {
	ratio, evidence, bad := ratioOf(r, data)
	if bad != nil {
		return *bad
	}
	min, _ := r.Thresholds.Number("min")
	evidence["min"] = min
	ok := ratio >= min
	if r.Thresholds.Flag("exclusive") {
		ok = ratio > min
	}
	if !ok {
		return r.violation(
			r.withRef(fmt.Sprintf("%s per %s is %s, below the minimum %s",
				r.secondPath(), r.measuredPath(), fmtNum(ratio), fmtNum(min))),
			evidence)
	}
	if within, has := r.Thresholds.Number("warn_within"); has && ratio < min+within {
		return r.warning(StatusWarning,
			fmt.Sprintf("%s per %s is %s, within %s of the minimum %s",
				r.secondPath(), r.measuredPath(), fmtNum(ratio), fmtNum(within), fmtNum(min)),
			evidence)
	}
	return r.pass()
}

func evalMaximumRatio(r Rule, data facts.BuildingData) ValidationResult {
	ratio, evidence, bad := ratioOf(r, data)
	if bad != nil {
		return *bad
	}
	max, _ := r.Thresholds.Number("max")
	evidence["max"] = max
	ok := ratio <= max
	if r.Thresholds.Flag("exclusive") {
		ok = ratio < max
	}
	if !ok {
		return r.violation(
			r.withRef(fmt.Sprintf("%s per %s is %s, exceeds the maximum %s",
				r.secondPath(), r.measuredPath(), fmtNum(ratio), fmtNum(max))),
			evidence)
	}
	if within, has := r.Thresholds.Number("warn_within"); has && ratio > max-within {
		return r.warning(StatusWarning,
			fmt.Sprintf("%s per %s is %s, within %s of the maximum %s",
				r.secondPath(), r.measuredPath(), fmtNum(ratio), fmtNum(within), fmtNum(max)),
			evidence)
	}
	return r.pass()
}
