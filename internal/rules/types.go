package rules

import "strings"

// Severity ranks how serious a failed rule is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank maps severities to a sortable order; unknown ranks below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

func ParseSeverity(s string) (Severity, bool) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityCritical:
		return SeverityCritical, true
	case SeverityHigh:
		return SeverityHigh, true
	case SeverityMedium:
		return SeverityMedium, true
	case SeverityLow:
		return SeverityLow, true
	}
	return "", false
}

// Category groups rules by the regulation area they enforce.
type Category string

const (
	CategoryStructural    Category = "structural"
	CategoryZoning        Category = "zoning"
	CategorySafety        Category = "safety"
	CategoryAccessibility Category = "accessibility"
	CategoryEnvironmental Category = "environmental"
)

func Categories() []Category {
	return []Category{
		CategoryStructural, CategoryZoning, CategorySafety,
		CategoryAccessibility, CategoryEnvironmental,
	}
}

func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories() {
		if c == known {
			return known, true
		}
	}
	return "", false
}

// Limit is a named threshold declared by the catalogue: a number or a
// boolean flag.
type Limit struct {
	Num    float64
	Flag   bool
	IsFlag bool
}

// Thresholds holds a rule's declared limits by name.
type Thresholds map[string]Limit

// Number returns the numeric threshold by name.
func (t Thresholds) Number(name string) (float64, bool) {
	l, ok := t[name]
	if !ok || l.IsFlag {
		return 0, false
	}
	return l.Num, true
}

// Flag returns a boolean threshold; absent means false.
func (t Thresholds) Flag(name string) bool {
	l, ok := t[name]
	return ok && l.IsFlag && l.Flag
}

// Rule is one immutable catalogue entry. The final entry of
// RequiredInputs is the measured input each check strategy operates on;
// strategies that need a second operand (a discriminant, a gate, a
// denominator) take it from the entry before it. Earlier entries are
// plain prerequisites.
type Rule struct {
	ID             string
	NameLocal      string
	NameEn         string
	Category       Category
	Severity       Severity
	Description    string
	Recommendation string
	Refs           []string
	Check          CheckKind
	RequiredInputs []string
	OptionalInputs []string
	Thresholds     Thresholds
	OutputSchema   string
}

// Violation is evidence that a rule's hard condition failed. Immutable
// once created.
type Violation struct {
	RuleID         string         `json:"ruleId"`
	RuleName       string         `json:"ruleName"`
	Category       Category       `json:"category"`
	Severity       Severity       `json:"severity"`
	Description    string         `json:"description"`
	Recommendation string         `json:"recommendation"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// Warning is evidence of a soft or borderline condition, or of data too
// thin to evaluate a rule. A Warning never fails a submission.
type Warning struct {
	RuleID         string         `json:"ruleId"`
	RuleName       string         `json:"ruleName"`
	Category       Category       `json:"category"`
	Severity       Severity       `json:"severity"`
	Description    string         `json:"description"`
	Recommendation string         `json:"recommendation,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// Status is the per-rule evaluation outcome.
type Status string

const (
	StatusPass      Status = "pass"
	StatusViolation Status = "violation"
	StatusWarning   Status = "warning"
	StatusSkipped   Status = "skipped"
)

// ValidationResult is the outcome of evaluating one rule against one
// BuildingData record.
type ValidationResult struct {
	RuleID     string      `json:"ruleId"`
	Status     Status      `json:"status"`
	Violations []Violation `json:"violations,omitempty"`
	Warnings   []Warning   `json:"warnings,omitempty"`
}
