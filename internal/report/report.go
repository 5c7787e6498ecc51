// Package report folds per-rule validation results into a single
// analysis verdict and renders it as JSON, HTML, or plain text.
package report

import (
	"sort"
	"time"

	"github.com/ofer2300/permitcheck/internal/rules"
)

// Weights are the per-violation score penalties by severity.
type Weights struct {
	Critical int `yaml:"critical"`
	High     int `yaml:"high"`
	Medium   int `yaml:"medium"`
	Low      int `yaml:"low"`
}

var DefaultWeights = Weights{Critical: 25, High: 15, Medium: 8, Low: 3}

func (w Weights) penalty(s rules.Severity) int {
	switch s {
	case rules.SeverityCritical:
		return w.Critical
	case rules.SeverityHigh:
		return w.High
	case rules.SeverityMedium:
		return w.Medium
	default:
		return w.Low
	}
}

// Document describes one submitted document after classification and
// extraction.
type Document struct {
	Name            string  `json:"name"`
	Label           string  `json:"label"`
	Confidence      float64 `json:"confidence"`
	ExtractedFields int     `json:"extractedFields"`
}

// AnalysisResult is the final verdict for one submission.
type AnalysisResult struct {
	ID            string            `json:"id,omitempty"`
	Passed        bool              `json:"passed"`
	Score         int               `json:"score"`
	Confidence    float64           `json:"confidence,omitempty"`
	Violations    []rules.Violation `json:"violations"`
	Warnings      []rules.Warning   `json:"warnings"`
	Documents     []Document        `json:"documents,omitempty"`
	ExemptedCount int               `json:"exemptedCount,omitempty"`
	ProcessedAt   time.Time         `json:"processedAt"`
}

// Aggregate folds rule-by-rule outcomes into one verdict. Violations
// and warnings are each ordered by severity, most severe first; rules
// of equal severity keep their evaluation order. The score starts at 100, loses the
// configured penalty per violation, and never goes below zero.
// Warnings affect neither the score nor the verdict.
func Aggregate(results []rules.ValidationResult, w Weights) AnalysisResult {
	out := AnalysisResult{
		Violations:  []rules.Violation{},
		Warnings:    []rules.Warning{},
		ProcessedAt: time.Now().UTC(),
	}
	for _, r := range results {
		out.Violations = append(out.Violations, r.Violations...)
		out.Warnings = append(out.Warnings, r.Warnings...)
	}
	sort.SliceStable(out.Violations, func(i, j int) bool {
		return out.Violations[i].Severity.Rank() > out.Violations[j].Severity.Rank()
	})
	sort.SliceStable(out.Warnings, func(i, j int) bool {
		return out.Warnings[i].Severity.Rank() > out.Warnings[j].Severity.Rank()
	})

	score := 100
	for _, v := range out.Violations {
		score -= w.penalty(v.Severity)
	}
	if score < 0 {
		score = 0
	}
	out.Score = score
	out.Passed = len(out.Violations) == 0
	return out
}
