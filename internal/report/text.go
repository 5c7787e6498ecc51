package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/ofer2300/permitcheck/internal/rules"
)

// Render writes the plain-text verdict suitable for terminal output or
// attaching to a permit file.
func Render(w io.Writer, res *AnalysisResult) {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "BUILDING PERMIT COMPLIANCE REPORT")
	fmt.Fprintln(w, line)
	if res.ID != "" {
		fmt.Fprintf(w, "Analysis:  %s\n", res.ID)
	}
	verdict := "FAILED"
	if res.Passed {
		verdict = "PASSED"
	}
	fmt.Fprintf(w, "Verdict:   %s\n", verdict)
	fmt.Fprintf(w, "Score:     %d/100\n", res.Score)
	if res.Confidence > 0 {
		fmt.Fprintf(w, "Confidence: %.0f%%\n", res.Confidence*100)
	}
	fmt.Fprintf(w, "Processed: %s\n", res.ProcessedAt.Format("2006-01-02 15:04:05 UTC"))

	if len(res.Documents) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Documents:")
		for _, d := range res.Documents {
			fmt.Fprintf(w, "  - %s  [%s, %.0f%%, %d fields]\n",
				d.Name, d.Label, d.Confidence*100, d.ExtractedFields)
		}
	}

	fmt.Fprintln(w)
	if len(res.Violations) == 0 {
		fmt.Fprintln(w, "No violations found.")
	} else {
		fmt.Fprintf(w, "Violations (%d):\n", len(res.Violations))
		for _, sev := range []rules.Severity{
			rules.SeverityCritical, rules.SeverityHigh,
			rules.SeverityMedium, rules.SeverityLow,
		} {
			for _, v := range res.Violations {
				if v.Severity != sev {
					continue
				}
				fmt.Fprintf(w, "  [%s] %s (%s)\n", strings.ToUpper(string(v.Severity)), v.RuleID, v.Category)
				fmt.Fprintf(w, "      %s\n", v.Description)
				if v.Recommendation != "" {
					fmt.Fprintf(w, "      Fix: %s\n", v.Recommendation)
				}
			}
		}
	}
	if res.ExemptedCount > 0 {
		fmt.Fprintf(w, "Exempted violations: %d\n", res.ExemptedCount)
	}

	if len(res.Warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Warnings (%d):\n", len(res.Warnings))
		for _, warn := range res.Warnings {
			if warn.RuleID != "" {
				fmt.Fprintf(w, "  [%s] %s\n", warn.RuleID, warn.Description)
			} else {
				fmt.Fprintf(w, "  %s\n", warn.Description)
			}
		}
	}
	fmt.Fprintln(w, line)
}
