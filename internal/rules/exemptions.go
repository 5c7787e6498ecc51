package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/ofer2300/permitcheck/internal/storage"
)

// ApplyExemptions filters out violations covered by an active
// exemption (a recorded variance for a rule, optionally narrowed by an
// evidence substring). Revoked or expired exemptions are ignored even
// if the caller passes them, so a stale list can never change a
// verdict. Returns (kept, exemptedCount).
func ApplyExemptions(in []Violation, exemptions []storage.Exemption) ([]Violation, int) {
	if len(exemptions) == 0 || len(in) == 0 {
		return in, 0
	}
	now := time.Now().UTC()
	var out []Violation
	exempted := 0
nextViolation:
	for _, v := range in {
		for _, ex := range exemptions {
			if ex.RevokedAt != nil || !ex.ExpiresAt.After(now) {
				continue
			}
			if !strings.EqualFold(strings.TrimSpace(v.RuleID), strings.TrimSpace(ex.RuleID)) {
				continue
			}
			if ex.PatternSub != "" {
				sub := strings.ToLower(ex.PatternSub)
				if !strings.Contains(strings.ToLower(v.Description), sub) &&
					!strings.Contains(strings.ToLower(evidenceText(v)), sub) {
					continue
				}
			}
			exempted++
			continue nextViolation
		}
		out = append(out, v)
	}
	return out, exempted
}

func evidenceText(v Violation) string {
	if len(v.Evidence) == 0 {
		return ""
	}
	parts := make([]string, 0, len(v.Evidence))
	for k, val := range v.Evidence {
		parts = append(parts, fmt.Sprintf("%s=%v", k, val))
	}
	return strings.Join(parts, " ")
}
