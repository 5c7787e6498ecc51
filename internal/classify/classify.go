// Package classify assigns a document-type label to raw submission
// text. The label only routes extraction heuristics and reporting;
// rule evaluation never depends on it being right, and unknown is
// always a legal answer.
package classify

import "regexp"

// Label is the closed set of permit document types.
type Label string

const (
	ZoningPlan Label = "zoning_plan" // תב"ע
	Survey     Label = "survey"      // תכנית מדידה
	FloorPlan  Label = "floor_plan"  // גרמושקה
	Section    Label = "section"     // חתך
	Elevation  Label = "elevation"   // חזית
	Unknown    Label = "unknown"
)

func Labels() []Label {
	return []Label{ZoningPlan, Survey, FloorPlan, Section, Elevation}
}

// Scorer classifies text. The keyword scorer is the default; a learned
// model can replace it behind the same contract.
type Scorer interface {
	Classify(text string) (Label, float64)
}

// KeywordScorer scores each label by its signature phrase hits. The
// highest score wins; ties or no hits fall back to unknown with
// confidence 0.
type KeywordScorer struct {
	signatures map[Label][]*regexp.Regexp
}

func NewKeywordScorer() *KeywordScorer {
	compile := func(patterns ...string) []*regexp.Regexp {
		out := make([]*regexp.Regexp, 0, len(patterns))
		for _, p := range patterns {
			out = append(out, regexp.MustCompile("(?i)"+p))
		}
		return out
	}
	return &KeywordScorer{signatures: map[Label][]*regexp.Regexp{
		ZoningPlan: compile(
			`תב["']ע`, `תכנית\s+מתאר`, `ייעוד\s+קרקע`, `אזור\s+בנייה`,
			`zoning\s+plan`, `land\s+use`,
		),
		Survey: compile(
			`תכנית\s+מדידה`, `מדידת\s+קרקע`, `גבולות\s+מגרש`, `נקודות\s+ציון`,
			`survey\s+plan`, `plot\s+boundar`,
		),
		FloorPlan: compile(
			`גרמושקה`, `תכנית\s+קומה`, `תכנית\s+דירה`, `פריסת\s+חדרים`,
			`floor\s+plan`,
		),
		Section: compile(
			`חתך\s+אנכי`, `חתך`, `גובה\s+קומות`,
			`vertical\s+section`, `section\s+[a-z]-[a-z]`,
		),
		Elevation: compile(
			`חזית\s+בניין`, `חזית`, `מראה\s+חיצוני`,
			`elevation`, `facade`,
		),
	}}
}

// Classify returns the best label and a normalized confidence in
// [0,1] (this label's hits over all hits).
func (s *KeywordScorer) Classify(text string) (Label, float64) {
	if text == "" {
		return Unknown, 0
	}
	scores := map[Label]int{}
	total := 0
	for label, patterns := range s.signatures {
		for _, re := range patterns {
			n := len(re.FindAllStringIndex(text, -1))
			scores[label] += n
			total += n
		}
	}
	if total == 0 {
		return Unknown, 0
	}

	best := Unknown
	bestScore := 0
	tied := false
	for _, label := range Labels() { // fixed order keeps ties deterministic
		switch {
		case scores[label] > bestScore:
			best, bestScore, tied = label, scores[label], false
		case scores[label] == bestScore && bestScore > 0:
			tied = true
		}
	}
	if tied {
		return Unknown, 0
	}
	return best, float64(bestScore) / float64(total)
}
