// Package extract pulls structured building facts out of free-form
// permit document text. Extraction is best effort: a field missed is a
// skipped rule downstream, a field misread is a wrong verdict, so the
// patterns prefer silence over guessing. Conflicting matches for the
// same field drop the field entirely.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ofer2300/permitcheck/internal/facts"
)

type fieldKind int

const (
	numberField fieldKind = iota
	flagField
	useTypeField
)

// fieldSpec ties one fact path to the patterns that can produce it.
// Numeric patterns capture the value in group 1; flag patterns only
// need to match.
type fieldSpec struct {
	path     string
	kind     fieldKind
	patterns []*regexp.Regexp
}

func pats(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(`(?i)`+e))
	}
	return out
}

const num = `(\d+(?:[.,]\d+)?)`

// fields is ordered so extractions are deterministic regardless of map
// iteration. Paths match the default rule catalogue's input names.
var fields = []fieldSpec{
	{"zoning.setbacks.front", numberField, pats(
		`קו\s+בניין\s+קדמי[:\s]*`+num,
		`נסיגה\s+קדמית[:\s]*`+num,
		`front\s+setback[:\s]*`+num,
	)},
	{"zoning.setbacks.rear", numberField, pats(
		`קו\s+בניין\s+אחורי[:\s]*`+num,
		`נסיגה\s+אחורית[:\s]*`+num,
		`rear\s+setback[:\s]*`+num,
	)},
	{"zoning.setbacks.side", numberField, pats(
		`קו\s+בניין\s+צדדי[:\s]*`+num,
		`נסיגה\s+צדדית[:\s]*`+num,
		`side\s+setback[:\s]*`+num,
	)},
	{"building.heightMeters", numberField, pats(
		`גובה\s+(?:ה?בניין|ה?מבנה)[:\s]*`+num,
		`building\s+height[:\s]*`+num,
	)},
	{"building.floors", numberField, pats(
		`(\d+)\s+קומות`,
		`מספר\s+קומות[:\s]*(\d+)`,
		`(\d+)\s+floors`,
	)},
	{"plot.areaM2", numberField, pats(
		`שטח\s+ה?מגרש[:\s]*`+num,
		`plot\s+area[:\s]*`+num,
	)},
	{"building.footprint", numberField, pats(
		`תכסית[:\s]*`+num,
		`שטח\s+קומת\s+קרקע[:\s]*`+num,
		`footprint[:\s]*`+num,
	)},
	{"building.totalFloorAreaM2", numberField, pats(
		`שטח\s+בנוי\s+כולל[:\s]*`+num,
		`סה["']?כ\s+שטח\s+בנוי[:\s]*`+num,
		`total\s+(?:built|floor)\s+area[:\s]*`+num,
	)},
	{"building.units", numberField, pats(
		`(\d+)\s+יחידות\s+דיור`,
		`יחידות\s+דיור[:\s]*(\d+)`,
		`(\d+)\s+(?:dwelling|housing)\s+units`,
	)},
	{"building.parking.totalSpaces", numberField, pats(
		`(\d+)\s+מקומות\s+חניה`,
		`מקומות\s+חניה[:\s]*(\d+)`,
		`(\d+)\s+parking\s+spaces`,
	)},
	{"structural.liveLoadKnM2", numberField, pats(
		`עומס\s+שימושי[:\s]*` + num,
	)},
	{"structural.foundation.depthM", numberField, pats(
		`עומק\s+יסודות?[:\s]*`+num,
		`foundation\s+depth[:\s]*`+num,
	)},
	{"structural.columns.minSideCm", numberField, pats(
		`מידת\s+עמוד(?:\s+מ?ינימלית)?[:\s]*` + num,
	)},
	{"structural.beams.minWidthCm", numberField, pats(
		`רוחב\s+קורה(?:\s+מ?ינימלי)?[:\s]*` + num,
	)},
	{"structural.slabs.minThicknessCm", numberField, pats(
		`עובי\s+תקרה[:\s]*`+num,
		`עובי\s+רצפה[:\s]*`+num,
	)},
	{"building.safety.travelDistanceM", numberField, pats(
		`מרחק\s+מילוט[:\s]*`+num,
		`travel\s+distance[:\s]*`+num,
	)},
	{"building.safety.stairs.riserHeightCm", numberField, pats(
		`גובה\s+רום[:\s]*`+num,
		`riser\s+height[:\s]*`+num,
	)},
	{"building.safety.railings.balconyHeightCm", numberField, pats(
		`גובה\s+מעקה[:\s]*`+num,
		`railing\s+height[:\s]*`+num,
	)},
	{"building.safety.lighting.backupMinutes", numberField, pats(
		`תאורת\s+חירום[:\s]*(\d+)\s*דקות`,
		`emergency\s+lighting[:\s]*(\d+)\s*min`,
	)},
	{"building.accessibility.ramp.slopePercent", numberField, pats(
		`שיפוע\s+כבש[:\s]*`+num,
		`ramp\s+slope[:\s]*`+num,
	)},
	{"building.accessibility.doors.clearWidthCm", numberField, pats(
		`רוחב\s+דלת(?:\s+נקי)?[:\s]*`+num,
		`door\s+clear\s+width[:\s]*`+num,
	)},
	{"building.environmental.wallUValue", numberField, pats(
		`ערך\s+UW?[:\s]*`+num,
		`u-?value[:\s]*`+num,
	)},
	{"building.environmental.wallRwDb", numberField, pats(
		`בידוד\s+אקוסטי[:\s]*`+num,
		`rw[:\s]*`+num+`\s*db`,
	)},

	{"plot.boundaries", flagField, pats(
		`גבולות\s+ה?מגרש`,
		`plot\s+boundaries`,
	)},
	{"building.safety.hasSprinklers", flagField, pats(
		`מתזים`, `ספרינקלרים`, `sprinkler`,
	)},
	{"building.accessibility.hasElevator", flagField, pats(
		`מעלית`, `elevator`,
	)},

	{"building.useType", useTypeField, nil},
}

// useTypes maps signature phrases to the canonical use-type values the
// conditional rules branch on. First match in order wins; a document
// naming more than one use keeps none.
var useTypes = []struct {
	value string
	re    *regexp.Regexp
}{
	{"residential", regexp.MustCompile(`(?i)מגורים|residential`)},
	{"office", regexp.MustCompile(`(?i)משרדים|office`)},
	{"commercial", regexp.MustCompile(`(?i)מסחר|commercial`)},
	{"storage", regexp.MustCompile(`(?i)אחסנה|מחסנים|storage`)},
	{"assembly", regexp.MustCompile(`(?i)התקהלות|אולם\s+אירועים|assembly`)},
}

// Extract scans text and returns the facts it could read with
// confidence. It never fails; unreadable text yields an empty map.
func Extract(text string) facts.BuildingData {
	data := facts.BuildingData{}
	if strings.TrimSpace(text) == "" {
		return data
	}
	for _, spec := range fields {
		switch spec.kind {
		case numberField:
			if v, ok := extractNumber(text, spec.patterns); ok {
				data[spec.path] = facts.Num(v)
			}
		case flagField:
			for _, re := range spec.patterns {
				if re.MatchString(text) {
					data[spec.path] = facts.Flag(true)
					break
				}
			}
		case useTypeField:
			if v, ok := extractUseType(text); ok {
				data[spec.path] = facts.Str(v)
			}
		}
	}
	return data
}

// extractNumber collects every capture across the field's patterns.
// Agreeing matches confirm each other; disagreeing matches mean the
// text is ambiguous and the field stays absent.
func extractNumber(text string, patterns []*regexp.Regexp) (float64, bool) {
	var value float64
	found := false
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			v, err := parseNumber(m[1])
			if err != nil {
				continue
			}
			if found && v != value {
				return 0, false
			}
			value, found = v, true
		}
	}
	return value, found
}

func extractUseType(text string) (string, bool) {
	match := ""
	for _, ut := range useTypes {
		if ut.re.MatchString(text) {
			if match != "" {
				return "", false
			}
			match = ut.value
		}
	}
	return match, match != ""
}

// parseNumber accepts a decimal comma, common in the source documents.
func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}
