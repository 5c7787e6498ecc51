package extract

import "testing"

func TestExtractSetbacks(t *testing.T) {
	data := Extract(`תכנית מדידה
גבולות המגרש מסומנים בתשריט.
קו בניין קדמי: 4.2 מ'
קו בניין אחורי: 3.0 מ'
שטח המגרש: 500.0 מ"ר`)

	if v, ok := data.Number("zoning.setbacks.front"); !ok || v != 4.2 {
		t.Fatalf("front setback: got (%v, %v)", v, ok)
	}
	if v, ok := data.Number("zoning.setbacks.rear"); !ok || v != 3.0 {
		t.Fatalf("rear setback: got (%v, %v)", v, ok)
	}
	if v, ok := data.Number("plot.areaM2"); !ok || v != 500 {
		t.Fatalf("plot area: got (%v, %v)", v, ok)
	}
	if flag, ok := data.Bool("plot.boundaries"); !ok || !flag {
		t.Fatalf("boundaries flag: got (%v, %v)", flag, ok)
	}
}

func TestExtractBuildingFacts(t *testing.T) {
	data := Extract(`גובה הבניין: 14.5 מ'
4 קומות, 12 יחידות דיור
15 מקומות חניה
שימוש: מגורים
מותקנים מתזים בכל הקומות
מעלית נוסעים אחת`)

	if v, _ := data.Number("building.heightMeters"); v != 14.5 {
		t.Fatalf("height: got %v", v)
	}
	if v, _ := data.Number("building.floors"); v != 4 {
		t.Fatalf("floors: got %v", v)
	}
	if v, _ := data.Number("building.units"); v != 12 {
		t.Fatalf("units: got %v", v)
	}
	if v, _ := data.Number("building.parking.totalSpaces"); v != 15 {
		t.Fatalf("parking: got %v", v)
	}
	if s, _ := data.String("building.useType"); s != "residential" {
		t.Fatalf("use type: got %q", s)
	}
	if flag, _ := data.Bool("building.safety.hasSprinklers"); !flag {
		t.Fatalf("sprinklers flag missing")
	}
	if flag, _ := data.Bool("building.accessibility.hasElevator"); !flag {
		t.Fatalf("elevator flag missing")
	}
}

func TestExtractEnglishAndDecimalComma(t *testing.T) {
	data := Extract("Front setback: 5,5 m\nBuilding height: 12.0 m")
	if v, ok := data.Number("zoning.setbacks.front"); !ok || v != 5.5 {
		t.Fatalf("decimal comma: got (%v, %v)", v, ok)
	}
	if v, _ := data.Number("building.heightMeters"); v != 12 {
		t.Fatalf("height: got %v", v)
	}
}

func TestExtractConflictingMatchesDropField(t *testing.T) {
	data := Extract("קו בניין קדמי: 4.0\nfront setback: 5.0")
	if data.Has("zoning.setbacks.front") {
		t.Fatalf("disagreeing matches must drop the field, got %+v", data)
	}
}

func TestExtractAgreeingMatchesKeepField(t *testing.T) {
	data := Extract("קו בניין קדמי: 4.0\nfront setback: 4.0")
	if v, ok := data.Number("zoning.setbacks.front"); !ok || v != 4.0 {
		t.Fatalf("agreeing matches must keep the field: got (%v, %v)", v, ok)
	}
}

func TestExtractAmbiguousUseTypeDropped(t *testing.T) {
	data := Extract("קומת קרקע מסחר, קומות עליונות מגורים")
	if data.Has("building.useType") {
		t.Fatalf("two use types must drop the field, got %+v", data)
	}
}

func TestExtractNeverErrorsOnNoise(t *testing.T) {
	for _, text := range []string{"", "   ", "no measurements here", "גובה: גבוה מאוד"} {
		data := Extract(text)
		if len(data) != 0 {
			t.Fatalf("%q: expected no facts, got %+v", text, data)
		}
	}
}
