package classify

import "testing"

func TestClassifyHebrew(t *testing.T) {
	s := NewKeywordScorer()
	cases := []struct {
		text string
		want Label
	}{
		{`תכנית מדידה של המגרש, גבולות מגרש מסומנים`, Survey},
		{`תב"ע מקומית, ייעוד קרקע מגורים`, ZoningPlan},
		{`גרמושקה - תכנית קומה טיפוסית`, FloorPlan},
		{`חתך אנכי א-א, גובה קומות 3.0 מ`, Section},
		{`חזית בניין צפונית`, Elevation},
	}
	for _, tc := range cases {
		got, conf := s.Classify(tc.text)
		if got != tc.want {
			t.Fatalf("%q: got %s want %s", tc.text, got, tc.want)
		}
		if conf <= 0 || conf > 1 {
			t.Fatalf("%q: confidence %v out of range", tc.text, conf)
		}
	}
}

func TestClassifyEnglish(t *testing.T) {
	s := NewKeywordScorer()
	got, _ := s.Classify("Survey plan showing plot boundaries and coordinates")
	if got != Survey {
		t.Fatalf("got %s want %s", got, Survey)
	}
}

func TestClassifyNoSignal(t *testing.T) {
	s := NewKeywordScorer()
	for _, text := range []string{"", "grocery list: milk, bread"} {
		got, conf := s.Classify(text)
		if got != Unknown || conf != 0 {
			t.Fatalf("%q: got (%s, %v), want (unknown, 0)", text, got, conf)
		}
	}
}

func TestClassifyConfidenceNormalized(t *testing.T) {
	s := NewKeywordScorer()
	// Pure signal for one label scores full confidence.
	_, conf := s.Classify("גרמושקה")
	if conf != 1 {
		t.Fatalf("single-label text: confidence %v, want 1", conf)
	}
	// Mixed signal dilutes it.
	_, mixed := s.Classify("גרמושקה תכנית קומה וגם חזית")
	if mixed >= 1 || mixed <= 0 {
		t.Fatalf("mixed text: confidence %v, want in (0,1)", mixed)
	}
}

func TestClassifyTieIsUnknown(t *testing.T) {
	s := NewKeywordScorer()
	// One hit each for floor plan and elevation.
	got, conf := s.Classify("floor plan / facade")
	if got != Unknown || conf != 0 {
		t.Fatalf("tie: got (%s, %v), want (unknown, 0)", got, conf)
	}
}
