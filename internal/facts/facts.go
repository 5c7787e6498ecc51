package facts

import (
	"fmt"
	"sort"
)

// Kind discriminates what a field holds. Missing fields are represented
// by absence from the map, never by a zero value, so "not provided" and
// "provided as zero" stay distinguishable.
type Kind int

const (
	Number Kind = iota
	Bool
	String
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case Bool:
		return "bool"
	case String:
		return "string"
	}
	return "unknown"
}

// Value is one extracted fact.
type Value struct {
	Kind Kind
	Num  float64
	Flag bool
	Str  string
}

func Num(v float64) Value  { return Value{Kind: Number, Num: v} }
func Flag(v bool) Value    { return Value{Kind: Bool, Flag: v} }
func Str(v string) Value   { return Value{Kind: String, Str: v} }

// Any returns the value as a plain Go value, for evidence payloads.
func (v Value) Any() any {
	switch v.Kind {
	case Number:
		return v.Num
	case Bool:
		return v.Flag
	default:
		return v.Str
	}
}

// BuildingData is the flat record of facts extracted from a submission,
// keyed by dotted field path (e.g. "zoning.setbacks.front"). It is
// built once and treated as read-only by everything downstream.
type BuildingData map[string]Value

func (d BuildingData) Get(path string) (Value, bool) {
	v, ok := d[path]
	return v, ok
}

func (d BuildingData) Has(path string) bool {
	_, ok := d[path]
	return ok
}

// Number returns the numeric value at path; ok is false when the field
// is absent or holds a non-numeric value.
func (d BuildingData) Number(path string) (float64, bool) {
	v, ok := d[path]
	if !ok || v.Kind != Number {
		return 0, false
	}
	return v.Num, true
}

func (d BuildingData) Bool(path string) (bool, bool) {
	v, ok := d[path]
	if !ok || v.Kind != Bool {
		return false, false
	}
	return v.Flag, true
}

func (d BuildingData) String(path string) (string, bool) {
	v, ok := d[path]
	if !ok || v.Kind != String {
		return "", false
	}
	return v.Str, true
}

// Paths returns all populated field paths in stable order.
func (d BuildingData) Paths() []string {
	out := make([]string, 0, len(d))
	for p := range d {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// FromAny builds a record from decoded JSON or YAML, mapping Go kinds
// onto the three fact kinds. JSON numbers arrive as float64; integers
// appear when the source was YAML.
func FromAny(m map[string]any) (BuildingData, error) {
	data := BuildingData{}
	for path, raw := range m {
		switch v := raw.(type) {
		case float64:
			data[path] = Num(v)
		case int:
			data[path] = Num(float64(v))
		case bool:
			data[path] = Flag(v)
		case string:
			data[path] = Str(v)
		default:
			return nil, fmt.Errorf("field %q: unsupported value %T", path, raw)
		}
	}
	return data, nil
}

// Conflict records a leaf field written by more than one document with
// differing values. Conflicts are evidence, not errors.
type Conflict struct {
	Path string `json:"path"`
	Old  any    `json:"old"`
	New  any    `json:"new"`
}

// Merge deep-merges partial extractions, last-document-wins per leaf
// field, returning the merged record and any cross-document conflicts.
func Merge(parts ...BuildingData) (BuildingData, []Conflict) {
	merged := BuildingData{}
	var conflicts []Conflict
	for _, part := range parts {
		for _, path := range part.Paths() {
			v := part[path]
			if old, ok := merged[path]; ok && old != v {
				conflicts = append(conflicts, Conflict{Path: path, Old: old.Any(), New: v.Any()})
			}
			merged[path] = v
		}
	}
	return merged, conflicts
}
