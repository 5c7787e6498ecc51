// Package catalog loads the versioned rule catalogue. The catalogue is
// data, not code: operators add or adjust rules by editing the YAML,
// and every entry is validated here so a broken definition refuses to
// start the process instead of silently skipping a rule at evaluation
// time.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ofer2300/permitcheck/internal/rules"
)

//go:embed rules.yaml
var embedded []byte

// Catalog is the loaded, immutable rule set. Rule order is the file
// order and drives every downstream ordering guarantee.
type Catalog struct {
	Version string
	Rules   []rules.Rule
}

type pack struct {
	Version string  `yaml:"version"`
	Rules   []entry `yaml:"rules"`
}

type entry struct {
	ID             string         `yaml:"id"`
	NameLocal      string         `yaml:"name_local"`
	NameEn         string         `yaml:"name_en"`
	Category       string         `yaml:"category"`
	Severity       string         `yaml:"severity"`
	Description    string         `yaml:"description"`
	Recommendation string         `yaml:"recommendation"`
	Refs           []string       `yaml:"refs"`
	Check          string         `yaml:"check"`
	RequiredInputs []string       `yaml:"required_inputs"`
	OptionalInputs []string       `yaml:"optional_inputs"`
	Thresholds     map[string]any `yaml:"thresholds"`
	OutputSchema   string         `yaml:"output_schema"`
}

// Default parses the embedded catalogue shipped with the binary.
func Default() (*Catalog, error) {
	return parse(embedded)
}

// Load reads a catalogue from an operator-provided path. An empty path
// falls back to the embedded default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}
	return parse(b)
}

func parse(b []byte) (*Catalog, error) {
	var p pack
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse catalogue yaml: %w", err)
	}
	if len(p.Rules) == 0 {
		return nil, fmt.Errorf("catalogue declares no rules")
	}

	cat := &Catalog{Version: p.Version}
	seen := map[string]bool{}
	for i, e := range p.Rules {
		r, err := compile(e)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%q): %w", i+1, e.ID, err)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("rule %d: duplicate id %q", i+1, r.ID)
		}
		seen[r.ID] = true
		cat.Rules = append(cat.Rules, r)
	}
	return cat, nil
}

func compile(e entry) (rules.Rule, error) {
	category, ok := rules.ParseCategory(e.Category)
	if !ok {
		return rules.Rule{}, fmt.Errorf("unknown category %q", e.Category)
	}
	severity, ok := rules.ParseSeverity(e.Severity)
	if !ok {
		return rules.Rule{}, fmt.Errorf("unknown severity %q", e.Severity)
	}
	thresholds := rules.Thresholds{}
	for name, raw := range e.Thresholds {
		switch v := raw.(type) {
		case bool:
			thresholds[name] = rules.Limit{Flag: v, IsFlag: true}
		case int:
			thresholds[name] = rules.Limit{Num: float64(v)}
		case float64:
			thresholds[name] = rules.Limit{Num: v}
		default:
			return rules.Rule{}, fmt.Errorf("threshold %q: want number or bool, got %T", name, raw)
		}
	}

	r := rules.Rule{
		ID:             e.ID,
		NameLocal:      e.NameLocal,
		NameEn:         e.NameEn,
		Category:       category,
		Severity:       severity,
		Description:    e.Description,
		Recommendation: e.Recommendation,
		Refs:           e.Refs,
		Check:          rules.CheckKind(e.Check),
		RequiredInputs: e.RequiredInputs,
		OptionalInputs: e.OptionalInputs,
		Thresholds:     thresholds,
		OutputSchema:   e.OutputSchema,
	}
	if err := rules.ValidateDefinition(r); err != nil {
		return rules.Rule{}, err
	}
	return r, nil
}
