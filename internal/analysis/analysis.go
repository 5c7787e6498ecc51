// Package analysis orchestrates a full submission run: classify each
// document, extract facts, merge, validate, aggregate. Individual
// document failures degrade the run; they never abort it.
package analysis

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ofer2300/permitcheck/internal/classify"
	"github.com/ofer2300/permitcheck/internal/extract"
	"github.com/ofer2300/permitcheck/internal/facts"
	"github.com/ofer2300/permitcheck/internal/report"
	"github.com/ofer2300/permitcheck/internal/rules"
	"github.com/ofer2300/permitcheck/internal/storage"
)

// State tracks where a submission is in the pipeline.
type State string

const (
	StateReceived    State = "received"
	StateClassifying State = "classifying"
	StateExtracting  State = "extracting"
	StateValidating  State = "validating"
	StateAggregated  State = "aggregated"
	StateFailed      State = "failed"
)

// RawDocument is one submitted document. Label, when set by the
// caller, skips classification for that document.
type RawDocument struct {
	Name  string
	Text  string
	Label string
}

// Submission is one analysis request.
type Submission struct {
	Documents []RawDocument

	// Category restricts validation to one regulation area; empty
	// means the full catalogue.
	Category rules.Category

	// Exemptions are approved variances to subtract from the
	// violation list before scoring.
	Exemptions []storage.Exemption
}

// Service runs submissions through the pipeline.
type Service struct {
	engine  *rules.Engine
	scorer  classify.Scorer
	weights report.Weights
	log     *slog.Logger
}

func NewService(engine *rules.Engine, scorer classify.Scorer, weights report.Weights, log *slog.Logger) *Service {
	if scorer == nil {
		scorer = classify.NewKeywordScorer()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{engine: engine, scorer: scorer, weights: weights, log: log}
}

// Analyze runs one submission end to end and returns its verdict. It
// fails only on context cancellation; bad or empty documents produce a
// degraded result, not an error.
func (s *Service) Analyze(ctx context.Context, sub Submission) (*report.AnalysisResult, error) {
	id := uuid.NewString()
	state := StateReceived
	log := s.log.With("analysis", id)
	log.Info("submission received", "documents", len(sub.Documents), "state", state)

	var (
		parts      []facts.BuildingData
		docs       []report.Document
		confTerms  []float64
		totalField int
		usable     int
	)
	for _, raw := range sub.Documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		state = StateClassifying
		label, conf := classify.Label(raw.Label), 1.0
		if raw.Label == "" {
			label, conf = s.scorer.Classify(raw.Text)
		} else {
			log.Debug("label provided, skipping classification", "document", raw.Name)
		}

		state = StateExtracting
		data := extract.Extract(raw.Text)
		docs = append(docs, report.Document{
			Name:            raw.Name,
			Label:           string(label),
			Confidence:      conf,
			ExtractedFields: len(data),
		})
		confTerms = append(confTerms, conf)
		totalField += len(data)
		if len(data) > 0 {
			usable++
			parts = append(parts, data)
		} else {
			log.Warn("document yielded no facts", "document", raw.Name, "label", label)
		}
	}
	if usable == 0 {
		log.Warn("no usable documents", "state", StateFailed)
		res := report.Aggregate(nil, s.weights)
		res.ID = id
		res.Passed = false
		res.Score = 0
		res.Documents = docs
		res.Warnings = append(res.Warnings, rules.Warning{
			Description: "no usable documents: nothing could be extracted from the submission",
		})
		return &res, nil
	}

	state = StateValidating
	log.Debug("validating merged facts", "state", state, "usableDocuments", usable)
	merged, conflicts := facts.Merge(parts...)
	res := s.validate(id, merged, sub, docs, conflicts)
	res.Confidence = confidence(confTerms, totalField)
	log.Info("analysis complete",
		"state", StateAggregated,
		"passed", res.Passed,
		"score", res.Score,
		"violations", len(res.Violations),
		"warnings", len(res.Warnings))
	return res, nil
}

// AnalyzeFacts validates already-structured data, bypassing the
// document pipeline. Used by the API's structured analyze path and by
// callers that assemble BuildingData themselves.
func (s *Service) AnalyzeFacts(ctx context.Context, data facts.BuildingData, category rules.Category, exemptions []storage.Exemption) (*report.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	res := s.validate(id, data, Submission{Category: category, Exemptions: exemptions}, nil, nil)
	s.log.Info("analysis complete", "analysis", id, "passed", res.Passed, "score", res.Score)
	return res, nil
}

func (s *Service) validate(id string, data facts.BuildingData, sub Submission, docs []report.Document, conflicts []facts.Conflict) *report.AnalysisResult {
	var results []rules.ValidationResult
	if sub.Category != "" {
		results = s.engine.ValidateByCategory(sub.Category, data)
	} else {
		results = s.engine.ValidateAll(data)
	}

	exempted := 0
	if len(sub.Exemptions) > 0 {
		for i := range results {
			kept, n := rules.ApplyExemptions(results[i].Violations, sub.Exemptions)
			results[i].Violations = kept
			exempted += n
		}
	}

	res := report.Aggregate(results, s.weights)
	res.ID = id
	res.Documents = docs
	res.ExemptedCount = exempted
	for _, c := range conflicts {
		res.Warnings = append(res.Warnings, rules.Warning{
			Description: "documents disagree on " + c.Path + "; the latest value was used",
			Evidence:    map[string]any{"input": c.Path, "discarded": c.Old, "used": c.New},
		})
	}
	return &res
}

// confidence blends how sure classification was, how much the
// extractor found, and a fixed validation term. A run with confident
// labels and four or more extracted facts approaches 1.0.
func confidence(classTerms []float64, extractedFields int) float64 {
	terms := append([]float64{}, classTerms...)
	coverage := float64(extractedFields) / 4
	if coverage > 1 {
		coverage = 1
	}
	terms = append(terms, coverage, 0.9)
	sum := 0.0
	for _, t := range terms {
		sum += t
	}
	return sum / float64(len(terms))
}
