package api

import (
	"encoding/json"
	"net/http"

	"github.com/ofer2300/permitcheck/internal/analysis"
	"github.com/ofer2300/permitcheck/internal/facts"
	"github.com/ofer2300/permitcheck/internal/report"
	"github.com/ofer2300/permitcheck/internal/rules"
	"github.com/ofer2300/permitcheck/internal/storage"
)

type analyzeReq struct {
	// Documents are raw submission texts to classify and extract.
	Documents []struct {
		Name  string `json:"name"`
		Text  string `json:"text"`
		Label string `json:"label,omitempty"`
	} `json:"documents,omitempty"`

	// Data is already-structured building data, keyed by field path.
	// Mutually exclusive with Documents.
	Data map[string]any `json:"data,omitempty"`

	Category string `json:"category,omitempty"`
}

// POST /api/v1/analyze
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var in analyzeReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.err(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(in.Documents) > 0 && len(in.Data) > 0 {
		s.err(w, http.StatusBadRequest, "provide documents or data, not both")
		return
	}
	if len(in.Documents) == 0 && len(in.Data) == 0 {
		s.err(w, http.StatusBadRequest, "documents or data required")
		return
	}

	var category rules.Category
	if in.Category != "" {
		c, ok := rules.ParseCategory(in.Category)
		if !ok {
			s.err(w, http.StatusBadRequest, "invalid category")
			return
		}
		category = c
	}

	exemptions, err := s.DB.ListExemptions(true)
	if err != nil {
		s.err(w, http.StatusInternalServerError, "db error: "+err.Error())
		return
	}

	var res *report.AnalysisResult
	if len(in.Documents) > 0 {
		sub := analysis.Submission{Category: category, Exemptions: exemptions}
		for _, d := range in.Documents {
			sub.Documents = append(sub.Documents, analysis.RawDocument{
				Name: d.Name, Text: d.Text, Label: d.Label,
			})
		}
		res, err = s.Analyzer.Analyze(r.Context(), sub)
	} else {
		var data facts.BuildingData
		data, err = facts.FromAny(in.Data)
		if err != nil {
			s.err(w, http.StatusBadRequest, err.Error())
			return
		}
		res, err = s.Analyzer.AnalyzeFacts(r.Context(), data, category, exemptions)
	}
	if err != nil {
		s.err(w, http.StatusInternalServerError, "analysis error: "+err.Error())
		return
	}

	if err := s.saveResult(res); err != nil {
		s.Logger.Error("persist analysis", "analysis", res.ID, "err", err)
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) saveResult(res *report.AnalysisResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	rows := make([]storage.ViolationRow, 0, len(res.Violations))
	for _, v := range res.Violations {
		ev := ""
		if len(v.Evidence) > 0 {
			if eb, err := json.Marshal(v.Evidence); err == nil {
				ev = string(eb)
			}
		}
		rows = append(rows, storage.ViolationRow{
			RuleID:      v.RuleID,
			Category:    string(v.Category),
			Severity:    string(v.Severity),
			Description: v.Description,
			Evidence:    ev,
		})
	}
	return s.DB.SaveAnalysis(res.ID, res.ProcessedAt, res.Passed, res.Score, b, rows)
}
