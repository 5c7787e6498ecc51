package api

import "net/http"

// GET /api/v1/rules (catalogue inventory; read-only, no auth)
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	type R struct {
		ID             string   `json:"id"`
		NameLocal      string   `json:"name_local"`
		NameEn         string   `json:"name_en"`
		Category       string   `json:"category"`
		Severity       string   `json:"severity"`
		Description    string   `json:"description"`
		Recommendation string   `json:"recommendation,omitempty"`
		Refs           []string `json:"refs,omitempty"`
		Check          string   `json:"check"`
		RequiredInputs []string `json:"required_inputs"`
		OptionalInputs []string `json:"optional_inputs,omitempty"`
	}
	var out []R
	for _, rr := range s.Engine.Rules() {
		out = append(out, R{
			ID:             rr.ID,
			NameLocal:      rr.NameLocal,
			NameEn:         rr.NameEn,
			Category:       string(rr.Category),
			Severity:       string(rr.Severity),
			Description:    rr.Description,
			Recommendation: rr.Recommendation,
			Refs:           rr.Refs,
			Check:          string(rr.Check),
			RequiredInputs: rr.RequiredInputs,
			OptionalInputs: rr.OptionalInputs,
		})
	}
	// catalogue order is already stable
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "count": len(out)})
}

// GET /api/v1/rules/summary
func (s *Server) handleRuleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Summary())
}
