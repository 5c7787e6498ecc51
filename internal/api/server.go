package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ofer2300/permitcheck/internal/analysis"
	"github.com/ofer2300/permitcheck/internal/rules"
	"github.com/ofer2300/permitcheck/internal/storage"
)

// Store is the minimal persistence contract the API needs.
type Store interface {
	SaveAnalysis(id string, processedAt time.Time, passed bool, score int, resultJSON []byte, violations []storage.ViolationRow) error
	LoadAnalysis(id string) ([]byte, error)
	LoadLatest() (string, []byte, error)
	ListAnalyses(limit, offset int) ([]storage.AnalysisRow, error)
	CategoryTotals() (map[string]int, error)
	ListViolations(analysisID, minSeverity string) ([]storage.ViolationRow, error)

	ListExemptions(activeOnly bool) ([]storage.Exemption, error)
	CreateExemption(ruleID, pattern, reason, createdBy string, expires time.Time) (int64, error)
	RevokeExemption(id int64) error
}

// UserStore is the auth/audit contract the API uses.
type UserStore interface {
	GetUserByUsername(string) (storage.User, string, error)
	CreateSession(int64, string, time.Time) error
	GetSession(string) (storage.User, error)
	DeleteSession(string) error
	LogAudit(username, action, resource string, meta map[string]any) error
}

type Server struct {
	DB              Store
	UserStore       UserStore
	Engine          *rules.Engine
	Analyzer        *analysis.Service
	Logger          *slog.Logger
	AllowedOrigins  []string
	SessionDuration time.Duration
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	withCORS := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if origin := s.pickCORSOrigin(r); origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS, POST")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			h(w, r)
		}
	}

	// Health
	mux.HandleFunc("GET /api/v1/health", withCORS(s.handleHealth))

	// Auth
	mux.HandleFunc("POST /api/v1/auth/login", withCORS(s.handleLogin))
	mux.HandleFunc("POST /api/v1/auth/logout", withCORS(withAuth(s, s.handleLogout, "auth:logout")))
	mux.HandleFunc("GET /api/v1/me", withCORS(withAuth(s, s.handleMe, "me")))

	// Analyses
	mux.HandleFunc("POST /api/v1/analyze", withCORS(s.handleAnalyze))
	mux.HandleFunc("GET /api/v1/analyses", withCORS(s.handleListAnalyses))
	mux.HandleFunc("GET /api/v1/analyses/latest", withCORS(s.handleGetLatest))
	mux.HandleFunc("GET /api/v1/analyses/{id}", withCORS(s.handleGetAnalysis))
	mux.HandleFunc("GET /api/v1/analyses/{id}/violations", withCORS(s.handleListViolations))

	// Rules inventory
	mux.HandleFunc("GET /api/v1/rules", withCORS(s.handleRules))
	mux.HandleFunc("GET /api/v1/rules/summary", withCORS(s.handleRuleSummary))

	// Exemptions
	mux.HandleFunc("GET /api/v1/exemptions", withCORS(withAuth(s, s.handleListExemptions, "exemptions:list")))
	mux.HandleFunc("POST /api/v1/exemptions", withCORS(withAdmin(s, s.handleCreateExemption, "exemptions:create")))
	mux.HandleFunc("POST /api/v1/exemptions/{id}/revoke", withCORS(withAdmin(s, s.handleRevokeExemption, "exemptions:revoke")))

	// Fallback 404
	mux.HandleFunc("/", withCORS(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	return mux
}

func (s *Server) pickCORSOrigin(r *http.Request) string {
	if len(s.AllowedOrigins) == 0 {
		return "*"
	}
	origin := r.Header.Get("Origin")
	for _, ao := range s.AllowedOrigins {
		if ao == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(origin, ao) {
			return origin
		}
	}
	// Not allowed: no CORS header
	return ""
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := clamp(parseInt(q.Get("limit"), 20), 1, 200)
	offset := parseInt(q.Get("offset"), 0)

	rows, err := s.DB.ListAnalyses(limit, offset)
	if err != nil {
		s.err(w, http.StatusInternalServerError, "db error: "+err.Error())
		return
	}
	totals, err := s.DB.CategoryTotals()
	if err != nil {
		s.err(w, http.StatusInternalServerError, "db error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": rows, "limit": limit, "offset": offset,
		"violations_by_category": totals,
	})
}

func (s *Server) handleGetLatest(w http.ResponseWriter, r *http.Request) {
	_, raw, err := s.DB.LoadLatest()
	if err != nil {
		s.err(w, http.StatusNotFound, "no analyses")
		return
	}
	writeRawJSON(w, http.StatusOK, raw)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	raw, err := s.DB.LoadAnalysis(r.PathValue("id"))
	if err != nil {
		s.err(w, http.StatusNotFound, "analysis not found")
		return
	}
	writeRawJSON(w, http.StatusOK, raw)
}

func (s *Server) handleListViolations(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	min := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("min_severity")))
	if min == "" {
		min = "low"
	}
	if _, ok := rules.ParseSeverity(min); !ok {
		s.err(w, http.StatusBadRequest, "invalid min_severity")
		return
	}
	items, err := s.DB.ListViolations(id, min)
	if err != nil {
		s.err(w, http.StatusInternalServerError, "db error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analysis_id": id, "min_severity": min, "items": items,
	})
}

func (s *Server) err(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRawJSON passes stored analysis JSON through without a
// decode/encode round trip.
func writeRawJSON(w http.ResponseWriter, code int, raw []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(raw)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
