package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/ofer2300/permitcheck/internal/analysis"
	"github.com/ofer2300/permitcheck/internal/api"
	"github.com/ofer2300/permitcheck/internal/catalog"
	"github.com/ofer2300/permitcheck/internal/facts"
	"github.com/ofer2300/permitcheck/internal/report"
	"github.com/ofer2300/permitcheck/internal/rules"
	"github.com/ofer2300/permitcheck/internal/security"
	"github.com/ofer2300/permitcheck/internal/shared"
	"github.com/ofer2300/permitcheck/internal/storage"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "analyze":
		analyzeCmd(os.Args[2:])
	case "report":
		reportCmd(os.Args[2:])
	case "rules":
		rulesCmd(os.Args[2:])
	case "serve":
		serveCmd(os.Args[2:])
	case "useradd":
		userAddCmd(os.Args[2:])
	case "version":
		cat, err := catalog.Default()
		if err != nil {
			fmt.Fprintln(os.Stderr, "version:", err)
			os.Exit(1)
		}
		fmt.Printf("permitcheck %s (catalogue %s)\n", version, cat.Version)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `permitcheck - building permit compliance checker

Usage:
  permitcheck analyze --docs <dir> [--category zoning] [--out ./reports] [--db ./permitcheck.db] [--config ./configs/permitcheck.yaml]
  permitcheck analyze --data <facts.yaml> [--category zoning] [...]
  permitcheck report  --analysis <id|latest> [--out ./reports] [--db ./permitcheck.db]
  permitcheck rules   [--category zoning] [--catalog ./rules.yaml]
  permitcheck serve   [--addr :8080] [--db ./permitcheck.db] [--config ./configs/permitcheck.yaml]
  permitcheck useradd --username <name> --role <admin|viewer> [--db ./permitcheck.db]
  permitcheck version
`)
}

func mustEngine(catalogPath string) *rules.Engine {
	cat, err := catalog.Load(catalogPath)
	if err != nil {
		slog.Error("catalogue error", "err", err)
		os.Exit(1)
	}
	return rules.NewEngine(cat.Rules)
}

func mustDB(dsn string) *storage.DB {
	db, err := storage.OpenSQLite(dsn)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	if err := db.CreateSchema(); err != nil {
		slog.Error("db schema error", "err", err)
		os.Exit(1)
	}
	return db
}

func analyzeCmd(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	docsDir := fs.String("docs", "", "Directory of permit document text files")
	dataPath := fs.String("data", "", "YAML or JSON file of structured building data")
	categoryStr := fs.String("category", "", "Restrict validation to one category")
	outDir := fs.String("out", "", "Output directory for reports")
	dbPath := fs.String("db", "", "SQLite database path")
	catalogPath := fs.String("catalog", "", "Rule catalogue path (default: embedded)")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	logger := shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	// precedence: flags > config > defaults
	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *catalogPath == "" {
		*catalogPath = cfg.Catalog.Path
	}
	if *docsDir == "" && *dataPath == "" {
		fmt.Fprintln(os.Stderr, "analyze: --docs or --data is required")
		os.Exit(2)
	}
	var category rules.Category
	if *categoryStr != "" {
		c, ok := rules.ParseCategory(*categoryStr)
		if !ok {
			fmt.Fprintln(os.Stderr, "analyze: unknown category:", *categoryStr)
			os.Exit(2)
		}
		category = c
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "analyze: cannot create out dir:", err)
		os.Exit(1)
	}

	engine := mustEngine(*catalogPath)
	db := mustDB(*dbPath)
	defer db.Close()

	exemptions, err := db.ListExemptions(true)
	if err != nil {
		slog.Error("db exemptions error", "err", err)
		os.Exit(1)
	}

	svc := analysis.NewService(engine, nil, cfg.Scoring, logger)
	var res *report.AnalysisResult
	if *docsDir != "" {
		docs, err := readDocuments(*docsDir)
		if err != nil {
			slog.Error("read documents", "err", err)
			os.Exit(1)
		}
		res, err = svc.Analyze(context.Background(), analysis.Submission{
			Documents: docs, Category: category, Exemptions: exemptions,
		})
		if err != nil {
			slog.Error("analysis error", "err", err)
			os.Exit(1)
		}
	} else {
		data, err := readFacts(*dataPath)
		if err != nil {
			slog.Error("read data", "err", err)
			os.Exit(1)
		}
		res, err = svc.AnalyzeFacts(context.Background(), data, category, exemptions)
		if err != nil {
			slog.Error("analysis error", "err", err)
			os.Exit(1)
		}
	}

	if err := saveResult(db, res); err != nil {
		slog.Error("db save analysis error", "err", err)
		os.Exit(1)
	}
	jsonPath, _ := report.WriteJSON(res.ID, *outDir, res)
	htmlPath, _ := report.WriteHTML(res.ID, *outDir, res)
	slog.Info("analyze complete",
		"analysis", res.ID,
		"json", jsonPath,
		"html", htmlPath,
		"db", filepath.Clean(*dbPath),
	)

	report.Render(os.Stdout, res)
	fmt.Printf("Verdict: %s  Score: %d/100\n", verdict(res.Passed), res.Score)
	fmt.Printf("  JSON: %s\n  HTML: %s\n  DB: %s\n", jsonPath, htmlPath, filepath.Clean(*dbPath))
	if !res.Passed {
		os.Exit(1)
	}
}

func verdict(passed bool) string {
	if passed {
		return color.New(color.FgGreen, color.Bold).Sprint("PASSED")
	}
	return color.New(color.FgRed, color.Bold).Sprint("FAILED")
}

// readDocuments loads every regular file in dir as one document.
func readDocuments(dir string) ([]analysis.RawDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var docs []analysis.RawDocument
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		docs = append(docs, analysis.RawDocument{Name: e.Name(), Text: string(b)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents in %s", dir)
	}
	return docs, nil
}

func readFacts(path string) (facts.BuildingData, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m := map[string]any{}
	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, err
		}
	} else {
		if err := yaml.Unmarshal(b, &m); err != nil {
			return nil, err
		}
	}
	return facts.FromAny(m)
}

func saveResult(db *storage.DB, res *report.AnalysisResult) error {
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
	return db.SaveAnalysis(res.ID, res.ProcessedAt, res.Passed, res.Score, b, rows)
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	analysisID := fs.String("analysis", "", "Analysis ID (or 'latest')")
	outDir := fs.String("out", "", "Output directory")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *analysisID == "" {
		fmt.Fprintln(os.Stderr, "report: --analysis is required")
		os.Exit(2)
	}

	db := mustDB(*dbPath)
	defer db.Close()

	var (
		raw []byte
		err error
	)
	if *analysisID == "latest" {
		*analysisID, raw, err = db.LoadLatest()
	} else {
		raw, err = db.LoadAnalysis(*analysisID)
	}
	if err != nil {
		slog.Error("load analysis error", "err", err)
		os.Exit(1)
	}
	var res report.AnalysisResult
	if err := json.Unmarshal(raw, &res); err != nil {
		slog.Error("decode analysis error", "err", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		slog.Error("cannot create out dir", "err", err)
		os.Exit(1)
	}
	jsonPath, _ := report.WriteJSON(res.ID, *outDir, &res)
	htmlPath, _ := report.WriteHTML(res.ID, *outDir, &res)
	report.Render(os.Stdout, &res)
	fmt.Printf("Report OK\n  Analysis: %s\n  JSON: %s\n  HTML: %s\n", res.ID, jsonPath, htmlPath)
}

func rulesCmd(args []string) {
	fs := flag.NewFlagSet("rules", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	categoryStr := fs.String("category", "", "Only list one category")
	catalogPath := fs.String("catalog", "", "Rule catalogue path (default: embedded)")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)
	if *catalogPath == "" {
		*catalogPath = cfg.Catalog.Path
	}

	engine := mustEngine(*catalogPath)
	sum := engine.Summary()
	fmt.Printf("Catalogue: %d rules\n", sum.TotalRules)
	for _, cat := range rules.Categories() {
		if *categoryStr != "" && string(cat) != strings.ToLower(*categoryStr) {
			continue
		}
		fmt.Printf("\n%s (%d):\n", cat, sum.ByCategory[cat])
		for _, r := range engine.Rules() {
			if r.Category != cat {
				continue
			}
			fmt.Printf("  %-18s %-8s %s\n", r.ID, r.Severity, r.NameEn)
		}
	}
}

func serveCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	addr := fs.String("addr", "", "Listen address")
	dbPath := fs.String("db", "", "SQLite database path")
	catalogPath := fs.String("catalog", "", "Rule catalogue path (default: embedded)")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	logger := shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)
	if *addr == "" {
		*addr = cfg.Server.Addr
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *catalogPath == "" {
		*catalogPath = cfg.Catalog.Path
	}

	engine := mustEngine(*catalogPath)
	db := mustDB(*dbPath)
	defer db.Close()

	srv := &api.Server{
		DB:              db,
		UserStore:       db,
		Engine:          engine,
		Analyzer:        analysis.NewService(engine, nil, cfg.Scoring, logger),
		Logger:          logger,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		SessionDuration: time.Duration(cfg.Server.SessionHours) * time.Hour,
	}
	logger.Info("listening", "addr", *addr)
	if err := http.ListenAndServe(*addr, srv.Routes()); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

func userAddCmd(args []string) {
	fs := flag.NewFlagSet("useradd", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	username := fs.String("username", "", "Username")
	role := fs.String("role", "viewer", "Role: admin or viewer")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *username == "" {
		fmt.Fprintln(os.Stderr, "useradd: --username is required")
		os.Exit(2)
	}
	if *role != "admin" && *role != "viewer" {
		fmt.Fprintln(os.Stderr, "useradd: --role must be admin or viewer")
		os.Exit(2)
	}

	pw := os.Getenv("PERMITCHECK_PASSWORD")
	if pw == "" {
		fmt.Fprintln(os.Stderr, "useradd: set PERMITCHECK_PASSWORD")
		os.Exit(2)
	}
	hash, err := security.HashPassword(pw)
	if err != nil {
		slog.Error("hash error", "err", err)
		os.Exit(1)
	}

	db := mustDB(*dbPath)
	defer db.Close()
	id, err := db.CreateUser(*username, hash, *role)
	if err != nil {
		slog.Error("create user error", "err", err)
		os.Exit(1)
	}
	fmt.Printf("User created: %s (id=%d, role=%s)\n", *username, id, *role)
}
