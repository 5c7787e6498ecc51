package report

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
)

func WriteHTML(analysisID, outDir string, res *AnalysisResult) (string, error) {
	path := filepath.Join(outDir, analysisID+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	verdict, color := "FAILED", "#c0392b"
	if res.Passed {
		verdict, color = "PASSED", "#27ae60"
	}

	// Head + styles
	fmt.Fprintf(f, "<!doctype html><html><head><meta charset='utf-8'><title>%s</title>", html.EscapeString(analysisID))
	fmt.Fprint(f, "<style>body{font-family:system-ui,Arial,sans-serif;padding:20px;line-height:1.4} table{border-collapse:collapse;margin:8px 0} td,th{border:1px solid #ddd;padding:6px} h1,h2{margin:6px 0 4px} .dim{color:#666} .mono{font-family:ui-monospace,Menlo,Consolas,monospace}</style>")
	fmt.Fprint(f, "</head><body>")

	// Title + verdict
	fmt.Fprintf(f, "<h1>permitcheck report – <span class='mono'>%s</span></h1>", html.EscapeString(analysisID))
	fmt.Fprintf(f, "<p><b style='color:%s'>%s</b> &nbsp; Score: %d/100</p>", color, verdict, res.Score)
	if res.Confidence > 0 {
		fmt.Fprintf(f, "<p class='dim'>Analysis confidence: %.0f%%</p>", res.Confidence*100)
	}
	if res.ExemptedCount > 0 {
		fmt.Fprintf(f, "<p class='dim'>Exempted violations: %d</p>", res.ExemptedCount)
	}

	// Documents
	if len(res.Documents) > 0 {
		fmt.Fprint(f, "<h2>Documents</h2><table><tr><th>Name</th><th>Type</th><th>Confidence</th><th>Extracted fields</th></tr>")
		for _, d := range res.Documents {
			fmt.Fprintf(f, "<tr><td>%s</td><td>%s</td><td>%.0f%%</td><td>%d</td></tr>",
				html.EscapeString(d.Name),
				html.EscapeString(d.Label),
				d.Confidence*100,
				d.ExtractedFields,
			)
		}
		fmt.Fprint(f, "</table>")
	}

	// Violations
	if len(res.Violations) > 0 {
		fmt.Fprint(f, "<h2>Violations</h2><table><tr><th>Severity</th><th>Rule</th><th>Category</th><th>Description</th><th>Recommendation</th></tr>")
		for _, v := range res.Violations {
			fmt.Fprintf(f, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
				html.EscapeString(string(v.Severity)),
				html.EscapeString(v.RuleID),
				html.EscapeString(string(v.Category)),
				html.EscapeString(v.Description),
				html.EscapeString(v.Recommendation),
			)
		}
		fmt.Fprint(f, "</table>")
	} else {
		fmt.Fprint(f, "<h2>Violations</h2><p class='dim'>No violations found.</p>")
	}

	// Warnings
	if len(res.Warnings) > 0 {
		fmt.Fprint(f, "<h2>Warnings</h2><table><tr><th>Rule</th><th>Description</th></tr>")
		for _, w := range res.Warnings {
			fmt.Fprintf(f, "<tr><td>%s</td><td>%s</td></tr>",
				html.EscapeString(w.RuleID),
				html.EscapeString(w.Description),
			)
		}
		fmt.Fprint(f, "</table>")
	}

	fmt.Fprintf(f, "<p class='dim'>Processed at %s</p>", res.ProcessedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprint(f, "</body></html>")
	return path, nil
}
