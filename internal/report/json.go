package report

import (
	"encoding/json"
	"os"
	"path/filepath"
)

func WriteJSON(analysisID, outDir string, res *AnalysisResult) (string, error) {
	path := filepath.Join(outDir, analysisID+".json")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return "", err
	}
	return path, nil
}
