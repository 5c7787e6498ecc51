package shared

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/ofer2300/permitcheck/internal/report"
)

type Config struct {
	Database struct {
		Driver string `yaml:"driver"` // "sqlite" (default)
		DSN    string `yaml:"dsn"`    // "./permitcheck.db"
	} `yaml:"database"`

	Catalog struct {
		Path string `yaml:"path"` // "" = embedded default catalogue
	} `yaml:"catalog"`

	Scoring report.Weights `yaml:"scoring"`

	Reporting struct {
		OutDir string `yaml:"out_dir"` // "./reports"
	} `yaml:"reporting"`

	Server struct {
		Addr           string   `yaml:"addr"` // ":8080"
		AllowedOrigins []string `yaml:"allowed_origins"`
		SessionHours   int      `yaml:"session_hours"` // 24
	} `yaml:"server"`

	Logging struct {
		Format string `yaml:"format"` // "json"|"text"
		Level  string `yaml:"level"`  // "info"|"debug"|"warn"|"error"
	} `yaml:"logging"`
}

func DefaultConfig() Config {
	var c Config
	c.Database.Driver = "sqlite"
	c.Database.DSN = "./permitcheck.db"
	c.Scoring = report.DefaultWeights
	c.Reporting.OutDir = "./reports"
	c.Server.Addr = ":8080"
	c.Server.SessionHours = 24
	c.Logging.Format = "json"
	c.Logging.Level = "info"
	return c
}

func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &c)
		}
	}
	// Env overrides (simple, explicit)
	if v := os.Getenv("PERMITCHECK_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("PERMITCHECK_CATALOG"); v != "" {
		c.Catalog.Path = v
	}
	if v := os.Getenv("PERMITCHECK_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("PERMITCHECK_SESSION_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Server.SessionHours = n
		}
	}
	if v := os.Getenv("PERMITCHECK_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("PERMITCHECK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PERMITCHECK_OUT_DIR"); v != "" {
		c.Reporting.OutDir = v
	}
	return c, nil
}
