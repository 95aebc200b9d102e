// Package config loads the service configuration from a YAML file. The
// alias tables are data, not logic: they pin the canonical spelling of
// the cities and partner companies the fleet actually serves, and the
// dispatch office edits them without a rebuild.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/transtar/freight-audit/internal/pipeline"
)

// Config holds all settings for the API server, the worker and the CLI.
type Config struct {
	// ListenAddr is the HTTP listen address of the API server.
	ListenAddr string `yaml:"listen_addr"`

	// UploadDir and ReportDir are the local storage directories.
	UploadDir string `yaml:"upload_dir"`
	ReportDir string `yaml:"report_dir"`

	// LogLevel controls logging verbosity: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// QueueBuffer is how many audit jobs can wait before uploads block.
	QueueBuffer int `yaml:"queue_buffer"`

	// Workers bounds both queue consumers and the per-batch parse
	// fan-out.
	Workers int `yaml:"workers"`

	// KMDeviationRatio and NegativeVarianceLimit are the anomaly
	// thresholds of the report.
	KMDeviationRatio      float64 `yaml:"km_deviation_ratio"`
	NegativeVarianceLimit float64 `yaml:"negative_variance_limit"`

	// CityAliases maps uppercase city-token substrings to canonical
	// spellings. CompanyAliases maps company-name substrings to short
	// labels for addresses without a postal marker; order matters.
	CityAliases    map[string]string       `yaml:"city_aliases"`
	CompanyAliases []pipeline.CompanyAlias `yaml:"company_aliases"`
}

// Load reads the configuration file and fills in defaults. An empty
// path returns the pure default configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "./uploads"
	}
	if cfg.ReportDir == "" {
		cfg.ReportDir = "./reports"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.QueueBuffer <= 0 {
		cfg.QueueBuffer = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.KMDeviationRatio <= 0 {
		cfg.KMDeviationRatio = 0.10
	}
	if cfg.NegativeVarianceLimit == 0 {
		cfg.NegativeVarianceLimit = -50
	}
	if cfg.CityAliases == nil {
		cfg.CityAliases = DefaultCityAliases()
	}
	if cfg.CompanyAliases == nil {
		cfg.CompanyAliases = DefaultCompanyAliases()
	}
}

// Normalizer builds the address normalizer from the loaded tables.
func (c *Config) Normalizer() *pipeline.Normalizer {
	return pipeline.NewNormalizer(c.CityAliases, c.CompanyAliases)
}

// ReportBuilder builds a report builder with the configured thresholds.
func (c *Config) ReportBuilder() *pipeline.ReportBuilder {
	b := pipeline.NewReportBuilder(c.Normalizer())
	b.KMDeviationRatio = c.KMDeviationRatio
	b.NegativeVarianceLimit = c.NegativeVarianceLimit
	return b
}

// DefaultCityAliases returns the built-in city spelling table. Keys are
// matched as substrings of the uppercase city token from the address.
func DefaultCityAliases() map[string]string {
	return map[string]string{
		"GROSS-GERAU":       "Groß-Gerau",
		"VOELKLINGEN":       "Völklingen",
		"VÖLKLINGEN":        "Völklingen",
		"KOLN":              "Köln",
		"KÖLN":              "Köln",
		"ESCHWEILER":        "Eschweiler",
		"SAARLOUIS":         "Saarlouis",
		"TROISDORF":         "Troisdorf",
		"LADENBURG":         "Ladenburg",
		"RASTATT":           "Rastatt",
		"BEXBACH":           "Bexbach",
		"WESEL":             "Wesel",
		"LANGENFELD":        "Langenfeld",
		"BOCHUM":            "Bochum",
		"HELMOND":           "Helmond",
		"ESSEN":             "Essen",
		"KLEINBLITTERSDORF": "Kleinblittersdorf",
		"DORTMUND":          "Dortmund",
		"WUNSTORF":          "Wunstorf",
		"HEDDESHEIM":        "Heddesheim",
		"RAUNHEIM":          "Raunheim",
		"ROSBACH":           "Rosbach",
		"HAUNECK":           "Hauneck",
		"LEVERKUSEN":        "Leverkusen",
	}
}

// DefaultCompanyAliases returns the built-in company label table, in
// match priority order.
func DefaultCompanyAliases() []pipeline.CompanyAlias {
	return []pipeline.CompanyAlias{
		{Substring: "NAGEL", Label: "Na"},
		{Substring: "EDEKA", Label: "Edeka"},
		{Substring: "BAKERMAN", Label: "Bakerman"},
		{Substring: "LACTALIS", Label: "Lactalis"},
	}
}
