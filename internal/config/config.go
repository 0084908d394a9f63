package config

import (
	"os"
	"strconv"
	"strings"

	"clinstat/internal/errors"
)

// Config represents the complete process configuration
type Config struct {
	Data     DataConfig
	Output   OutputConfig
	Analysis AnalysisConfig
	Plot     PlotConfig
	Database DatabaseConfig
	Server   ServerConfig
	Log      LogConfig
}

// DataConfig selects the input dataset and the synthetic fallback
type DataConfig struct {
	File              string
	SyntheticFallback bool
	SyntheticSize     int
	SyntheticSeed     int64
}

// OutputConfig holds output locations and the serializations to write
type OutputConfig struct {
	Dir        string
	FiguresDir string
	Formats    []string
}

// AnalysisConfig holds the plan location and the error/concurrency policy
type AnalysisConfig struct {
	PlanFile  string
	KeepGoing bool
	Parallel  bool
}

// PlotConfig holds chart rendering settings handed to the visualization adapter
type PlotConfig struct {
	Style   string
	Palette string
	Width   float64
	Height  float64
	DPI     int
}

// DatabaseConfig holds database connection settings. An empty URL disables persistence.
type DatabaseConfig struct {
	URL string
}

// Enabled reports whether runs are persisted to postgres
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port      string
	CacheSize int
}

// LogConfig mirrors LOG_LEVEL and LOG_FORMAT
type LogConfig struct {
	Level  string
	Format string
}

// Report formats understood by the pipeline
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatXLSX     = "xlsx"
	FormatHTML     = "html"
	FormatMarkdown = "md"
)

var knownFormats = map[string]bool{
	FormatJSON: true, FormatYAML: true, FormatXLSX: true, FormatHTML: true, FormatMarkdown: true,
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Data:     *loadDataConfig(),
		Output:   *loadOutputConfig(),
		Analysis: *loadAnalysisConfig(),
		Plot:     *loadPlotConfig(),
		Database: DatabaseConfig{URL: os.Getenv("DATABASE_URL")},
		Server:   *loadServerConfig(),
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadDataConfig() *DataConfig {
	return &DataConfig{
		File:              getEnvOrDefault("DATA_FILE", "data/raw/sample_clinical_data.csv"),
		SyntheticFallback: getEnvBoolOrDefault("SYNTHETIC_FALLBACK", true),
		SyntheticSize:     getEnvIntOrDefault("SYNTHETIC_SIZE", 500),
		SyntheticSeed:     int64(getEnvIntOrDefault("SYNTHETIC_SEED", 42)),
	}
}

func loadOutputConfig() *OutputConfig {
	return &OutputConfig{
		Dir:        getEnvOrDefault("OUTPUT_DIR", "results/outputs"),
		FiguresDir: getEnvOrDefault("FIGURES_DIR", "results/figures"),
		Formats:    ParseFormats(getEnvOrDefault("REPORT_FORMATS", "json,yaml,xlsx,html")),
	}
}

func loadAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		PlanFile:  os.Getenv("ANALYSIS_PLAN"),
		KeepGoing: getEnvBoolOrDefault("KEEP_GOING", false),
		Parallel:  getEnvBoolOrDefault("PARALLEL", false),
	}
}

func loadPlotConfig() *PlotConfig {
	return &PlotConfig{
		Style:   getEnvOrDefault("PLOT_STYLE", "whitegrid"),
		Palette: getEnvOrDefault("PLOT_PALETTE", "husl"),
		Width:   getEnvFloatOrDefault("PLOT_WIDTH", 10),
		Height:  getEnvFloatOrDefault("PLOT_HEIGHT", 6),
		DPI:     getEnvIntOrDefault("PLOT_DPI", 300),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:      getEnvOrDefault("PORT", "8080"),
		CacheSize: getEnvIntOrDefault("REPORT_CACHE_SIZE", 64),
	}
}

// ParseFormats splits a comma separated format list, lowercased and without blanks
func ParseFormats(list string) []string {
	var formats []string
	for _, f := range strings.Split(list, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			formats = append(formats, f)
		}
	}
	return formats
}

// HasFormat reports whether a report format is requested
func (o OutputConfig) HasFormat(format string) bool {
	for _, f := range o.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Validate checks values that have no usable default
func (c *Config) Validate() error {
	if c.Data.SyntheticSize <= 0 {
		return errors.ConfigInvalid("SYNTHETIC_SIZE must be positive")
	}
	for _, f := range c.Output.Formats {
		if !knownFormats[f] {
			return errors.ConfigInvalid("unknown report format " + strconv.Quote(f))
		}
	}
	if c.Output.Dir == "" {
		return errors.ConfigInvalid("OUTPUT_DIR is required")
	}
	if c.Plot.Width <= 0 || c.Plot.Height <= 0 || c.Plot.DPI <= 0 {
		return errors.ConfigInvalid("plot width, height and dpi must be positive")
	}
	if c.Server.CacheSize <= 0 {
		return errors.ConfigInvalid("REPORT_CACHE_SIZE must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
