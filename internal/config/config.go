// =============================================================================
// Contract Installment Validator - Configuration Module
// =============================================================================
//
// This module loads the application configuration from a YAML file, applies
// defaults, and validates the result.
//
// CONFIGURATION SOURCES (later wins):
//   1. Built-in defaults (DefaultConfig)
//   2. The YAML file passed with --config
//   3. Command-line flags (--input, --batch-size, --dry-run)
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultBatchSize is used when batch_size is omitted or zero.
const DefaultBatchSize = 1000

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the application configuration.
type Config struct {
	// =========================================================================
	// INPUT SETTINGS
	// =========================================================================

	// InputPath is the delimited file to ingest. Required.
	InputPath string `yaml:"input_path"`

	// BatchSize is the number of processed records that triggers a flush.
	// Default: 1000
	BatchSize int `yaml:"batch_size"`

	// CSVSettings contains settings for parsing the input file.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputDir receives rejection logs, XLSX reports and XML exports.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir is where the input file is moved after a successful run.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// ArchiveOnSuccess moves the input file to InputArchiveDir after a run
	// that read the whole source.
	// Default: false
	ArchiveOnSuccess bool `yaml:"archive_on_success"`

	// ArchiveTimestampSubdirs files archived inputs under YYYY/MM/DD.
	// Default: false
	ArchiveTimestampSubdirs bool `yaml:"archive_timestamp_subdirs"`

	// OutputNameFormat names per-batch output files.
	// Placeholders: {original} {run} {batch} {uuid} {timestamp} {date} {time}
	// Default: "{original}_{run}_batch{batch}"
	OutputNameFormat string `yaml:"output_name_format"`

	// SummaryLog writes processing_summary_<run>.txt to OutputDir at the end
	// of every run.
	// Default: false
	SummaryLog bool `yaml:"summary_log"`

	// Sinks selects where flushed batches go.
	Sinks SinkSettings `yaml:"sinks"`

	// Database configures the PostgreSQL sink.
	Database DatabaseSettings `yaml:"database"`

	// Metrics configures the Prometheus textfile export.
	Metrics MetricsSettings `yaml:"metrics"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat selects the log encoding: "text" or "json".
	// Default: "text"
	LogFormat string `yaml:"log_format"`
}

// CSVSettings contains settings for parsing the input file.
type CSVSettings struct {
	// Delimiter separates fields. Accepts a single character or one of
	// "tab", "pipe", "semicolon".
	// Default: ";"
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows. Multi-row headers are merged.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`

	// DataStartRow is the 1-indexed row where data begins.
	// Default: HeaderRows + 1
	DataStartRow int `yaml:"data_start_row"`

	// Sheet selects the worksheet of an .xlsx input.
	// Default: the first sheet
	Sheet string `yaml:"sheet"`
}

// SinkSettings toggles the individual flush sinks.
type SinkSettings struct {
	// Log writes a summary of every batch to the application log.
	// Default: true
	Log *bool `yaml:"log"`

	// RejectionLog appends rejected records to a text file in OutputDir.
	RejectionLog bool `yaml:"rejection_log"`

	// XLSX writes one workbook per batch to OutputDir.
	XLSX bool `yaml:"xlsx"`

	// XML writes accepted records of each batch to an XML file in OutputDir.
	XML bool `yaml:"xml"`

	// Postgres inserts every batch into the configured database.
	Postgres bool `yaml:"postgres"`
}

// LogEnabled reports whether the log sink is on.
func (s SinkSettings) LogEnabled() bool {
	return s.Log == nil || *s.Log
}

// DatabaseSettings configures the PostgreSQL sink.
type DatabaseSettings struct {
	// URL is a pgx connection string. DATABASE_URL is used when empty.
	URL string `yaml:"url"`

	// AcceptedTable receives normalized records.
	// Default: "accepted_installments"
	AcceptedTable string `yaml:"accepted_table"`

	// RejectedTable receives rejected records.
	// Default: "rejected_installments"
	RejectedTable string `yaml:"rejected_table"`
}

// MetricsSettings configures metric export.
type MetricsSettings struct {
	// Enabled turns on metric collection.
	Enabled bool `yaml:"enabled"`

	// Textfile is written at the end of a run in the Prometheus text format
	// for node_exporter's textfile collector.
	// Default: "<output_dir>/ingest.prom"
	Textfile string `yaml:"textfile"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads the configuration file at configPath. A missing file yields the
// defaults so that a run can be driven by flags alone.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ApplyDefaults sets default values for any unset configuration options.
func ApplyDefaults(cfg *Config) {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.CSVSettings.Delimiter == "" {
		cfg.CSVSettings.Delimiter = ";"
	}
	if cfg.CSVSettings.HeaderRows == 0 {
		cfg.CSVSettings.HeaderRows = 1
	}
	if cfg.CSVSettings.DataStartRow == 0 {
		cfg.CSVSettings.DataStartRow = cfg.CSVSettings.HeaderRows + 1
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./output"
	}
	if cfg.InputArchiveDir == "" {
		cfg.InputArchiveDir = "./input_archive"
	}
	if cfg.OutputNameFormat == "" {
		cfg.OutputNameFormat = "{original}_{run}_batch{batch}"
	}
	if cfg.Database.AcceptedTable == "" {
		cfg.Database.AcceptedTable = "accepted_installments"
	}
	if cfg.Database.RejectedTable == "" {
		cfg.Database.RejectedTable = "rejected_installments"
	}
	if cfg.Metrics.Textfile == "" {
		cfg.Metrics.Textfile = cfg.OutputDir + "/ingest.prom"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
}

// Validate checks the configuration before a run and creates the output
// directory when a file-based sink needs it.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return errors.New("input_path is required")
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.CSVSettings.HeaderRows < 1 {
		return fmt.Errorf("header_rows must be at least 1, got %d", c.CSVSettings.HeaderRows)
	}
	if c.CSVSettings.DataStartRow <= c.CSVSettings.HeaderRows {
		return fmt.Errorf("data_start_row (%d) must come after the header rows (%d)",
			c.CSVSettings.DataStartRow, c.CSVSettings.HeaderRows)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	if c.Sinks.Postgres && c.DatabaseURL() == "" {
		return errors.New("postgres sink enabled but no database url configured")
	}

	if c.Sinks.RejectionLog || c.Sinks.XLSX || c.Sinks.XML || c.Metrics.Enabled || c.SummaryLog {
		if err := os.MkdirAll(c.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", c.OutputDir, err)
		}
	}
	return nil
}

// DatabaseURL returns the configured URL, falling back to DATABASE_URL.
func (c *Config) DatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return os.Getenv("DATABASE_URL")
}
