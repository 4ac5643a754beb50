// =============================================================================
// Pedidos Manager - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing the configuration.
//
// CONFIGURATION SOURCES (lowest to highest precedence):
//   1. Built-in defaults
//   2. The YAML configuration file (pedidos.yaml by default)
//   3. PEDIDOS_* environment variables and command-line flags (via Viper)
//
// A missing configuration file is not an error: the defaults describe the
// standard Shopify export and the standard carrier sheet.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pedidosmanager/pedidos/internal/projection"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for order exports when no files are given on the
	// command line.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the workbook and the processing summary.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives the processed exports when ArchiveInputs is on.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// OutputArchiveDir receives a copy of every generated workbook.
	// Default: "./output_archive"
	OutputArchiveDir string `yaml:"output_archive_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is an optional JSON log file. Empty disables file logging.
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat is the workbook file name.
	// Placeholders:
	//   {date}      - Representative date of the batch (DD-MM-YYYY)
	//   {timestamp} - Processing timestamp (YYYYMMDD_HHMMSS)
	//   {uuid}      - A random UUID
	// Default: "Archivo_Completo_{date}.xlsx"
	OutputNameFormat string `yaml:"output_name_format"`

	// ArchiveInputs moves the processed exports to InputArchiveDir after a
	// successful run.
	// Default: false
	ArchiveInputs bool `yaml:"archive_inputs"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency bounds the goroutines used to parse exports and classify
	// rows.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps processing when an input file cannot be read.
	// The unreadable file is reported and left out of the batch.
	// Default: false
	ContinueOnError bool `yaml:"continue_on_error"`

	// TieBreak names the rule that picks the first line of each order.
	// Valid values: "shipping-name-desc", "line-order"
	// Default: "shipping-name-desc"
	TieBreak string `yaml:"tie_break"`

	// =========================================================================
	// FORMAT SETTINGS
	// =========================================================================

	// CSVSettings contains settings for parsing the input CSV files.
	CSVSettings CSVSettings `yaml:"csv_settings"`

	// Carrier overrides the constants written on the carrier sheet.
	Carrier projection.CarrierConstants `yaml:"carrier"`

	// Normalization lists the field clean-up rules applied before
	// classification.
	Normalization []TransformationRule `yaml:"normalization"`
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields in the CSV.
	// Common values: "," (comma), ";" (semicolon), "\t" (tab)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows in the CSV file.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`

	// DataStartRow is the row number where the actual data begins.
	// Row numbering starts at 1.
	// Default: 2 (assuming 1 header row)
	DataStartRow int `yaml:"data_start_row"`

	// Encoding is the character encoding of the CSV file.
	// Supported values: "UTF-8", "ISO-8859-1", "Windows-1252"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding"`
}

// =============================================================================
// TRANSFORMATION RULE STRUCTURE
// =============================================================================

// TransformationRule defines a clean-up to apply to a specific field.
type TransformationRule struct {
	// Field is the export column header to transform.
	Field string `yaml:"field"`

	// Actions are applied in order.
	Actions []TransformationAction `yaml:"actions"`
}

// TransformationAction defines a single transformation action.
type TransformationAction struct {
	// Type is the type of transformation to apply.
	// Supported types:
	//   - "trim", "trim_left", "trim_right"
	//   - "trim_prefix", "trim_suffix" : Remove Value once
	//   - "uppercase", "lowercase"
	//   - "replace", "regex_replace"    : Replace Find with Value
	//   - "remove_chars"                : Remove every character in Value
	//   - "extract_digits", "normalize_whitespace"
	//   - "lookup", "lookup_with_default"
	//   - "if_empty_use_default", "if_empty_use_field"
	Type string `yaml:"type"`

	// Value is the parameter for the transformation.
	Value string `yaml:"value"`

	// Find is used for "replace" transformations.
	Find string `yaml:"find,omitempty"`

	// LookupTable is used for "lookup" transformations.
	LookupTable map[string]string `yaml:"lookup_table,omitempty"`
}

// DefaultNormalization returns the clean-up applied to every export when
// the configuration file does not list its own rules. Financial Status and
// Shipping Zip lose surrounding whitespace left by spreadsheet round trips.
func DefaultNormalization() []TransformationRule {
	return []TransformationRule{
		{
			Field: "Financial Status",
			Actions: []TransformationAction{
				{Type: "trim"},
			},
		},
		{
			Field: "Shipping Zip",
			Actions: []TransformationAction{
				{Type: "trim"},
			},
		},
	}
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	var config MainConfig
	applyMainConfigDefaults(&config)
	return &config
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct with defaults applied.
//   - An error if the file exists but cannot be read or parsed.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	// Read the configuration file. A missing file means "all defaults".
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		data = nil
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse the YAML.
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply default values.
	applyMainConfigDefaults(&config)

	return &config, nil
}

// Override applies the values set through flags or PEDIDOS_* environment
// variables on top of the loaded file values.
func (c *MainConfig) Override(v *viper.Viper) {
	if v == nil {
		return
	}

	if v.IsSet("input_dir") {
		c.InputDir = v.GetString("input_dir")
	}
	if v.IsSet("output_dir") {
		c.OutputDir = v.GetString("output_dir")
	}
	if v.IsSet("log_level") {
		c.LogLevel = v.GetString("log_level")
	}
	if v.IsSet("log_file") {
		c.LogFile = v.GetString("log_file")
	}
	if v.IsSet("output_name_format") {
		c.OutputNameFormat = v.GetString("output_name_format")
	}
	if v.IsSet("tie_break") {
		c.TieBreak = v.GetString("tie_break")
	}
	if v.IsSet("max_concurrency") {
		c.MaxConcurrency = v.GetInt("max_concurrency")
	}
	if v.IsSet("archive_inputs") {
		c.ArchiveInputs = v.GetBool("archive_inputs")
	}
	if v.IsSet("continue_on_error") {
		c.ContinueOnError = v.GetBool("continue_on_error")
	}

	applyMainConfigDefaults(c)
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.OutputArchiveDir == "" {
		config.OutputArchiveDir = "./output_archive"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "Archivo_Completo_{date}.xlsx"
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.TieBreak == "" {
		config.TieBreak = "shipping-name-desc"
	}
	if config.Normalization == nil {
		config.Normalization = DefaultNormalization()
	}

	// CSV settings defaults.
	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = ","
	}
	if config.CSVSettings.HeaderRows == 0 {
		config.CSVSettings.HeaderRows = 1
	}
	if config.CSVSettings.DataStartRow == 0 {
		config.CSVSettings.DataStartRow = config.CSVSettings.HeaderRows + 1
	}
	if config.CSVSettings.Encoding == "" {
		config.CSVSettings.Encoding = "UTF-8"
	}

	// Carrier constants: any value left unset keeps the carrier default.
	defaults := projection.DefaultCarrierConstants()
	if config.Carrier.Weight == "" {
		config.Carrier.Weight = defaults.Weight
	}
	if config.Carrier.Height == "" {
		config.Carrier.Height = defaults.Height
	}
	if config.Carrier.Width == "" {
		config.Carrier.Width = defaults.Width
	}
	if config.Carrier.Depth == "" {
		config.Carrier.Depth = defaults.Depth
	}
	if config.Carrier.DeclaredValue == "" {
		config.Carrier.DeclaredValue = defaults.DeclaredValue
	}
	if config.Carrier.Marker == "" {
		config.Carrier.Marker = defaults.Marker
	}
	if config.Carrier.CountryCode == "" {
		config.Carrier.CountryCode = defaults.CountryCode
	}
}

// Validate checks the values that cannot be defaulted.
func (c *MainConfig) Validate() error {
	return validateMainConfig(c)
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log_level %q", config.LogLevel)
	}

	switch config.TieBreak {
	case "shipping-name-desc", "line-order":
	default:
		return fmt.Errorf("invalid tie_break %q (valid: shipping-name-desc, line-order)", config.TieBreak)
	}

	if !strings.EqualFold(filepath.Ext(config.OutputNameFormat), ".xlsx") {
		return fmt.Errorf("output_name_format must end in .xlsx: %q", config.OutputNameFormat)
	}

	if config.CSVSettings.DataStartRow <= config.CSVSettings.HeaderRows {
		return fmt.Errorf("csv_settings.data_start_row (%d) must be after the header rows (%d)",
			config.CSVSettings.DataStartRow, config.CSVSettings.HeaderRows)
	}

	for i, rule := range config.Normalization {
		if rule.Field == "" {
			return fmt.Errorf("normalization rule %d has no field", i+1)
		}
	}

	return nil
}

// EnsureDirectories creates the output directories if they don't exist.
// The input archive is only created when archiving is enabled.
func (c *MainConfig) EnsureDirectories() error {
	dirs := []string{
		c.OutputDir,
		c.OutputArchiveDir,
	}
	if c.ArchiveInputs {
		dirs = append(dirs, c.InputArchiveDir)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// OutputPath joins a file name with the output directory.
func (c *MainConfig) OutputPath(name string) string {
	return filepath.Join(c.OutputDir, name)
}
