package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"tabconv/domain/table"
	"tabconv/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Paths         PathConfig          `validate:"required"`
	Processing    ProcessingConfig    `validate:"required"`
	Normalization NormalizationConfig `validate:"required"`
	Excel         ExcelConfig         `validate:"required"`
	Logging       LoggingConfig       `validate:"required"`
	Server        ServerConfig        `validate:"required"`
	Security      SecurityConfig
	Batch         BatchConfig     `validate:"required"`
	Templates     TemplatesConfig
}

// PathConfig holds file system paths
type PathConfig struct {
	OutputDir string `validate:"required"`
	TempDir   string `validate:"required"`
}

// ProcessingConfig holds document reading settings
type ProcessingConfig struct {
	MaxFileSizeMB   int     `validate:"min=1"`
	PDFRowTolerance float64 `validate:"gt=0"`
	PDFColumnGap    float64 `validate:"gt=0"`
}

// NormalizationConfig holds table cleaning switches and thresholds
type NormalizationConfig struct {
	RemoveEmptyRows    bool
	RemoveEmptyColumns bool
	HandleMergedCells  bool
	HeaderThreshold    float64 `validate:"gt=0,lte=1"`
	TypeThreshold      float64 `validate:"gt=0,lt=1"`
	TypeSampleSize     int     `validate:"min=1"`
}

// ExcelConfig holds spreadsheet output settings
type ExcelConfig struct {
	IncludeHeader    bool
	AutoAdjustWidth  bool
	NumberFormat     string `validate:"required"`
	PercentFormat    string `validate:"required"`
	DateFormat       string `validate:"required"`
	DefaultSheetName string `validate:"required,max=31"`
}

// LoggingConfig holds log level and format
type LoggingConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=text json"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port        string `validate:"required,numeric"`
	GinMode     string `validate:"oneof=debug release test"`
	MaxUploadMB int    `validate:"min=1"`
}

// SecurityConfig holds input hygiene switches
type SecurityConfig struct {
	SanitizeFilenames bool
}

// BatchConfig holds batch conversion settings
type BatchConfig struct {
	Workers int `validate:"min=1,max=64"`
}

// TemplatesConfig points at an optional YAML file of template profiles
type TemplatesConfig struct {
	ProfilesFile string `validate:"omitempty,file"`
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	env := &envReader{}
	config := &Config{
		Paths:         loadPathConfig(),
		Processing:    loadProcessingConfig(env),
		Normalization: loadNormalizationConfig(env),
		Excel:         loadExcelConfig(env),
		Logging:       loadLoggingConfig(),
		Server:        loadServerConfig(env),
		Security:      SecurityConfig{SanitizeFilenames: env.getEnvBoolOrDefault("SANITIZE_FILENAMES", true)},
		Batch:         BatchConfig{Workers: env.getEnvIntOrDefault("BATCH_WORKERS", 4)},
		Templates:     TemplatesConfig{ProfilesFile: getEnvOrDefault("TEMPLATE_PROFILES_FILE", "")},
	}

	if len(env.invalid) > 0 {
		return nil, errors.ConfigInvalid("unparseable settings: " + strings.Join(env.invalid, ", "))
	}
	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// NormalizeOptions converts the normalization section into normalizer options
func (c *Config) NormalizeOptions() table.NormalizeOptions {
	return table.NormalizeOptions{
		RemoveEmptyRows:    c.Normalization.RemoveEmptyRows,
		RemoveEmptyColumns: c.Normalization.RemoveEmptyColumns,
		HandleMergedCells:  c.Normalization.HandleMergedCells,
		HeaderThreshold:    c.Normalization.HeaderThreshold,
		TypeThreshold:      c.Normalization.TypeThreshold,
		SampleSize:         c.Normalization.TypeSampleSize,
	}
}

// MaxFileSizeBytes returns the input size limit in bytes
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Processing.MaxFileSizeMB) << 20
}

func loadPathConfig() PathConfig {
	return PathConfig{
		OutputDir: getEnvOrDefault("OUTPUT_DIR", "./output"),
		TempDir:   getEnvOrDefault("TEMP_DIR", os.TempDir()),
	}
}

func loadProcessingConfig(env *envReader) ProcessingConfig {
	return ProcessingConfig{
		MaxFileSizeMB:   env.getEnvIntOrDefault("MAX_FILE_SIZE_MB", 50),
		PDFRowTolerance: env.getEnvFloatOrDefault("PDF_ROW_TOLERANCE", 3.0),
		PDFColumnGap:    env.getEnvFloatOrDefault("PDF_COLUMN_GAP", 12.0),
	}
}

func loadNormalizationConfig(env *envReader) NormalizationConfig {
	return NormalizationConfig{
		RemoveEmptyRows:    env.getEnvBoolOrDefault("REMOVE_EMPTY_ROWS", true),
		RemoveEmptyColumns: env.getEnvBoolOrDefault("REMOVE_EMPTY_COLUMNS", true),
		HandleMergedCells:  env.getEnvBoolOrDefault("HANDLE_MERGED_CELLS", true),
		HeaderThreshold:    env.getEnvFloatOrDefault("HEADER_THRESHOLD", table.DefaultHeaderThreshold),
		TypeThreshold:      env.getEnvFloatOrDefault("TYPE_THRESHOLD", table.DefaultTypeThreshold),
		TypeSampleSize:     env.getEnvIntOrDefault("TYPE_SAMPLE_SIZE", table.DefaultSampleSize),
	}
}

func loadExcelConfig(env *envReader) ExcelConfig {
	return ExcelConfig{
		IncludeHeader:    env.getEnvBoolOrDefault("INCLUDE_HEADER", true),
		AutoAdjustWidth:  env.getEnvBoolOrDefault("AUTO_ADJUST_WIDTH", true),
		NumberFormat:     getEnvOrDefault("NUMBER_FORMAT", "#,##0.00"),
		PercentFormat:    getEnvOrDefault("PERCENT_FORMAT", "0.00%"),
		DateFormat:       getEnvOrDefault("DATE_FORMAT", "dd/mm/yyyy"),
		DefaultSheetName: getEnvOrDefault("DEFAULT_SHEET_NAME", "Datos"),
	}
}

func loadLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "text")),
	}
}

func loadServerConfig(env *envReader) ServerConfig {
	return ServerConfig{
		Port:        getEnvOrDefault("PORT", "8080"),
		GinMode:     getEnvOrDefault("GIN_MODE", "release"),
		MaxUploadMB: env.getEnvIntOrDefault("MAX_UPLOAD_MB", 50),
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateConfig(config *Config) error {
	if err := validate.Struct(config); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace()+" ("+fe.Tag()+")")
			}
		}
		if len(fields) == 0 {
			return errors.ConfigInvalid(err.Error())
		}
		return errors.ConfigInvalid("invalid settings: " + strings.Join(fields, ", "))
	}
	if config.Server.MaxUploadMB > config.Processing.MaxFileSizeMB {
		return errors.ConfigInvalid("MAX_UPLOAD_MB cannot exceed MAX_FILE_SIZE_MB")
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

// envReader parses typed variables and records the ones that do not parse
type envReader struct {
	invalid []string
}

func (e *envReader) fail(key, value, kind string) {
	e.invalid = append(e.invalid, fmt.Sprintf("%s=%q is not a valid %s", key, value, kind))
}

func (e *envReader) getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		e.fail(key, value, "integer")
		return defaultValue
	}
	return intValue
}

func (e *envReader) getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		e.fail(key, value, "number")
		return defaultValue
	}
	return floatValue
}

func (e *envReader) getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		e.fail(key, value, "boolean")
		return defaultValue
	}
	return boolValue
}
