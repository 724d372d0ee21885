// Package config holds the runtime configuration for the watermark remover.
// Values come from built-in defaults, an optional YAML file, and
// PDF_WATERMARK_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPatternLength is the number of bytes captured after the marker
	// when scanning for text watermark candidates.
	DefaultPatternLength = 100

	// DefaultMarker is the byte sequence that precedes a text watermark
	// candidate in a page content stream.
	DefaultMarker = " Td\n<"

	// DefaultMaxConcurrentPages is the number of pages processed in parallel
	// during text watermark removal.
	DefaultMaxConcurrentPages = 8

	// DefaultMaxFileSize is the maximum upload size accepted by the server (50MB).
	DefaultMaxFileSize = 50 * 1024 * 1024

	// DefaultServerHost is the default server bind address.
	DefaultServerHost = "0.0.0.0"

	// DefaultServerPort is the default server port.
	DefaultServerPort = 5566

	// DefaultTempDir is the default directory for uploaded and processed files.
	DefaultTempDir = "data"

	// DefaultOutputSuffix is appended to output filenames derived from inputs.
	DefaultOutputSuffix = "_no_watermark"

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"
)

// Dimension is an image size in pixels.
type Dimension struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Config holds all tunables for the removal engine, the CLI and the server.
// It is a plain value passed in explicitly; nothing reads it through globals.
type Config struct {
	// Engine settings.
	PatternLength      int           `yaml:"pattern_length"`
	Marker             string        `yaml:"marker"`
	MaxConcurrentPages int           `yaml:"max_concurrent_pages"`
	WatermarkDims      []Dimension   `yaml:"watermark_dimensions"`
	ProducerPatterns   []string      `yaml:"producer_patterns"`
	Timeout            time.Duration `yaml:"timeout"`
	OutputSuffix       string        `yaml:"output_suffix"`

	// Server settings.
	ServerHost        string   `yaml:"server_host"`
	ServerPort        int      `yaml:"server_port"`
	MaxFileSize       int64    `yaml:"max_file_size"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
	TempDir           string   `yaml:"temp_dir"`

	// Logging settings.
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PatternLength:      DefaultPatternLength,
		Marker:             DefaultMarker,
		MaxConcurrentPages: DefaultMaxConcurrentPages,
		WatermarkDims: []Dimension{
			{Width: 2360, Height: 1640},
			{Width: 1640, Height: 2360},
		},
		ProducerPatterns:  []string{"Version"},
		OutputSuffix:      DefaultOutputSuffix,
		ServerHost:        DefaultServerHost,
		ServerPort:        DefaultServerPort,
		MaxFileSize:       DefaultMaxFileSize,
		AllowedExtensions: []string{".pdf"},
		TempDir:           DefaultTempDir,
		LogLevel:          DefaultLogLevel,
	}
}

// Load reads a YAML configuration file on top of the defaults.
// Keys absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides configuration values from PDF_WATERMARK_* environment
// variables. Unset or unparsable variables leave the current value in place.
func (c *Config) ApplyEnv() {
	c.LogLevel = getEnv("PDF_WATERMARK_LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("PDF_WATERMARK_LOG_FILE", c.LogFile)
	c.TempDir = getEnv("PDF_WATERMARK_TEMP_DIR", c.TempDir)
	c.ServerHost = getEnv("PDF_WATERMARK_SERVER_HOST", c.ServerHost)
	c.ServerPort = getEnvInt("PDF_WATERMARK_SERVER_PORT", c.ServerPort)
	c.MaxConcurrentPages = getEnvInt("PDF_WATERMARK_MAX_CONCURRENT_PAGES", c.MaxConcurrentPages)
	c.MaxFileSize = getEnvInt64("PDF_WATERMARK_MAX_FILE_SIZE", c.MaxFileSize)
}

// Validate checks the configuration for values the engine cannot work with.
func (c *Config) Validate() error {
	if c.PatternLength < 1 {
		return fmt.Errorf("pattern_length must be at least 1, got %d", c.PatternLength)
	}
	if c.Marker == "" {
		return fmt.Errorf("marker must not be empty")
	}
	if c.MaxConcurrentPages < 1 {
		return fmt.Errorf("max_concurrent_pages must be at least 1, got %d", c.MaxConcurrentPages)
	}
	if len(c.WatermarkDims) == 0 {
		return fmt.Errorf("watermark_dimensions must not be empty")
	}
	for _, d := range c.WatermarkDims {
		if d.Width < 1 || d.Height < 1 {
			return fmt.Errorf("watermark dimension %dx%d is invalid", d.Width, d.Height)
		}
	}
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("server_port %d out of range", c.ServerPort)
	}
	if c.MaxFileSize < 1 {
		return fmt.Errorf("max_file_size must be positive, got %d", c.MaxFileSize)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

// MarkerBytes returns the marker as raw bytes for content stream scanning.
func (c *Config) MarkerBytes() []byte {
	return []byte(c.Marker)
}

// ServerAddr returns the host:port address the server binds to.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
