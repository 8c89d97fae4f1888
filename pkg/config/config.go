// Package config loads listenconv settings from a YAML file.
package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/coolbeans/listenconv/pkg/extract"
	"github.com/coolbeans/listenconv/pkg/logger"
	"github.com/coolbeans/listenconv/pkg/types"
)

// Config is the top-level configuration file.
type Config struct {
	Segmenter    SegmenterConfig    `yaml:"segmenter" json:"segmenter"`
	Instructions InstructionsConfig `yaml:"instructions" json:"instructions"`
	Metadata     MetadataConfig     `yaml:"metadata" json:"metadata"`
	Timestamp    TimestampConfig    `yaml:"timestamp" json:"timestamp"`
	Log          LogConfig          `yaml:"log" json:"log"`
	Library      LibraryConfig      `yaml:"library" json:"library"`
	Server       ServerConfig       `yaml:"server" json:"server"`
	Extraction   ExtractionConfig   `yaml:"extraction" json:"extraction"`
	Batch        BatchConfig        `yaml:"batch" json:"batch"`
}

// SegmenterConfig controls section boundaries.
type SegmenterConfig struct {
	// QuestionThreshold closes a section after this many question lines (default: 10).
	QuestionThreshold int `yaml:"question_threshold" json:"question_threshold"`
}

// InstructionsConfig sets the per-section instruction text.
type InstructionsConfig struct {
	Details string `yaml:"details" json:"details"`
	Note    string `yaml:"note" json:"note"`
}

// MetadataConfig sets the document metadata placeholders.
type MetadataConfig struct {
	TimeLimit int    `yaml:"time_limit" json:"time_limit"`
	Version   string `yaml:"version" json:"version"`
	CreatedAt string `yaml:"created_at" json:"created_at"`
}

// TimestampConfig sets the top-level createdAt pair.
type TimestampConfig struct {
	Seconds     int64 `yaml:"seconds" json:"seconds"`
	Nanoseconds int64 `yaml:"nanoseconds" json:"nanoseconds"`
}

// LogConfig selects the logger mode and level.
type LogConfig struct {
	Mode  string `yaml:"mode" json:"mode"`   // dev or prod
	Level string `yaml:"level" json:"level"` // debug, info, warn, error
}

// LibraryConfig locates the persistent test library.
type LibraryConfig struct {
	Path string `yaml:"path" json:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// ExtractionConfig bounds input files.
type ExtractionConfig struct {
	// MaxFileSize is the largest source file accepted, in bytes (default: 100 MB).
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`
}

// BatchConfig sizes the batch converter.
type BatchConfig struct {
	// Concurrency is the number of sources converted at once (default: NumCPU).
	Concurrency int `yaml:"concurrency" json:"concurrency"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.defaults()
	return cfg
}

// Load reads a YAML configuration file. An empty path returns Default().
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) defaults() {
	if c.Segmenter.QuestionThreshold == 0 {
		c.Segmenter.QuestionThreshold = extract.DefaultQuestionThreshold
	}
	if c.Instructions.Details == "" {
		c.Instructions.Details = extract.DefaultInstructionDetails
	}
	if c.Instructions.Note == "" {
		c.Instructions.Note = extract.DefaultInstructionNote
	}
	if c.Metadata.TimeLimit == 0 {
		c.Metadata.TimeLimit = extract.DefaultTimeLimit
	}
	if c.Metadata.Version == "" {
		c.Metadata.Version = extract.DefaultVersion
	}
	if c.Metadata.CreatedAt == "" {
		c.Metadata.CreatedAt = extract.DefaultMetadataCreatedAt
	}
	if c.Timestamp.Seconds == 0 && c.Timestamp.Nanoseconds == 0 {
		c.Timestamp.Seconds = extract.DefaultCreatedAtSeconds
		c.Timestamp.Nanoseconds = extract.DefaultCreatedAtNanos
	}
	if c.Log.Mode == "" {
		c.Log.Mode = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Library.Path == "" {
		c.Library.Path = "listening-library"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8086"
	}
	if c.Extraction.MaxFileSize <= 0 {
		c.Extraction.MaxFileSize = 100 * 1024 * 1024
	}
	if c.Batch.Concurrency == 0 {
		c.Batch.Concurrency = runtime.NumCPU()
	}
}

// Validate rejects settings the converter cannot honor.
func (c *Config) Validate() error {
	if c.Segmenter.QuestionThreshold < 0 {
		return fmt.Errorf("segmenter.question_threshold must be positive, got %d", c.Segmenter.QuestionThreshold)
	}
	if c.Metadata.TimeLimit < 0 {
		return fmt.Errorf("metadata.time_limit must be positive, got %d", c.Metadata.TimeLimit)
	}
	if c.Timestamp.Nanoseconds < 0 || c.Timestamp.Nanoseconds >= 1_000_000_000 {
		return fmt.Errorf("timestamp.nanoseconds out of range: %d", c.Timestamp.Nanoseconds)
	}
	if c.Batch.Concurrency < 0 {
		return fmt.Errorf("batch.concurrency must be positive, got %d", c.Batch.Concurrency)
	}
	return nil
}

// ConverterOptions maps the configuration onto extract.Options.
func (c *Config) ConverterOptions(log *logger.Logger) extract.Options {
	return extract.Options{
		QuestionThreshold:  c.Segmenter.QuestionThreshold,
		InstructionDetails: c.Instructions.Details,
		InstructionNote:    c.Instructions.Note,
		TimeLimit:          c.Metadata.TimeLimit,
		Version:            c.Metadata.Version,
		MetadataCreatedAt:  c.Metadata.CreatedAt,
		CreatedAt: types.Timestamp{
			Seconds:     c.Timestamp.Seconds,
			Nanoseconds: c.Timestamp.Nanoseconds,
		},
		Logger: log,
	}
}

// NewLogger builds the logger described by the Log section.
func (c *Config) NewLogger() (*logger.Logger, error) {
	return logger.New(c.Log.Mode, c.Log.Level)
}
