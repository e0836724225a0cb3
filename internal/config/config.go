// Package config provides configuration loading for projdoc.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration.
type Config struct {
	Document DocumentConfig `koanf:"document"`
	Jobs     JobsConfig     `koanf:"jobs"`
	Logging  LoggingConfig  `koanf:"logging"`
	Labels   LabelsConfig   `koanf:"labels"`
	Dataset  DatasetConfig  `koanf:"dataset"`
	GitHub   GitHubConfig   `koanf:"github"`
}

// DocumentConfig controls document lifecycle behavior.
type DocumentConfig struct {
	// UndoCapacity is fixed when a document is constructed.
	UndoCapacity int `koanf:"undo_capacity"`

	// KeepBackups rotates the previous file to path.bak on save.
	KeepBackups bool `koanf:"keep_backups"`

	// KeepFailedSaves retains partially written files for postmortem.
	KeepFailedSaves bool `koanf:"keep_failed_saves"`

	// ResolveBatchSize caps identifiers per batched resolution call.
	ResolveBatchSize int `koanf:"resolve_batch_size"`

	// MaterializeTimeout bounds a single data-source provider call.
	MaterializeTimeout time.Duration `koanf:"materialize_timeout"`
}

// JobsConfig sizes the background worker pool.
type JobsConfig struct {
	Workers   int `koanf:"workers"`
	QueueSize int `koanf:"queue_size"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// LabelsConfig holds the label template used for unlabeled items.
type LabelsConfig struct {
	Template string `koanf:"template"`
}

// DatasetConfig seeds the in-memory working dataset catalog.
type DatasetConfig struct {
	Catalog []CatalogEntry `koanf:"catalog"`
}

// CatalogEntry maps a legacy identifier to its canonical form.
type CatalogEntry struct {
	ID        string `koanf:"id"`
	Canonical string `koanf:"canonical"`
}

// GitHubConfig configures the github data-source provider.
type GitHubConfig struct {
	Token Secret `koanf:"token"`

	// BaseURL selects a GitHub Enterprise API endpoint.
	BaseURL string `koanf:"base_url"`
}

// Secret wraps strings that should be redacted in logs and serialization.
type Secret string

// String implements fmt.Stringer. Always returns redacted value.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// Value returns the actual secret value.
func (s Secret) Value() string {
	return string(s)
}

// IsSet returns true if the secret has a non-empty value.
func (s Secret) IsSet() bool {
	return s != ""
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Document: DocumentConfig{
			UndoCapacity:       100,
			KeepBackups:        true,
			KeepFailedSaves:    false,
			ResolveBatchSize:   2000,
			MaterializeTimeout: 30 * time.Second,
		},
		Jobs: JobsConfig{
			Workers:   4,
			QueueSize: 64,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Labels: LabelsConfig{
			Template: DefaultLabelTemplate,
		},
	}
}

// DefaultLabelTemplate derives a label from the last path element of the
// payload ID, e.g. "genomes/hg19" -> "hg19".
const DefaultLabelTemplate = `{{ .ID | base }}`

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	if c.Document.UndoCapacity < 0 {
		errs = append(errs, fmt.Errorf("document.undo_capacity must be >= 0, got %d", c.Document.UndoCapacity))
	}
	if c.Document.ResolveBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("document.resolve_batch_size must be > 0, got %d", c.Document.ResolveBatchSize))
	}
	if c.Document.MaterializeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("document.materialize_timeout must be > 0, got %s", c.Document.MaterializeTimeout))
	}
	if c.Jobs.Workers <= 0 {
		errs = append(errs, fmt.Errorf("jobs.workers must be > 0, got %d", c.Jobs.Workers))
	}
	if c.Jobs.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("jobs.queue_size must be >= 0, got %d", c.Jobs.QueueSize))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}
	for i, entry := range c.Dataset.Catalog {
		if entry.ID == "" || entry.Canonical == "" {
			errs = append(errs, fmt.Errorf("dataset.catalog[%d] needs both id and canonical", i))
		}
	}

	return errors.Join(errs...)
}
