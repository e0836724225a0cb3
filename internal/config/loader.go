package config

import (
	"fmt"
	"strings"

	"github.com/jakoblorz/go-projectdoc/internal/filesystem"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is stripped from environment variables before mapping.
	EnvPrefix = "PROJDOC_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Load reads configuration from an optional YAML file, then overrides it
// with environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (PROJDOC_DOCUMENT_UNDO_CAPACITY, PROJDOC_JOBS_WORKERS, ...)
//  2. YAML config file at path (skipped when path is empty or missing)
//  3. Defaults from Default()
//
// Environment variables map the first underscore after the prefix to a
// section separator and keep the rest of the name as the field:
//
//	PROJDOC_DOCUMENT_KEEP_BACKUPS -> document.keep_backups
//	PROJDOC_GITHUB_TOKEN          -> github.token
func Load(fs filesystem.FileSystem, path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" && fs.Exists(path) {
		info, err := fs.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
		}

		content, err := fs.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Unmarshal on top of the defaults so absent keys keep their default.
	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}
