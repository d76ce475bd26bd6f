// Package config loads engine configuration from YAML or CUE files.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/varsync/internal/dom"
	"github.com/roach88/varsync/internal/variables"
)

// DefaultQuiescenceDelay is the debounce delay used when none is set.
const DefaultQuiescenceDelay = "300ms"

// Config configures the engine, the manager and the journal.
type Config struct {
	// QuiescenceDelay is a Go duration string, e.g. "300ms".
	QuiescenceDelay string               `json:"quiescence_delay" yaml:"quiescence_delay"`
	Origin          string               `json:"origin" yaml:"origin"`
	Vocabulary      variables.Vocabulary `json:"vocabulary" yaml:"vocabulary"`
	// Journal is the SQLite journal path. Empty disables journaling.
	Journal  string `json:"journal" yaml:"journal"`
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		QuiescenceDelay: DefaultQuiescenceDelay,
		Origin:          string(variables.DefaultOrigin),
		Vocabulary:      variables.DefaultVocabulary(),
		LogLevel:        "info",
	}
}

// applyDefaults fills every empty field from Default. Vocabulary terms are
// filled one by one so a file may override a single term.
func (c *Config) applyDefaults() {
	d := Default()
	if c.QuiescenceDelay == "" {
		c.QuiescenceDelay = d.QuiescenceDelay
	}
	if c.Origin == "" {
		c.Origin = d.Origin
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&c.Vocabulary.VariableType, d.Vocabulary.VariableType)
	fill(&c.Vocabulary.IntentionProperty, d.Vocabulary.IntentionProperty)
	fill(&c.Vocabulary.IDProperty, d.Vocabulary.IDProperty)
	fill(&c.Vocabulary.StateProperty, d.Vocabulary.StateProperty)
	fill(&c.Vocabulary.BlockProperty, d.Vocabulary.BlockProperty)
	fill(&c.Vocabulary.BlockClass, d.Vocabulary.BlockClass)
}

// Validate checks a fully defaulted configuration.
func (c Config) Validate() error {
	d, err := time.ParseDuration(c.QuiescenceDelay)
	if err != nil {
		return fmt.Errorf("quiescence_delay: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("quiescence_delay: must not be negative, got %s", c.QuiescenceDelay)
	}
	if strings.TrimSpace(c.Origin) == "" {
		return fmt.Errorf("origin: must not be blank")
	}
	if err := c.Vocabulary.Validate(); err != nil {
		return err
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Delay returns the quiescence delay. Call Validate first; an invalid
// value yields zero.
func (c Config) Delay() time.Duration {
	d, _ := time.ParseDuration(c.QuiescenceDelay)
	return d
}

// OriginTag returns the configured originator tag.
func (c Config) OriginTag() dom.Origin {
	return dom.Origin(c.Origin)
}

// Level returns the configured log level, Info if invalid.
func (c Config) Level() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// ManagerOptions returns the manager options this configuration implies.
func (c Config) ManagerOptions() []variables.Option {
	return []variables.Option{
		variables.WithVocabulary(c.Vocabulary),
		variables.WithOrigin(c.OriginTag()),
	}
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log_level: unknown level %q", s)
}
