package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/study-groups/mdpublish/internal/dateutil"
	"github.com/study-groups/mdpublish/internal/fileutil"
	"github.com/study-groups/mdpublish/internal/logging"
	"github.com/study-groups/mdpublish/internal/pipeline"
	"github.com/study-groups/mdpublish/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
	ErrTargetNotFound  = errors.New("publish target not found")
)

// Field length limits.
const (
	MaxNameLength        = 100
	MaxURLLength         = 2048
	MaxPathLength        = 1024
	MaxTextLength        = 500 // attribution and free-form text
	MaxTokenValueLength  = 200
	MaxBucketLength      = 63 // S3 bucket naming rules
	MaxStyleLength       = 50
	MaxInlineConcurrency = 64
)

// Config holds all configuration for previewing and publishing.
type Config struct {
	Theme         pipeline.Theme                    `yaml:"theme"`
	Targets       map[string]pipeline.PublishTarget `yaml:"targets"`
	DefaultTarget string                            `yaml:"defaultTarget"`
	Assets        AssetsConfig                      `yaml:"assets"`
	Render        RenderConfig                      `yaml:"render"`
	Preview       PreviewConfig                     `yaml:"preview"`
	Inline        InlineConfig                      `yaml:"inline"`
	Logging       logging.Config                    `yaml:"logging"`
	Metrics       MetricsConfig                     `yaml:"metrics"`
}

// AssetsConfig defines asset loading options.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // Empty = use embedded assets
}

// RenderConfig defines markdown rendering options.
type RenderConfig struct {
	HighlightStyle          string   `yaml:"highlightStyle"`          // chroma style (default: github)
	Plugins                 []string `yaml:"plugins"`                 // mermaid, katex (empty = all)
	IncludePluginsOnPublish bool     `yaml:"includePluginsOnPublish"` // emit plugin scripts in published documents
}

// PreviewConfig defines preview document and server options.
type PreviewConfig struct {
	Readiness    pipeline.ReadinessConfig `yaml:"readiness"`
	ImageBaseURL string                   `yaml:"imageBaseUrl"` // prefix for relative image paths
	Listen       string                   `yaml:"listen"`       // serve address (default: 127.0.0.1:8080)
}

// InlineConfig defines resource inlining options.
type InlineConfig struct {
	Concurrency int           `yaml:"concurrency"` // default 8
	MaxBytes    int64         `yaml:"maxBytes"`    // per resource, default 10 MiB
	Timeout     time.Duration `yaml:"timeout"`     // per HTTP request, default 15s
}

// MetricsConfig defines the Prometheus endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty = disabled
}

// Validate checks field lengths, enums and URL shapes. Called by LoadConfig,
// but available for consumers who construct Config manually.
func (c *Config) Validate() error {
	if err := validateTheme(c.Theme); err != nil {
		return err
	}

	for _, name := range c.TargetNames() {
		if err := validateTarget(name, c.Targets[name]); err != nil {
			return err
		}
	}
	if c.DefaultTarget != "" {
		if _, ok := c.Targets[c.DefaultTarget]; !ok {
			return fmt.Errorf("%w: defaultTarget %q", ErrTargetNotFound, c.DefaultTarget)
		}
	}

	if err := validateFieldLength("assets.basePath", c.Assets.BasePath, MaxPathLength); err != nil {
		return err
	}

	if err := validateFieldLength("render.highlightStyle", c.Render.HighlightStyle, MaxStyleLength); err != nil {
		return err
	}
	if _, err := pipeline.ParsePlugins(c.Render.Plugins); err != nil {
		return fmt.Errorf("render.plugins: %w", err)
	}

	r := c.Preview.Readiness
	if r.GraceDelay < 0 || r.PollInterval < 0 || r.StabilizeDelay < 0 || r.MaxAttempts < 0 {
		return fmt.Errorf("%w: preview.readiness: timings must not be negative", ErrInvalidValue)
	}
	if err := validateURL("preview.imageBaseUrl", c.Preview.ImageBaseURL); err != nil {
		return err
	}

	if c.Inline.Concurrency < 0 || c.Inline.Concurrency > MaxInlineConcurrency {
		return fmt.Errorf("%w: inline.concurrency: must be between 0 and %d, got %d", ErrInvalidValue, MaxInlineConcurrency, c.Inline.Concurrency)
	}
	if c.Inline.MaxBytes < 0 || c.Inline.Timeout < 0 {
		return fmt.Errorf("%w: inline: limits must not be negative", ErrInvalidValue)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	return nil
}

func validateTheme(t pipeline.Theme) error {
	if err := validateFieldLength("theme.id", t.ID, MaxNameLength); err != nil {
		return err
	}
	if _, err := pipeline.ParseThemeMode(string(t.Mode)); err != nil {
		return fmt.Errorf("theme.mode: %w", err)
	}
	groups := map[string]map[string]string{
		"colors":     t.Colors,
		"typography": t.Typography,
		"spacing":    t.Spacing,
		"effects":    t.Effects,
	}
	for group, tokens := range groups {
		for k, v := range tokens {
			if err := validateFieldLength(fmt.Sprintf("theme.%s.%s", group, k), v, MaxTokenValueLength); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateTarget(name string, t pipeline.PublishTarget) error {
	prefix := "targets." + name
	if err := validateFieldLength(prefix, name, MaxNameLength); err != nil {
		return err
	}
	if _, err := pipeline.ParseCSSStrategy(string(t.CSSStrategy)); err != nil {
		return fmt.Errorf("%s.cssStrategy: %w", prefix, err)
	}
	switch strings.ToLower(t.Driver) {
	case "", "s3", "minio":
	default:
		return fmt.Errorf("%w: %s.driver %q (must be s3 or minio)", ErrInvalidValue, prefix, t.Driver)
	}
	if err := validateFieldLength(prefix+".bucket", t.Bucket, MaxBucketLength); err != nil {
		return err
	}
	if err := validateFieldLength(prefix+".prefix", t.Prefix, MaxPathLength); err != nil {
		return err
	}
	if err := dateutil.Validate(t.Prefix); err != nil {
		return fmt.Errorf("%w: %s.prefix: %v", ErrInvalidValue, prefix, err)
	}
	if err := validateFieldLength(prefix+".attribution", t.Attribution, MaxTextLength); err != nil {
		return err
	}
	for field, v := range map[string]string{
		".themeUrl":     t.ThemeURL,
		".assetBaseUrl": t.AssetBaseURL,
		".baseUrl":      t.BaseURL,
	} {
		if err := validateURL(prefix+field, v); err != nil {
			return err
		}
	}
	if err := validateFieldLength(prefix+".endpoint", t.Endpoint, MaxURLLength); err != nil {
		return err
	}
	for key, p := range t.CSSPaths {
		if err := validateFieldLength(prefix+".cssPaths."+key, p, MaxURLLength); err != nil {
			return err
		}
	}
	return nil
}

// validateURL accepts empty values, relative paths and http(s) URLs.
func validateURL(field, v string) error {
	if err := validateFieldLength(field, v, MaxURLLength); err != nil {
		return err
	}
	if v == "" {
		return nil
	}
	u, err := url.Parse(v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidValue, field, err)
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %s: unsupported scheme %q", ErrInvalidValue, field, u.Scheme)
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// TargetNames returns configured target names in sorted order.
func (c *Config) TargetNames() []string {
	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Target returns the named publish target, or the default target when name
// is empty. A single configured target is the implicit default.
func (c *Config) Target(name string) (*pipeline.PublishTarget, error) {
	if name == "" {
		name = c.DefaultTarget
	}
	if name == "" && len(c.Targets) == 1 {
		name = c.TargetNames()[0]
	}
	if name == "" {
		return nil, fmt.Errorf("%w: no target named and no defaultTarget set", ErrTargetNotFound)
	}

	t, ok := c.Targets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (configured: %s)", ErrTargetNotFound, name, strings.Join(c.TargetNames(), ", "))
	}
	t.Name = name
	return &t, nil
}

// DefaultConfig returns a configuration using embedded assets, no targets
// and default timings. The theme is left empty; the pipeline falls back to
// its built-in palette.
func DefaultConfig() *Config {
	return &Config{
		Targets: map[string]pipeline.PublishTarget{},
		Render: RenderConfig{
			HighlightStyle: pipeline.DefaultHighlightStyle,
		},
		Preview: PreviewConfig{
			Readiness: pipeline.DefaultReadiness(),
			Listen:    "127.0.0.1:8080",
		},
		Inline: InlineConfig{
			Concurrency: pipeline.DefaultInlineConcurrency,
		},
		Logging: logging.Config{Level: logging.LevelNormal},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.DecodeStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SearchPaths lists where a config name is looked up, in order:
// the current directory, then ~/.config/mdpublish/, each with .yaml and .yml.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)
	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, "mdpublish", name+ext))
		}
	}
	return paths
}

// resolveConfigPath returns the first existing SearchPaths entry.
func resolveConfigPath(name string) (string, error) {
	paths := SearchPaths(name)
	for _, p := range paths {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(paths, ", "))
}
