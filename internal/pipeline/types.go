package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for value validation.
var (
	ErrInvalidTarget   = errors.New("invalid render target")
	ErrInvalidStrategy = errors.New("invalid CSS strategy")
	ErrInvalidMode     = errors.New("invalid theme mode")
	ErrInvalidPlugin   = errors.New("invalid plugin")
)

// RenderTarget selects between an embedded preview and a standalone publish document.
type RenderTarget string

const (
	TargetPreview RenderTarget = "preview"
	TargetPublish RenderTarget = "publish"
)

// ParseRenderTarget validates a render target name.
func ParseRenderTarget(s string) (RenderTarget, error) {
	switch t := RenderTarget(strings.ToLower(strings.TrimSpace(s))); t {
	case TargetPreview, TargetPublish:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q (must be preview or publish)", ErrInvalidTarget, s)
}

// CSSStrategy selects how stylesheets are delivered.
type CSSStrategy string

const (
	StrategyEmbedded CSSStrategy = "embedded" // every section inlined
	StrategyLinked   CSSStrategy = "linked"   // every section referenced
	StrategyHybrid   CSSStrategy = "hybrid"   // structural inlined, color scheme linked
)

// ParseCSSStrategy validates a strategy name. Empty means embedded.
func ParseCSSStrategy(s string) (CSSStrategy, error) {
	switch st := CSSStrategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StrategyEmbedded, nil
	case StrategyEmbedded, StrategyLinked, StrategyHybrid:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q (must be embedded, linked, or hybrid)", ErrInvalidStrategy, s)
}

// ThemeMode is the color mode of a theme.
type ThemeMode string

const (
	ModeLight ThemeMode = "light"
	ModeDark  ThemeMode = "dark"
)

// ParseThemeMode validates a mode name. Empty means light.
func ParseThemeMode(s string) (ThemeMode, error) {
	switch m := ThemeMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeLight, nil
	case ModeLight, ModeDark:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q (must be light or dark)", ErrInvalidMode, s)
}

// Theme is a resolved set of design tokens.
type Theme struct {
	ID         string            `yaml:"id" json:"id"`
	Mode       ThemeMode         `yaml:"mode" json:"mode"`
	Colors     map[string]string `yaml:"colors" json:"colors,omitempty"`
	Typography map[string]string `yaml:"typography" json:"typography,omitempty"`
	Spacing    map[string]string `yaml:"spacing" json:"spacing,omitempty"`
	Effects    map[string]string `yaml:"effects" json:"effects,omitempty"`
}

// FallbackTheme is the minimal light palette used when no usable theme is supplied.
func FallbackTheme() *Theme {
	return &Theme{
		ID:   "fallback",
		Mode: ModeLight,
		Colors: map[string]string{
			"background":      "#ffffff",
			"text":            "#1f2328",
			"muted":           "#59636e",
			"border":          "#d1d9e0",
			"link":            "#0969da",
			"code-background": "#f6f8fa",
			"highlight":       "#fff8c5",
		},
		Typography: map[string]string{
			"body": `-apple-system, "Segoe UI", Helvetica, Arial, sans-serif`,
			"mono": "ui-monospace, SFMono-Regular, Menlo, monospace",
		},
	}
}

// Credentials authenticate against a publish target.
type Credentials struct {
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
}

// PublishTarget describes where a published document goes and which
// stylesheets it references. The pipeline only reads it.
type PublishTarget struct {
	Name           string            `yaml:"name"`
	ThemeURL       string            `yaml:"themeUrl"`
	CSSPaths       map[string]string `yaml:"cssPaths"`
	CSSStrategy    CSSStrategy       `yaml:"cssStrategy"`
	AssetBaseURL   string            `yaml:"assetBaseUrl"` // prefix for linked relative paths
	Driver         string            `yaml:"driver"`       // s3 (default) or minio
	Bucket         string            `yaml:"bucket"`
	Prefix         string            `yaml:"prefix"` // may hold date placeholders: "notes/{YYYY}/{MM}"
	Endpoint       string            `yaml:"endpoint"`
	Region         string            `yaml:"region"`
	Credentials    Credentials       `yaml:"credentials"`
	BaseURL        string            `yaml:"baseUrl"`
	ForcePathStyle bool              `yaml:"forcePathStyle"`
	Attribution    string            `yaml:"attribution"`
}

// RenderResult is the renderer's output. It is not mutated after rendering.
type RenderResult struct {
	HTML        string
	FrontMatter map[string]any
}
