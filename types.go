package mdpublish

import (
	"strings"

	"github.com/study-groups/mdpublish/internal/pipeline"
	"github.com/study-groups/mdpublish/internal/publish"
)

// Render targets.
const (
	TargetPreview = pipeline.TargetPreview
	TargetPublish = pipeline.TargetPublish
)

// CSS strategies.
const (
	StrategyEmbedded = pipeline.StrategyEmbedded
	StrategyLinked   = pipeline.StrategyLinked
	StrategyHybrid   = pipeline.StrategyHybrid
)

// Theme modes.
const (
	ModeLight = pipeline.ModeLight
	ModeDark  = pipeline.ModeDark
)

// Plugins.
const (
	PluginMermaid = pipeline.PluginMermaid
	PluginKaTeX   = pipeline.PluginKaTeX
)

// Shared pipeline types.
type (
	RenderTarget    = pipeline.RenderTarget
	CSSStrategy     = pipeline.CSSStrategy
	ThemeMode       = pipeline.ThemeMode
	Theme           = pipeline.Theme
	PublishTarget   = pipeline.PublishTarget
	Credentials     = pipeline.Credentials
	CSSBundle       = pipeline.CSSBundle
	InlineReport    = pipeline.InlineReport
	Plugin          = pipeline.Plugin
	Renderer        = pipeline.Renderer
	RenderOptions   = pipeline.RenderOptions
	RenderResult    = pipeline.RenderResult
	ReadinessConfig = pipeline.ReadinessConfig
)

// Publish-target boundary types.
type (
	Uploader       = publish.Uploader
	UploadRequest  = publish.Request
	UploadResponse = publish.Response
)

// Input is one document to preview, build or publish.
type Input struct {
	Markdown   string         // required
	SourcePath string         // markdown file path; relative images resolve against its directory
	Theme      *Theme         // nil = built-in fallback palette
	Target     *PublishTarget // required for Publish; supplies CSS paths and theme URL otherwise
	Strategy   CSSStrategy    // overrides Target.CSSStrategy when set
	Path       string         // object key for Publish, may hold {YYYY}-style placeholders (default: slug of the title + ".html")
	EmbedID    string         // preview embed identifier (default: generated)
}

// strategy returns the requested CSS strategy, validated.
func (in Input) strategy() (CSSStrategy, error) {
	s := in.Strategy
	if s == "" && in.Target != nil {
		s = in.Target.CSSStrategy
	}
	return pipeline.ParseCSSStrategy(string(s))
}

// validate checks the input before any stage runs. The strategy is only
// checked for publish documents; previews are always embedded.
//
// This is a TRUST BOUNDARY for direct library users who build Input manually.
// CLI users have their configuration validated earlier by Config.Validate().
func (in Input) validate(target RenderTarget) error {
	if strings.TrimSpace(in.Markdown) == "" {
		return ErrNoContent
	}
	if target != TargetPublish {
		return nil
	}
	if _, err := in.strategy(); err != nil {
		return err
	}
	return nil
}

// Result is the outcome of one run.
type Result struct {
	HTML        string
	Title       string
	Target      RenderTarget
	Strategy    CSSStrategy // effective strategy
	CSS         CSSBundle
	Plugins     []Plugin
	FrontMatter map[string]any
	Inline      InlineReport // publish only
	EmbedID     string       // preview only
	RunID       string

	// Set by Publish.
	Key string
	URL string
}
