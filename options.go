package mdpublish

import (
	"context"
	"net/http"
	"time"

	"github.com/study-groups/mdpublish/internal/fetch"
	"github.com/study-groups/mdpublish/internal/logging"
	"github.com/study-groups/mdpublish/internal/metrics"
	"github.com/study-groups/mdpublish/internal/pipeline"
	"github.com/study-groups/mdpublish/internal/publish"
)

// Default values.
const (
	DefaultHighlightStyle    = pipeline.DefaultHighlightStyle
	DefaultInlineConcurrency = pipeline.DefaultInlineConcurrency
	DefaultMaxResourceBytes  = fetch.DefaultMaxBytes
	DefaultFetchTimeout      = fetch.DefaultTimeout
)

// Option configures a Publisher.
type Option func(*Publisher)

// UploaderFactory builds the uploader for a publish target.
type UploaderFactory func(ctx context.Context, target PublishTarget) (Uploader, error)

// publisherConfig holds settings applied when the Publisher is built.
type publisherConfig struct {
	assetPath               string
	highlightStyle          string
	readiness               ReadinessConfig
	inlineConcurrency       int
	maxResourceBytes        int64
	fetchTimeout            time.Duration
	httpClient              *http.Client
	previewImageBase        string
	includePluginsOnPublish bool
	plugins                 []Plugin
}

// WithRenderer replaces the default goldmark renderer.
func WithRenderer(r Renderer) Option {
	return func(p *Publisher) {
		if r != nil {
			p.renderer = r
		}
	}
}

// WithFetcher routes every stylesheet, script and image fetch through f.
// Intended for tests and custom storage backends.
func WithFetcher(f fetch.Fetcher) Option {
	return func(p *Publisher) {
		p.fetcher = f
	}
}

// WithHTTPClient sets the client used for remote stylesheets and images.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Publisher) {
		p.cfg.httpClient = c
	}
}

// WithUploader publishes through u for every target.
func WithUploader(u Uploader) Option {
	return func(p *Publisher) {
		if u != nil {
			p.uploaderFactory = func(context.Context, PublishTarget) (Uploader, error) { return u, nil }
		}
	}
}

// WithUploaderFactory replaces the driver-based uploader selection.
func WithUploaderFactory(f UploaderFactory) Option {
	return func(p *Publisher) {
		if f != nil {
			p.uploaderFactory = f
		}
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l logging.Logger) Option {
	return func(p *Publisher) {
		p.log = logging.OrNop(l)
	}
}

// WithMetrics sets the metrics recorder. Default: no-op.
func WithMetrics(m metrics.Recorder) Option {
	return func(p *Publisher) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithClock sets the clock used for publish timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

// WithIDGenerator sets the generator for run and embed identifiers.
func WithIDGenerator(gen func() string) Option {
	return func(p *Publisher) {
		if gen != nil {
			p.newID = gen
		}
	}
}

// WithAssetPath sets a directory whose files override the embedded
// stylesheets and scripts.
func WithAssetPath(path string) Option {
	return func(p *Publisher) {
		p.cfg.assetPath = path
	}
}

// WithHighlightStyle sets the chroma style for code blocks.
func WithHighlightStyle(style string) Option {
	return func(p *Publisher) {
		p.cfg.highlightStyle = style
	}
}

// WithReadiness sets the preview readiness timings. Zero fields keep defaults.
func WithReadiness(r ReadinessConfig) Option {
	return func(p *Publisher) {
		p.cfg.readiness = r
	}
}

// WithInlineConcurrency bounds concurrent image fetches while inlining.
func WithInlineConcurrency(n int) Option {
	if n <= 0 {
		panic("mdpublish: WithInlineConcurrency value must be positive")
	}
	return func(p *Publisher) {
		p.cfg.inlineConcurrency = n
	}
}

// WithMaxResourceBytes caps the size of a single fetched resource.
func WithMaxResourceBytes(n int64) Option {
	if n <= 0 {
		panic("mdpublish: WithMaxResourceBytes value must be positive")
	}
	return func(p *Publisher) {
		p.cfg.maxResourceBytes = n
	}
}

// WithFetchTimeout bounds a single remote fetch.
func WithFetchTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("mdpublish: WithFetchTimeout duration must be positive")
	}
	return func(p *Publisher) {
		p.cfg.fetchTimeout = d
	}
}

// WithPreviewImageBase prefixes relative image paths in previews, so the
// embedding page can serve them.
func WithPreviewImageBase(base string) Option {
	return func(p *Publisher) {
		p.cfg.previewImageBase = base
	}
}

// WithIncludePluginsOnPublish emits plugin scripts in published documents.
func WithIncludePluginsOnPublish(include bool) Option {
	return func(p *Publisher) {
		p.cfg.includePluginsOnPublish = include
	}
}

// WithPlugins restricts the client-side plugins. nil enables all; an empty
// slice disables all.
func WithPlugins(plugins []Plugin) Option {
	return func(p *Publisher) {
		p.cfg.plugins = plugins
	}
}

// defaultUploaderFactory picks the driver from the target.
func defaultUploaderFactory(ctx context.Context, target PublishTarget) (Uploader, error) {
	return publish.NewUploader(ctx, target)
}
