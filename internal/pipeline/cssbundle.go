package pipeline

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/study-groups/mdpublish/internal/assets"
	"github.com/study-groups/mdpublish/internal/fetch"
	"github.com/study-groups/mdpublish/internal/logging"
	"github.com/study-groups/mdpublish/internal/metrics"
)

// CSS path keys recognised in PublishTarget.CSSPaths.
const (
	PathMarkdown         = "markdown"
	PathColorSchemeBase  = "colorSchemeBase"
	PathColorSchemeLight = "colorSchemeLight"
	PathColorSchemeDark  = "colorSchemeDark"
	PathRuntime          = "runtime"
	PathRuntimeJS        = "runtimeJS"
)

// URL keys used in CSSBundle.URLs. Custom includes use "custom.N".
const (
	URLMarkdown        = "markdown"
	URLColorSchemeBase = "colorSchemeBase"
	URLColorSchemeMode = "colorSchemeMode"
	URLRuntime         = "runtime"
	urlCustomPrefix    = "custom."
)

// Section names for logs and metrics.
const (
	SectionMarkdown    = "markdown"
	SectionColorScheme = "colorScheme"
	SectionCustom      = "custom"
	SectionRuntime     = "runtime"
)

var defaultCSSPaths = map[string]string{
	PathMarkdown:         assets.MarkdownCSS,
	PathColorSchemeBase:  assets.ColorBaseCSS,
	PathColorSchemeLight: assets.ColorLightCSS,
	PathColorSchemeDark:  assets.ColorDarkCSS,
	PathRuntime:          assets.RuntimeCSS,
	PathRuntimeJS:        assets.RuntimeJS,
}

// CSSBundle is the stylesheet plan for one document.
//
// Linked bundles carry only URLs; embedded bundles only content (URLs nil);
// hybrid bundles carry Markdown and Custom content plus color-scheme URLs.
type CSSBundle struct {
	Strategy    CSSStrategy
	Markdown    string
	ColorScheme string
	Custom      string
	Runtime     string
	URLs        map[string]string
}

// NamedURL is one stylesheet link.
type NamedURL struct {
	Key string
	URL string
}

// OrderedURLs returns the bundle URLs in cascade order:
// markdown, color scheme base, color scheme mode, custom includes, runtime.
func (b CSSBundle) OrderedURLs() []NamedURL {
	if len(b.URLs) == 0 {
		return nil
	}

	out := make([]NamedURL, 0, len(b.URLs))
	add := func(key string) {
		if u, ok := b.URLs[key]; ok {
			out = append(out, NamedURL{Key: key, URL: u})
		}
	}

	add(URLMarkdown)
	add(URLColorSchemeBase)
	add(URLColorSchemeMode)

	var custom []int
	for k := range b.URLs {
		if n, ok := customIndex(k); ok {
			custom = append(custom, n)
		}
	}
	sort.Ints(custom)
	for _, n := range custom {
		add(urlCustomPrefix + strconv.Itoa(n))
	}

	add(URLRuntime)
	return out
}

func customIndex(key string) (int, bool) {
	if !strings.HasPrefix(key, urlCustomPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(key, urlCustomPrefix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// BundleRequest is the input of CSSBuilder.Build.
type BundleRequest struct {
	Target      RenderTarget
	Strategy    CSSStrategy
	Theme       *Theme
	Config      *PublishTarget // may be nil
	FrontMatter map[string]any
	SyntaxCSS   string // appended to the markdown section when it is embedded
}

// CSSBuilder decides and collects the stylesheets of a document.
type CSSBuilder struct {
	fetcher fetch.Fetcher
	log     logging.Logger
	metrics metrics.Recorder
}

// BuilderOption configures a CSSBuilder.
type BuilderOption func(*CSSBuilder)

// WithBuilderLogger sets the logger.
func WithBuilderLogger(l logging.Logger) BuilderOption {
	return func(b *CSSBuilder) { b.log = logging.OrNop(l) }
}

// WithBuilderMetrics sets the metrics recorder.
func WithBuilderMetrics(m metrics.Recorder) BuilderOption {
	return func(b *CSSBuilder) {
		if m != nil {
			b.metrics = m
		}
	}
}

// NewCSSBuilder creates a CSSBuilder fetching through f.
func NewCSSBuilder(f fetch.Fetcher, opts ...BuilderOption) *CSSBuilder {
	b := &CSSBuilder{fetcher: f, log: logging.Nop(), metrics: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// EffectiveStrategy returns the strategy a request is built with.
// Previews are always embedded.
func EffectiveStrategy(target RenderTarget, requested CSSStrategy) CSSStrategy {
	if target != TargetPublish {
		return StrategyEmbedded
	}
	switch requested {
	case StrategyLinked, StrategyHybrid:
		return requested
	}
	return StrategyEmbedded
}

// Build produces the bundle. It never fails: a section whose fetch fails is
// left empty and the failure is logged.
func (b *CSSBuilder) Build(ctx context.Context, req BundleRequest) CSSBundle {
	strategy := EffectiveStrategy(req.Target, req.Strategy)
	theme := ResolveTheme(req.Theme)
	paths := cssPaths(req.Config)
	custom := CustomSources(req.Config, req.FrontMatter)

	modeKey := PathColorSchemeLight
	if theme.Mode == ModeDark {
		modeKey = PathColorSchemeDark
	}

	switch strategy {
	case StrategyLinked:
		urls := map[string]string{
			URLMarkdown:        linkURL(req.Config, paths[PathMarkdown]),
			URLColorSchemeBase: linkURL(req.Config, paths[PathColorSchemeBase]),
			URLColorSchemeMode: linkURL(req.Config, paths[modeKey]),
			URLRuntime:         linkURL(req.Config, paths[PathRuntime]),
		}
		for i, src := range custom {
			urls[urlCustomPrefix+strconv.Itoa(i)] = linkURL(req.Config, src)
		}
		return CSSBundle{Strategy: StrategyLinked, URLs: urls}

	case StrategyHybrid:
		jobs := []fetchJob{{section: SectionMarkdown, ref: paths[PathMarkdown]}}
		for _, src := range custom {
			jobs = append(jobs, fetchJob{section: SectionCustom, ref: src})
		}
		got := b.fetchAll(ctx, jobs)
		return CSSBundle{
			Strategy: StrategyHybrid,
			Markdown: joinCSS(got[0], req.SyntaxCSS),
			Custom:   joinCSS(got[1:]...),
			URLs: map[string]string{
				URLColorSchemeBase: linkURL(req.Config, paths[PathColorSchemeBase]),
				URLColorSchemeMode: linkURL(req.Config, paths[modeKey]),
			},
		}
	}

	// embedded: markdown, base, mode, runtime?, custom...
	jobs := []fetchJob{
		{section: SectionMarkdown, ref: paths[PathMarkdown]},
		{section: SectionColorScheme, ref: paths[PathColorSchemeBase]},
		{section: SectionColorScheme, ref: paths[modeKey]},
	}
	runtimeSlot := -1
	if req.Target == TargetPublish {
		runtimeSlot = len(jobs)
		jobs = append(jobs, fetchJob{section: SectionRuntime, ref: paths[PathRuntime]})
	}
	customStart := len(jobs)
	for _, src := range custom {
		jobs = append(jobs, fetchJob{section: SectionCustom, ref: src})
	}

	got := b.fetchAll(ctx, jobs)
	bundle := CSSBundle{
		Strategy:    StrategyEmbedded,
		Markdown:    joinCSS(got[0], req.SyntaxCSS),
		ColorScheme: joinCSS(got[1], got[2], ThemeTokensCSS(theme)),
		Custom:      joinCSS(got[customStart:]...),
	}
	if runtimeSlot >= 0 {
		bundle.Runtime = got[runtimeSlot]
	}
	return bundle
}

type fetchJob struct {
	section string
	ref     string
}

// fetchAll fetches every job concurrently and waits for all of them.
// Results keep job order; failures become "".
func (b *CSSBuilder) fetchAll(ctx context.Context, jobs []fetchJob) []string {
	out := make([]string, len(jobs))
	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = b.fetchOne(ctx, job)
		}()
	}
	wg.Wait()
	return out
}

func (b *CSSBuilder) fetchOne(ctx context.Context, job fetchJob) string {
	if job.ref == "" {
		return ""
	}
	res, err := b.fetcher.Fetch(ctx, job.ref)
	if err != nil {
		b.log.Warn("stylesheet fetch failed", "section", job.section, "ref", job.ref, "error", err)
		b.metrics.IncCSSFetchFailure(job.section)
		return ""
	}
	return string(res.Body)
}

// CustomSources lists custom stylesheet sources: the target's theme URL
// first, then front matter css_includes in declaration order. Duplicates
// are kept.
func CustomSources(cfg *PublishTarget, fm map[string]any) []string {
	var out []string
	if cfg != nil && strings.TrimSpace(cfg.ThemeURL) != "" {
		out = append(out, strings.TrimSpace(cfg.ThemeURL))
	}
	switch v := fm["css_includes"].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}

// cssPaths merges the target's CSS paths over the built-in defaults.
func cssPaths(cfg *PublishTarget) map[string]string {
	paths := make(map[string]string, len(defaultCSSPaths))
	for k, v := range defaultCSSPaths {
		paths[k] = v
	}
	if cfg != nil {
		for k, v := range cfg.CSSPaths {
			if strings.TrimSpace(v) != "" {
				paths[k] = strings.TrimSpace(v)
			}
		}
	}
	return paths
}

// RuntimeScriptPath returns the runtime script path for a target.
func RuntimeScriptPath(cfg *PublishTarget) string {
	return cssPaths(cfg)[PathRuntimeJS]
}

// linkURL prefixes relative paths with the target's asset base URL.
func linkURL(cfg *PublishTarget, ref string) string {
	if cfg == nil || cfg.AssetBaseURL == "" || fetch.Classify(ref) != fetch.KindRelative || strings.HasPrefix(ref, "/") {
		return ref
	}
	return strings.TrimRight(cfg.AssetBaseURL, "/") + "/" + strings.TrimPrefix(ref, "./")
}

// joinCSS joins non-empty parts with newlines.
func joinCSS(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n")
}
