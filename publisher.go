package mdpublish

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/study-groups/mdpublish/internal/assets"
	"github.com/study-groups/mdpublish/internal/dateutil"
	"github.com/study-groups/mdpublish/internal/embed"
	"github.com/study-groups/mdpublish/internal/fetch"
	"github.com/study-groups/mdpublish/internal/logging"
	"github.com/study-groups/mdpublish/internal/metrics"
	"github.com/study-groups/mdpublish/internal/pipeline"
	"github.com/study-groups/mdpublish/internal/publish"
)

// Generator is written into published metadata.
const Generator = "mdpublish"

// Publisher orchestrates the preview and publish pipelines.
// Create with NewPublisher. A Publisher holds no per-run state and is safe
// for concurrent use.
type Publisher struct {
	cfg             publisherConfig
	renderer        Renderer
	fetcher         fetch.Fetcher // overrides every fetch when set
	assetFetcher    fetch.Fetcher // stylesheets and runtime script
	remote          fetch.Fetcher
	builder         *pipeline.CSSBuilder
	injector        *pipeline.ScriptInjector
	syntaxCSS       string
	uploaderFactory UploaderFactory
	log             logging.Logger
	metrics         metrics.Recorder
	now             func() time.Time
	newID           func() string
}

// NewPublisher creates a Publisher with default configuration.
// Returns error if the asset path or the readiness template is unusable.
func NewPublisher(opts ...Option) (*Publisher, error) {
	p := &Publisher{
		cfg: publisherConfig{
			highlightStyle:    DefaultHighlightStyle,
			inlineConcurrency: DefaultInlineConcurrency,
			maxResourceBytes:  DefaultMaxResourceBytes,
			fetchTimeout:      DefaultFetchTimeout,
		},
		uploaderFactory: defaultUploaderFactory,
		log:             logging.Nop(),
		metrics:         metrics.NoopRecorder{},
		now:             time.Now,
		newID:           embed.NewEmbedID,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.renderer == nil {
		p.renderer = pipeline.NewGoldmarkRenderer()
	}

	loader, err := assets.NewAssetResolver(p.cfg.assetPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssetPath, err)
	}

	client := p.cfg.httpClient
	if client == nil {
		client = &http.Client{Timeout: p.cfg.fetchTimeout}
	}
	p.remote = fetch.NewHTTPFetcher(fetch.WithClient(client), fetch.WithMaxBytes(p.cfg.maxResourceBytes))

	p.assetFetcher = p.fetcher
	if p.assetFetcher == nil {
		p.assetFetcher = &fetch.Router{
			Remote:   p.remote,
			Relative: &fetch.AssetFetcher{Loader: loader},
		}
	}

	p.builder = pipeline.NewCSSBuilder(p.assetFetcher,
		pipeline.WithBuilderLogger(p.log),
		pipeline.WithBuilderMetrics(p.metrics),
	)

	p.injector, err = pipeline.NewScriptInjector(loader, pipeline.InjectorOptions{
		Readiness:               p.cfg.readiness,
		IncludePluginsOnPublish: p.cfg.includePluginsOnPublish,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing script injector: %w", err)
	}

	p.syntaxCSS, err = pipeline.HighlightCSS(p.cfg.highlightStyle)
	if err != nil {
		return nil, fmt.Errorf("generating highlight stylesheet: %w", err)
	}

	return p, nil
}

// Readiness returns the effective preview readiness timings.
func (p *Publisher) Readiness() ReadinessConfig {
	return p.injector.Readiness()
}

// Preview builds a preview document: embedded CSS, plugin scripts and the
// readiness script that notifies the embedding page.
func (p *Publisher) Preview(ctx context.Context, in Input) (*Result, error) {
	return p.run(ctx, TargetPreview, in)
}

// Build builds a standalone publish document without uploading it.
func (p *Publisher) Build(ctx context.Context, in Input) (*Result, error) {
	return p.run(ctx, TargetPublish, in)
}

// Publish builds a publish document and uploads it to in.Target.
// The URL returned by the target is surfaced verbatim in Result.URL.
// Upload failures are returned as *PublishError.
func (p *Publisher) Publish(ctx context.Context, in Input) (result *Result, err error) {
	if in.Target == nil {
		return nil, ErrNoTarget
	}

	result, err = p.run(ctx, TargetPublish, in)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("internal error: %v", r)
		}
	}()

	start := time.Now()
	target, key, err := p.resolveKey(*in.Target, in.Path, result.Title)
	if err != nil {
		return nil, err
	}
	result.Key = key

	url, perr := p.upload(ctx, target, result.Key, result.HTML)
	p.metrics.ObserveStage(string(pipeline.StagePublish), time.Since(start))
	p.metrics.IncPublish(in.Target.Name, metrics.OutcomeOf(perr))
	if perr != nil {
		p.log.Error("publish failed", "run", result.RunID, "target", in.Target.Name, "path", result.Key, "error", perr)
		return nil, perr
	}

	result.URL = url
	p.log.Info("document published", "run", result.RunID, "target", in.Target.Name, "url", url)
	return result, nil
}

// resolveKey expands date placeholders in the target prefix and the path.
// An empty path becomes the slug of the title.
func (p *Publisher) resolveKey(target PublishTarget, path, title string) (PublishTarget, string, error) {
	now := p.now()
	prefix, err := dateutil.Expand(target.Prefix, now)
	if err != nil {
		return target, "", fmt.Errorf("%w: prefix: %v", ErrInvalidKeyPattern, err)
	}
	target.Prefix = prefix

	if path == "" {
		return target, publish.DefaultKey(title), nil
	}
	key, err := dateutil.Expand(path, now)
	if err != nil {
		return target, "", fmt.Errorf("%w: path: %v", ErrInvalidKeyPattern, err)
	}
	return target, key, nil
}

// upload performs the boundary call. It never retries.
func (p *Publisher) upload(ctx context.Context, target PublishTarget, key, doc string) (string, error) {
	fail := func(msg string, err error) error {
		return &PublishError{Target: target.Name, Path: key, Message: msg, Err: err}
	}

	uploader, err := p.uploaderFactory(ctx, target)
	if err != nil {
		return "", fail(err.Error(), err)
	}
	if uploader == nil {
		return "", fail("no uploader for target", nil)
	}

	resp, err := uploader.Upload(ctx, UploadRequest{
		Document: []byte(doc),
		Key:      key,
		Target:   target,
	})
	switch {
	case resp != nil && !resp.Success && resp.Error != "":
		return "", fail(resp.Error, err)
	case err != nil:
		return "", fail(err.Error(), err)
	case resp == nil:
		return "", fail("empty response from publish target", nil)
	case !resp.Success:
		return "", fail("publish target reported failure", nil)
	}
	return resp.URL, nil
}

// runState carries one document through the stages. It is created per
// run and never shared.
type runState struct {
	id       string
	embedID  string
	target   RenderTarget
	strategy CSSStrategy
	in       Input

	rendered *RenderResult
	content  string
	title    string
	plugins  []Plugin
	bundle   CSSBundle
	report   InlineReport
	scripts  pipeline.Scripts
	document string
}

type stage struct {
	name pipeline.Stage
	fn   func(ctx context.Context, st *runState) pipeline.Result[*runState]
}

// run executes the stages for target. Only rendering can fail; every other
// stage degrades and logs.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (p *Publisher) run(ctx context.Context, target RenderTarget, in Input) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("internal error: %v", r)
		}
	}()

	if err := in.validate(target); err != nil {
		return nil, err
	}
	requested, _ := in.strategy()

	st := &runState{
		id:       p.newID(),
		target:   target,
		strategy: pipeline.EffectiveStrategy(target, requested),
		in:       in,
	}
	if t := in.Theme; t != nil && t.Mode != "" && t.Mode != ModeLight && t.Mode != ModeDark {
		p.log.Warn("unknown theme mode, using light", "run", st.id, "mode", t.Mode)
	}
	if target == TargetPreview {
		st.embedID = in.EmbedID
		if st.embedID == "" {
			st.embedID = p.newID()
		}
	}

	stages := []stage{
		{pipeline.StageRender, p.render},
		{pipeline.StageBundle, p.bundle},
		{pipeline.StageInline, p.inline},
		{pipeline.StageScripts, p.inject},
		{pipeline.StageAssemble, p.assemble},
	}

	r := pipeline.Ok(st)
	for _, s := range stages {
		r = pipeline.FlatMap(r, p.timed(ctx, s))
	}

	runID := st.id
	st, err = r.ToTuple()
	p.metrics.IncRun(string(target), metrics.OutcomeOf(err))
	if err != nil {
		p.log.Error("pipeline failed", "run", runID, "target", target, "error", err)
		return nil, err
	}

	p.log.Info("document assembled",
		"run", st.id,
		"target", target,
		"strategy", st.strategy,
		"title", st.title,
		"bytes", len(st.document),
	)

	return &Result{
		HTML:        st.document,
		Title:       st.title,
		Target:      target,
		Strategy:    st.strategy,
		CSS:         st.bundle,
		Plugins:     st.plugins,
		FrontMatter: st.rendered.FrontMatter,
		Inline:      st.report,
		EmbedID:     st.embedID,
		RunID:       st.id,
	}, nil
}

// timed checks for cancellation before a stage and records its duration.
func (p *Publisher) timed(ctx context.Context, s stage) func(*runState) pipeline.Result[*runState] {
	return func(st *runState) pipeline.Result[*runState] {
		if err := ctx.Err(); err != nil {
			return pipeline.Err[*runState](&pipeline.StageError{Stage: s.name, Err: err})
		}
		start := time.Now()
		out := s.fn(ctx, st)
		p.metrics.ObserveStage(string(s.name), time.Since(start))
		return out
	}
}

// render is the only fatal stage.
func (p *Publisher) render(ctx context.Context, st *runState) pipeline.Result[*runState] {
	fail := func(err error) pipeline.Result[*runState] {
		return pipeline.Err[*runState](&pipeline.StageError{Stage: pipeline.StageRender, Err: err})
	}

	rendered, err := p.renderer.Render(ctx, st.in.Markdown, RenderOptions{
		Target:     st.target,
		SourcePath: st.in.SourcePath,
		Plugins:    p.cfg.plugins,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fail(ctxErr)
		}
		return fail(fmt.Errorf("%w: %v", ErrRender, err))
	}
	if rendered == nil {
		return fail(fmt.Errorf("%w: renderer returned no result", ErrRender))
	}
	if rendered.FrontMatter == nil {
		rendered.FrontMatter = map[string]any{}
	}

	st.rendered = rendered
	st.content = rendered.HTML

	if st.target == TargetPreview && p.cfg.previewImageBase != "" {
		rewritten, err := pipeline.RewriteImagePaths(st.content, p.cfg.previewImageBase)
		if err != nil {
			p.log.Warn("image path rewrite failed", "run", st.id, "error", err)
		} else {
			st.content = rewritten
		}
	}

	st.title = pipeline.ResolveTitle(rendered.FrontMatter, st.content)
	st.plugins = enabled(pipeline.DetectPlugins(st.content), p.cfg.plugins)
	return pipeline.Ok(st)
}

func (p *Publisher) bundle(ctx context.Context, st *runState) pipeline.Result[*runState] {
	st.bundle = p.builder.Build(ctx, pipeline.BundleRequest{
		Target:      st.target,
		Strategy:    st.strategy,
		Theme:       st.in.Theme,
		Config:      st.in.Target,
		FrontMatter: st.rendered.FrontMatter,
		SyntaxCSS:   p.syntaxCSS,
	})
	return pipeline.Ok(st)
}

// inline embeds images into publish documents. Previews keep references.
func (p *Publisher) inline(ctx context.Context, st *runState) pipeline.Result[*runState] {
	if st.target != TargetPublish {
		return pipeline.Ok(st)
	}

	inliner := pipeline.NewResourceInliner(p.imageFetcher(st),
		pipeline.WithConcurrency(p.cfg.inlineConcurrency),
		pipeline.WithInlinerLogger(p.log),
		pipeline.WithInlinerMetrics(p.metrics),
	)
	content, report, err := inliner.Inline(ctx, st.content)
	if err != nil {
		p.log.Warn("resource inlining skipped", "run", st.id, "error", err)
		return pipeline.Ok(st)
	}
	st.content = content
	st.report = report
	return pipeline.Ok(st)
}

// imageFetcher resolves relative images against the markdown's directory.
func (p *Publisher) imageFetcher(st *runState) fetch.Fetcher {
	if p.fetcher != nil {
		return p.fetcher
	}
	router := &fetch.Router{Remote: p.remote}
	if st.in.SourcePath == "" {
		return router
	}
	local, err := fetch.NewLocalFetcher(filepath.Dir(st.in.SourcePath), p.cfg.maxResourceBytes)
	if err != nil {
		p.log.Warn("local images unavailable", "run", st.id, "dir", filepath.Dir(st.in.SourcePath), "error", err)
		return router
	}
	router.File = local
	router.Relative = local
	return router
}

func (p *Publisher) inject(_ context.Context, st *runState) pipeline.Result[*runState] {
	scripts, err := p.injector.Inject(st.target, st.embedID, st.plugins)
	if err != nil {
		p.log.Warn("script injection failed", "run", st.id, "error", err)
	}
	st.scripts = scripts
	return pipeline.Ok(st)
}

func (p *Publisher) assemble(ctx context.Context, st *runState) pipeline.Result[*runState] {
	parts := pipeline.DocumentParts{
		Target:  st.target,
		Title:   st.title,
		Content: st.content,
		CSS:     st.bundle,
		Scripts: st.scripts,
	}

	if st.target == TargetPublish {
		parts.RuntimeJS = p.runtimeScript(ctx, st)
		parts.Metadata = p.metadata(st)
		parts.Attribution = pipeline.DefaultAttribution
		if st.in.Target != nil && st.in.Target.Attribution != "" {
			parts.Attribution = st.in.Target.Attribution
		}
	}

	st.document = pipeline.AssembleDocument(parts)
	return pipeline.Ok(st)
}

func (p *Publisher) runtimeScript(ctx context.Context, st *runState) string {
	ref := pipeline.RuntimeScriptPath(st.in.Target)
	res, err := p.assetFetcher.Fetch(ctx, ref)
	if err != nil {
		p.log.Warn("runtime script fetch failed", "run", st.id, "ref", ref, "error", err)
		p.metrics.IncCSSFetchFailure(pipeline.SectionRuntime)
		return ""
	}
	return string(res.Body)
}

func (p *Publisher) metadata(st *runState) string {
	theme := pipeline.ResolveTheme(st.in.Theme)
	m := pipeline.Metadata{
		Title:       st.title,
		Theme:       theme.ID,
		Mode:        theme.Mode,
		Strategy:    st.strategy,
		Generator:   Generator,
		PublishedAt: p.now().UTC(),
		FrontMatter: st.rendered.FrontMatter,
	}
	if st.in.Target != nil {
		m.Target = st.in.Target.Name
	}

	out, err := pipeline.BuildMetadata(m)
	if err != nil {
		// front matter is the only field that can fail to encode
		p.log.Warn("metadata encoding failed", "run", st.id, "error", err)
		m.FrontMatter = nil
		if out, err = pipeline.BuildMetadata(m); err != nil {
			return ""
		}
	}
	return out
}

// enabled filters detected plugins by the configured set. nil allows all.
func enabled(detected, allowed []Plugin) []Plugin {
	if allowed == nil {
		return detected
	}
	var out []Plugin
	for _, d := range detected {
		for _, a := range allowed {
			if d == a {
				out = append(out, d)
				break
			}
		}
	}
	return out
}
