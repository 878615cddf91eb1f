package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/study-groups/mdpublish"
	"github.com/study-groups/mdpublish/internal/config"
	"github.com/study-groups/mdpublish/internal/fileutil"
	"github.com/study-groups/mdpublish/internal/hints"
	"github.com/study-groups/mdpublish/internal/logging"
	"github.com/study-groups/mdpublish/internal/metrics"
	"github.com/study-groups/mdpublish/internal/pipeline"
)

// envConfigName names the config when --config is not given.
const envConfigName = config.EnvPrefix + "CONFIG"

// Sentinel errors for CLI operations.
var (
	ErrUsage        = errors.New("invalid usage")
	ErrNoInput      = errors.New("no input specified")
	ErrReadMarkdown = errors.New("failed to read markdown file")
	ErrWriteOutput  = errors.New("failed to write output")
)

// session is the per-command state shared by every subcommand: the
// effective configuration, the logger and the metrics registry.
type session struct {
	cfg      *config.Config
	env      *Environment
	log      logging.Logger
	registry *prom.Registry // nil unless metrics.listen is set
	recorder metrics.Recorder
	closeLog func() error
}

// newSession loads the configuration (file, then .env, then process
// environment; flags win last) and builds the logger.
func newSession(common commonFlags, env *Environment) (*session, error) {
	vars, err := config.ReadEnvFile(env.EnvFile)
	if err != nil {
		return nil, err
	}
	vars = config.MergeEnv(vars, env.Environ())

	name := common.config
	if name == "" {
		name = vars[envConfigName]
	}

	cfg := config.DefaultConfig()
	if name != "" {
		cfg, err = config.LoadConfig(name)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) && !fileutil.IsFilePath(name) {
				return nil, fmt.Errorf("loading config: %w%s", err, hints.ForConfigNotFound(config.SearchPaths(name)))
			}
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(vars); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	switch {
	case common.quiet:
		cfg.Logging.Level = logging.LevelNone
	case common.verbose:
		cfg.Logging.Level = logging.LevelDebug
	}

	// Logs go to stderr; stdout carries documents and URLs.
	zl, closeLog, err := logging.New(cfg.Logging, env.Stderr, env.Stderr)
	if err != nil {
		return nil, fmt.Errorf("configuring logging: %w", err)
	}

	s := &session{
		cfg:      cfg,
		env:      env,
		log:      logging.FromZap(zl),
		recorder: metrics.NoopRecorder{},
		closeLog: closeLog,
	}
	if cfg.Metrics.Listen != "" {
		s.registry = prom.NewRegistry()
		s.recorder = metrics.NewPrometheusRecorder(s.registry)
	}
	return s, nil
}

// Close flushes and releases the log destination.
func (s *session) Close() error {
	if s.closeLog == nil {
		return nil
	}
	return s.closeLog()
}

// publisher builds a Publisher from the configuration. extra options are
// applied last.
func (s *session) publisher(extra ...mdpublish.Option) (*mdpublish.Publisher, error) {
	cfg := s.cfg
	opts := []mdpublish.Option{
		mdpublish.WithLogger(s.log),
		mdpublish.WithMetrics(s.recorder),
		mdpublish.WithClock(s.env.Now),
		mdpublish.WithAssetPath(cfg.Assets.BasePath),
		mdpublish.WithHighlightStyle(cfg.Render.HighlightStyle),
		mdpublish.WithReadiness(cfg.Preview.Readiness),
		mdpublish.WithIncludePluginsOnPublish(cfg.Render.IncludePluginsOnPublish),
		mdpublish.WithPreviewImageBase(cfg.Preview.ImageBaseURL),
	}
	if len(cfg.Render.Plugins) > 0 {
		plugins, err := pipeline.ParsePlugins(cfg.Render.Plugins)
		if err != nil {
			return nil, err
		}
		opts = append(opts, mdpublish.WithPlugins(plugins))
	}
	if cfg.Inline.Concurrency > 0 {
		opts = append(opts, mdpublish.WithInlineConcurrency(cfg.Inline.Concurrency))
	}
	if cfg.Inline.MaxBytes > 0 {
		opts = append(opts, mdpublish.WithMaxResourceBytes(cfg.Inline.MaxBytes))
	}
	if cfg.Inline.Timeout > 0 {
		opts = append(opts, mdpublish.WithFetchTimeout(cfg.Inline.Timeout))
	}
	if s.env.Uploaders != nil {
		opts = append(opts, mdpublish.WithUploaderFactory(s.env.Uploaders))
	}
	opts = append(opts, extra...)

	return mdpublish.NewPublisher(opts...)
}

// theme returns the configured theme, or nil when nothing is configured.
// A theme that only names a mode keeps it and borrows the built-in palette.
func (s *session) theme() *pipeline.Theme {
	t := s.cfg.Theme
	if t.ID == "" && t.Mode == "" && len(t.Colors) == 0 &&
		len(t.Typography) == 0 && len(t.Spacing) == 0 && len(t.Effects) == 0 {
		return nil
	}
	return &t
}

// target resolves a publish target. With optional set, a missing default
// is not an error and yields nil.
func (s *session) target(name string, optional bool) (*pipeline.PublishTarget, error) {
	if optional && name == "" && s.cfg.DefaultTarget == "" && len(s.cfg.Targets) != 1 {
		return nil, nil
	}
	t, err := s.cfg.Target(name)
	if err != nil {
		return nil, fmt.Errorf("%w%s", err, hints.ForTargetNotFound(s.cfg.TargetNames()))
	}
	return t, nil
}

// metricsHandler returns the /metrics handler, nil when metrics are off.
func (s *session) metricsHandler() http.Handler {
	if s.registry == nil {
		return nil
	}
	return metrics.HTTPHandler(s.registry)
}

// serveMetrics exposes metrics on metrics.listen until ctx is done.
// Used by one-shot commands; serve mounts the handler on its own server.
func (s *session) serveMetrics(ctx context.Context) {
	h := s.metricsHandler()
	if h == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", h)
	srv := &http.Server{Addr: s.cfg.Metrics.Listen, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("metrics server stopped", "addr", srv.Addr, "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// readInput reads a markdown file into an Input carrying the configured theme.
func (s *session) readInput(path string) (mdpublish.Input, error) {
	if err := fileutil.ValidateMarkdown(path); err != nil {
		return mdpublish.Input{}, err
	}
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided input path
	if err != nil {
		return mdpublish.Input{}, fmt.Errorf("%w: %w", ErrReadMarkdown, err)
	}
	return mdpublish.Input{
		Markdown:   string(data),
		SourcePath: path,
		Theme:      s.theme(),
	}, nil
}

// singleInput returns the one markdown path a command operates on.
func singleInput(args []string) (string, error) {
	switch len(args) {
	case 0:
		return "", ErrNoInput
	case 1:
		return args[0], nil
	}
	return "", fmt.Errorf("%w: expected one markdown file, got %d arguments", ErrUsage, len(args))
}
