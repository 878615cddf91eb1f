package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/study-groups/mdpublish/internal/assets"
)

// Plugin names a client-side renderer a document may need.
type Plugin string

const (
	PluginMermaid Plugin = "mermaid"
	PluginKaTeX   Plugin = "katex"
)

// ParsePlugins validates plugin names, dropping duplicates.
func ParsePlugins(names []string) ([]Plugin, error) {
	var out []Plugin
	seen := make(map[Plugin]bool)
	for _, n := range names {
		p := Plugin(strings.ToLower(strings.TrimSpace(n)))
		switch p {
		case PluginMermaid, PluginKaTeX:
		default:
			return nil, fmt.Errorf("%w: %q (must be mermaid or katex)", ErrInvalidPlugin, n)
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

// DetectPlugins reports which plugins the rendered HTML needs, in a fixed order.
func DetectPlugins(html string) []Plugin {
	var out []Plugin
	if strings.Contains(html, `class="mermaid"`) {
		out = append(out, PluginMermaid)
	}
	if strings.Contains(html, `class="math"`) {
		out = append(out, PluginKaTeX)
	}
	return out
}

const (
	mermaidJS = "https://cdn.jsdelivr.net/npm/mermaid@10.9.1/dist/mermaid.min.js"
	katexCSS  = "https://cdn.jsdelivr.net/npm/katex@0.16.11/dist/katex.min.css"
	katexJS   = "https://cdn.jsdelivr.net/npm/katex@0.16.11/dist/katex.min.js"
)

func pluginStyles(p Plugin) []string {
	if p == PluginKaTeX {
		return []string{katexCSS}
	}
	return nil
}

func pluginScript(p Plugin) string {
	switch p {
	case PluginMermaid:
		return `<script src="` + mermaidJS + `"></script>` + "\n" +
			`<script>mermaid.initialize({ startOnLoad: true });</script>`
	case PluginKaTeX:
		return `<script src="` + katexJS + `"></script>` + "\n" +
			`<script>document.querySelectorAll(".math").forEach(function (el) {` +
			` katex.render(el.textContent, el, { displayMode: true, throwOnError: false }); });</script>`
	}
	return ""
}

// Readiness protocol defaults.
const (
	DefaultGraceDelay     = 150 * time.Millisecond
	DefaultPollInterval   = 100 * time.Millisecond
	DefaultMaxAttempts    = 50
	DefaultStabilizeDelay = 100 * time.Millisecond
)

// ReadinessConfig holds the readiness protocol timings.
type ReadinessConfig struct {
	GraceDelay     time.Duration `yaml:"graceDelay"`
	PollInterval   time.Duration `yaml:"pollInterval"`
	MaxAttempts    int           `yaml:"maxAttempts"`
	StabilizeDelay time.Duration `yaml:"stabilizeDelay"`
}

// DefaultReadiness returns the default timings.
func DefaultReadiness() ReadinessConfig {
	return ReadinessConfig{
		GraceDelay:     DefaultGraceDelay,
		PollInterval:   DefaultPollInterval,
		MaxAttempts:    DefaultMaxAttempts,
		StabilizeDelay: DefaultStabilizeDelay,
	}
}

// withDefaults fills zero fields and caps the grace delay at the poll budget.
func (c ReadinessConfig) withDefaults() ReadinessConfig {
	d := DefaultReadiness()
	if c.GraceDelay <= 0 {
		c.GraceDelay = d.GraceDelay
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.StabilizeDelay <= 0 {
		c.StabilizeDelay = d.StabilizeDelay
	}
	if budget := c.PollInterval * time.Duration(c.MaxAttempts); c.GraceDelay > budget {
		c.GraceDelay = budget
	}
	return c
}

// Bound is the longest a document can take to post its readiness message
// once loaded.
func (c ReadinessConfig) Bound() time.Duration {
	c = c.withDefaults()
	return c.PollInterval*time.Duration(c.MaxAttempts) + c.StabilizeDelay
}

// Scripts is the script output for one document.
type Scripts struct {
	PluginStyles  []string // stylesheet URLs
	PluginScripts string   // HTML
	Readiness     string   // JavaScript, preview only
}

// InjectorOptions configures a ScriptInjector.
type InjectorOptions struct {
	Readiness               ReadinessConfig
	IncludePluginsOnPublish bool
}

// ScriptInjector emits plugin tags and the readiness protocol script.
type ScriptInjector struct {
	tmpl *template.Template
	opts InjectorOptions
}

type readinessData struct {
	EmbedID     string
	GraceMS     int64
	PollMS      int64
	MaxAttempts int
	StabilizeMS int64
}

// NewScriptInjector loads the readiness template through loader.
func NewScriptInjector(loader assets.AssetLoader, opts InjectorOptions) (*ScriptInjector, error) {
	src, err := loader.Load(assets.ReadinessScript)
	if err != nil {
		return nil, fmt.Errorf("loading readiness script: %w", err)
	}
	tmpl, err := template.New("readiness").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parsing readiness script: %w", err)
	}
	opts.Readiness = opts.Readiness.withDefaults()
	return &ScriptInjector{tmpl: tmpl, opts: opts}, nil
}

// Readiness returns the effective readiness timings.
func (s *ScriptInjector) Readiness() ReadinessConfig {
	return s.opts.Readiness
}

// Inject produces the scripts for a document. Plugins are emitted for
// previews, and for published documents only when configured to.
func (s *ScriptInjector) Inject(target RenderTarget, embedID string, plugins []Plugin) (Scripts, error) {
	var out Scripts

	if target == TargetPreview || s.opts.IncludePluginsOnPublish {
		var tags []string
		for _, p := range plugins {
			out.PluginStyles = append(out.PluginStyles, pluginStyles(p)...)
			if tag := pluginScript(p); tag != "" {
				tags = append(tags, tag)
			}
		}
		out.PluginScripts = strings.Join(tags, "\n")
	}

	if target != TargetPreview {
		return out, nil
	}

	id, err := json.Marshal(embedID)
	if err != nil {
		return out, fmt.Errorf("encoding embed id: %w", err)
	}
	r := s.opts.Readiness
	var buf bytes.Buffer
	err = s.tmpl.Execute(&buf, readinessData{
		EmbedID:     string(id),
		GraceMS:     r.GraceDelay.Milliseconds(),
		PollMS:      r.PollInterval.Milliseconds(),
		MaxAttempts: r.MaxAttempts,
		StabilizeMS: r.StabilizeDelay.Milliseconds(),
	})
	if err != nil {
		return out, fmt.Errorf("rendering readiness script: %w", err)
	}
	out.Readiness = buf.String()
	return out, nil
}
