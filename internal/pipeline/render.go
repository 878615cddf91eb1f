package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// ErrHTMLConversion indicates markdown conversion failed.
var ErrHTMLConversion = errors.New("HTML conversion failed")

// DefaultHighlightStyle is the chroma style used for code blocks.
const DefaultHighlightStyle = "github"

// RenderOptions control one render call.
type RenderOptions struct {
	Target     RenderTarget
	SourcePath string   // markdown file path, informational
	Plugins    []Plugin // plugin blocks to produce; nil enables all
}

// Renderer converts markdown to an HTML fragment plus its front matter.
type Renderer interface {
	Render(ctx context.Context, markdown string, opts RenderOptions) (*RenderResult, error)
}

// GoldmarkRenderer renders markdown with goldmark (GFM, footnotes, chroma
// highlighting) and turns mermaid and math fences into plugin blocks.
type GoldmarkRenderer struct {
	md goldmark.Markdown
}

// NewGoldmarkRenderer creates a GoldmarkRenderer.
func NewGoldmarkRenderer() *GoldmarkRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			pluginBlocks{},
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
			// raw HTML stays escaped; ==highlight== uses placeholders instead
		),
	)
	return &GoldmarkRenderer{md: md}
}

// Render converts markdown. Goldmark has no context support, so conversion
// runs in a goroutine and Render returns early when ctx is done.
func (g *GoldmarkRenderer) Render(ctx context.Context, markdown string, opts RenderOptions) (*RenderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content := normalizeLineEndings(markdown)
	rawFM, body, err := SplitFrontMatter(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTMLConversion, err)
	}
	fm, err := ParseFrontMatter(rawFM)
	if err != nil {
		return nil, err
	}

	type result struct {
		html string
		err  error
	}
	done := make(chan result, 1)

	go func() {
		pc := parser.NewContext()
		pc.Set(pluginsKey, enabledPlugins(opts.Plugins))

		var buf bytes.Buffer
		if err := g.md.Convert([]byte(preprocessBody(body)), &buf, parser.WithContext(pc)); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrHTMLConversion, err)}
			return
		}
		done <- result{html: convertMarkPlaceholders(buf.String())}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return &RenderResult{HTML: r.html, FrontMatter: fm}, nil
	}
}

// HighlightCSS returns the stylesheet for highlighted code blocks. Unknown
// style names fall back to chroma's default style.
func HighlightCSS(style string) (string, error) {
	if style == "" {
		style = DefaultHighlightStyle
	}
	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&buf, styles.Get(style)); err != nil {
		return "", fmt.Errorf("writing highlight css: %w", err)
	}
	return buf.String(), nil
}

// ---------------------------------------------------------------------------
// Plugin blocks
// ---------------------------------------------------------------------------

// KindPluginBlock is the node kind of a fenced block handed to a client-side plugin.
var KindPluginBlock = ast.NewNodeKind("PluginBlock")

var pluginsKey = parser.NewContextKey()

type pluginBlock struct {
	ast.BaseBlock
	plugin  Plugin
	content []byte
}

func (n *pluginBlock) Kind() ast.NodeKind { return KindPluginBlock }

func (n *pluginBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Plugin": string(n.plugin)}, nil)
}

// pluginForLanguage maps a fence language to its plugin.
func pluginForLanguage(lang string) (Plugin, bool) {
	switch strings.ToLower(lang) {
	case "mermaid":
		return PluginMermaid, true
	case "math", "latex", "katex":
		return PluginKaTeX, true
	}
	return "", false
}

func enabledPlugins(plugins []Plugin) map[Plugin]bool {
	if plugins == nil {
		return map[Plugin]bool{PluginMermaid: true, PluginKaTeX: true}
	}
	set := make(map[Plugin]bool, len(plugins))
	for _, p := range plugins {
		set[p] = true
	}
	return set
}

type pluginBlockTransformer struct{}

func (pluginBlockTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	enabled, _ := pc.Get(pluginsKey).(map[Plugin]bool)
	if len(enabled) == 0 {
		return
	}
	source := reader.Source()

	var targets []*ast.FencedCodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if fcb, ok := n.(*ast.FencedCodeBlock); ok {
			if p, ok := pluginForLanguage(string(fcb.Language(source))); ok && enabled[p] {
				targets = append(targets, fcb)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	for _, fcb := range targets {
		p, _ := pluginForLanguage(string(fcb.Language(source)))
		var buf bytes.Buffer
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(source))
		}
		block := &pluginBlock{plugin: p, content: buf.Bytes()}
		parent := fcb.Parent()
		parent.ReplaceChild(parent, fcb, block)
	}
}

type pluginBlockRenderer struct{}

func (r *pluginBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindPluginBlock, r.render)
}

func (r *pluginBlockRenderer) render(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	block := n.(*pluginBlock)
	content := util.EscapeHTML(bytes.TrimRight(block.content, "\n"))

	switch block.plugin {
	case PluginMermaid:
		_, _ = w.WriteString(`<pre class="mermaid">`)
		_, _ = w.Write(content)
		_, _ = w.WriteString("</pre>\n")
	case PluginKaTeX:
		_, _ = w.WriteString(`<div class="math">`)
		_, _ = w.Write(content)
		_, _ = w.WriteString("</div>\n")
	}
	return ast.WalkSkipChildren, nil
}

// pluginBlocks is the goldmark extension wiring the transformer and renderer.
type pluginBlocks struct{}

func (pluginBlocks) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(pluginBlockTransformer{}, 100),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&pluginBlockRenderer{}, 100),
	))
}

// Compile-time interface checks.
var (
	_ Renderer              = (*GoldmarkRenderer)(nil)
	_ parser.ASTTransformer = pluginBlockTransformer{}
	_ renderer.NodeRenderer = (*pluginBlockRenderer)(nil)
	_ goldmark.Extender     = pluginBlocks{}
)
