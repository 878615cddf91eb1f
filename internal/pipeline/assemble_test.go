package pipeline

// Notes:
// - Ordering checks use indexOrder, which fails on the first marker that is
//   missing or out of place.

import (
	"strings"
	"testing"
	"time"
)

func indexOrder(t *testing.T, doc string, markers ...string) {
	t.Helper()
	last := -1
	for _, m := range markers {
		i := strings.Index(doc, m)
		if i < 0 {
			t.Errorf("document missing %q", m)
			return
		}
		if i < last {
			t.Errorf("%q appears out of order", m)
			return
		}
		last = i
	}
}

// ---------------------------------------------------------------------------
// TestAssembleDocument
// ---------------------------------------------------------------------------

func TestAssembleDocument_EmbeddedPublish(t *testing.T) {
	t.Parallel()

	doc := AssembleDocument(DocumentParts{
		Target:  TargetPublish,
		Title:   `A <b>"title"</b>`,
		Content: "<h1>Hello</h1>",
		CSS: CSSBundle{
			Strategy:    StrategyEmbedded,
			Markdown:    ".md{}",
			ColorScheme: ".cs{}",
			Custom:      ".custom{} </style><script>",
			Runtime:     ".rt{}",
		},
		Metadata:    `{"title":"x"}`,
		RuntimeJS:   "console.log(1)",
		Attribution: "by <me>",
	})

	if strings.Contains(doc, `<link rel="stylesheet"`) {
		t.Error("embedded publish document must not link stylesheets")
	}
	if !strings.Contains(doc, "<title>A &lt;b&gt;&#34;title&#34;&lt;/b&gt;</title>") {
		t.Errorf("title not escaped:\n%s", doc)
	}
	if strings.Contains(doc, ".custom{} </style>") {
		t.Error("custom CSS not sanitized")
	}

	indexOrder(t, doc,
		"<!DOCTYPE html>",
		"<title>",
		`<style data-css="markdown">`,
		`<style data-css="colorScheme">`,
		`<style data-css="custom">`,
		`<style data-css="runtime">`,
		"</head>",
		`<main class="markdown-body" id="content">`,
		"<h1>Hello</h1>",
		"</main>",
		`<script type="application/json" id="mdpublish-meta">`,
		"<script data-runtime>",
		`<footer class="mdpublish-attribution">by &lt;me&gt;</footer>`,
		"</html>",
	)

	if strings.Contains(doc, "data-readiness") {
		t.Error("publish document carries readiness script")
	}
}

func TestAssembleDocument_EmptySectionsOmitted(t *testing.T) {
	t.Parallel()

	doc := AssembleDocument(DocumentParts{
		Target: TargetPreview,
		CSS:    CSSBundle{Strategy: StrategyEmbedded, Markdown: ".md{}"},
	})

	if strings.Count(doc, "<style") != 1 {
		t.Errorf("expected one style block:\n%s", doc)
	}
	if strings.Contains(doc, "mdpublish-meta") || strings.Contains(doc, "<footer") {
		t.Error("preview must not carry metadata or footer")
	}
}

func TestAssembleDocument_Linked(t *testing.T) {
	t.Parallel()

	doc := AssembleDocument(DocumentParts{
		Target: TargetPublish,
		CSS: CSSBundle{
			Strategy: StrategyLinked,
			URLs: map[string]string{
				"runtime":         "rt.css",
				"custom.1":        "c1.css",
				"custom.0":        "c0.css",
				"colorSchemeMode": "mode.css",
				"colorSchemeBase": "base.css",
				"markdown":        "md.css?a=1&b=2",
			},
		},
	})

	if strings.Contains(doc, "<style") {
		t.Error("linked document must not embed styles")
	}
	indexOrder(t, doc,
		`href="md.css?a=1&amp;b=2"`,
		`href="base.css"`,
		`href="mode.css"`,
		`href="c0.css"`,
		`href="c1.css"`,
		`href="rt.css"`,
	)
}

func TestAssembleDocument_Hybrid(t *testing.T) {
	t.Parallel()

	doc := AssembleDocument(DocumentParts{
		Target: TargetPublish,
		CSS: CSSBundle{
			Strategy: StrategyHybrid,
			Markdown: ".md{}",
			Custom:   ".custom{}",
			URLs:     map[string]string{"colorSchemeBase": "base.css", "colorSchemeMode": "dark.css"},
		},
		Scripts: Scripts{PluginStyles: []string{"katex.css"}},
	})

	indexOrder(t, doc,
		`<style data-css="markdown">`,
		`<style data-css="custom">`,
		`href="base.css"`,
		`href="dark.css"`,
		`href="katex.css"`,
		"</head>",
	)
}

func TestAssembleDocument_PreviewScripts(t *testing.T) {
	t.Parallel()

	doc := AssembleDocument(DocumentParts{
		Target:  TargetPreview,
		Content: "<p>x</p>",
		Scripts: Scripts{
			PluginScripts: `<script src="mermaid.js"></script>`,
			Readiness:     "postMessage('</script>')",
		},
		RuntimeJS: "ignored()",
		Metadata:  "{}",
	})

	indexOrder(t, doc, "</main>", `<script src="mermaid.js">`, "<script data-readiness>", "</body>")
	if strings.Contains(doc, "ignored()") {
		t.Error("preview must not carry the runtime script")
	}
	if strings.Contains(doc, "postMessage('</script>')") {
		t.Error("readiness script not sanitized")
	}
}

func TestAssembleDocument_Deterministic(t *testing.T) {
	t.Parallel()

	parts := DocumentParts{
		Target: TargetPublish,
		CSS: CSSBundle{Strategy: StrategyLinked, URLs: map[string]string{
			"markdown": "a", "custom.0": "b", "custom.2": "d", "custom.1": "c", "runtime": "e",
		}},
	}
	first := AssembleDocument(parts)
	for i := 0; i < 20; i++ {
		if got := AssembleDocument(parts); got != first {
			t.Fatal("AssembleDocument output differs between runs")
		}
	}
}

// ---------------------------------------------------------------------------
// TestResolveTitle
// ---------------------------------------------------------------------------

func TestResolveTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fm      map[string]any
		content string
		want    string
	}{
		{"front matter wins", map[string]any{"title": " Doc "}, "<h1>Heading</h1>", "Doc"},
		{"first h1", nil, `<h2>Sub</h2><h1 id="x">Main <em>Title</em> &amp; more</h1><h1>Second</h1>`, "Main Title & more"},
		{"blank front matter ignored", map[string]any{"title": "  "}, "<h1>H</h1>", "H"},
		{"non-string title ignored", map[string]any{"title": 3}, "", DefaultTitle},
		{"fallback", nil, "<p>no heading</p>", DefaultTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ResolveTitle(tt.fm, tt.content); got != tt.want {
				t.Errorf("ResolveTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildMetadata(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got, err := BuildMetadata(Metadata{
		Title:       "</script>",
		Strategy:    StrategyEmbedded,
		Generator:   "mdpublish",
		PublishedAt: at,
	})
	if err != nil {
		t.Fatalf("BuildMetadata() error = %v", err)
	}
	if strings.Contains(got, "</script>") {
		t.Errorf("metadata not escaped: %s", got)
	}
	if !strings.Contains(got, `"publishedAt":"2026-01-02T03:04:05Z"`) {
		t.Errorf("metadata = %s", got)
	}

	_, err = BuildMetadata(Metadata{FrontMatter: map[string]any{"bad": make(chan int)}})
	if err == nil {
		t.Error("expected error for unencodable front matter")
	}
}
