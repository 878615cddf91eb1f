package pipeline

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
)

// DefaultTitle is used when neither front matter nor content supply a title.
const DefaultTitle = "Untitled"

// DefaultAttribution is the footer text when a target sets none.
const DefaultAttribution = "Published with mdpublish"

// DocumentParts is everything the assembler needs for one document.
type DocumentParts struct {
	Target      RenderTarget
	Title       string
	Content     string // rendered HTML fragment
	CSS         CSSBundle
	Scripts     Scripts
	Metadata    string // JSON, publish only
	RuntimeJS   string // publish only
	Attribution string // publish only
}

// AssembleDocument renders the final HTML document. Section order depends
// only on the parts, so the same parts always give the same bytes.
func AssembleDocument(p DocumentParts) string {
	var b strings.Builder
	b.Grow(len(p.Content) + len(p.CSS.Markdown) + len(p.CSS.ColorScheme) + len(p.CSS.Custom) + 4096)

	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	b.WriteString("<title>")
	b.WriteString(html.EscapeString(p.Title))
	b.WriteString("</title>\n")

	writeCSS(&b, p.CSS)

	for _, href := range p.Scripts.PluginStyles {
		writeLink(&b, href)
	}

	b.WriteString("</head>\n<body>\n")
	b.WriteString("<main class=\"markdown-body\" id=\"content\">\n")
	b.WriteString(p.Content)
	b.WriteString("\n</main>\n")

	if p.Target == TargetPublish {
		if p.Metadata != "" {
			b.WriteString("<script type=\"application/json\" id=\"mdpublish-meta\">")
			b.WriteString(sanitizeCSS(p.Metadata))
			b.WriteString("</script>\n")
		}
		if p.RuntimeJS != "" {
			b.WriteString("<script data-runtime>")
			b.WriteString(sanitizeCSS(p.RuntimeJS))
			b.WriteString("</script>\n")
		}
		writePluginScripts(&b, p.Scripts.PluginScripts)
		attribution := p.Attribution
		if strings.TrimSpace(attribution) == "" {
			attribution = DefaultAttribution
		}
		b.WriteString("<footer class=\"mdpublish-attribution\">")
		b.WriteString(html.EscapeString(attribution))
		b.WriteString("</footer>\n")
	} else {
		writePluginScripts(&b, p.Scripts.PluginScripts)
		if p.Scripts.Readiness != "" {
			b.WriteString("<script data-readiness>")
			b.WriteString(sanitizeCSS(p.Scripts.Readiness))
			b.WriteString("</script>\n")
		}
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func writeCSS(b *strings.Builder, css CSSBundle) {
	switch css.Strategy {
	case StrategyLinked:
		for _, u := range css.OrderedURLs() {
			writeLink(b, u.URL)
		}
	case StrategyHybrid:
		writeStyle(b, SectionMarkdown, css.Markdown)
		writeStyle(b, SectionCustom, css.Custom)
		for _, u := range css.OrderedURLs() {
			writeLink(b, u.URL)
		}
	default:
		writeStyle(b, SectionMarkdown, css.Markdown)
		writeStyle(b, SectionColorScheme, css.ColorScheme)
		writeStyle(b, SectionCustom, css.Custom)
		writeStyle(b, SectionRuntime, css.Runtime)
	}
}

func writeStyle(b *strings.Builder, section, css string) {
	if strings.TrimSpace(css) == "" {
		return
	}
	b.WriteString("<style data-css=\"")
	b.WriteString(section)
	b.WriteString("\">\n")
	b.WriteString(sanitizeCSS(css))
	b.WriteString("\n</style>\n")
}

func writeLink(b *strings.Builder, href string) {
	if href == "" {
		return
	}
	b.WriteString("<link rel=\"stylesheet\" href=\"")
	b.WriteString(html.EscapeString(href))
	b.WriteString("\">\n")
}

func writePluginScripts(b *strings.Builder, tags string) {
	if tags == "" {
		return
	}
	b.WriteString(tags)
	b.WriteString("\n")
}

// sanitizeCSS escapes sequences that could break out of a <style> or
// <script> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// Metadata is the JSON block embedded in published documents and read by
// the runtime script.
type Metadata struct {
	Title       string         `json:"title"`
	Theme       string         `json:"theme,omitempty"`
	Mode        ThemeMode      `json:"mode,omitempty"`
	Strategy    CSSStrategy    `json:"cssStrategy"`
	Target      string         `json:"target,omitempty"`
	Generator   string         `json:"generator"`
	PublishedAt time.Time      `json:"publishedAt"`
	FrontMatter map[string]any `json:"frontMatter,omitempty"`
}

// BuildMetadata encodes m. Front matter values JSON cannot represent make
// it fail.
func BuildMetadata(m Metadata) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}
	return string(data), nil
}

// headingPattern matches h1 tags. Captures: 1=inner HTML.
var headingPattern = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)

// htmlTagPattern matches HTML tags for stripping from heading text.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTMLTags removes tags, decodes entities and trims whitespace. The
// result is plain text and gets escaped again on output.
func stripHTMLTags(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.TrimSpace(s)
}

// ResolveTitle picks the document title: front matter title, else the
// first h1 of the content, else DefaultTitle.
func ResolveTitle(fm map[string]any, content string) string {
	if t, ok := fm["title"].(string); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	if m := headingPattern.FindStringSubmatch(content); m != nil {
		if t := stripHTMLTags(m[1]); t != "" {
			return t
		}
	}
	return DefaultTitle
}
