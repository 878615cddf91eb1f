package pipeline

import (
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/study-groups/mdpublish/internal/fetch"
)

// RewriteImagePaths prefixes relative image sources with baseURL so a
// preview document loaded from a different location still finds the
// images next to its markdown source. If baseURL is empty, returns the
// HTML unchanged.
//
// Rewrites only img[src]. Skips:
//   - URLs, data: URIs and anchors (already resolved)
//   - absolute paths
//   - paths that climb above the source directory
func RewriteImagePaths(fragment, baseURL string) (string, error) {
	if baseURL == "" {
		return fragment, nil
	}

	doc, err := parseFragment(fragment)
	if err != nil {
		return "", err
	}

	rewriteNode(doc, strings.TrimRight(baseURL, "/")+"/")
	return renderFragment(doc)
}

// parseFragment parses HTML in body context and wraps the nodes in a
// container for uniform traversal.
func parseFragment(content string) (*html.Node, error) {
	context := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), context)
	if err != nil {
		return nil, err
	}

	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, nil
}

// renderFragment renders the container's children without a wrapper.
func renderFragment(doc *html.Node) (string, error) {
	var buf strings.Builder
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func rewriteNode(n *html.Node, base string) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Img {
		for i, attr := range n.Attr {
			if attr.Key != "src" {
				continue
			}
			if rel, ok := relativeImagePath(attr.Val); ok {
				n.Attr[i].Val = base + rel
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rewriteNode(c, base)
	}
}

// relativeImagePath returns the cleaned, URL-escaped form of a relative
// reference, or false when it must not be rewritten.
func relativeImagePath(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || fetch.Classify(ref) != fetch.KindRelative || strings.HasPrefix(ref, "/") {
		return "", false
	}

	u, err := url.Parse(ref)
	if err != nil || u.Path == "" {
		return "", false
	}

	clean := path.Clean(u.Path)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}

	out := (&url.URL{Path: clean}).EscapedPath()
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out, true
}
