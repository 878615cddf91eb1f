package pipeline

import (
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"sort"
	"strings"

	xhtml "golang.org/x/net/html"
)

// ResourceRef is one resource reference found in an HTML fragment.
// Start and End delimit the raw attribute value in the source, quotes
// included, so a rewrite replaces exactly that span.
type ResourceRef struct {
	Tag   string
	Attr  string
	Value string // unescaped
	Start int
	End   int
}

// ScanResult holds the references found in one fragment.
type ScanResult struct {
	source string
	Refs   []ResourceRef
}

// Rewrite returns the source with the values of the given refs (by index
// into Refs) replaced. Unlisted refs keep their original text.
func (s *ScanResult) Rewrite(values map[int]string) string {
	if len(values) == 0 {
		return s.source
	}

	idx := make([]int, 0, len(values))
	for i := range values {
		if i >= 0 && i < len(s.Refs) {
			idx = append(idx, i)
		}
	}
	sort.Slice(idx, func(a, b int) bool { return s.Refs[idx[a]].Start < s.Refs[idx[b]].Start })

	var b strings.Builder
	b.Grow(len(s.source))
	pos := 0
	for _, i := range idx {
		ref := s.Refs[i]
		b.WriteString(s.source[pos:ref.Start])
		b.WriteByte('"')
		b.WriteString(html.EscapeString(values[i]))
		b.WriteByte('"')
		pos = ref.End
	}
	b.WriteString(s.source[pos:])
	return b.String()
}

// ResourceScanner finds resource references in HTML text.
type ResourceScanner interface {
	Scan(fragment string) (*ScanResult, error)
}

// TokenizerScanner finds <img src> references with a streaming tokenizer.
type TokenizerScanner struct{}

// attrPattern matches one attribute; group 2 is the raw value with quotes.
// A slash separates attributes like whitespace does: <img/src="a.png">.
var attrPattern = regexp.MustCompile(`(?is)[\s/]([^\s"'>/=]+)\s*=\s*("([^"]*)"|'([^']*)'|([^\s"'=<>` + "`" + `]+))`)

// Scan tokenizes fragment and records the first src attribute of each img tag.
func (TokenizerScanner) Scan(fragment string) (*ScanResult, error) {
	res := &ScanResult{source: fragment}
	z := xhtml.NewTokenizer(strings.NewReader(fragment))
	offset := 0

	for {
		tt := z.Next()
		raw := z.Raw()
		start := offset
		offset += len(raw)

		switch tt {
		case xhtml.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return res, nil
			}
			return nil, fmt.Errorf("scanning html: %w", z.Err())

		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "img" || !hasAttr {
				continue
			}
			if ref, ok := findAttr(string(raw), "src"); ok {
				ref.Tag = "img"
				ref.Start += start
				ref.End += start
				res.Refs = append(res.Refs, ref)
			}
		}
	}
}

// findAttr locates attr inside a raw start tag. Offsets are relative to raw.
func findAttr(raw, attr string) (ResourceRef, bool) {
	// skip "<tagname"
	i := strings.IndexAny(raw, " \t\n\r\f/>")
	if i < 0 {
		return ResourceRef{}, false
	}
	for _, m := range attrPattern.FindAllStringSubmatchIndex(raw[i:], -1) {
		if !strings.EqualFold(raw[i+m[2]:i+m[3]], attr) {
			continue
		}
		var value string
		switch {
		case m[6] >= 0:
			value = raw[i+m[6] : i+m[7]]
		case m[8] >= 0:
			value = raw[i+m[8] : i+m[9]]
		case m[10] >= 0:
			value = raw[i+m[10] : i+m[11]]
		}
		return ResourceRef{
			Attr:  strings.ToLower(attr),
			Value: html.UnescapeString(value),
			Start: i + m[4],
			End:   i + m[5],
		}, true
	}
	return ResourceRef{}, false
}

var _ ResourceScanner = TokenizerScanner{}
