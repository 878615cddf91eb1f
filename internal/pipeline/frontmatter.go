package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/study-groups/mdpublish/internal/yamlutil"
)

// Sentinel errors for front matter handling.
var (
	ErrFrontMatterUnclosed = errors.New("front matter start delimiter found but closing delimiter is missing")
	ErrFrontMatterParse    = errors.New("front matter parse failed")
)

const frontMatterDelim = "---\n"

// SplitFrontMatter separates a leading "---" delimited YAML block from the
// markdown body. Line endings must already be normalized to "\n".
// If the document has no front matter, fm is empty and body is the input.
func SplitFrontMatter(content string) (fm, body string, err error) {
	if !strings.HasPrefix(content, frontMatterDelim) {
		return "", content, nil
	}

	rest := content[len(frontMatterDelim):]
	if strings.HasPrefix(rest, frontMatterDelim) {
		return "", rest[len(frontMatterDelim):], nil
	}

	idx := strings.Index(rest, "\n"+frontMatterDelim)
	if idx < 0 {
		// closing delimiter at end of input without trailing newline
		if strings.HasSuffix(rest, "\n---") {
			return rest[:len(rest)-len("---")], "", nil
		}
		return "", "", ErrFrontMatterUnclosed
	}
	return rest[:idx+1], rest[idx+1+len(frontMatterDelim):], nil
}

// ParseFrontMatter decodes a YAML front matter block into a map.
// An empty block gives an empty, non-nil map.
func ParseFrontMatter(fm string) (map[string]any, error) {
	if strings.TrimSpace(fm) == "" {
		return map[string]any{}, nil
	}

	fields, err := yamlutil.DecodeMap([]byte(fm))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrontMatterParse, err)
	}
	return fields, nil
}
