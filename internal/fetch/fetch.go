// Package fetch retrieves stylesheets and images referenced by a document.
//
// A Router dispatches a reference by its shape: http(s) and protocol-relative
// URLs go to the HTTPFetcher, file:// URLs to the LocalFetcher, and relative
// references to whichever fetcher the caller configured for them (built-in
// assets for stylesheets, the markdown source directory for images).
package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for fetch operations.
var (
	ErrFetch             = errors.New("fetch failed")
	ErrTooLarge          = errors.New("resource exceeds size limit")
	ErrUnsupportedScheme = errors.New("unsupported reference scheme")
	ErrOutsideRoot       = errors.New("reference escapes root directory")
	ErrEmptyRef          = errors.New("empty reference")
)

// DefaultMaxBytes caps a single fetched resource (10 MiB).
const DefaultMaxBytes int64 = 10 << 20

// Resource is a fetched payload.
type Resource struct {
	Ref         string
	Body        []byte
	ContentType string // as reported by the source; may be empty
}

// Fetcher retrieves a resource by reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (*Resource, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, ref string) (*Resource, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, ref string) (*Resource, error) {
	return f(ctx, ref)
}

// Router dispatches references to the fetcher responsible for their scheme.
// A nil field makes that kind of reference unsupported.
type Router struct {
	Remote   Fetcher // http://, https://, //host
	File     Fetcher // file://
	Relative Fetcher // everything without a scheme
}

// Fetch routes ref and fetches it.
func (r *Router) Fetch(ctx context.Context, ref string) (*Resource, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrEmptyRef
	}

	var target Fetcher
	switch kind := Classify(ref); kind {
	case KindRemote:
		target = r.Remote
		if strings.HasPrefix(ref, "//") {
			ref = "https:" + ref
		}
	case KindFile:
		target = r.File
	case KindRelative:
		target = r.Relative
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, ref)
	}

	if target == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, ref)
	}
	return target.Fetch(ctx, ref)
}

// Kind classifies a reference.
type Kind int

// Reference kinds.
const (
	KindUnsupported Kind = iota
	KindRemote
	KindFile
	KindRelative
	KindData
)

// Classify reports how a reference would be fetched.
func Classify(ref string) Kind {
	lower := strings.ToLower(ref)
	switch {
	case strings.HasPrefix(lower, "http://"),
		strings.HasPrefix(lower, "https://"),
		strings.HasPrefix(lower, "//"):
		return KindRemote
	case strings.HasPrefix(lower, "file://"):
		return KindFile
	case strings.HasPrefix(lower, "data:"):
		return KindData
	case strings.HasPrefix(ref, "#"):
		return KindUnsupported
	}
	if i := strings.Index(ref, ":"); i > 0 && !strings.ContainsAny(ref[:i], "/.") {
		// mailto:, javascript:, C: and other schemes
		return KindUnsupported
	}
	return KindRelative
}

// Compile-time interface checks.
var (
	_ Fetcher = (*Router)(nil)
	_ Fetcher = FetcherFunc(nil)
)
