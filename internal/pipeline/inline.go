package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/study-groups/mdpublish/internal/fetch"
	"github.com/study-groups/mdpublish/internal/logging"
	"github.com/study-groups/mdpublish/internal/metrics"
)

// DefaultInlineConcurrency bounds concurrent resource fetches.
const DefaultInlineConcurrency = 8

// InlineReport lists the references that were inlined and those that failed.
type InlineReport struct {
	Inlined []string
	Failed  []string
}

// ResourceInliner replaces image references with base64 data URIs.
type ResourceInliner struct {
	fetcher     fetch.Fetcher
	scanner     ResourceScanner
	concurrency int
	log         logging.Logger
	metrics     metrics.Recorder
}

// InlinerOption configures a ResourceInliner.
type InlinerOption func(*ResourceInliner)

// WithScanner replaces the default tokenizer scanner.
func WithScanner(s ResourceScanner) InlinerOption {
	return func(r *ResourceInliner) {
		if s != nil {
			r.scanner = s
		}
	}
}

// WithConcurrency bounds concurrent fetches. Values below 1 use the default.
func WithConcurrency(n int) InlinerOption {
	return func(r *ResourceInliner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithInlinerLogger sets the logger.
func WithInlinerLogger(l logging.Logger) InlinerOption {
	return func(r *ResourceInliner) { r.log = logging.OrNop(l) }
}

// WithInlinerMetrics sets the metrics recorder.
func WithInlinerMetrics(m metrics.Recorder) InlinerOption {
	return func(r *ResourceInliner) {
		if m != nil {
			r.metrics = m
		}
	}
}

// NewResourceInliner creates an inliner fetching through f.
func NewResourceInliner(f fetch.Fetcher, opts ...InlinerOption) *ResourceInliner {
	r := &ResourceInliner{
		fetcher:     f,
		scanner:     TokenizerScanner{},
		concurrency: DefaultInlineConcurrency,
		log:         logging.Nop(),
		metrics:     metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Inline rewrites every qualifying image reference in fragment to a data URI.
// Empty and data: references are skipped, so an inlined fragment comes back
// unchanged. A reference that cannot be fetched keeps its original value.
// Inline returns an error only when the fragment cannot be scanned.
func (r *ResourceInliner) Inline(ctx context.Context, fragment string) (string, InlineReport, error) {
	var report InlineReport

	scan, err := r.scanner.Scan(fragment)
	if err != nil {
		return fragment, report, err
	}

	// group ref indexes by URL so each distinct resource is fetched once
	byURL := make(map[string][]int)
	var order []string
	for i, ref := range scan.Refs {
		v := strings.TrimSpace(ref.Value)
		if v == "" || fetch.Classify(v) == fetch.KindData {
			continue
		}
		if _, seen := byURL[v]; !seen {
			order = append(order, v)
		}
		byURL[v] = append(byURL[v], i)
	}
	if len(order) == 0 {
		return fragment, report, nil
	}

	uris := make([]string, len(order))
	errs := make([]error, len(order))
	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup

	for i, u := range order {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			uris[i], errs[i] = r.encode(ctx, u)
		}()
	}
	wg.Wait()

	values := make(map[int]string)
	for i, u := range order {
		if errs[i] != nil {
			r.log.Warn("resource inline failed", "ref", u, "error", errs[i])
			r.metrics.IncInline(metrics.OutcomeFailed)
			report.Failed = append(report.Failed, u)
			continue
		}
		r.metrics.IncInline(metrics.OutcomeSuccess)
		report.Inlined = append(report.Inlined, u)
		for _, idx := range byURL[u] {
			values[idx] = uris[i]
		}
	}

	return scan.Rewrite(values), report, nil
}

// encode fetches ref and returns it as a data URI.
func (r *ResourceInliner) encode(ctx context.Context, ref string) (string, error) {
	res, err := r.fetcher.Fetch(ctx, ref)
	if err != nil {
		return "", err
	}
	ct := imageContentType(res)
	if ct == "" {
		return "", fmt.Errorf("%w: %s is not an image", fetch.ErrFetch, ref)
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(res.Body), nil
}

// imageContentType sniffs the payload and falls back to the reported type.
// It returns "" for anything that is not an image.
func imageContentType(res *fetch.Resource) string {
	if len(res.Body) == 0 {
		return ""
	}
	detected := mimetype.Detect(res.Body)
	if strings.HasPrefix(detected.String(), "image/") {
		mt, _, err := mime.ParseMediaType(detected.String())
		if err == nil {
			return mt
		}
		return detected.String()
	}
	if mt, _, err := mime.ParseMediaType(res.ContentType); err == nil && strings.HasPrefix(mt, "image/") {
		return mt
	}
	return ""
}
