package pipeline

// Notes:
// - pngBytes is a minimal PNG header; mimetype only needs the signature.
// - The inliner is exercised through fakeFetcher (see cssbundle_test.go) and
//   through a real httptest server for the end-to-end case.

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/study-groups/mdpublish/internal/fetch"
	"github.com/study-groups/mdpublish/internal/metrics"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func pngDataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}

// ---------------------------------------------------------------------------
// TestTokenizerScanner
// ---------------------------------------------------------------------------

func TestTokenizerScanner(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		values []string
	}{
		{"no images", "<p>hello</p>", nil},
		{"double quoted", `<img src="a.png" alt="x">`, []string{"a.png"}},
		{"single quoted", `<img alt='y' src='b.png'>`, []string{"b.png"}},
		{"unquoted", `<img src=c.png>`, []string{"c.png"}},
		{"self closing", `<img src="d.png" />`, []string{"d.png"}},
		{"uppercase", `<IMG SRC="e.png">`, []string{"e.png"}},
		{"entity unescaped", `<img src="f.png?a=1&amp;b=2">`, []string{"f.png?a=1&b=2"}},
		{"src inside alt ignored", `<img alt="src=bad" src="g.png">`, []string{"g.png"}},
		{"no src", `<img alt="none">`, nil},
		{"not img", `<script src="s.js"></script><iframe src="x"></iframe>`, nil},
		{"slash separator", `<img/src="j.png">`, []string{"j.png"}},
		{"slash inside unquoted value", `<img alt=x/src=y>`, nil},
		{"img inside text", `<p>a <img src="h.png"> b <img src="i.png"></p>`, []string{"h.png", "i.png"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := TokenizerScanner{}.Scan(tt.input)
			if err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if len(res.Refs) != len(tt.values) {
				t.Fatalf("Scan() found %d refs, want %d: %+v", len(res.Refs), len(tt.values), res.Refs)
			}
			for i, want := range tt.values {
				if res.Refs[i].Value != want {
					t.Errorf("Refs[%d].Value = %q, want %q", i, res.Refs[i].Value, want)
				}
			}
		})
	}
}

func TestScanResult_Rewrite(t *testing.T) {
	t.Parallel()

	input := `<p><img src=a.png alt="one"> and <img alt='two' src='b.png'/></p>`
	res, err := TokenizerScanner{}.Scan(input)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if got := res.Rewrite(nil); got != input {
		t.Errorf("Rewrite(nil) = %q, want input", got)
	}

	got := res.Rewrite(map[int]string{1: "x&y.png"})
	want := `<p><img src=a.png alt="one"> and <img alt='two' src="x&amp;y.png"/></p>`
	if got != want {
		t.Errorf("Rewrite() = %q, want %q", got, want)
	}

	got = res.Rewrite(map[int]string{0: "A", 1: "B", 7: "ignored"})
	want = `<p><img src="A" alt="one"> and <img alt='two' src="B"/></p>`
	if got != want {
		t.Errorf("Rewrite() = %q, want %q", got, want)
	}
}

// ---------------------------------------------------------------------------
// TestResourceInliner
// ---------------------------------------------------------------------------

func TestResourceInliner_NoQualifyingRefs(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"<p>text only</p>",
		`<img src="">`,
		`<img src="` + pngDataURI() + `">`,
	}

	f := &fakeFetcher{bodies: map[string]string{}}
	in := NewResourceInliner(f)

	for _, input := range inputs {
		got, report, err := in.Inline(context.Background(), input)
		if err != nil {
			t.Fatalf("Inline() error = %v", err)
		}
		if got != input {
			t.Errorf("Inline(%q) = %q, want unchanged", input, got)
		}
		if len(report.Inlined)+len(report.Failed) != 0 {
			t.Errorf("report = %+v, want empty", report)
		}
	}
	if len(f.calls) != 0 {
		t.Errorf("fetcher called for %v", f.calls)
	}
}

func TestResourceInliner_PartialFailure(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{bodies: map[string]string{
		"ok.png":   string(pngBytes),
		"text.png": "plain text, not an image",
	}}
	rec := newCountingRecorder()
	in := NewResourceInliner(f, WithInlinerMetrics(rec), WithConcurrency(1))

	input := `<img src="ok.png"><img src="missing.png"><img src="text.png"><img src="ok.png">`
	got, report, err := in.Inline(context.Background(), input)
	if err != nil {
		t.Fatalf("Inline() error = %v", err)
	}

	if strings.Count(got, pngDataURI()) != 2 {
		t.Errorf("expected both ok.png refs inlined: %s", got)
	}
	if !strings.Contains(got, `src="missing.png"`) || !strings.Contains(got, `src="text.png"`) {
		t.Errorf("failed refs should keep their original value: %s", got)
	}
	if len(report.Inlined) != 1 || len(report.Failed) != 2 {
		t.Errorf("report = %+v", report)
	}
	if rec.inlines[metrics.OutcomeSuccess] != 1 || rec.inlines[metrics.OutcomeFailed] != 2 {
		t.Errorf("inline metrics = %v", rec.inlines)
	}

	// ok.png is fetched once even though it appears twice
	n := 0
	for _, c := range f.calls {
		if c == "ok.png" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("ok.png fetched %d times, want 1", n)
	}
}

func TestResourceInliner_Idempotent(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{bodies: map[string]string{"a.png": string(pngBytes)}}
	in := NewResourceInliner(f)

	once, _, err := in.Inline(context.Background(), `<p><img src="a.png" alt="a"></p>`)
	if err != nil {
		t.Fatalf("Inline() error = %v", err)
	}
	twice, report, err := in.Inline(context.Background(), once)
	if err != nil {
		t.Fatalf("Inline() error = %v", err)
	}
	if once != twice {
		t.Errorf("second Inline changed output:\n%s\n%s", once, twice)
	}
	if len(report.Inlined) != 0 {
		t.Errorf("second pass inlined %v", report.Inlined)
	}
}

func TestResourceInliner_HTTP(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/broken.png" {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	}))
	t.Cleanup(srv.Close)

	router := &fetch.Router{Remote: fetch.NewHTTPFetcher(fetch.WithClient(srv.Client()))}
	in := NewResourceInliner(router)

	input := `<img src="` + srv.URL + `/one.png"><img src="` + srv.URL + `/broken.png">`
	got, report, err := in.Inline(context.Background(), input)
	if err != nil {
		t.Fatalf("Inline() error = %v", err)
	}

	if !strings.Contains(got, pngDataURI()) {
		t.Errorf("one.png not inlined: %s", got)
	}
	if !strings.Contains(got, srv.URL+"/broken.png") {
		t.Errorf("broken.png should be left as is: %s", got)
	}
	if len(report.Failed) != 1 || hits.Load() != 2 {
		t.Errorf("report = %+v, hits = %d", report, hits.Load())
	}
}

func TestImageContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		res  fetch.Resource
		want string
	}{
		{"sniffed png", fetch.Resource{Body: pngBytes}, "image/png"},
		{"svg", fetch.Resource{Body: []byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`)}, "image/svg+xml"},
		{"header fallback", fetch.Resource{Body: []byte("????"), ContentType: "image/x-icon; q=1"}, "image/x-icon"},
		{"not an image", fetch.Resource{Body: []byte("hello"), ContentType: "text/plain"}, ""},
		{"empty body", fetch.Resource{ContentType: "image/png"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := imageContentType(&tt.res); got != tt.want {
				t.Errorf("imageContentType() = %q, want %q", got, tt.want)
			}
		})
	}
}
