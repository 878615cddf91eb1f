//go:build integration

package preview

// Notes:
// - Requires Chrome/Chromium; rod downloads one when ROD_BROWSER_BIN is unset.
// - One checker is shared by the subtests, like a CLI run checking several
//   files.

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/study-groups/mdpublish"
	"github.com/study-groups/mdpublish/internal/pipeline"
)

func TestBrowserChecker(t *testing.T) {
	checker := NewBrowserChecker(WithLoadTimeout(time.Minute))
	t.Cleanup(func() { _ = checker.Close() })

	pub, err := mdpublish.NewPublisher(mdpublish.WithReadiness(pipeline.ReadinessConfig{
		GraceDelay:     20 * time.Millisecond,
		PollInterval:   20 * time.Millisecond,
		MaxAttempts:    10,
		StabilizeDelay: 20 * time.Millisecond,
	}))
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}

	t.Run("preview reports ready", func(t *testing.T) {
		res, err := pub.Preview(context.Background(), mdpublish.Input{Markdown: "# Hello\n\nplain text", EmbedID: "check-1"})
		if err != nil {
			t.Fatalf("Preview() error = %v", err)
		}

		got, err := checker.Check(context.Background(), res.HTML, res.EmbedID, pub.Readiness().Bound())
		if err != nil {
			t.Fatalf("Check() error = %v", err)
		}
		if got.EmbedID != "check-1" {
			t.Errorf("EmbedID = %q", got.EmbedID)
		}
		if got.Settle <= 0 || got.Settle > pub.Readiness().Bound()+time.Second {
			t.Errorf("Settle = %v, want within the readiness bound", got.Settle)
		}
	})

	t.Run("published document never reports", func(t *testing.T) {
		res, err := pub.Build(context.Background(), mdpublish.Input{Markdown: "# Hello"})
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		_, err = checker.Check(context.Background(), res.HTML, "check-2", 100*time.Millisecond)
		if !errors.Is(err, ErrNotReady) {
			t.Errorf("Check() error = %v, want ErrNotReady", err)
		}
	})

	t.Run("other embed ids are ignored", func(t *testing.T) {
		res, err := pub.Preview(context.Background(), mdpublish.Input{Markdown: "# Hello", EmbedID: "check-3"})
		if err != nil {
			t.Fatalf("Preview() error = %v", err)
		}
		_, err = checker.Check(context.Background(), res.HTML, "someone-else", 200*time.Millisecond)
		if !errors.Is(err, ErrNotReady) {
			t.Errorf("Check() error = %v, want ErrNotReady", err)
		}
	})

	// Timings far enough apart that a grace-delay settle cannot be mistaken
	// for a bound-length one.
	slow := pipeline.ReadinessConfig{
		GraceDelay:     300 * time.Millisecond,
		PollInterval:   100 * time.Millisecond,
		MaxAttempts:    30,
		StabilizeDelay: 20 * time.Millisecond,
	}
	slowPub, err := mdpublish.NewPublisher(
		mdpublish.WithReadiness(slow),
		mdpublish.WithPlugins([]mdpublish.Plugin{}),
	)
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	bound := slowPub.Readiness().Bound()

	t.Run("nothing to wait for settles after the grace delay", func(t *testing.T) {
		res, err := slowPub.Preview(context.Background(), mdpublish.Input{Markdown: "# Plain\n\ntext only", EmbedID: "check-5"})
		if err != nil {
			t.Fatalf("Preview() error = %v", err)
		}
		got, err := checker.Check(context.Background(), res.HTML, res.EmbedID, bound)
		if err != nil {
			t.Fatalf("Check() error = %v", err)
		}
		if got.Settle < slow.GraceDelay {
			t.Errorf("Settle = %v, want at least the grace delay %v", got.Settle, slow.GraceDelay)
		}
		if limit := slow.GraceDelay + slow.StabilizeDelay + 700*time.Millisecond; got.Settle > limit {
			t.Errorf("Settle = %v, want near the grace delay (<= %v, bound %v)", got.Settle, limit, bound)
		}
	})

	t.Run("predicate that never holds settles at the bound", func(t *testing.T) {
		res, err := slowPub.Preview(context.Background(), mdpublish.Input{Markdown: "# Diagram", EmbedID: "check-6"})
		if err != nil {
			t.Fatalf("Preview() error = %v", err)
		}
		// A mermaid block with the mermaid plugin disabled is never processed.
		doc := strings.Replace(res.HTML, "</body>", `<pre class="mermaid">graph TD; A-->B</pre></body>`, 1)

		got, err := checker.Check(context.Background(), doc, res.EmbedID, bound)
		if err != nil {
			t.Fatalf("Check() error = %v", err)
		}
		budget := slow.PollInterval * time.Duration(slow.MaxAttempts)
		if got.Settle < budget {
			t.Errorf("Settle = %v, want at least the poll budget %v", got.Settle, budget)
		}
		if got.Settle > bound+time.Second {
			t.Errorf("Settle = %v, want within bound %v", got.Settle, bound)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := checker.Check(ctx, "<p>x</p>", "check-4", time.Second); !errors.Is(err, context.Canceled) {
			t.Errorf("Check() error = %v, want context.Canceled", err)
		}
	})
}
