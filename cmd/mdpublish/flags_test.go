package main

import (
	"errors"
	"io"
	"testing"

	flag "github.com/spf13/pflag"
)

// ---------------------------------------------------------------------------
// TestParseFlags - Per-command flag sets
// ---------------------------------------------------------------------------

func TestParsePreviewFlags(t *testing.T) {
	t.Parallel()

	f, pos, err := parsePreviewFlags([]string{"notes.md", "-o", "out.html", "--check", "-t", "prod", "-q"}, io.Discard)
	if err != nil {
		t.Fatalf("parsePreviewFlags() error = %v", err)
	}
	if len(pos) != 1 || pos[0] != "notes.md" {
		t.Errorf("positional = %v", pos)
	}
	if f.output != "out.html" || !f.check || f.target != "prod" || !f.common.quiet {
		t.Errorf("flags = %+v", f)
	}
}

func TestParseBuildFlags(t *testing.T) {
	t.Parallel()

	f, pos, err := parseBuildFlags([]string{"-w", "4", "--strategy", "linked", "-c", "site", "docs"}, io.Discard)
	if err != nil {
		t.Fatalf("parseBuildFlags() error = %v", err)
	}
	if len(pos) != 1 || pos[0] != "docs" {
		t.Errorf("positional = %v", pos)
	}
	if f.workers != 4 || f.strategy != "linked" || f.common.config != "site" {
		t.Errorf("flags = %+v", f)
	}
}

func TestParsePublishFlags(t *testing.T) {
	t.Parallel()

	f, _, err := parsePublishFlags([]string{"--path", "{YYYY}/notes.html", "-t", "prod", "-v", "a.md"}, io.Discard)
	if err != nil {
		t.Fatalf("parsePublishFlags() error = %v", err)
	}
	if f.path != "{YYYY}/notes.html" || f.target != "prod" || !f.common.verbose {
		t.Errorf("flags = %+v", f)
	}
}

func TestParseServeFlags(t *testing.T) {
	t.Parallel()

	f, _, err := parseServeFlags([]string{"-l", ":9000", "a.md"}, io.Discard)
	if err != nil {
		t.Fatalf("parseServeFlags() error = %v", err)
	}
	if f.listen != ":9000" {
		t.Errorf("listen = %q", f.listen)
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unknown flag is a usage error", func(t *testing.T) {
		t.Parallel()
		_, _, err := parseBuildFlags([]string{"--nope"}, io.Discard)
		if !errors.Is(err, ErrUsage) {
			t.Errorf("error = %v, want ErrUsage", err)
		}
	})

	t.Run("bad int is a usage error", func(t *testing.T) {
		t.Parallel()
		_, _, err := parseBuildFlags([]string{"-w", "many"}, io.Discard)
		if !errors.Is(err, ErrUsage) {
			t.Errorf("error = %v, want ErrUsage", err)
		}
	})

	t.Run("help passes through", func(t *testing.T) {
		t.Parallel()
		_, _, err := parseServeFlags([]string{"--help"}, io.Discard)
		if !errors.Is(err, flag.ErrHelp) {
			t.Errorf("error = %v, want flag.ErrHelp", err)
		}
		if errors.Is(err, ErrUsage) {
			t.Error("help must not be reported as a usage error")
		}
	})
}
