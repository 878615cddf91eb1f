package main

// Notes:
// - runMain: we test dispatch and exit codes. Command behavior is covered in
//   the per-command test files.
// - setMaxProcs is not tested: it mutates GOMAXPROCS for the whole process.

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestRunMain - Dispatch and exit codes
// ---------------------------------------------------------------------------

func TestRunMain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{"no command", []string{"mdpublish"}, ExitUsage, "", "Usage: mdpublish"},
		{"unknown command", []string{"mdpublish", "convert"}, ExitUsage, "", "Unknown command: convert"},
		{"version", []string{"mdpublish", "version"}, ExitSuccess, "mdpublish " + Version, ""},
		{"--version", []string{"mdpublish", "--version"}, ExitSuccess, "mdpublish ", ""},
		{"help", []string{"mdpublish", "help"}, ExitSuccess, "Commands:", ""},
		{"help publish", []string{"mdpublish", "help", "publish"}, ExitSuccess, "--path", ""},
		{"help unknown", []string{"mdpublish", "help", "nope"}, ExitSuccess, "", "Unknown command: nope"},
		{"command -h", []string{"mdpublish", "build", "-h"}, ExitSuccess, "", "Usage: mdpublish build"},
		{"bad flag", []string{"mdpublish", "preview", "--nope", "a.md"}, ExitUsage, "", "Error:"},
		{"missing input", []string{"mdpublish", "preview"}, ExitIO, "", "no input specified"},
		{"too many inputs", []string{"mdpublish", "publish", "a.md", "b.md"}, ExitUsage, "", "expected one markdown file"},
		{"not markdown", []string{"mdpublish", "serve", "notes.txt"}, ExitUsage, "", ".md or .markdown"},
		{"bad strategy", []string{"mdpublish", "build", "-s", "inline", "a.md"}, ExitUsage, "", "Error:"},
		{"bad workers", []string{"mdpublish", "build", "-w", "99", "a.md"}, ExitUsage, "", "invalid worker count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			code := runMain(tt.args, env.Environment)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, tt.wantCode, env.stderr)
			}
			if tt.wantStdout != "" && !strings.Contains(env.stdout.String(), tt.wantStdout) {
				t.Errorf("stdout = %q, want substring %q", env.stdout, tt.wantStdout)
			}
			if tt.wantStderr != "" && !strings.Contains(env.stderr.String(), tt.wantStderr) {
				t.Errorf("stderr = %q, want substring %q", env.stderr, tt.wantStderr)
			}
		})
	}
}

func TestRunMain_MissingConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	md := writeFile(t, dir, "notes.md", sampleMarkdown)

	env := newTestEnv(t)
	code := runMain([]string{"mdpublish", "preview", "-c", "no-such-site-xyz", md}, env.Environment)
	if code != ExitUsage {
		t.Errorf("exit code = %d, want %d", code, ExitUsage)
	}
	if !strings.Contains(env.stderr.String(), "hint: use --config") {
		t.Errorf("stderr should carry the config hint, got %q", env.stderr)
	}
}

// ---------------------------------------------------------------------------
// TestHasVerbose - Raw argument scan
// ---------------------------------------------------------------------------

func TestHasVerbose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		args []string
		want bool
	}{
		{nil, false},
		{[]string{"build", "a.md"}, false},
		{[]string{"build", "-v", "a.md"}, true},
		{[]string{"publish", "--verbose"}, true},
		{[]string{"build", "--", "-v"}, false},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			t.Parallel()

			if got := hasVerbose(tt.args); got != tt.want {
				t.Errorf("hasVerbose(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}
