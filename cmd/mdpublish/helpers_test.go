package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/study-groups/mdpublish"
	"github.com/study-groups/mdpublish/internal/preview"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Environment, fixtures and mocks
// ---------------------------------------------------------------------------

var fixedNow = time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC)

// testEnv is an Environment whose output is captured and whose process
// environment is empty. EnvFile points at a file that does not exist.
type testEnv struct {
	*Environment
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestEnv(t *testing.T, environ ...string) *testEnv {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	return &testEnv{
		Environment: &Environment{
			Now:     func() time.Time { return fixedNow },
			Stdout:  stdout,
			Stderr:  stderr,
			Environ: func() []string { return environ },
			EnvFile: filepath.Join(t.TempDir(), "missing.env"),
			NewChecker: func() preview.Checker {
				t.Error("unexpected checker creation")
				return &mockChecker{}
			},
		},
		stdout: stdout,
		stderr: stderr,
	}
}

// writeFile writes content under dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return path
}

const sampleMarkdown = "# Field Notes\n\nSome *text* and `code`.\n"

// mockUploader records uploads and answers with resp or err.
type mockUploader struct {
	mu   sync.Mutex
	reqs []mdpublish.UploadRequest
	resp *mdpublish.UploadResponse
	err  error
}

func (m *mockUploader) Upload(_ context.Context, req mdpublish.UploadRequest) (*mdpublish.UploadResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqs = append(m.reqs, req)
	return m.resp, m.err
}

func (m *mockUploader) requests() []mdpublish.UploadRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mdpublish.UploadRequest(nil), m.reqs...)
}

func (m *mockUploader) factory() mdpublish.UploaderFactory {
	return func(context.Context, mdpublish.PublishTarget) (mdpublish.Uploader, error) {
		return m, nil
	}
}

// mockChecker returns result or err and records the call.
type mockChecker struct {
	result  *preview.CheckResult
	err     error
	doc     string
	embedID string
	bound   time.Duration
	closed  bool
}

func (m *mockChecker) Check(_ context.Context, document, embedID string, bound time.Duration) (*preview.CheckResult, error) {
	m.doc, m.embedID, m.bound = document, embedID, bound
	return m.result, m.err
}

func (m *mockChecker) Close() error {
	m.closed = true
	return nil
}

var (
	_ mdpublish.Uploader = (*mockUploader)(nil)
	_ preview.Checker    = (*mockChecker)(nil)
)
