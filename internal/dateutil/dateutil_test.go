package dateutil

import (
	"errors"
	"testing"
	"time"
)

func TestLayout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		format  string
		want    string
		wantErr error
	}{
		{name: "YYYY converts to Go year format", format: "YYYY", want: "2006"},
		{name: "YY converts to short year format", format: "YY", want: "06"},
		{name: "MMMM converts to full month name", format: "MMMM", want: "January"},
		{name: "MMM converts to short month name", format: "MMM", want: "Jan"},
		{name: "MM converts to zero-padded month", format: "MM", want: "01"},
		{name: "M converts to month", format: "M", want: "1"},
		{name: "DD converts to zero-padded day", format: "DD", want: "02"},
		{name: "D converts to day", format: "D", want: "2"},
		{name: "separators are kept", format: "YYYY/MM-DD", want: "2006/01-02"},
		{name: "iso preset", format: "iso", want: "2006-01-02"},
		{name: "month preset is case insensitive", format: "MONTH", want: "2006/01"},
		{name: "day preset", format: "day", want: "2006/01/02"},
		{name: "empty format", format: "", wantErr: ErrInvalidPattern},
		{name: "too long", format: "YYYY-MM-DD-YYYY-MM-DD-YYYY-MM-DD-YYYY-MM-DD-YYYY-MM-DD", wantErr: ErrInvalidPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Layout(tt.format)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Layout(%q) error = %v, want %v", tt.format, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Layout(%q) unexpected error: %v", tt.format, err)
			}
			if got != tt.want {
				t.Errorf("Layout(%q) = %q, want %q", tt.format, got, tt.want)
			}
		})
	}
}

func TestExpand(t *testing.T) {
	t.Parallel()

	// Fixed time for deterministic tests: 2024-03-05
	fixedTime := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		pattern string
		want    string
		wantErr error
	}{
		{name: "empty pattern", pattern: "", want: ""},
		{name: "literal passthrough", pattern: "notes/drafts", want: "notes/drafts"},
		{name: "single placeholder", pattern: "notes/{YYYY}", want: "notes/2024"},
		{name: "several placeholders", pattern: "notes/{YYYY}/{MM}/{D}", want: "notes/2024/03/5"},
		{name: "combined placeholder", pattern: "blog/{YYYY-MM}", want: "blog/2024-03"},
		{name: "preset placeholder", pattern: "archive/{day}", want: "archive/2024/03/05"},
		{name: "month name", pattern: "{MMM}-report.html", want: "Mar-report.html"},
		{name: "literal text around", pattern: "v1-{YY}-final", want: "v1-24-final"},
		{name: "unclosed brace", pattern: "notes/{YYYY", wantErr: ErrInvalidPattern},
		{name: "stray closing brace", pattern: "notes/YYYY}", wantErr: ErrInvalidPattern},
		{name: "empty placeholder", pattern: "notes/{}", wantErr: ErrInvalidPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Expand(tt.pattern, fixedTime)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expand(%q) error = %v, want %v", tt.pattern, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expand(%q) unexpected error: %v", tt.pattern, err)
			}
			if got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := Validate("docs/{YYYY}/{MM}"); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
	if err := Validate("docs/{YYYY"); !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("Validate() error = %v, want ErrInvalidPattern", err)
	}
}
