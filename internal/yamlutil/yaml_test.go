package yamlutil_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/study-groups/mdpublish/internal/yamlutil"
)

type siteConfig struct {
	Theme struct {
		ID   string `yaml:"id"`
		Mode string `yaml:"mode"`
	} `yaml:"theme"`
	DefaultTarget string `yaml:"defaultTarget"`
}

// ---------------------------------------------------------------------------
// TestDecodeStrict - Config decoding
// ---------------------------------------------------------------------------

func TestDecodeStrict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		dest    any
		wantErr error
		wantMsg string
	}{
		{name: "valid", input: "theme:\n  id: ocean\n  mode: dark\ndefaultTarget: prod\n", dest: &siteConfig{}},
		{name: "empty", input: "", dest: &siteConfig{}, wantErr: yamlutil.ErrNilData},
		{name: "nil destination", input: "theme: {}\n", dest: nil, wantErr: yamlutil.ErrNilDestination},
		{name: "unknown field", input: "theme:\n  id: ocean\n  palette: warm\n", dest: &siteConfig{}, wantMsg: "palette"},
		{name: "syntax error", input: "theme: [unclosed", dest: &siteConfig{}, wantMsg: "yamlutil:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := yamlutil.DecodeStrict([]byte(tt.input), tt.dest)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
			case tt.wantMsg != "":
				if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
					t.Errorf("error = %v, want message containing %q", err, tt.wantMsg)
				}
			case err != nil:
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDecodeStrict_Values(t *testing.T) {
	t.Parallel()

	var cfg siteConfig
	if err := yamlutil.DecodeStrict([]byte("theme:\n  id: ocean\n  mode: dark\ndefaultTarget: prod\n"), &cfg); err != nil {
		t.Fatalf("DecodeStrict() error = %v", err)
	}
	if cfg.Theme.ID != "ocean" || cfg.Theme.Mode != "dark" || cfg.DefaultTarget != "prod" {
		t.Errorf("decoded = %+v", cfg)
	}
}

// ---------------------------------------------------------------------------
// TestDecodeMap - Front matter decoding
// ---------------------------------------------------------------------------

func TestDecodeMap(t *testing.T) {
	t.Parallel()

	t.Run("mapping", func(t *testing.T) {
		t.Parallel()
		got, err := yamlutil.DecodeMap([]byte("title: Notes\ndraft: true\nweight: 3\n"))
		if err != nil {
			t.Fatalf("DecodeMap() error = %v", err)
		}
		if got["title"] != "Notes" || got["draft"] != true {
			t.Errorf("got %#v", got)
		}
	})

	t.Run("blank and null give empty map", func(t *testing.T) {
		t.Parallel()
		for _, in := range []string{"", "\n", "~\n", "null\n"} {
			got, err := yamlutil.DecodeMap([]byte(in))
			if err != nil || got == nil || len(got) != 0 {
				t.Errorf("DecodeMap(%q) = %#v, %v", in, got, err)
			}
		}
	})

	t.Run("non-mapping", func(t *testing.T) {
		t.Parallel()
		for _, in := range []string{"- a\n- b\n", "just text\n", "42\n"} {
			if _, err := yamlutil.DecodeMap([]byte(in)); !errors.Is(err, yamlutil.ErrNotMapping) {
				t.Errorf("DecodeMap(%q) error = %v, want ErrNotMapping", in, err)
			}
		}
	})

	t.Run("syntax error", func(t *testing.T) {
		t.Parallel()
		if _, err := yamlutil.DecodeMap([]byte("title: [x")); err == nil {
			t.Error("expected error")
		}
	})
}

// NOTE: modifies the package-level MaxInputSize; not parallel.
func TestInputSizeLimit(t *testing.T) {
	orig := yamlutil.MaxInputSize
	yamlutil.MaxInputSize = 16
	defer func() { yamlutil.MaxInputSize = orig }()

	big := []byte("title: " + strings.Repeat("x", 32) + "\n")
	if _, err := yamlutil.DecodeMap(big); !errors.Is(err, yamlutil.ErrInputTooLarge) {
		t.Errorf("DecodeMap error = %v, want ErrInputTooLarge", err)
	}
	if err := yamlutil.DecodeStrict(big, &siteConfig{}); !errors.Is(err, yamlutil.ErrInputTooLarge) {
		t.Errorf("DecodeStrict error = %v, want ErrInputTooLarge", err)
	}
}
