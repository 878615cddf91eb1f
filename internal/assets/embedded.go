package assets

import (
	"embed"
	"fmt"
)

//go:embed styles scripts templates
var builtin embed.FS

// EmbeddedLoader loads assets from embedded filesystem.
// Implements AssetLoader interface.
type EmbeddedLoader struct{}

// NewEmbeddedLoader creates an EmbeddedLoader.
func NewEmbeddedLoader() *EmbeddedLoader {
	return &EmbeddedLoader{}
}

// Load reads a built-in asset by relative path.
func (e *EmbeddedLoader) Load(path string) (string, error) {
	if err := ValidateAssetPath(path); err != nil {
		return "", err
	}

	content, err := builtin.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrAssetNotFound, path)
	}

	return string(content), nil
}

// Compile-time interface check.
var _ AssetLoader = (*EmbeddedLoader)(nil)
