package fetch

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/study-groups/mdpublish/internal/assets"
)

// LocalFetcher reads files under a root directory. Relative references
// resolve against Root; file:// URLs and absolute paths must stay inside it.
type LocalFetcher struct {
	root     string
	maxBytes int64
}

// NewLocalFetcher creates a LocalFetcher rooted at dir.
func NewLocalFetcher(dir string, maxBytes int64) (*LocalFetcher, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", dir, err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &LocalFetcher{root: abs, maxBytes: maxBytes}, nil
}

// Fetch reads the referenced file.
func (l *LocalFetcher) Fetch(ctx context.Context, ref string) (*Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := l.resolve(ref)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrFetch, ref)
	}
	if info.Size() > l.maxBytes {
		return nil, fmt.Errorf("%w: %s (max %d bytes)", ErrTooLarge, ref, l.maxBytes)
	}

	body, err := os.ReadFile(p) // #nosec G304 -- path contained in root above
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	return &Resource{
		Ref:         ref,
		Body:        body,
		ContentType: mimetype.Detect(body).String(),
	}, nil
}

func (l *LocalFetcher) resolve(ref string) (string, error) {
	var p string
	switch {
	case strings.HasPrefix(strings.ToLower(ref), "file://"):
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrFetch, err)
		}
		p = filepath.FromSlash(u.Path)
	case filepath.IsAbs(ref):
		p = ref
	default:
		// Strip query and fragment from relative refs like img.png?v=2
		if i := strings.IndexAny(ref, "?#"); i >= 0 {
			ref = ref[:i]
		}
		unescaped, err := url.PathUnescape(ref)
		if err != nil {
			unescaped = ref
		}
		p = filepath.Join(l.root, filepath.FromSlash(unescaped))
	}

	if real, err := filepath.EvalSymlinks(p); err == nil {
		p = real
	}
	if !isPathUnderDir(p, l.root) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, ref)
	}
	return p, nil
}

// isPathUnderDir checks if absPath is under dir (prevents path traversal).
func isPathUnderDir(absPath, dir string) bool {
	cleanPath := filepath.Clean(absPath)
	cleanDir := filepath.Clean(dir)

	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}

	return strings.HasPrefix(cleanPath+string(filepath.Separator), cleanDir)
}

// AssetFetcher serves relative references from an asset loader.
type AssetFetcher struct {
	Loader assets.AssetLoader
}

// Fetch loads ref from the asset loader.
func (a *AssetFetcher) Fetch(ctx context.Context, ref string) (*Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean := strings.TrimPrefix(ref, "./")
	content, err := a.Loader.Load(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	return &Resource{
		Ref:         ref,
		Body:        []byte(content),
		ContentType: mime.TypeByExtension(path.Ext(clean)),
	}, nil
}

// Compile-time interface checks.
var (
	_ Fetcher = (*LocalFetcher)(nil)
	_ Fetcher = (*AssetFetcher)(nil)
)
