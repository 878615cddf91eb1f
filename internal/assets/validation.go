package assets

import (
	"fmt"
	"path"
	"strings"
)

// ValidateAssetPath checks that an asset path is a clean relative path.
// Returns ErrInvalidAssetPath if the path is empty, absolute, uses
// backslashes or NUL bytes, or climbs out of the asset root.
func ValidateAssetPath(p string) error {
	if p == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidAssetPath)
	}
	if strings.ContainsAny(p, "\\\x00") || strings.HasPrefix(p, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidAssetPath, p)
	}
	if path.Clean(p) != p {
		return fmt.Errorf("%w: %q is not clean", ErrInvalidAssetPath, p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." || seg == "." {
			return fmt.Errorf("%w: %q", ErrInvalidAssetPath, p)
		}
	}
	return nil
}
