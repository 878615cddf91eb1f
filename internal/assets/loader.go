package assets

// Built-in asset paths.
const (
	MarkdownCSS     = "styles/markdown.css"
	ColorBaseCSS    = "styles/colors/base.css"
	ColorLightCSS   = "styles/colors/light.css"
	ColorDarkCSS    = "styles/colors/dark.css"
	RuntimeCSS      = "styles/runtime.css"
	RuntimeJS       = "scripts/runtime.js"
	ReadinessScript = "templates/readiness.js"
)

// AssetLoader defines the contract for loading stylesheets and scripts.
// Implementations may load from embedded assets, filesystem, S3, database, etc.
type AssetLoader interface {
	// Load returns the asset content at a relative, slash-separated path.
	// Returns ErrAssetNotFound if the asset doesn't exist.
	// Returns ErrInvalidAssetPath if the path is unsafe.
	Load(path string) (string, error)
}
