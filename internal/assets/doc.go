// Package assets provides the stylesheets and scripts a published document
// is assembled from.
//
// # Loader Architecture
//
// The package implements a layered loading system:
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - loads from go:embed filesystem (built-in assets)
//	    ├── FilesystemLoader  - loads from custom directory on disk
//	    └── AssetResolver     - combines both with custom-first fallback
//
// Assets are addressed by slash-separated relative paths, the same keys a
// publish target uses in its CSS path map (e.g. "styles/markdown.css").
//
// # Directory Structure
//
//	{basePath}/
//	├── styles/
//	│   ├── markdown.css         # structural markdown styles
//	│   ├── runtime.css          # published-page runtime styles
//	│   └── colors/
//	│       ├── base.css         # shared color-scheme rules
//	│       ├── light.css        # light mode palette
//	│       └── dark.css         # dark mode palette
//	├── scripts/
//	│   └── runtime.js           # published-page runtime script
//	└── templates/
//	    └── readiness.js         # preview readiness protocol template
//
// # Security
//
// Asset paths are validated to prevent path traversal attacks.
// FilesystemLoader resolves symlinks and verifies paths stay within basePath.
package assets
