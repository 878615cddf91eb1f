// Package mdpublish turns Markdown documents into self-contained HTML, either
// as a live preview for an embedding page or as a standalone document
// uploaded to S3-compatible storage.
//
// # Quick Start
//
// Create a publisher and build a document:
//
//	pub, err := mdpublish.NewPublisher()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := pub.Build(ctx, mdpublish.Input{
//	    Markdown: "# Hello\n\nWorld",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("hello.html", []byte(result.HTML), 0644)
//
// # Pipeline
//
// Every run goes through the same stages:
//
//  1. Rendering: markdown to an HTML fragment plus front matter (goldmark)
//  2. Bundling CSS: embedded, linked or hybrid stylesheets
//  3. Inlining resources: images become data URIs (publish only)
//  4. Injecting scripts: plugins, and the readiness protocol for previews
//  5. Assembling: the final document, in a fixed section order
//
// Only rendering is fatal. A stylesheet, image or script that cannot be
// fetched is logged and left out; the document is still produced.
//
// # Previews
//
// Preview documents embed all CSS and carry a readiness script. Once
// diagrams, math and images have settled, the document posts
//
//	{"type": "preview-ready", "embedId": "<id>"}
//
// to its parent window exactly once. Result.EmbedID holds the identifier.
//
// # Publishing
//
// Publish needs a PublishTarget. The default uploader picks the driver from
// PublishTarget.Driver (s3 or minio):
//
//	result, err := pub.Publish(ctx, mdpublish.Input{
//	    Markdown:   content,
//	    SourcePath: "notes/post.md", // relative images resolve here
//	    Target: &mdpublish.PublishTarget{
//	        Name:        "prod",
//	        Bucket:      "docs",
//	        Region:      "eu-west-1",
//	        CSSStrategy: mdpublish.StrategyEmbedded,
//	    },
//	})
//	var perr *mdpublish.PublishError
//	if errors.As(err, &perr) {
//	    log.Printf("target said: %s", perr.Message)
//	}
//
// # Configuration
//
// Use functional options to customize the publisher:
//
//	pub, err := mdpublish.NewPublisher(
//	    mdpublish.WithAssetPath("/path/to/custom/assets"),
//	    mdpublish.WithHighlightStyle("monokai"),
//	    mdpublish.WithInlineConcurrency(4),
//	    mdpublish.WithLogger(logger),
//	)
//
// Asset directory structure (any file missing falls back to the embedded
// copy):
//
//	assets/
//	├── styles/
//	│   ├── markdown.css
//	│   ├── runtime.css
//	│   └── colors/
//	│       ├── base.css
//	│       ├── light.css
//	│       └── dark.css
//	├── scripts/
//	│   └── runtime.js
//	└── templates/
//	    └── readiness.js
package mdpublish
