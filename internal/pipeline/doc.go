// Package pipeline implements the stages that turn rendered markdown into a
// preview or publish document.
//
// Stages, in the order the orchestrator runs them:
//   - Rendering: GoldmarkRenderer (or any Renderer) produces an HTML fragment
//     and front matter
//   - Bundling CSS: CSSBuilder decides between embedded, linked and hybrid
//     stylesheets and fetches what must be embedded
//   - Inlining resources: ResourceInliner turns image references into data
//     URIs (publish only)
//   - Injecting scripts: ScriptInjector emits plugin tags and, for previews,
//     the readiness protocol script
//   - Assembling: AssembleDocument writes the final HTML in a fixed order
//
// Stages never share mutable state; every run builds its own values.
// Uploading is handled by the root mdpublish package.
package pipeline
