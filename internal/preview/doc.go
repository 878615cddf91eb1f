// Package preview hosts preview documents the way an embedding application
// does: inside an iframe, listening for the readiness message.
//
// Server serves a live container page for one markdown file and rebuilds it
// when the file changes. BrowserChecker loads a preview document in headless
// Chrome and waits for it to report ready.
package preview
