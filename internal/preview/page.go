package preview

import (
	"bytes"
	"fmt"
	"html/template"
)

// pageData fills the container page.
type pageData struct {
	Title    string
	EmbedID  string
	Document string
	Version    int64
	DocVersion int64 // build that produced Document
	Live       bool  // poll the server for rebuilds and report readiness back
}

// readyGlobal is set by the container page when the readiness message
// arrives. BrowserChecker reads it.
const readyGlobal = "__mdpublishReady"

var containerPage = template.Must(template.New("container").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
  html, body { margin: 0; height: 100%; font-family: system-ui, sans-serif; }
  body { display: flex; flex-direction: column; }
  #bar { display: flex; gap: 1rem; align-items: center; padding: .4rem .8rem; border-bottom: 1px solid #ddd; font-size: .85rem; }
  #status[data-state="ready"] { color: #1a7f37; }
  #status[data-state="error"] { color: #cf222e; }
  #preview { flex: 1; border: 0; width: 100%; }
</style>
</head>
<body>
<div id="bar"><strong>{{.Title}}</strong><span id="status" data-state="loading">loading</span><span id="error"></span></div>
<iframe id="preview" title="preview" srcdoc="{{.Document}}"></iframe>
<script>
(function () {
  var embedId = {{.EmbedID}};
  var version = {{.Version}};
  var shown = {{.DocVersion}};
  var live = {{.Live}};
  var frame = document.getElementById("preview");
  var status = document.getElementById("status");
  var errorBox = document.getElementById("error");
  var loadedAt = performance.now();

  function setState(state, text) {
    status.dataset.state = state;
    status.textContent = text;
  }

  window.addEventListener("message", function (event) {
    var msg = event.data || {};
    if (msg.type !== "preview-ready" || msg.embedId !== embedId) { return; }
    var settle = Math.round(performance.now() - loadedAt);
    window.{{.ReadyGlobal}} = { message: JSON.stringify(msg), settleMs: settle };
    setState("ready", "ready in " + settle + " ms");
    if (live) {
      fetch("/embed?version=" + shown, { method: "POST", headers: { "Content-Type": "application/json" }, body: JSON.stringify(msg) });
    }
  });

  if (!live) { return; }

  setInterval(function () {
    fetch("/version").then(function (r) { return r.json(); }).then(function (v) {
      errorBox.textContent = v.error || "";
      if (v.error) { setState("error", "build failed"); }
      if (v.version === version) { return; }
      version = v.version;
      return fetch("/document").then(function (r) {
        if (!r.ok) { return; }
        var built = Number(r.headers.get("X-Preview-Version"));
        return r.text().then(function (doc) {
          setState("loading", "loading");
          loadedAt = performance.now();
          shown = built;
          frame.srcdoc = doc;
        });
      });
    }).catch(function () { setState("error", "server unreachable"); });
  }, 1000);
})();
</script>
</body>
</html>
`))

// renderPage executes the container page template.
func renderPage(d pageData) (string, error) {
	var buf bytes.Buffer
	err := containerPage.Execute(&buf, struct {
		pageData
		ReadyGlobal template.JS
	}{d, template.JS(readyGlobal)})
	if err != nil {
		return "", fmt.Errorf("rendering container page: %w", err)
	}
	return buf.String(), nil
}
