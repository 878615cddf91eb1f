package preview

import (
	"strings"
	"testing"
)

func TestRenderPage(t *testing.T) {
	t.Parallel()

	doc := `<p class="x">"quoted" & more</p>`
	page, err := renderPage(pageData{Title: "Notes <draft>", EmbedID: "embed-123", Document: doc, Version: 4, DocVersion: 3, Live: true})
	if err != nil {
		t.Fatalf("renderPage() error = %v", err)
	}

	tests := []struct {
		name string
		want string
	}{
		{"srcdoc is attribute escaped", `srcdoc="&lt;p class=&#34;x&#34;&gt;&#34;quoted&#34; &amp; more&lt;/p&gt;"`},
		{"title is escaped", "<title>Notes &lt;draft&gt;</title>"},
		{"embed id is a js string", `"embed-123"`},
		{"ready global", "window." + readyGlobal + " ="},
		{"listens for readiness", `"preview-ready"`},
		{"relays the shown build", `"/embed?version=" + shown`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if !strings.Contains(page, tt.want) {
				t.Errorf("page missing %q", tt.want)
			}
		})
	}

	if strings.Contains(page, doc) {
		t.Error("document must not appear unescaped")
	}
}

func TestRenderPage_EmbedIDInjection(t *testing.T) {
	t.Parallel()

	page, err := renderPage(pageData{EmbedID: `"; alert(1); "`})
	if err != nil {
		t.Fatalf("renderPage() error = %v", err)
	}
	if strings.Contains(page, `"; alert(1); "`) {
		t.Error("embed id must be escaped inside the script")
	}
}
