package pipeline

import (
	"sort"
	"strings"

	"github.com/gosimple/slug"
)

// ResolveTheme returns theme with its gaps filled. A nil theme becomes
// FallbackTheme. A theme without colors keeps its ID and mode and borrows
// the fallback typography; it borrows the fallback colors only in light
// mode, since those tokens would override the dark mode stylesheet.
// An unknown mode is treated as light. The input is never mutated.
func ResolveTheme(theme *Theme) *Theme {
	if theme == nil {
		return FallbackTheme()
	}
	t := *theme
	if t.Mode != ModeDark && t.Mode != ModeLight {
		t.Mode = ModeLight
	}
	if len(t.Colors) == 0 {
		fb := FallbackTheme()
		if t.ID == "" {
			t.ID = fb.ID
		}
		if t.Mode == ModeLight {
			t.Colors = fb.Colors
		}
		if len(t.Typography) == 0 {
			t.Typography = fb.Typography
		}
	}
	return &t
}

// ThemeTokensCSS renders theme tokens as :root custom properties:
// --color-*, --font-*, --space-*, --effect-*, each group in sorted key order.
// Tokens whose name or value could break out of the declaration are dropped.
func ThemeTokensCSS(theme *Theme) string {
	if theme == nil {
		return ""
	}

	var b strings.Builder
	writeGroup := func(prefix string, tokens map[string]string) {
		keys := make([]string, 0, len(tokens))
		for k := range tokens {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			name := slug.Make(k)
			value := strings.TrimSpace(tokens[k])
			if name == "" || !safeTokenValue(value) {
				continue
			}
			b.WriteString("  --")
			b.WriteString(prefix)
			b.WriteString("-")
			b.WriteString(name)
			b.WriteString(": ")
			b.WriteString(value)
			b.WriteString(";\n")
		}
	}

	writeGroup("color", theme.Colors)
	writeGroup("font", theme.Typography)
	writeGroup("space", theme.Spacing)
	writeGroup("effect", theme.Effects)

	if b.Len() == 0 {
		return ""
	}
	return ":root {\n" + b.String() + "}"
}

func safeTokenValue(v string) bool {
	return v != "" && !strings.ContainsAny(v, ";{}<>\n\r")
}
