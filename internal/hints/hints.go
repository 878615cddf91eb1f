// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/study-groups/mdpublish/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForBrowserConnect returns hints for headless browser launch errors.
// Detects CI/Docker environment and suggests relevant environment variables.
func ForBrowserConnect() string {
	var hints []string

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	if (inCI || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}

	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use custom Chrome")
	}

	return formatHints(hints)
}

// ForNotReady returns a hint for previews that never reported readiness.
func ForNotReady() string {
	return format("raise preview.readiness.maxAttempts, or open the preview and check the console for plugin errors")
}

// ForConfigNotFound returns hints for config file not found errors.
// Suggests --config flag and creating a config in ~/.config/mdpublish/.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/mdpublish") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForTargetNotFound lists the configured publish targets.
func ForTargetNotFound(available []string) string {
	if len(available) == 0 {
		return format("add a targets section to the config file")
	}
	return format("available: " + strings.Join(available, ", ") + "; use --target <name>")
}

// ForCredentials returns a hint when a publish target rejects the request
// for authorization reasons. message is the target's own error text.
func ForCredentials(message string) string {
	lower := strings.ToLower(message)
	for _, marker := range []string{"accessdenied", "access denied", "invalidaccesskeyid", "signaturedoesnotmatch", "no valid credential", "forbidden"} {
		if strings.Contains(lower, marker) {
			return format("check the target credentials, or set MDPUBLISH_ACCESS_KEY and MDPUBLISH_SECRET_KEY")
		}
	}
	return ""
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
