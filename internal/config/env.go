package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/study-groups/mdpublish/internal/pipeline"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MDPUBLISH_"

// Environment variables read by ApplyEnv.
const (
	EnvAccessKey     = EnvPrefix + "ACCESS_KEY"
	EnvSecretKey     = EnvPrefix + "SECRET_KEY"
	EnvDefaultTarget = EnvPrefix + "DEFAULT_TARGET"
	EnvAssetPath     = EnvPrefix + "ASSET_PATH"
	EnvLogLevel      = EnvPrefix + "LOG_LEVEL"
	EnvThemeID       = EnvPrefix + "THEME_ID"
	EnvThemeMode     = EnvPrefix + "THEME_MODE"
)

// Theme token prefixes: MDPUBLISH_COLOR_LINK=#0af sets theme.colors.link.
var tokenPrefixes = []struct {
	prefix string
	group  string
}{
	{EnvPrefix + "COLOR_", "colors"},
	{EnvPrefix + "FONT_", "typography"},
	{EnvPrefix + "SPACE_", "spacing"},
	{EnvPrefix + "EFFECT_", "effects"},
}

// ReadEnvFile reads KEY=VALUE pairs from a dotenv file. A missing file
// yields an empty map.
func ReadEnvFile(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, path, err)
	}
	return env, nil
}

// MergeEnv overlays the process environment on file values. Process
// variables win.
func MergeEnv(file map[string]string, environ []string) map[string]string {
	out := make(map[string]string, len(file))
	for k, v := range file {
		out[k] = v
	}
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, EnvPrefix) {
			out[k] = v
		}
	}
	return out
}

// LoadEnv reads path (usually ".env") and the process environment.
func LoadEnv(path string) (map[string]string, error) {
	file, err := ReadEnvFile(path)
	if err != nil {
		return nil, err
	}
	return MergeEnv(file, os.Environ()), nil
}

// ApplyEnv applies MDPUBLISH_* overrides and validates the result.
// Credentials fill only targets that have none configured.
func (c *Config) ApplyEnv(env map[string]string) error {
	if v := env[EnvDefaultTarget]; v != "" {
		c.DefaultTarget = v
	}
	if v := env[EnvAssetPath]; v != "" {
		c.Assets.BasePath = v
	}
	if v := env[EnvLogLevel]; v != "" {
		c.Logging.Level = v
	}
	if v := env[EnvThemeID]; v != "" {
		c.Theme.ID = v
	}
	if v := env[EnvThemeMode]; v != "" {
		c.Theme.Mode = pipeline.ThemeMode(strings.ToLower(strings.TrimSpace(v)))
	}

	for k, v := range env {
		for _, tp := range tokenPrefixes {
			name, ok := strings.CutPrefix(k, tp.prefix)
			if !ok || name == "" {
				continue
			}
			c.setToken(tp.group, envTokenName(name), v)
		}
	}

	access, secret := env[EnvAccessKey], env[EnvSecretKey]
	if access != "" && secret != "" {
		for name, t := range c.Targets {
			if t.Credentials.AccessKey == "" && t.Credentials.SecretKey == "" {
				t.Credentials.AccessKey = access
				t.Credentials.SecretKey = secret
				c.Targets[name] = t
			}
		}
	}

	return c.Validate()
}

func (c *Config) setToken(group, name, value string) {
	var m *map[string]string
	switch group {
	case "colors":
		m = &c.Theme.Colors
	case "typography":
		m = &c.Theme.Typography
	case "spacing":
		m = &c.Theme.Spacing
	case "effects":
		m = &c.Theme.Effects
	default:
		return
	}
	if *m == nil {
		*m = map[string]string{}
	}
	(*m)[name] = value
}

// envTokenName turns CODE_BACKGROUND into code-background.
func envTokenName(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "_", "-")
}
