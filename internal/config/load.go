package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultFile is read from the working directory when no explicit file is given.
const DefaultFile = "musicetl.yaml"

// EnvPrefix prefixes environment overrides. A double underscore separates
// nesting levels: MUSICETL_STORAGE__DB__HOST sets storage.db.host.
const EnvPrefix = "MUSICETL_"

// Defaults returns the built-in configuration layer.
func Defaults() map[string]any {
	return map[string]any{
		"job":                       "musicetl",
		"sources.nominations.path":  "data/the_grammy_awards.csv",
		"sources.catalog.path":      "data/spotify_dataset.csv",
		"sources.http.timeout":      "60s",
		"sources.http.max_retries":  0,
		"parser.kind":               "csv",
		"parser.options.has_header": true,
		"parser.options.comma":      ",",
		"storage.kind":              "postgres",
		"remote.enabled":            true,
		"remote.title":              "songs_data.csv",
		"remote.folder_id":          "1LxynhSi5b4IBvddJTey9RrTQDfk_Cq_b",
		"remote.client_secrets":     "client_secrets.json",
		"remote.token_file":         "credentials_module.json",
		"metrics.backend":           "none",
		"log.level":                 "info",
		"log.format":                "json",
		"schedule.spec":             "@daily",
		"schedule.debounce":         "2s",
	}
}

// flagKeys maps CLI flag names onto config keys. Flags not listed map by
// replacing dashes with underscores.
var flagKeys = map[string]string{
	"nominations":  "sources.nominations.path",
	"catalog":      "sources.catalog.path",
	"http-retries": "sources.http.max_retries",
	"storage":      "storage.kind",
	"dsn":          "storage.db.dsn",
	"remote":       "remote.enabled",
	"folder-id":    "remote.folder_id",
	"title":        "remote.title",
	"metrics":      "metrics.backend",
	"push-url":     "metrics.push_url",
	"statsd-addr":  "metrics.addr",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"cron":         "schedule.spec",
	"debounce":     "schedule.debounce",
}

// Load builds a Pipeline from defaults, the YAML file at path (or
// DefaultFile when path is empty and the file exists), DB_* variables,
// MUSICETL_* variables and explicitly set flags, in increasing precedence.
// flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Pipeline, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return Pipeline{}, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Pipeline{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	// DB_USER, DB_PASSWORD, DB_HOST, DB_NAME, DB_PORT, DB_KIND
	if err := k.Load(env.Provider("DB_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "DB_"))
		if key == "kind" {
			return "storage.kind"
		}
		return "storage.db." + key
	}), nil); err != nil {
		return Pipeline{}, fmt.Errorf("load DB_ env: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return Pipeline{}, fmt.Errorf("load %s env: %w", EnvPrefix, err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return Pipeline{}, fmt.Errorf("load flags: %w", err)
		}
	}

	var p Pipeline
	if err := k.Unmarshal("", &p); err != nil {
		return Pipeline{}, fmt.Errorf("decode config: %w", err)
	}
	if p.Parser.Options == nil {
		p.Parser.Options = Options{}
	}
	return p, nil
}
