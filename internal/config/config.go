// Package config defines the configuration model for the music ETL and the
// helpers used to load and lint it.
//
// Values come from, lowest precedence first: built-in defaults, an optional
// YAML file, MUSICETL_* and DB_* environment variables, and command-line
// flags. See Load.
//
// Example (trimmed):
//
//	job: musicetl
//	sources:
//	  nominations: { path: data/the_grammy_awards.csv }
//	  catalog:     { path: data/spotify_dataset.csv }
//	parser:
//	  kind: csv
//	  options: { has_header: true, comma: "," }
//	storage:
//	  kind: postgres
//	  db: { host: localhost, user: etl, name: music }
//	remote:
//	  enabled: true
//	  folder_id: 1LxynhSi5b4IBvddJTey9RrTQDfk_Cq_b
package config

import (
	"strconv"
	"strings"
	"time"
)

// Pipeline is the full configuration for one pipeline run.
type Pipeline struct {
	// Job names the pipeline for metrics grouping and log lines.
	Job string `koanf:"job"`

	Sources Sources `koanf:"sources"`

	// Parser configures how raw bytes are turned into tables.
	Parser Parser `koanf:"parser"`

	Storage  Storage  `koanf:"storage"`
	Remote   Remote   `koanf:"remote"`
	Metrics  Metrics  `koanf:"metrics"`
	Log      Log      `koanf:"log"`
	Schedule Schedule `koanf:"schedule"`
}

// Sources holds the two input files.
type Sources struct {
	Nominations SourceFile `koanf:"nominations"`
	Catalog     SourceFile `koanf:"catalog"`

	// HTTP applies to source paths that are http(s) URLs.
	HTTP HTTP `koanf:"http"`
}

// HTTP configures the client that fetches URL sources. Zero durations take
// the client defaults; MaxRetries 0 disables retries.
type HTTP struct {
	Timeout        time.Duration     `koanf:"timeout"`
	MaxRetries     int               `koanf:"max_retries"`
	InitialBackoff time.Duration     `koanf:"initial_backoff"`
	MaxBackoff     time.Duration     `koanf:"max_backoff"`
	Header         map[string]string `koanf:"header"`
}

// SourceFile holds configuration for a local file source.
type SourceFile struct {
	// Path is the local filesystem path to the input file.
	Path string `koanf:"path"`
}

// Parser selects how to parse the raw source into logical rows/columns.
type Parser struct {
	// Kind selects the parser implementation. Current value: "csv".
	Kind string `koanf:"kind"`

	// Options is a free-form map interpreted by the parser implementation.
	// For CSV, typical keys include:
	//   has_header (bool), comma (string), trim_space (bool),
	//   expected_fields (int), lazy_quotes (bool), header_map (object)
	Options Options `koanf:"options"`
}

// Storage selects the relational backend.
type Storage struct {
	// Kind selects the backend: postgres, mysql, mssql or sqlite.
	Kind string   `koanf:"kind"`
	DB   DBConfig `koanf:"db"`
}

// DBConfig carries connection settings. When DSN is empty the backend builds
// one from the discrete fields. For sqlite, Name is the database file path.
type DBConfig struct {
	DSN      string `koanf:"dsn"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
}

// Remote configures the CSV snapshot upload.
type Remote struct {
	Enabled bool `koanf:"enabled"`

	// Title is the file name in the remote folder; an existing file with this
	// name is overwritten.
	Title    string `koanf:"title"`
	FolderID string `koanf:"folder_id"`

	// ClientSecrets is the OAuth client JSON downloaded from the cloud console.
	ClientSecrets string `koanf:"client_secrets"`
	// TokenFile caches the authorized token between runs.
	TokenFile string `koanf:"token_file"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "none", "prom" or "datadog".
	Backend string `koanf:"backend"`
	// PushURL is the Prometheus Pushgateway base URL.
	PushURL string `koanf:"push_url"`
	// Addr is the DogStatsD address, e.g. "127.0.0.1:8125".
	Addr string `koanf:"addr"`
}

// Log controls logger construction.
type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
}

// Schedule controls the long-running modes.
type Schedule struct {
	// Spec is a cron expression or descriptor such as "@daily".
	Spec string `koanf:"spec"`
	// Debounce is how long watch mode waits after the last write before
	// rerunning.
	Debounce time.Duration `koanf:"debounce"`
}

// Options is a small helper to fetch typed values from free-form maps. It
// performs only minimal type coercion and returns provided defaults when a key
// is absent or of an unexpected type. Values loaded from the environment
// arrive as strings and are parsed.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. Decoders disagree on numeric
// types (JSON yields float64, YAML int, env string), so all three are accepted.
func (o Options) Int(key string, def int) int {
	switch n := o[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. This is useful for single-character parser settings such as
// a CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored. Returns an empty map
// when the key is missing or the value is not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if m, ok := o[key].(map[string]any); ok {
		for k, vv := range m {
			if s, ok := vv.(string); ok {
				res[k] = s
			}
		}
	}
	return res
}

// StringSlice returns a []string for key when the value is an array of
// strings or a comma-separated string. Returns nil when the key is missing.
func (o Options) StringSlice(key string) []string {
	switch vv := o[key].(type) {
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return vv
	case string:
		var out []string
		for _, s := range strings.Split(vv, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Any returns the raw value for key, or nil.
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}
