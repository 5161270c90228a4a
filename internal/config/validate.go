package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "remote.folder_id"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// StorageKinds lists the relational backends the binary knows about.
var StorageKinds = []string{"postgres", "mysql", "mssql", "sqlite"}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Callers may decide whether to treat
// warnings as fatal or not.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics grouping and log lines",
		})
	}
	issues = append(issues, validateSources(p.Sources)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateRemote(p.Remote)...)
	issues = append(issues, validateMetrics(p.Metrics)...)
	issues = append(issues, validateLog(p.Log)...)
	issues = append(issues, validateSchedule(p.Schedule)...)
	return issues
}

func validateSources(s Sources) []Issue {
	var issues []Issue
	if strings.TrimSpace(s.Nominations.Path) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "sources.nominations.path",
			Message:  "nominations source requires a non-empty path",
		})
	}
	// A missing catalog is tolerated at run time (empty table), so only warn.
	if strings.TrimSpace(s.Catalog.Path) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "sources.catalog.path",
			Message:  "catalog path is empty; the run will continue with an empty catalog",
		})
	}
	return append(issues, validateHTTP(s.HTTP)...)
}

func validateHTTP(h HTTP) []Issue {
	var issues []Issue
	for _, f := range []struct {
		path string
		val  time.Duration
	}{
		{"sources.http.timeout", h.Timeout},
		{"sources.http.initial_backoff", h.InitialBackoff},
		{"sources.http.max_backoff", h.MaxBackoff},
	} {
		if f.val < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     f.path,
				Message:  "duration must not be negative",
			})
		}
	}
	if h.MaxRetries < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "sources.http.max_retries",
			Message:  fmt.Sprintf("max_retries must not be negative, got %d", h.MaxRetries),
		})
	}
	if h.MaxBackoff > 0 && h.InitialBackoff > h.MaxBackoff {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "sources.http.max_backoff",
			Message:  "max_backoff is below initial_backoff; every retry waits max_backoff",
		})
	}
	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Kind) == "" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  "parser.kind must not be empty",
		})
	}
	if p.Kind != "csv" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  fmt.Sprintf("unsupported parser kind %q; only csv is implemented", p.Kind),
		})
	}
	if !p.Options.Bool("has_header", true) && p.Options.Int("expected_fields", 0) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "parser.options",
			Message:  "csv parser has neither a header nor expected_fields; columns will be named col_N",
		})
	}
	if c := p.Options.String("comma", ","); len([]rune(c)) != 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.options.comma",
			Message:  fmt.Sprintf("comma must be a single character, got %q", c),
		})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
	}
	known := false
	for _, k := range StorageKinds {
		if k == s.Kind {
			known = true
			break
		}
	}
	if !known {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; expected one of %s", s.Kind, strings.Join(StorageKinds, ", ")),
		})
	}

	db := s.DB
	if strings.TrimSpace(db.DSN) != "" {
		return issues
	}
	if strings.TrimSpace(db.Name) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.name",
			Message:  "storage.db.dsn is empty and no database name is set (DB_NAME)",
		})
	}
	if s.Kind != "sqlite" && strings.TrimSpace(db.Host) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.host",
			Message:  "storage.db.dsn is empty and no host is set (DB_HOST)",
		})
	}
	if db.Port < 0 || db.Port > 65535 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.port",
			Message:  fmt.Sprintf("port %d out of range", db.Port),
		})
	}
	return issues
}

func validateRemote(r Remote) []Issue {
	if !r.Enabled {
		return nil
	}
	var issues []Issue
	for _, f := range []struct{ path, val string }{
		{"remote.title", r.Title},
		{"remote.folder_id", r.FolderID},
		{"remote.client_secrets", r.ClientSecrets},
		{"remote.token_file", r.TokenFile},
	} {
		if strings.TrimSpace(f.val) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     f.path,
				Message:  "required when remote.enabled is true",
			})
		}
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	switch m.Backend {
	case "", "none":
		return nil
	case "prom":
		if strings.TrimSpace(m.PushURL) == "" {
			return []Issue{{
				Severity: SeverityError,
				Path:     "metrics.push_url",
				Message:  "prom backend requires a Pushgateway URL",
			}}
		}
		return nil
	case "datadog":
		if strings.TrimSpace(m.Addr) == "" {
			return []Issue{{
				Severity: SeverityError,
				Path:     "metrics.addr",
				Message:  "datadog backend requires a DogStatsD address",
			}}
		}
		return nil
	}
	return []Issue{{
		Severity: SeverityWarning,
		Path:     "metrics.backend",
		Message:  fmt.Sprintf("unknown metrics backend %q; metrics will be discarded", m.Backend),
	}}
}

func validateLog(l Log) []Issue {
	switch l.Format {
	case "", "json", "console":
		return nil
	}
	return []Issue{{
		Severity: SeverityWarning,
		Path:     "log.format",
		Message:  fmt.Sprintf("unknown log format %q; falling back to json", l.Format),
	}}
}

func validateSchedule(s Schedule) []Issue {
	var issues []Issue
	if _, err := cron.ParseStandard(s.Spec); err != nil {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "schedule.spec",
			Message:  fmt.Sprintf("invalid cron expression %q: %v", s.Spec, err),
		})
	}
	if s.Debounce < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "schedule.debounce",
			Message:  "debounce must not be negative",
		})
	}
	return issues
}
