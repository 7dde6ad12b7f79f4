// This file adds a lightweight linter/validator for Config values. It
// performs static checks over a decoded Config and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Config.
//
// Path is a dotted path into the config (e.g. "sink.kind",
// "runtime.chunk_size"). Message is human-readable.
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

// Validate performs static validation / linting of a Config.
//
// It does not mutate the config. Instead it returns a slice of Issue values.
// Callers may decide whether to treat warnings as fatal or not.
func Validate(c Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; metrics and reports will use the source name",
		})
	}

	if strings.TrimSpace(c.Source.Locator) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.locator",
			Message:  "source.locator must not be empty",
		})
	}

	switch c.Clean.ForceHeader {
	case "", HeaderAuto, HeaderForce, HeaderSkip:
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "clean.force_header",
			Message:  fmt.Sprintf("unknown header mode %q (want auto, force, or skip)", c.Clean.ForceHeader),
		})
	}

	switch c.Sink.Kind {
	case "", "csv", "sqlite", "postgres":
	default:
		// Unknown kinds are warnings for forward compatibility; the sink
		// factory will still reject them at run time.
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "sink.kind",
			Message:  fmt.Sprintf("unknown sink kind %q", c.Sink.Kind),
		})
	}
	switch c.Sink.Kind {
	case "sqlite", "postgres":
		if c.Sink.Options.String("dsn", "") == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "sink.options.dsn",
				Message:  "dsn is required for database sinks",
			})
		}
		if c.Sink.Options.String("table", "") == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "sink.options.table",
				Message:  "table is required for database sinks",
			})
		}
	case "csv":
		if c.Sink.Options.String("path", "") == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "sink.options.path",
				Message:  "path is required for the csv sink",
			})
		}
	}

	if c.Runtime.ChunkSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.chunk_size",
			Message:  "chunk_size must be >= 0",
		})
	}
	if c.Runtime.MaxRowsSampled < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.max_rows_sampled_for_working_set",
			Message:  "max_rows_sampled_for_working_set must be >= 0",
		})
	}
	if c.Runtime.SampleRowBudget < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.sample_row_budget",
			Message:  "sample_row_budget must be >= 0",
		})
	}
	if c.Runtime.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.workers",
			Message:  "workers must be >= 0",
		})
	}
	if c.Runtime.ChunkSize > 0 && c.Runtime.MaxRowsSampled > 0 &&
		c.Runtime.ChunkSize > c.Runtime.MaxRowsSampled {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.chunk_size",
			Message:  "chunk_size exceeds the working-set cap; bounded stages will see less than one full chunk",
		})
	}

	switch c.Runtime.Metrics.Backend {
	case "", "none", "pushgateway":
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q", c.Runtime.Metrics.Backend),
		})
	}

	return issues
}
