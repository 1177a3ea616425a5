package domain

import "fmt"

// SchemaError reports malformed or unmappable raw data. Row-level cast
// failures are absorbed and counted inside the normalizer; a SchemaError
// only escapes when the table as a whole is unusable (unparsable date
// column, drop rate over the configured threshold, missing key column).
type SchemaError struct {
	Source string // configuration profile the table was normalized under
	Column string // offending column, when one can be named
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("schema error in %s source, column %q: %s", e.Source, e.Column, e.Reason)
	}
	return fmt.Sprintf("schema error in %s source: %s", e.Source, e.Reason)
}

// AlignmentError reports that the requested window cannot be aligned:
// either no trading dates overlap it at all, or a requested ticker has no
// data in range. It is fatal; no partial matrix is returned.
type AlignmentError struct {
	Ticker string // empty when the whole window is empty
	Reason string
}

func (e *AlignmentError) Error() string {
	if e.Ticker != "" {
		return fmt.Sprintf("alignment error for %s: %s", e.Ticker, e.Reason)
	}
	return "alignment error: " + e.Reason
}

// ConfigError reports invalid request or configuration input (bad weights,
// bad thresholds, out-of-range ticker counts). It is raised at request
// setup, before any computation runs.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in %s: %s", e.Field, e.Reason)
	}
	return "config error: " + e.Reason
}
