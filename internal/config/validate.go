package config

// Static validation of Config values: a list of issues (errors and warnings)
// that callers can surface in the CLI before touching the network or the
// database.

import "strings"

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding worth surfacing that does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into the
// config (e.g. "database.host").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect one.
func (i Issue) Error() string {
	return string(i.Severity) + " at " + i.Path + ": " + i.Message
}

// Validate performs static validation of a Config. It does not mutate the
// config; callers decide whether warnings block execution.
func Validate(c Config) []Issue {
	var issues []Issue

	need := func(path, value, msg string) {
		if strings.TrimSpace(value) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: msg})
		}
	}

	need("database.host", c.Database.Host, "host must not be empty")
	need("database.port", c.Database.Port, "port must not be empty")
	need("database.name", c.Database.Name, "database name is required (POSTGRES_DB)")
	need("database.user", c.Database.User, "user is required (POSTGRES_USER)")

	if strings.TrimSpace(c.Database.Password) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "database.password",
			Message:  "password is empty (POSTGRES_PASSWORD); relying on other auth",
		})
	}
	need("data_dir", c.DataDir, "data directory must not be empty")

	return issues
}

// HasError reports whether any issue is of error severity.
func HasError(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
