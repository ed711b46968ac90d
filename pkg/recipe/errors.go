package recipe

import (
	"fmt"
	"strings"
)

// ValidationError reports an option value that is not part of the option's legal set. It is raised before any
// lifecycle hook runs.
type ValidationError struct {
	Option string
	Value  string
	Legal  []string
	Reason string
}

var _ error = (*ValidationError)(nil)

func (e *ValidationError) Error() string {
	legal := "{" + strings.Join(e.Legal, ", ") + "}"
	switch {
	case e.Reason != "":
		return fmt.Sprintf("invalid option %s: %s (legal values: %s)", e.Option, e.Reason, legal)
	default:
		return fmt.Sprintf("invalid value %q for option %s (legal values: %s)", e.Value, e.Option, legal)
	}
}

// ConfigurationError means the active toolchain can't satisfy the recipe's requirements.
type ConfigurationError struct {
	Setting  string
	Required string
	Actual   string
	// Unknown is set when Actual isn't a standard revision that can be compared
	Unknown bool
}

var _ error = (*ConfigurationError)(nil)

func (e *ConfigurationError) Error() string {
	if e.Unknown {
		return fmt.Sprintf("current %s (%s) is not a known standard revision but at least %s is required", e.Setting, e.Actual, e.Required)
	}
	if e.Actual == "" {
		return fmt.Sprintf("%s could not be determined but at least %s is required", e.Setting, e.Required)
	}
	return fmt.Sprintf("current %s (%s) is lower than the required %s", e.Setting, e.Actual, e.Required)
}

// BuildError wraps a failure of the delegated tool's configure or build step.
type BuildError struct {
	Step string
	Err  error
}

var _ error = (*BuildError)(nil)

func (e *BuildError) Error() string {
	return fmt.Sprintf("build step %s failed: %v", e.Step, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// PackagingError wraps a failure of the delegated tool's install step.
type PackagingError struct {
	Err error
}

var _ error = (*PackagingError)(nil)

func (e *PackagingError) Error() string {
	return fmt.Sprintf("install step failed: %v", e.Err)
}

func (e *PackagingError) Unwrap() error {
	return e.Err
}
