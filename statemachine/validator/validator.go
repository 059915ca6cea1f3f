// Package validator checks a machine definition for structural problems that
// the table builder accepts but that usually indicate a mistake.
package validator

import (
	"fmt"
	"strings"

	"github.com/amp-labs/amp-lifecycle/statemachine"
)

// Subject is what the rules inspect: a definition and the state machines
// built from it start in.
type Subject struct {
	Definition statemachine.Definition
	Initial    statemachine.State
}

// ValidationResult contains the results of validating a definition.
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// ValidationError represents a problem that makes the definition unusable
// as intended.
type ValidationError struct {
	Code     string
	Message  string
	Location Location
}

// ValidationWarning represents a non-critical issue.
type ValidationWarning struct {
	Code     string
	Message  string
	Location Location
}

// Location identifies where an issue occurred.
type Location struct {
	File       string
	State      string
	Transition string
}

// Validate runs the default rules.
func Validate(def statemachine.Definition, initial statemachine.State) ValidationResult {
	return ValidateWithRules(Subject{Definition: def, Initial: initial}, DefaultRules())
}

// ValidateFile loads a YAML config, builds it and validates the result.
func ValidateFile(path string) (ValidationResult, error) {
	return ValidateFileWithOptions(path, false)
}

// ValidateFileStrict is ValidateFile with warnings promoted to errors.
func ValidateFileStrict(path string) (ValidationResult, error) {
	return ValidateFileWithOptions(path, true)
}

// ValidateFileWithOptions loads, builds and validates a YAML config.
func ValidateFileWithOptions(path string, strict bool) (ValidationResult, error) {
	config, err := statemachine.LoadConfig(path)
	if err == nil {
		var (
			table   *statemachine.Table
			initial statemachine.State
		)

		table, initial, err = config.Build()
		if err == nil {
			subject := Subject{Definition: table, Initial: initial}

			result := ValidateWithRules(subject, DefaultRules())
			if strict {
				result = ValidateWithRulesStrict(subject, DefaultRules())
			}

			return withFile(result, path), nil
		}
	}

	return ValidationResult{
		Valid: false,
		Errors: []ValidationError{
			{
				Code:     "CONFIG_LOAD_FAILED",
				Message:  fmt.Sprintf("Failed to load config: %v", err),
				Location: Location{File: path},
			},
		},
	}, err
}

// ValidateWithRules validates using custom rules.
func ValidateWithRules(subject Subject, rules []Rule) ValidationResult {
	result := ValidationResult{Valid: true}

	if subject.Definition == nil {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{
			Code:    "MISSING_DEFINITION",
			Message: "No definition to validate",
		})

		return result
	}

	for _, rule := range rules {
		ruleResult := rule.Check(subject)
		result.Errors = append(result.Errors, ruleResult.Errors...)
		result.Warnings = append(result.Warnings, ruleResult.Warnings...)
	}

	if len(result.Errors) > 0 {
		result.Valid = false
	}

	return result
}

// ValidateWithRulesStrict validates with warnings treated as errors.
func ValidateWithRulesStrict(subject Subject, rules []Rule) ValidationResult {
	result := ValidateWithRules(subject, rules)

	for _, warning := range result.Warnings {
		result.Errors = append(result.Errors, ValidationError(warning))
	}

	result.Warnings = nil

	if len(result.Errors) > 0 {
		result.Valid = false
	}

	return result
}

func withFile(result ValidationResult, path string) ValidationResult {
	for i := range result.Errors {
		if result.Errors[i].Location.File == "" {
			result.Errors[i].Location.File = path
		}
	}

	for i := range result.Warnings {
		if result.Warnings[i].Location.File == "" {
			result.Warnings[i].Location.File = path
		}
	}

	return result
}

// HasErrors returns true if the result has any errors.
func (r ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if the result has any warnings.
func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// String returns a human-readable summary of validation results.
func (r ValidationResult) String() string {
	var sb strings.Builder

	if r.Valid {
		sb.WriteString("Definition is valid\n")
	} else {
		sb.WriteString(fmt.Sprintf("Definition has %d error(s)\n", len(r.Errors)))
	}

	for _, err := range r.Errors {
		sb.WriteString(fmt.Sprintf("  [%s] %s%s\n", err.Code, err.Message, err.Location.suffix()))
	}

	if len(r.Warnings) > 0 {
		sb.WriteString(fmt.Sprintf("%d warning(s):\n", len(r.Warnings)))

		for _, warn := range r.Warnings {
			sb.WriteString(fmt.Sprintf("  [%s] %s%s\n", warn.Code, warn.Message, warn.Location.suffix()))
		}
	}

	return sb.String()
}

func (l Location) suffix() string {
	switch {
	case l.Transition != "":
		return fmt.Sprintf(" (transition: %s)", l.Transition)
	case l.State != "":
		return fmt.Sprintf(" (state: %s)", l.State)
	default:
		return ""
	}
}
