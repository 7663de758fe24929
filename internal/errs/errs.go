// Package errs defines the DIRBS Core error taxonomy (spec.md §7). Each
// kind is a distinct type so callers can classify failures with
// errors.As instead of string matching.
package errs

import "fmt"

// OperationError is the common shape every typed error embeds,
// generalized from the teacher's pkg/shared/errors.OperationError.
type OperationError struct {
	Operation string
	Component string
	Resource  string
	Cause     error
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("failed to %s", e.Operation)
	if e.Component != "" {
		msg += fmt.Sprintf(", component: %s", e.Component)
	}
	if e.Resource != "" {
		msg += fmt.Sprintf(", resource: %s", e.Resource)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(", cause: %s", e.Cause)
	}
	return msg
}

func (e *OperationError) Unwrap() error { return e.Cause }

// ConfigError indicates invalid or missing configuration. Fatal at
// startup; never raised mid-run.
type ConfigError struct{ *OperationError }

func NewConfigError(operation string, cause error) *ConfigError {
	return &ConfigError{&OperationError{Operation: operation, Component: "config", Cause: cause}}
}

// PrevalidationError indicates a zip/filename/schema violation. Fatal to
// the single import; no historic writes are attempted.
type PrevalidationError struct {
	*OperationError
	Check string // "zip", "filename", "schema"
}

func NewPrevalidationError(check, operation string, cause error) *PrevalidationError {
	return &PrevalidationError{
		OperationError: &OperationError{Operation: operation, Component: "prevalidator", Cause: cause},
		Check:          check,
	}
}

// ThresholdError indicates a row-invariant, historic-size, or
// delta-sanity breach. Fatal to the single import.
type ThresholdError struct {
	*OperationError
	Reason string // used to derive the validation_failures.<reason> metric
}

func NewThresholdError(reason, operation string, cause error) *ThresholdError {
	return &ThresholdError{
		OperationError: &OperationError{Operation: operation, Component: "threshold_guard", Cause: cause},
		Reason:         reason,
	}
}

// ClassificationSafetyError indicates a condition exceeded
// max_allowed_matching_ratio. That condition is skipped; others may
// proceed.
type ClassificationSafetyError struct {
	*OperationError
	Condition     string
	ObservedRatio float64
	AllowedRatio  float64
}

func NewClassificationSafetyError(condition string, observed, allowed float64) *ClassificationSafetyError {
	return &ClassificationSafetyError{
		OperationError: &OperationError{
			Operation: fmt.Sprintf("classify condition %s", condition),
			Component: "classification_engine",
		},
		Condition:     condition,
		ObservedRatio: observed,
		AllowedRatio:  allowed,
	}
}

func (e *ClassificationSafetyError) Error() string {
	return fmt.Sprintf("condition %s exceeded max_allowed_matching_ratio: %.4f > %.4f",
		e.Condition, e.ObservedRatio, e.AllowedRatio)
}

// ListgenSanityError indicates a run-over-run delta exceeding the
// allowed variance. No output is written.
type ListgenSanityError struct {
	*OperationError
	ComputedFraction float64
	AllowedFraction  float64
}

func NewListgenSanityError(computed, allowed float64) *ListgenSanityError {
	return &ListgenSanityError{
		OperationError:   &OperationError{Operation: "generate lists", Component: "listgen"},
		ComputedFraction: computed,
		AllowedFraction:  allowed,
	}
}

func (e *ListgenSanityError) Error() string {
	return fmt.Sprintf("listgen delta fraction %.4f exceeds allowed fraction %.4f",
		e.ComputedFraction, e.AllowedFraction)
}

// TransientDbError indicates connection loss or deadlock. The importer
// retries the whole transaction up to a bounded count with exponential
// backoff, then surfaces this as fatal.
type TransientDbError struct{ *OperationError }

func NewTransientDbError(operation string, cause error) *TransientDbError {
	return &TransientDbError{&OperationError{Operation: operation, Component: "database", Cause: cause}}
}

// InternalError wraps any uncaught error, logged with stack context.
type InternalError struct{ *OperationError }

func NewInternalError(component, operation string, cause error) *InternalError {
	return &InternalError{&OperationError{Operation: operation, Component: component, Cause: cause}}
}
