// Package logging provides a chainable structured-field builder used by
// every component, generalized from the teacher's
// pkg/shared/logging.Fields (pkg/shared/logging/fields_test.go).
package logging

import "time"

// Fields is a chainable map of structured log fields.
type Fields map[string]any

// NewFields returns an empty field set.
func NewFields() Fields {
	return Fields{}
}

func (f Fields) with(key string, value any) Fields {
	f[key] = value
	return f
}

// Component records the component emitting the log line (e.g.
// "delta_applier", "classification_engine").
func (f Fields) Component(name string) Fields { return f.with("component", name) }

// Operation records the operation in progress (e.g. "apply_delta").
func (f Fields) Operation(name string) Fields { return f.with("operation", name) }

// Resource records the resource type and, when non-empty, its name.
func (f Fields) Resource(kind, name string) Fields {
	f = f.with("resource_type", kind)
	if name != "" {
		f = f.with("resource_name", name)
	}
	return f
}

// Duration records an elapsed duration.
func (f Fields) Duration(d time.Duration) Fields { return f.with("duration_ms", d.Milliseconds()) }

// RunID records the job_metadata run_id this log line belongs to.
func (f Fields) RunID(runID int64) Fields { return f.with("run_id", runID) }

// ImportType records the list type an import log line concerns.
func (f Fields) ImportType(listType string) Fields { return f.with("import_type", listType) }

// Operator records the operator_id a log line concerns.
func (f Fields) Operator(operatorID string) Fields { return f.with("operator_id", operatorID) }

// Shard records the physical or virtual shard a log line concerns.
func (f Fields) Shard(n int) Fields { return f.with("shard", n) }

// Condition records the classification condition label.
func (f Fields) Condition(label string) Fields { return f.with("condition", label) }
