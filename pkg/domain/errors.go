package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGraphDefinition marks every compile-time failure.
	ErrGraphDefinition = errors.New("invalid graph definition")

	// ErrUnknownField is returned when a field is not declared in the schema.
	ErrUnknownField = errors.New("unknown field")

	// ErrUndeclaredWrite is returned when a node writes a field outside its declared Writes.
	ErrUndeclaredWrite = errors.New("undeclared write")

	// ErrInvalidUpdate is returned when an update value does not fit the field's policy.
	ErrInvalidUpdate = errors.New("invalid update")

	// ErrNodeNotFound signals an active node missing from the compiled graph.
	// It indicates a compiler or executor bug.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNodeFailed wraps an error returned (or a panic raised) by a node.
	ErrNodeFailed = errors.New("node failed")

	// ErrUnmappedDecision is returned when a decision label has no route.
	ErrUnmappedDecision = errors.New("unmapped decision")

	// ErrCycleDetected is returned when a run would enter a node it already executed.
	ErrCycleDetected = errors.New("cycle detected")

	// ErrCancelled is the reason of runs stopped by their context.
	ErrCancelled = errors.New("run cancelled")

	// ErrSessionNotFound is returned when a session ID cannot be found in the store.
	ErrSessionNotFound = errors.New("session not found")
)

// GraphDefinitionError lists every problem found while compiling a graph.
type GraphDefinitionError struct {
	Problems []string
}

func (e *GraphDefinitionError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("invalid graph definition: %s", e.Problems[0])
	}
	return fmt.Sprintf("invalid graph definition (%d problems):\n- %s", len(e.Problems), strings.Join(e.Problems, "\n- "))
}

// Is makes errors.Is(err, ErrGraphDefinition) true.
func (e *GraphDefinitionError) Is(target error) bool {
	return target == ErrGraphDefinition
}

// FieldError describes a rejected field in a node update.
type FieldError struct {
	NodeID string
	Field  string
	Err    error
}

func (e *FieldError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("node %q field %q: %v", e.NodeID, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// RunError is the terminal Failed outcome of a run.
//
// Reason is one of the sentinel errors of this package (ErrNodeFailed,
// ErrCancelled, ErrCycleDetected, ...); Err is the underlying cause.
// State is the RunState at the point of failure and is never nil.
type RunError struct {
	RunID  string
	Reason error
	NodeID string
	Label  string
	Path   []string
	State  *RunState
	Err    error
}

func (e *RunError) Error() string {
	if e.Err == nil || e.Err == e.Reason {
		return fmt.Sprintf("run %s failed at node %q: %v", e.RunID, e.NodeID, e.Reason)
	}
	return fmt.Sprintf("run %s failed at node %q: %v: %v", e.RunID, e.NodeID, e.Reason, e.Err)
}

// Unwrap exposes both the reason and the cause to errors.Is / errors.As.
func (e *RunError) Unwrap() []error {
	errs := []error{e.Reason}
	if e.Err != nil && e.Err != e.Reason {
		errs = append(errs, e.Err)
	}
	return errs
}

var reasonCodes = []struct {
	err  error
	code string
}{
	{ErrCancelled, "cancelled"},
	{ErrCycleDetected, "cycle_detected"},
	{ErrUnmappedDecision, "unmapped_decision"},
	{ErrUndeclaredWrite, "undeclared_write"},
	{ErrUnknownField, "unknown_field"},
	{ErrInvalidUpdate, "invalid_update"},
	{ErrNodeNotFound, "node_not_found"},
	{ErrNodeFailed, "node_failed"},
}

// ReasonCode returns a stable snake_case code for the reason of a run failure,
// suitable for metric labels and API payloads. A nil error yields "".
func ReasonCode(err error) string {
	if err == nil {
		return ""
	}
	var runErr *RunError
	if errors.As(err, &runErr) && runErr.Reason != nil {
		err = runErr.Reason
	}
	for _, rc := range reasonCodes {
		if errors.Is(err, rc.err) {
			return rc.code
		}
	}
	return "unknown"
}
