package domain

import "fmt"

// NotFoundError reports a mutation that targeted a nonexistent task id.
type NotFoundError struct {
	ID int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("task %d not found", e.ID)
}

// ValidationError reports a field value outside its enumeration, raised only
// under the Reject policy.
type ValidationError struct {
	Field string
	Value string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}
