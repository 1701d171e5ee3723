package domain

import "fmt"

// Policy controls how an unrecognized column, priority or category value
// submitted by a caller is handled.
type Policy int

const (
	// Coerce silently replaces an unrecognized value with the field default.
	Coerce Policy = iota
	// Reject fails the mutation with a ValidationError.
	Reject
)

// ParsePolicy maps a configuration string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "coerce":
		return Coerce, nil
	case "reject":
		return Reject, nil
	}
	return Coerce, fmt.Errorf("unknown validation policy %q", s)
}
