package catalog

import "fmt"

// ValidationError reports malformed input: an empty required field, a year
// outside [1, 9998], or a due date that is not YYYY-MM-DD.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an id with no matching book.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("book %s not found", e.ID)
}

// StateError reports an operation that is invalid for the book's current
// status, such as borrowing an already-borrowed book.
type StateError struct {
	ID     string
	Status Status
	Op     string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s book %s: status is %s", e.Op, e.ID, e.Status)
}
