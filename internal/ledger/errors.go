package ledger

import "fmt"

// ConflictError marks an attempt to alter the validation judgment of a
// record that has already been signed off.
type ConflictError struct {
	ID string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("record %s is signed; its validation judgment is immutable", e.ID)
}

// PreconditionError marks a sign-off attempt on a record without a passing
// validation.
type PreconditionError struct {
	ID     string
	Reason string
}

func (e PreconditionError) Error() string {
	return fmt.Sprintf("record %s cannot be signed: %s", e.ID, e.Reason)
}
