package novaguard

import (
	"errors"
	"fmt"
)

// ErrPatientNotFound is returned when a patient ID has no record.
var ErrPatientNotFound = errors.New("patient not found")

// ErrUnparsableInput is returned when no prescription or drug name could
// be extracted from the request text.
var ErrUnparsableInput = errors.New("could not parse input")

// UserError carries a message that is safe to show to the pharmacist,
// separate from the underlying cause. Anything not wrapped in a UserError
// is presented with a generic message; the cause only ever reaches logs
// and the diagnostic detail field.
type UserError struct {
	Msg   string
	Cause error
}

func (e *UserError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

// Unwrap returns the underlying error.
func (e *UserError) Unwrap() error {
	return e.Cause
}

// UserMessage extracts a safe display message from err. It returns the
// UserError message when one is in the chain and ok=false otherwise.
func UserMessage(err error) (string, bool) {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Msg, true
	}
	return "", false
}
