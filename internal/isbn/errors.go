package isbn

import (
	"errors"
	"fmt"
)

var (
	ErrNonNumericBody           = errors.New("isbn contains a non-numeric character before the check character")
	ErrNonNumericCheckCharacter = errors.New("isbn check character must be a digit, or X for ISBN-10")
	ErrInvalidLength            = errors.New("isbn must have 10 or 13 characters")
	ErrChecksumMismatch         = errors.New("isbn check character does not match")
)

// ValidationError carries the rejected identifier and the reason code.
type ValidationError struct {
	Identifier string
	Reason     Reason
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%q is not a valid isbn: %v", e.Identifier, e.Unwrap())
}

// Unwrap maps the reason to its sentinel so errors.Is works.
func (e *ValidationError) Unwrap() error {
	return e.Reason.sentinel()
}

// Message returns a human-readable description of the reason.
func (r Reason) Message() string {
	if err := r.sentinel(); err != nil {
		return err.Error()
	}
	return ""
}

func (r Reason) sentinel() error {
	switch r {
	case NonNumericBody:
		return ErrNonNumericBody
	case NonNumericCheckCharacter:
		return ErrNonNumericCheckCharacter
	case InvalidLength:
		return ErrInvalidLength
	case ChecksumMismatch:
		return ErrChecksumMismatch
	default:
		return nil
	}
}
