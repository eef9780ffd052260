// Package isbn validates and classifies ISBN-10 and ISBN-13 identifiers.
//
// Validation is a pure function of its input: it performs no I/O, holds no
// state and may be called concurrently from any number of goroutines.
package isbn

import "strings"

// Standard identifies which ISBN variant an identifier belongs to.
type Standard string

const (
	ISBN10  Standard = "ISBN_10"
	ISBN13  Standard = "ISBN_13"
	Unknown Standard = ""
)

// Reason explains why an identifier was rejected.
type Reason string

const (
	NonNumericBody           Reason = "NON_NUMERIC_BODY"
	NonNumericCheckCharacter Reason = "NON_NUMERIC_CHECK_CHARACTER"
	InvalidLength            Reason = "INVALID_LENGTH"
	ChecksumMismatch         Reason = "CHECKSUM_MISMATCH"
)

// Outcome is the result of validating a single identifier.
// Exactly one of Standard or Reason is set.
type Outcome struct {
	Normalized string
	Standard   Standard
	Reason     Reason
}

// Valid reports whether the identifier passed validation.
func (o Outcome) Valid() bool {
	return o.Reason == ""
}

// Err returns nil for a valid outcome, otherwise a *ValidationError.
func (o Outcome) Err() error {
	if o.Valid() {
		return nil
	}
	return &ValidationError{Identifier: o.Normalized, Reason: o.Reason}
}

// Normalize removes every hyphen from raw. No other character is touched.
func Normalize(raw string) string {
	return strings.ReplaceAll(raw, "-", "")
}

// Classify labels a normalized identifier by its length alone.
func Classify(normalized string) Standard {
	switch len(normalized) {
	case 10:
		return ISBN10
	case 13:
		return ISBN13
	default:
		return Unknown
	}
}

// Validate normalizes raw and checks it against the ISBN-10 or ISBN-13
// checksum rules. The check letter X is only accepted in upper case.
func Validate(raw string) Outcome {
	s := Normalize(raw)
	if len(s) == 0 {
		return invalid(s, InvalidLength)
	}

	// The terminal character is judged before the body.
	last := len(s) - 1
	var check int
	switch c := s[last]; {
	case c == 'X':
		check = 10
	case isDigit(c):
		check = int(c - '0')
	default:
		return invalid(s, NonNumericCheckCharacter)
	}

	for i := 0; i < last; i++ {
		if !isDigit(s[i]) {
			return invalid(s, NonNumericBody)
		}
	}

	var control int
	switch Classify(s) {
	case ISBN10:
		control = checksum10(s)
	case ISBN13:
		if check == 10 {
			return invalid(s, NonNumericCheckCharacter)
		}
		control = checksum13(s)
	default:
		return invalid(s, InvalidLength)
	}

	if control != check {
		return invalid(s, ChecksumMismatch)
	}
	return Outcome{Normalized: s, Standard: Classify(s)}
}

// checksum10 weights the first nine digits 1..9 and reduces mod 11.
func checksum10(s string) int {
	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(s[i]-'0') * (i + 1)
	}
	return sum % 11
}

// checksum13 weights the first twelve digits alternately 1 and 3.
func checksum13(s string) int {
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(s[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return (10 - sum%10) % 10
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func invalid(normalized string, reason Reason) Outcome {
	return Outcome{Normalized: normalized, Reason: reason}
}
